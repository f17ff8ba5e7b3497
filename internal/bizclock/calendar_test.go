package bizclock

import (
	"math/rand"
	"testing"
	"time"
	_ "time/tzdata"
)

const (
	hourMs = int64(time.Hour / time.Millisecond)
	dayMs  = 24 * hourMs
)

// 2024-01-01 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.January, day, hour, minute, 0, 0, time.UTC)
}

func ms(t time.Time) int64 { return t.UnixMilli() }

func TestCountedElapsedScenarios(t *testing.T) {
	cal := NewCalendar(time.UTC)

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		business bool
		expected int64
	}{
		{"monday morning", at(1, 8, 0), at(1, 10, 0), true, 2 * hourMs},
		{"friday into monday", at(5, 16, 0), at(8, 9, 0), true, 2 * hourMs},
		{"inside saturday", at(6, 10, 0), at(6, 18, 0), true, 0},
		{"full week windowed", at(1, 8, 0), at(8, 8, 0), true, 4*dayMs + 9*hourMs},
		{"full week continuous", at(1, 8, 0), at(8, 8, 0), false, 7 * dayMs},
		{"weekday nights count", at(2, 20, 0), at(3, 6, 0), true, 10 * hourMs},
		{"monday before open", at(8, 3, 0), at(8, 8, 30), true, 30 * 60 * 1000},
		{"friday after close", at(5, 17, 0), at(5, 23, 0), true, 0},
		{"sunday to monday open", at(7, 12, 0), at(8, 8, 0), true, 0},
		{"two weekends", at(5, 12, 0), at(19, 12, 0), true, 5*hourMs + (4*dayMs + 9*hourMs) + 4*dayMs + 4*hourMs},
		{"zero span windowed", at(3, 11, 0), at(3, 11, 0), true, 0},
		{"zero span continuous", at(3, 11, 0), at(3, 11, 0), false, 0},
		{"reversed windowed", at(3, 12, 0), at(3, 11, 0), true, 0},
		{"reversed continuous", at(3, 12, 0), at(3, 11, 0), false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := cal.CountedElapsed(ms(tc.start), ms(tc.end), tc.business)
			if got != tc.expected {
				t.Fatalf("expected %d got %d", tc.expected, got)
			}
		})
	}
}

func TestCountedElapsedLongSpans(t *testing.T) {
	cal := NewCalendar(time.UTC)
	const weeks = 52000
	start := at(1, 8, 0)
	end := start.AddDate(0, 0, 7*weeks)

	tests := []struct {
		name     string
		start    int64
		end      int64
		business bool
		expected int64
	}{
		{"four centuries continuous", 0, 400 * 365 * dayMs, false, 12614400000000},
		{"thousand years continuous", ms(start), ms(end), false, 7 * weeks * dayMs},
		{"thousand years windowed", ms(start), ms(end), true, weeks * (4*dayMs + 9*hourMs)},
		{"reversed long span", 400 * 365 * dayMs, 0, false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := cal.CountedElapsed(tc.start, tc.end, tc.business)
			if got != tc.expected {
				t.Fatalf("expected %d got %d", tc.expected, got)
			}
		})
	}
}

func TestCountedElapsedKeepsMilliseconds(t *testing.T) {
	cal := NewCalendar(time.UTC)
	start := ms(at(2, 9, 0)) + 1
	end := ms(at(2, 9, 0)) + 1234
	if got := cal.CountedElapsed(start, end, true); got != 1233 {
		t.Fatalf("expected 1233 got %d", got)
	}
}

func TestCountedElapsedProperties(t *testing.T) {
	cal := NewCalendar(time.UTC)
	rng := rand.New(rand.NewSource(42))
	base := ms(at(1, 0, 0))

	for i := 0; i < 2000; i++ {
		start := base + rng.Int63n(60*dayMs)
		end := start + rng.Int63n(30*dayMs)

		continuous := cal.CountedElapsed(start, end, false)
		if continuous != end-start {
			t.Fatalf("continuous identity broken for %d..%d: %d", start, end, continuous)
		}

		windowed := cal.CountedElapsed(start, end, true)
		if windowed < 0 || windowed > continuous {
			t.Fatalf("windowed %d outside [0, %d] for %d..%d", windowed, continuous, start, end)
		}

		later := end + rng.Int63n(3*dayMs)
		if next := cal.CountedElapsed(start, later, true); next < windowed {
			t.Fatalf("not monotonic: %d then %d", windowed, next)
		}

		if expected := hourlyOracle(cal, start, end); windowed != expected {
			t.Fatalf("expected %d got %d for %d..%d", expected, windowed, start, end)
		}
	}
}

func TestCountedElapsedInsideOneWindow(t *testing.T) {
	cal := NewCalendar(time.UTC)
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{"monday open to thursday night", at(1, 8, 0), at(4, 23, 59)},
		{"tuesday to friday close", at(2, 0, 0), at(5, 17, 0)},
		{"short friday afternoon", at(5, 13, 15), at(5, 16, 45)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := cal.CountedElapsed(ms(tc.start), ms(tc.end), true)
			if got != ms(tc.end)-ms(tc.start) {
				t.Fatalf("expected %d got %d", ms(tc.end)-ms(tc.start), got)
			}
		})
	}
}

func TestCountedElapsedUsesCalendarLocation(t *testing.T) {
	mexico, err := LoadCalendar("America/Mexico_City")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	loc := mexico.Location()
	// Friday 16:00 local is 22:00 UTC, already after close for a UTC calendar.
	start := time.Date(2024, time.January, 5, 16, 0, 0, 0, loc)
	end := time.Date(2024, time.January, 8, 9, 0, 0, 0, loc)

	if got := mexico.CountedElapsed(ms(start), ms(end), true); got != 2*hourMs {
		t.Fatalf("mexico calendar: expected %d got %d", 2*hourMs, got)
	}
	utc := NewCalendar(nil)
	if got := utc.CountedElapsed(ms(start), ms(end), true); got != 7*hourMs {
		t.Fatalf("utc calendar: expected %d got %d", 7*hourMs, got)
	}
}

func TestCountedElapsedAcrossDSTChange(t *testing.T) {
	cal, err := LoadCalendar("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	loc := cal.Location()
	// Clocks move forward on Sunday 2024-03-10.
	start := time.Date(2024, time.March, 8, 16, 0, 0, 0, loc)
	end := time.Date(2024, time.March, 11, 9, 0, 0, 0, loc)
	if got := cal.CountedElapsed(ms(start), ms(end), true); got != 2*hourMs {
		t.Fatalf("expected %d got %d", 2*hourMs, got)
	}
}

func TestDeadline(t *testing.T) {
	cal := NewCalendar(time.UTC)
	tests := []struct {
		name     string
		start    time.Time
		budget   time.Duration
		policy   Policy
		expected time.Time
	}{
		{"continuous", at(5, 16, 0), 24 * time.Hour, Continuous, at(6, 16, 0)},
		{"inside window", at(1, 8, 0), 2 * time.Hour, BusinessWindow, at(1, 10, 0)},
		{"skips weekend", at(5, 16, 0), 2 * time.Hour, BusinessWindow, at(8, 9, 0)},
		{"starts on saturday", at(6, 10, 0), time.Hour, BusinessWindow, at(8, 9, 0)},
		{"ends exactly at close", at(5, 16, 0), time.Hour, BusinessWindow, at(5, 17, 0)},
		{"zero budget", at(6, 10, 0), 0, BusinessWindow, at(6, 10, 0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := cal.Deadline(tc.start, tc.budget, tc.policy)
			if !got.Equal(tc.expected) {
				t.Fatalf("expected %s got %s", tc.expected, got)
			}
		})
	}
}

func TestDeadlineInvertsElapsed(t *testing.T) {
	cal := NewCalendar(time.UTC)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		start := at(1, 0, 0).Add(time.Duration(rng.Int63n(30*dayMs)) * time.Millisecond)
		budget := time.Duration(rng.Int63n(20*dayMs)) * time.Millisecond
		for _, policy := range []Policy{Continuous, BusinessWindow} {
			deadline := cal.Deadline(start, budget, policy)
			if got := cal.Elapsed(start, deadline, policy); got != budget {
				t.Fatalf("%s: expected %s got %s", policy, budget, got)
			}
		}
	}
}

// hourlyOracle counts windowed time by walking hour boundaries; membership is
// constant inside a clock hour because the window opens and closes on the hour.
func hourlyOracle(cal Calendar, startMs, endMs int64) int64 {
	var total int64
	cursor := time.UnixMilli(startMs).In(cal.Location())
	end := time.UnixMilli(endMs)
	for cursor.Before(end) {
		next := cursor.Truncate(time.Hour).Add(time.Hour)
		if next.After(end) {
			next = end
		}
		if cal.InWindow(cursor) {
			total += next.Sub(cursor).Milliseconds()
		}
		cursor = next
	}
	return total
}
