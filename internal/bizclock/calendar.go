package bizclock

import "time"

// Policy selects how elapsed time is counted for an SLA.
type Policy int

const (
	// Continuous counts raw wall-clock time.
	Continuous Policy = iota
	// BusinessWindow counts only time between Monday 08:00 and Friday 17:00.
	BusinessWindow
)

const (
	windowOpenHour  = 8
	windowCloseHour = 17
)

// PolicyFor maps the catalogue flag onto a Policy.
func PolicyFor(useBusinessWindow bool) Policy {
	if useBusinessWindow {
		return BusinessWindow
	}
	return Continuous
}

func (p Policy) String() string {
	if p == BusinessWindow {
		return "business_window"
	}
	return "continuous"
}

// Calendar interprets instants in a fixed location. Weekday and hour-of-day
// are always read in that location, never in the host's local zone.
type Calendar struct {
	loc *time.Location
}

// NewCalendar returns a calendar bound to loc. A nil location means UTC.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// LoadCalendar resolves an IANA zone name into a Calendar.
func LoadCalendar(name string) (Calendar, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Calendar{}, err
	}
	return NewCalendar(loc), nil
}

// Location returns the calendar's time zone.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// CountedElapsed returns the counted milliseconds between two epoch-millisecond
// instants. A start after end yields zero. The total is accumulated in
// milliseconds so spans beyond the range of time.Duration stay exact.
func (c Calendar) CountedElapsed(startMs, endMs int64, useBusinessWindow bool) int64 {
	if startMs >= endMs {
		return 0
	}
	if !useBusinessWindow {
		return endMs - startMs
	}
	var total int64
	c.sweep(time.UnixMilli(startMs), time.UnixMilli(endMs), func(from, to time.Time) {
		total += to.UnixMilli() - from.UnixMilli()
	})
	return total
}

// Elapsed returns the counted time between start and end under policy.
func (c Calendar) Elapsed(start, end time.Time, policy Policy) time.Duration {
	if !start.Before(end) {
		return 0
	}
	if policy != BusinessWindow {
		return end.Sub(start)
	}
	var total time.Duration
	c.sweep(start, end, func(from, to time.Time) {
		total += to.Sub(from)
	})
	return total
}

// sweep calls add for each counted segment of [start, end).
func (c Calendar) sweep(start, end time.Time, add func(from, to time.Time)) {
	cursor := start.In(c.Location())
	end = end.In(c.Location())
	for cursor.Before(end) {
		if c.excluded(cursor) {
			cursor = c.nextOpen(cursor)
			continue
		}
		boundary := c.weekClose(cursor)
		if end.Before(boundary) {
			boundary = end
		}
		add(cursor, boundary)
		cursor = boundary
	}
}

// Deadline returns the earliest instant at which the counted time since start
// reaches budget. A non-positive budget returns start.
func (c Calendar) Deadline(start time.Time, budget time.Duration, policy Policy) time.Time {
	if budget <= 0 {
		return start
	}
	if policy != BusinessWindow {
		return start.Add(budget)
	}

	cursor := start.In(c.Location())
	remaining := budget
	for {
		if c.excluded(cursor) {
			cursor = c.nextOpen(cursor)
			continue
		}
		boundary := c.weekClose(cursor)
		segment := boundary.Sub(cursor)
		if remaining <= segment {
			return cursor.Add(remaining)
		}
		remaining -= segment
		cursor = boundary
	}
}

// InWindow reports whether t falls inside the active business window.
func (c Calendar) InWindow(t time.Time) bool {
	return !c.excluded(t.In(c.Location()))
}

func (c Calendar) excluded(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	case time.Monday:
		return t.Hour() < windowOpenHour
	case time.Friday:
		return t.Hour() >= windowCloseHour
	}
	return false
}

// nextOpen returns the Monday 08:00 that ends the pause t sits in.
func (c Calendar) nextOpen(t time.Time) time.Time {
	var days int
	switch t.Weekday() {
	case time.Friday:
		days = 3
	case time.Saturday:
		days = 2
	case time.Sunday:
		days = 1
	}
	return time.Date(t.Year(), t.Month(), t.Day()+days, windowOpenHour, 0, 0, 0, c.Location())
}

// weekClose returns Friday 17:00 of t's week. t must be Monday through Friday.
func (c Calendar) weekClose(t time.Time) time.Time {
	days := int(time.Friday - t.Weekday())
	return time.Date(t.Year(), t.Month(), t.Day()+days, windowCloseHour, 0, 0, 0, c.Location())
}
