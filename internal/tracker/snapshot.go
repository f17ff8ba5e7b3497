package tracker

import (
	"fmt"
	"math"
	"time"

	"sla-tracker/internal/bizclock"
	"sla-tracker/internal/store"
)

// DateLayout renders instants as dd/mm/yyyy hh:mm.
const DateLayout = "02/01/2006 15:04"

// OverdueLabel is the remaining-time label for items past their budget.
const OverdueLabel = "overdue"

// Band is the traffic-light colour of an SLA's progress.
type Band string

const (
	BandGreen Band = "green"
	BandAmber Band = "amber"
	BandRed   Band = "red"
)

// Snapshot is the derived state of an SLA at one instant.
type Snapshot struct {
	SLA       store.SLA
	TypeName  string
	SOPTitle  string
	Policy    bizclock.Policy
	Budget    time.Duration
	Elapsed   time.Duration
	Remaining time.Duration
	Overdue   bool
	OverdueBy time.Duration
	Progress  float64
	Band      Band
	// DueAt is start plus budget on the wall clock.
	DueAt time.Time
	// Deadline is when counted time reaches the budget under Policy.
	Deadline time.Time
	AsOf     time.Time
}

// Snapshot derives the state of sla as of now. Completed items are measured
// up to their completion instant.
func (s *Service) Snapshot(sla store.SLA, now time.Time) Snapshot {
	typ, _ := s.catalog.Lookup(sla.SOPID, sla.Type)
	policy := bizclock.PolicyFor(typ.BusinessWindow)
	budget := typ.Duration + sla.TimeAdjustment()
	start := sla.StartTime()

	end := now
	if sla.Completed() {
		end = start
		if t, ok := sla.EndTime(); ok {
			end = t
		}
	}
	elapsed := s.calendar.Elapsed(start, end, policy)

	snap := Snapshot{
		SLA:      sla,
		TypeName: s.catalog.TypeName(sla.SOPID, sla.Type),
		SOPTitle: s.catalog.SOPTitle(sla.SOPID),
		Policy:   policy,
		Budget:   budget,
		Elapsed:  elapsed,
		DueAt:    start.Add(budget).In(s.calendar.Location()),
		Deadline: s.calendar.Deadline(start, budget, policy),
		AsOf:     now,
	}
	snap.Overdue = elapsed > budget
	if snap.Overdue {
		snap.OverdueBy = elapsed - budget
	} else {
		snap.Remaining = budget - elapsed
		if budget > 0 {
			snap.Progress = math.Min(1, float64(elapsed)/float64(budget))
		}
	}
	snap.Band = bandFor(snap.Progress, snap.Overdue)
	return snap
}

func bandFor(progress float64, overdue bool) Band {
	switch {
	case overdue || progress > 0.66:
		return BandRed
	case progress > 0.33:
		return BandAmber
	default:
		return BandGreen
	}
}

// StartLabel formats the start instant.
func (s *Service) StartLabel(snap Snapshot) string {
	return snap.SLA.StartTime().In(s.calendar.Location()).Format(DateLayout)
}

// DueLabel formats the nominal due instant.
func (s *Service) DueLabel(snap Snapshot) string {
	return snap.DueAt.In(s.calendar.Location()).Format(DateLayout)
}

// RemainingLabel is the coarse list-view label: whole hours, "<1h", or overdue.
// Completed items have no label.
func RemainingLabel(snap Snapshot) string {
	if snap.SLA.Completed() {
		return ""
	}
	if snap.Overdue {
		return OverdueLabel
	}
	if hours := int64(snap.Remaining / time.Hour); hours > 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return "<1h"
}

// CountdownLabel renders the live timer: H:MM:SS or M:SS, "+" once overdue.
func CountdownLabel(snap Snapshot) string {
	d := snap.Remaining
	prefix := ""
	if snap.Overdue {
		d = snap.OverdueBy
		prefix = "+"
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%s%d:%02d:%02d", prefix, hours, minutes, seconds)
	}
	return fmt.Sprintf("%s%d:%02d", prefix, minutes, seconds)
}
