package tracker

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"sla-tracker/internal/store"
)

// Bucket classifies an SLA for compliance reporting.
type Bucket string

const (
	BucketCompletedOverdue Bucket = "completed_overdue"
	BucketCompletedOnTime  Bucket = "completed_on_time"
	BucketActiveOverdue    Bucket = "active_overdue"
	BucketActiveOnTime     Bucket = "active_on_time"
)

// Buckets lists every bucket in report order.
var Buckets = []Bucket{BucketCompletedOverdue, BucketCompletedOnTime, BucketActiveOverdue, BucketActiveOnTime}

// Stats counts a SOP's SLAs per compliance bucket.
type Stats struct {
	SOPID  string
	Counts map[Bucket]int
}

// Total is the number of classified SLAs.
func (s Stats) Total() int {
	total := 0
	for _, n := range s.Counts {
		total += n
	}
	return total
}

// OnTimeRate is the share of completed SLAs closed within budget, or zero when none completed.
func (s Stats) OnTimeRate() float64 {
	done := s.Counts[BucketCompletedOnTime] + s.Counts[BucketCompletedOverdue]
	if done == 0 {
		return 0
	}
	return float64(s.Counts[BucketCompletedOnTime]) / float64(done)
}

// BucketOf classifies a snapshot. Completed items without a completion instant
// are not classified.
func BucketOf(snap Snapshot) (Bucket, bool) {
	if snap.SLA.Completed() {
		if snap.SLA.EndMs == nil {
			return "", false
		}
		if snap.Overdue {
			return BucketCompletedOverdue, true
		}
		return BucketCompletedOnTime, true
	}
	if snap.Overdue {
		return BucketActiveOverdue, true
	}
	return BucketActiveOnTime, true
}

// Stats computes compliance buckets for one SOP.
func (s *Service) Stats(sopID string) (Stats, error) {
	all, err := s.statsBy(sopID)
	if err != nil {
		return Stats{}, err
	}
	if st, ok := all[sopID]; ok {
		return st, nil
	}
	return newStats(sopID), nil
}

// StatsBySOP computes compliance buckets for every SOP with at least one SLA,
// ordered by SOP id.
func (s *Service) StatsBySOP() ([]Stats, error) {
	all, err := s.statsBy("")
	if err != nil {
		return nil, err
	}
	out := lo.Values(all)
	sort.Slice(out, func(i, j int) bool { return out[i].SOPID < out[j].SOPID })
	return out, nil
}

func (s *Service) statsBy(sopID string) (map[string]Stats, error) {
	rows, _, err := s.repo.ListSLAs(store.SLAQuery{SOPID: sopID})
	if err != nil {
		return nil, fmt.Errorf("list slas: %w", err)
	}
	now := s.clock.Now()
	out := make(map[string]Stats)
	for sop, group := range lo.GroupBy(rows, func(row store.SLA) string { return row.SOPID }) {
		st := newStats(sop)
		for _, row := range group {
			if bucket, ok := BucketOf(s.Snapshot(row, now)); ok {
				st.Counts[bucket]++
			}
		}
		out[sop] = st
	}
	return out, nil
}

func newStats(sopID string) Stats {
	counts := make(map[Bucket]int, len(Buckets))
	for _, b := range Buckets {
		counts[b] = 0
	}
	return Stats{SOPID: sopID, Counts: counts}
}
