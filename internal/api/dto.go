package api

import (
	"time"

	"sla-tracker/internal/catalog"
	"sla-tracker/internal/tracker"
)

// CreateSLARequest starts a new SLA.
type CreateSLARequest struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	SOPID      string `json:"sop_id"`
	Assignment string `json:"assignment"`
	Owner      string `json:"owner"`
}

// UpdateSLARequest edits descriptive fields; omitted fields are unchanged.
type UpdateSLARequest struct {
	Name       *string `json:"name"`
	Assignment *string `json:"assignment"`
	Owner      *string `json:"owner"`
}

// AdjustRequest changes an SLA's budget. Mode is "add" or "subtract".
type AdjustRequest struct {
	Hours   int    `json:"hours"`
	Minutes int    `json:"minutes"`
	Mode    string `json:"mode"`
}

// CompleteRequest closes an SLA.
type CompleteRequest struct {
	Comments string `json:"comments"`
}

// SLADTO is the API representation of an SLA snapshot.
type SLADTO struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	TypeName         string  `json:"type_name"`
	SOPID            string  `json:"sop_id"`
	SOPTitle         string  `json:"sop_title"`
	Status           string  `json:"status"`
	Policy           string  `json:"policy"`
	StartMs          int64   `json:"start_ms"`
	EndMs            *int64  `json:"end_ms"`
	Comments         string  `json:"comments"`
	Assignment       string  `json:"assignment"`
	Owner            string  `json:"owner"`
	TimeAdjustmentMs int64   `json:"time_adjustment_ms"`
	BudgetMs         int64   `json:"budget_ms"`
	ElapsedMs        int64   `json:"elapsed_ms"`
	RemainingMs      int64   `json:"remaining_ms"`
	Overdue          bool    `json:"overdue"`
	OverdueByMs      int64   `json:"overdue_by_ms"`
	Progress         float64 `json:"progress"`
	Band             string  `json:"band"`
	DueAtMs          int64   `json:"due_at_ms"`
	DeadlineMs       int64   `json:"deadline_ms"`
	StartLabel       string  `json:"start_label"`
	DueLabel         string  `json:"due_label"`
	RemainingLabel   string  `json:"remaining_label"`
	Countdown        string  `json:"countdown"`
	AsOfMs           int64   `json:"as_of_ms"`
}

// SLAsResponse is the paginated SLA listing.
type SLAsResponse struct {
	Items []SLADTO `json:"items"`
	Total int64    `json:"total"`
}

// SLATypeDTO describes one catalogued SLA type.
type SLATypeDTO struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	DurationMs     int64   `json:"duration_ms"`
	DurationHours  float64 `json:"duration_hours"`
	BusinessWindow bool    `json:"business_window"`
}

// SOPDTO describes one SOP and its SLA types.
type SOPDTO struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Types []SLATypeDTO `json:"types"`
}

// StatsDTO carries a SOP's compliance buckets.
type StatsDTO struct {
	SOPID            string  `json:"sop_id"`
	SOPTitle         string  `json:"sop_title"`
	CompletedOverdue int     `json:"completed_overdue"`
	CompletedOnTime  int     `json:"completed_on_time"`
	ActiveOverdue    int     `json:"active_overdue"`
	ActiveOnTime     int     `json:"active_on_time"`
	Total            int     `json:"total"`
	OnTimeRate       float64 `json:"on_time_rate"`
}

// ElapsedResponse reports a direct calculator query.
type ElapsedResponse struct {
	StartMs        int64   `json:"start_ms"`
	EndMs          int64   `json:"end_ms"`
	BusinessWindow bool    `json:"business_window"`
	Timezone       string  `json:"timezone"`
	ElapsedMs      int64   `json:"elapsed_ms"`
	ElapsedHours   float64 `json:"elapsed_hours"`
}

// FromSnapshot converts a tracker snapshot, formatting labels in loc.
func FromSnapshot(snap tracker.Snapshot, loc *time.Location) SLADTO {
	sla := snap.SLA
	return SLADTO{
		ID:               sla.ID,
		Name:             sla.Name,
		Type:             sla.Type,
		TypeName:         snap.TypeName,
		SOPID:            sla.SOPID,
		SOPTitle:         snap.SOPTitle,
		Status:           sla.Status,
		Policy:           snap.Policy.String(),
		StartMs:          sla.StartMs,
		EndMs:            sla.EndMs,
		Comments:         sla.Comments,
		Assignment:       sla.Assignment,
		Owner:            sla.Owner,
		TimeAdjustmentMs: sla.TimeAdjustmentMs,
		BudgetMs:         snap.Budget.Milliseconds(),
		ElapsedMs:        snap.Elapsed.Milliseconds(),
		RemainingMs:      snap.Remaining.Milliseconds(),
		Overdue:          snap.Overdue,
		OverdueByMs:      snap.OverdueBy.Milliseconds(),
		Progress:         round2(snap.Progress),
		Band:             string(snap.Band),
		DueAtMs:          snap.DueAt.UnixMilli(),
		DeadlineMs:       snap.Deadline.UnixMilli(),
		StartLabel:       sla.StartTime().In(loc).Format(tracker.DateLayout),
		DueLabel:         snap.DueAt.In(loc).Format(tracker.DateLayout),
		RemainingLabel:   tracker.RemainingLabel(snap),
		Countdown:        tracker.CountdownLabel(snap),
		AsOfMs:           snap.AsOf.UnixMilli(),
	}
}

// SOPFromCatalog converts a catalogued SOP.
func SOPFromCatalog(sop catalog.SOP) SOPDTO {
	types := make([]SLATypeDTO, 0, len(sop.Types))
	for _, typ := range sop.Types {
		types = append(types, TypeFromCatalog(typ))
	}
	return SOPDTO{ID: sop.ID, Title: sop.Title, Types: types}
}

// TypeFromCatalog converts a catalogued SLA type.
func TypeFromCatalog(typ catalog.SLAType) SLATypeDTO {
	return SLATypeDTO{
		ID:             typ.ID,
		Name:           typ.Name,
		DurationMs:     typ.Duration.Milliseconds(),
		DurationHours:  round2(typ.Duration.Hours()),
		BusinessWindow: typ.BusinessWindow,
	}
}

// StatsFromModel flattens tracker stats.
func StatsFromModel(st tracker.Stats, title string) StatsDTO {
	return StatsDTO{
		SOPID:            st.SOPID,
		SOPTitle:         title,
		CompletedOverdue: st.Counts[tracker.BucketCompletedOverdue],
		CompletedOnTime:  st.Counts[tracker.BucketCompletedOnTime],
		ActiveOverdue:    st.Counts[tracker.BucketActiveOverdue],
		ActiveOnTime:     st.Counts[tracker.BucketActiveOnTime],
		Total:            st.Total(),
		OnTimeRate:       round2(st.OnTimeRate()),
	}
}

const (
	msPerHour       = 3.6e6
	defaultPageSize = 100
	maxPageSize     = 1000
)

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
