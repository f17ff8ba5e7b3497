package store

import "time"

// SLA status values.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// SLA is a tracked service-level item. Instants are epoch milliseconds.
type SLA struct {
	ID               string `gorm:"primaryKey;size:64"`
	Name             string `gorm:"size:255"`
	Type             string `gorm:"size:64;index"`
	SOPID            string `gorm:"column:sop_id;size:32;index"`
	Status           string `gorm:"size:16;index"`
	StartMs          int64  `gorm:"column:start_ms;index"`
	EndMs            *int64 `gorm:"column:end_ms"`
	Comments         string `gorm:"type:text"`
	Assignment       string `gorm:"size:255"`
	Owner            string `gorm:"size:255"`
	TimeAdjustmentMs int64  `gorm:"column:time_adjustment_ms"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName pins the table name.
func (SLA) TableName() string {
	return "slas"
}

// Completed reports whether the item has been closed.
func (s *SLA) Completed() bool {
	return s.Status == StatusCompleted
}

// StartTime returns the start instant as a time.Time.
func (s *SLA) StartTime() time.Time {
	return time.UnixMilli(s.StartMs)
}

// EndTime returns the completion instant, if any.
func (s *SLA) EndTime() (time.Time, bool) {
	if s.EndMs == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*s.EndMs), true
}

// TimeAdjustment returns the manual budget adjustment.
func (s *SLA) TimeAdjustment() time.Duration {
	return time.Duration(s.TimeAdjustmentMs) * time.Millisecond
}
