package tracker

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"sla-tracker/internal/bizclock"
	"sla-tracker/internal/catalog"
	"sla-tracker/internal/store"
	"sla-tracker/internal/util"
)

var (
	ErrNotFound         = store.ErrNotFound
	ErrUnknownType      = errors.New("unknown sla type")
	ErrAlreadyCompleted = errors.New("sla already completed")
	ErrInvalidInput     = errors.New("invalid input")
)

// Repository is the record store the tracker reads and writes.
type Repository interface {
	SaveSLA(sla *store.SLA) error
	GetSLA(id string) (*store.SLA, error)
	DeleteSLA(id string) error
	ListSLAs(opts store.SLAQuery) ([]store.SLA, int64, error)
	MigrateLegacyTypes(firstType func(sopID string) (string, bool)) (int, error)
}

// Service applies SLA policies from the catalogue to stored items.
type Service struct {
	repo     Repository
	catalog  *catalog.Catalog
	calendar bizclock.Calendar
	clock    util.Clock
}

// NewService wires the tracker. A nil clock reads the wall clock.
func NewService(repo Repository, cat *catalog.Catalog, cal bizclock.Calendar, clock util.Clock) *Service {
	if cat == nil {
		cat = catalog.Default()
	}
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &Service{repo: repo, catalog: cat, calendar: cal, clock: clock}
}

// Catalog exposes the policy catalogue.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Calendar exposes the business calendar.
func (s *Service) Calendar() bizclock.Calendar { return s.calendar }

// Now returns the service clock's current instant.
func (s *Service) Now() time.Time { return s.clock.Now() }

// CreateInput describes a new SLA.
type CreateInput struct {
	Name       string
	Type       string
	SOPID      string
	Assignment string
	Owner      string
}

// Create starts a new active SLA now.
func (s *Service) Create(in CreateInput) (Snapshot, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Snapshot{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	sopID := strings.TrimSpace(in.SOPID)
	typeID := strings.TrimSpace(in.Type)
	if _, ok := s.catalog.Lookup(sopID, typeID); !ok {
		return Snapshot{}, fmt.Errorf("%w: %s/%s", ErrUnknownType, sopID, typeID)
	}

	now := s.clock.Now()
	sla := &store.SLA{
		ID:         "sla_" + uuid.NewString(),
		Name:       name,
		Type:       typeID,
		SOPID:      sopID,
		Status:     store.StatusActive,
		StartMs:    now.UnixMilli(),
		Assignment: strings.TrimSpace(in.Assignment),
		Owner:      strings.TrimSpace(in.Owner),
	}
	if err := s.repo.SaveSLA(sla); err != nil {
		return Snapshot{}, fmt.Errorf("save sla: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"sla_id": sla.ID,
		"sop_id": sla.SOPID,
		"type":   sla.Type,
	}).Info("sla created")
	return s.Snapshot(*sla, now), nil
}

// Get returns the current snapshot of one SLA.
func (s *Service) Get(id string) (Snapshot, error) {
	sla, err := s.repo.GetSLA(id)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(*sla, s.clock.Now()), nil
}

// Filter selects SLAs by status.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// ParseFilter accepts all, active or completed; empty means all.
func ParseFilter(value string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(value))); f {
	case "", FilterAll:
		return FilterAll, nil
	case FilterActive, FilterCompleted:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown status filter %q", ErrInvalidInput, value)
	}
}

// ListOptions narrows a listing.
type ListOptions struct {
	SOPID  string
	Filter Filter
	Query  string
	Sort   string
	Offset int
	Limit  int
}

// List returns snapshots ordered active first, newest start first.
func (s *Service) List(opts ListOptions) ([]Snapshot, int64, error) {
	status := ""
	if opts.Filter != FilterAll {
		status = string(opts.Filter)
	}
	rows, total, err := s.repo.ListSLAs(store.SLAQuery{
		SOPID:  opts.SOPID,
		Status: status,
		Query:  opts.Query,
		Sort:   opts.Sort,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list slas: %w", err)
	}
	now := s.clock.Now()
	snaps := lo.Map(rows, func(row store.SLA, _ int) Snapshot {
		return s.Snapshot(row, now)
	})
	return snaps, total, nil
}

// UpdateInput carries optional edits; nil fields are left unchanged.
type UpdateInput struct {
	Name       *string
	Assignment *string
	Owner      *string
}

// Update edits an SLA's descriptive fields. Empty assignment or owner clears them.
func (s *Service) Update(id string, in UpdateInput) (Snapshot, error) {
	sla, err := s.repo.GetSLA(id)
	if err != nil {
		return Snapshot{}, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Snapshot{}, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		sla.Name = name
	}
	if in.Assignment != nil {
		sla.Assignment = strings.TrimSpace(*in.Assignment)
	}
	if in.Owner != nil {
		sla.Owner = strings.TrimSpace(*in.Owner)
	}
	if err := s.repo.SaveSLA(sla); err != nil {
		return Snapshot{}, fmt.Errorf("save sla: %w", err)
	}
	return s.Snapshot(*sla, s.clock.Now()), nil
}

// Rename changes an SLA's display name.
func (s *Service) Rename(id, name string) (Snapshot, error) {
	return s.Update(id, UpdateInput{Name: &name})
}

// SetAssignment replaces the assignment text.
func (s *Service) SetAssignment(id, assignment string) (Snapshot, error) {
	return s.Update(id, UpdateInput{Assignment: &assignment})
}

// SetOwner replaces the responsible person.
func (s *Service) SetOwner(id, owner string) (Snapshot, error) {
	return s.Update(id, UpdateInput{Owner: &owner})
}

// AdjustTime grows (add) or shrinks the SLA's budget by hours and minutes.
func (s *Service) AdjustTime(id string, hours, minutes int, add bool) (Snapshot, error) {
	if hours < 0 || minutes < 0 || minutes > 59 {
		return Snapshot{}, fmt.Errorf("%w: hours must be >= 0 and minutes within 0-59", ErrInvalidInput)
	}
	delta := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	if delta == 0 {
		return Snapshot{}, fmt.Errorf("%w: adjustment must be non-zero", ErrInvalidInput)
	}
	if !add {
		delta = -delta
	}

	sla, err := s.repo.GetSLA(id)
	if err != nil {
		return Snapshot{}, err
	}
	if sla.Completed() {
		return Snapshot{}, ErrAlreadyCompleted
	}
	sla.TimeAdjustmentMs += delta.Milliseconds()
	if err := s.repo.SaveSLA(sla); err != nil {
		return Snapshot{}, fmt.Errorf("save sla: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"sla_id":        sla.ID,
		"delta":         delta,
		"adjustment_ms": sla.TimeAdjustmentMs,
	}).Info("sla budget adjusted")
	return s.Snapshot(*sla, s.clock.Now()), nil
}

// Complete closes an active SLA now, recording optional comments.
func (s *Service) Complete(id, comments string) (Snapshot, error) {
	sla, err := s.repo.GetSLA(id)
	if err != nil {
		return Snapshot{}, err
	}
	if sla.Completed() {
		return Snapshot{}, ErrAlreadyCompleted
	}
	now := s.clock.Now()
	endMs := now.UnixMilli()
	sla.Status = store.StatusCompleted
	sla.EndMs = &endMs
	sla.Comments = strings.TrimSpace(comments)
	if err := s.repo.SaveSLA(sla); err != nil {
		return Snapshot{}, fmt.Errorf("save sla: %w", err)
	}
	snap := s.Snapshot(*sla, now)
	logrus.WithFields(logrus.Fields{
		"sla_id":  sla.ID,
		"overdue": snap.Overdue,
		"elapsed": snap.Elapsed,
	}).Info("sla completed")
	return snap, nil
}

// Delete removes an SLA.
func (s *Service) Delete(id string) error {
	if err := s.repo.DeleteSLA(id); err != nil {
		return err
	}
	logrus.WithField("sla_id", id).Info("sla deleted")
	return nil
}

// MigrateLegacy moves placeholder types onto each SOP's first catalogued type.
func (s *Service) MigrateLegacy() (int, error) {
	return s.repo.MigrateLegacyTypes(func(sopID string) (string, bool) {
		types := s.catalog.Types(sopID)
		if len(types) == 0 {
			return "", false
		}
		return types[0].ID, true
	})
}
