package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when no SLA matches the requested id.
var ErrNotFound = errors.New("sla not found")

// legacyTypes are the placeholder type ids written before per-SOP catalogues existed.
var legacyTypes = []string{"A", "B"}

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&SLA{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveSLA inserts or replaces the SLA record with the same id.
func (d *Database) SaveSLA(sla *SLA) error {
	if sla == nil {
		return errors.New("sla is nil")
	}
	sla.ID = strings.TrimSpace(sla.ID)
	if sla.ID == "" {
		return errors.New("sla id is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"type",
			"sop_id",
			"status",
			"start_ms",
			"end_ms",
			"comments",
			"assignment",
			"owner",
			"time_adjustment_ms",
			"updated_at",
		}),
	}).Create(sla).Error
}

// GetSLA retrieves an SLA by id.
func (d *Database) GetSLA(id string) (*SLA, error) {
	var sla SLA
	if err := d.gorm.Where("id = ?", strings.TrimSpace(id)).First(&sla).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sla, nil
}

// DeleteSLA removes an SLA by id.
func (d *Database) DeleteSLA(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	res := d.gorm.Where("id = ?", strings.TrimSpace(id)).Delete(&SLA{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SLAQuery encapsulates filters and pagination for listing SLA rows.
type SLAQuery struct {
	SOPID  string
	Status string
	Query  string
	Sort   string
	Offset int
	Limit  int
}

// likeEscaper makes user text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListSLAs returns SLA records applying optional filters, plus the unpaged total.
func (d *Database) ListSLAs(opts SLAQuery) ([]SLA, int64, error) {
	base := d.gorm.Model(&SLA{})
	if sop := strings.TrimSpace(opts.SOPID); sop != "" {
		base = base.Where("sop_id = ?", sop)
	}
	if status := strings.ToLower(strings.TrimSpace(opts.Status)); status != "" && status != "all" {
		base = base.Where("status = ?", status)
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		like := fmt.Sprintf("%%%s%%", likeEscaper.Replace(q))
		base = base.Where(`name LIKE ? ESCAPE '\' OR assignment LIKE ? ESCAPE '\' OR owner LIKE ? ESCAPE '\'`, like, like, like)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := base.Order(orderForSort(opts.Sort)).Offset(opts.Offset)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	var rows []SLA
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func orderForSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "start_asc":
		return "slas.start_ms ASC, slas.id ASC"
	case "start_desc":
		return "slas.start_ms DESC, slas.id DESC"
	case "name_asc":
		return "slas.name ASC, slas.id ASC"
	case "name_desc":
		return "slas.name DESC, slas.id DESC"
	default:
		return "CASE WHEN slas.status = 'active' THEN 0 ELSE 1 END ASC, slas.start_ms DESC, slas.id DESC"
	}
}

// MigrateLegacyTypes rewrites placeholder types to the SOP's first catalogued type.
// firstType returns false for SOPs without types; those rows are left untouched.
func (d *Database) MigrateLegacyTypes(firstType func(sopID string) (string, bool)) (int, error) {
	var rows []SLA
	if err := d.gorm.Where("type IN ?", legacyTypes).Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("find legacy slas: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	migrated := 0
	err := d.gorm.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			typeID, ok := firstType(row.SOPID)
			if !ok {
				continue
			}
			if err := tx.Model(&SLA{}).Where("id = ?", row.ID).Update("type", typeID).Error; err != nil {
				return err
			}
			migrated++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("migrate legacy slas: %w", err)
	}
	return migrated, nil
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"UPDATE slas SET status = 'active' WHERE status IS NULL OR status = ''",
		"CREATE INDEX IF NOT EXISTS idx_slas_sop_status_start ON slas(sop_id, status, start_ms)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
