package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/refai06/openfl/flow"
)

// checkpointRow is the relational shape of a Record. Attributes are stored
// as a JSON document; the schema does not need to query inside them.
type checkpointRow struct {
	ID         string `gorm:"primaryKey;size:64"`
	RunID      string `gorm:"index;size:64"`
	Flow       string `gorm:"size:128"`
	Step       string `gorm:"size:128"`
	Attributes []byte
	CreatedAt  time.Time `gorm:"index"`
}

func (checkpointRow) TableName() string { return "checkpoints" }

// GormStore persists checkpoint records through GORM. The stock constructor
// opens SQLite, which keeps single-node experiments dependency-free on the
// infrastructure side.
type GormStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at path and migrates
// the checkpoint schema. An empty path uses an in-memory database.
func NewSQLiteStore(path string) (*GormStore, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return NewGormStore(db)
}

// NewGormStore wraps an existing GORM handle and migrates the schema.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&checkpointRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate checkpoint schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Save implements Store.
func (s *GormStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" {
		return ErrInvalidInput
	}
	attrs, err := json.Marshal(rec.Attributes)
	if err != nil {
		return flow.NewSerializationError("encode checkpoint "+rec.ID, err)
	}
	row := checkpointRow{
		ID:         rec.ID,
		RunID:      rec.RunID,
		Flow:       rec.Flow,
		Step:       rec.Step,
		Attributes: attrs,
		CreatedAt:  rec.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *GormStore) Get(ctx context.Context, id string) (*Record, error) {
	var row checkpointRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	return rowToRecord(&row)
}

// ListRun implements Store. Records come back in creation order.
func (s *GormStore) ListRun(ctx context.Context, runID string) ([]*Record, error) {
	var rows []checkpointRow
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list run %s: %w", runID, err)
	}
	out := make([]*Record, 0, len(rows))
	for i := range rows {
		rec, err := rowToRecord(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Delete implements Store. Deleting a missing record is not an error.
func (s *GormStore) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Delete(&checkpointRow{}, "id = ?", id).Error
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func rowToRecord(row *checkpointRow) (*Record, error) {
	rec := &Record{
		ID:        row.ID,
		RunID:     row.RunID,
		Flow:      row.Flow,
		Step:      row.Step,
		CreatedAt: row.CreatedAt,
	}
	if len(row.Attributes) > 0 {
		if err := json.Unmarshal(row.Attributes, &rec.Attributes); err != nil {
			return nil, flow.NewSerializationError("decode checkpoint "+row.ID, err)
		}
	}
	return rec, nil
}
