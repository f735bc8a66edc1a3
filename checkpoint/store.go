package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/refai06/openfl/flow"
)

var (
	// ErrNotFound is returned when no record exists for the given ID.
	ErrNotFound = errors.New("checkpoint not found")
	// ErrInvalidInput is returned for nil or incomplete records.
	ErrInvalidInput = errors.New("invalid checkpoint record")
	// ErrUnknownBackend is returned by the factory for an unrecognized
	// backend name.
	ErrUnknownBackend = errors.New("unknown checkpoint backend")
)

// Record is one persisted checkpoint: the attributes a party held just
// before a transition mutated them.
type Record struct {
	ID         string         `json:"id"`
	RunID      string         `json:"run_id"`
	Flow       string         `json:"flow"`
	Step       string         `json:"step"`
	Attributes map[string]any `json:"attributes"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Store is the durable backend for checkpoint records.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	ListRun(ctx context.Context, runID string) ([]*Record, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Config selects and configures a checkpoint backend.
type Config struct {
	// Backend is one of "memory", "redis", "sqlite".
	Backend    string      `yaml:"backend"`
	Redis      RedisConfig `yaml:"redis"`
	SQLitePath string      `yaml:"sqlite_path"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"pool_size"`
	KeyPrefix string `yaml:"key_prefix"`
}

// NewStore builds the backend named by cfg.Backend.
func NewStore(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(cfg.Redis)
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("%s: %w", cfg.Backend, ErrUnknownBackend)
	}
}

// Writer adapts a Store to flow.Checkpointer.
type Writer struct {
	store  Store
	logger *zap.Logger
}

// NewWriter wraps store for consumption by a flow.
func NewWriter(store Store, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		store:  store,
		logger: logger.With(zap.String("component", "checkpoint")),
	}
}

// Save implements flow.Checkpointer.
func (w *Writer) Save(ctx context.Context, cp flow.Checkpoint) error {
	rec := &Record{
		ID:         uuid.NewString(),
		RunID:      cp.RunID,
		Flow:       cp.Flow,
		Step:       cp.Step,
		Attributes: cp.Attributes,
		CreatedAt:  cp.CreatedAt,
	}
	if err := w.store.Save(ctx, rec); err != nil {
		return err
	}
	w.logger.Debug("checkpoint saved",
		zap.String("run_id", rec.RunID),
		zap.String("step", rec.Step),
		zap.String("checkpoint_id", rec.ID),
	)
	return nil
}
