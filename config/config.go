package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/refai06/openfl/checkpoint"
)

// Config is the complete experiment configuration.
type Config struct {
	// Flow names the experiment and toggles checkpointing.
	Flow FlowConfig `yaml:"flow" env:"FLOW"`

	// Runtime selects where and how steps execute.
	Runtime RuntimeConfig `yaml:"runtime" env:"RUNTIME"`

	// Checkpoint selects the checkpoint store backend.
	Checkpoint CheckpointConfig `yaml:"checkpoint" env:"CHECKPOINT"`

	// Log configures the zap logger.
	Log LogConfig `yaml:"log" env:"LOG"`
}

// FlowConfig names the flow and controls checkpointing.
type FlowConfig struct {
	Name string `yaml:"name" env:"NAME"`
	// Checkpoint enables state capture before every transition.
	Checkpoint bool `yaml:"checkpoint" env:"CHECKPOINT"`
}

// RuntimeConfig selects the runtime and its execution backend.
type RuntimeConfig struct {
	// Kind is one of "local", "federated".
	Kind string `yaml:"kind" env:"KIND"`
	// Backend is one of "single", "pool". Local runtime only.
	Backend string `yaml:"backend" env:"BACKEND"`
	// Workers bounds pool-backend parallelism. Zero means one worker
	// per collaborator.
	Workers int `yaml:"workers" env:"WORKERS"`
	// Collaborators lists participating collaborator names.
	Collaborators []string `yaml:"collaborators" env:"COLLABORATORS"`
}

// CheckpointConfig selects and configures a checkpoint backend.
type CheckpointConfig struct {
	// Backend is one of "memory", "redis", "sqlite".
	Backend    string      `yaml:"backend" env:"BACKEND"`
	Redis      RedisConfig `yaml:"redis" env:"REDIS"`
	SQLitePath string      `yaml:"sqlite_path" env:"SQLITE_PATH"`
}

// RedisConfig configures the redis checkpoint backend.
type RedisConfig struct {
	Addr      string `yaml:"addr" env:"ADDR"`
	Password  string `yaml:"password" env:"PASSWORD"`
	DB        int    `yaml:"db" env:"DB"`
	PoolSize  int    `yaml:"pool_size" env:"POOL_SIZE"`
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is one of json, console.
	Format string `yaml:"format" env:"FORMAT"`
	// EnableCaller annotates entries with the call site.
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
}

// DefaultConfig returns the configuration used when nothing overrides it:
// a local single-process run with an in-memory checkpoint store.
func DefaultConfig() *Config {
	return &Config{
		Flow: FlowConfig{
			Name:       "experiment",
			Checkpoint: true,
		},
		Runtime: RuntimeConfig{
			Kind:    "local",
			Backend: "single",
		},
		Checkpoint: CheckpointConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				PoolSize:  10,
				KeyPrefix: "openfl:",
			},
			SQLitePath: "checkpoints.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate reports configuration errors in bulk.
func (c *Config) Validate() error {
	var errs []string

	switch c.Runtime.Kind {
	case "local", "federated":
	default:
		errs = append(errs, fmt.Sprintf("unknown runtime kind %q", c.Runtime.Kind))
	}
	switch c.Runtime.Backend {
	case "", "single", "pool":
	default:
		errs = append(errs, fmt.Sprintf("unknown runtime backend %q", c.Runtime.Backend))
	}
	if c.Runtime.Workers < 0 {
		errs = append(errs, "workers must not be negative")
	}
	switch c.Checkpoint.Backend {
	case "", "memory", "redis", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("unknown checkpoint backend %q", c.Checkpoint.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// StoreConfig converts the checkpoint section to the store factory's form.
func (c *CheckpointConfig) StoreConfig() checkpoint.Config {
	return checkpoint.Config{
		Backend: c.Backend,
		Redis: checkpoint.RedisConfig{
			Addr:      c.Redis.Addr,
			Password:  c.Redis.Password,
			DB:        c.Redis.DB,
			PoolSize:  c.Redis.PoolSize,
			KeyPrefix: c.Redis.KeyPrefix,
		},
		SQLitePath: c.SQLitePath,
	}
}

// BuildLogger constructs a zap logger from the log section.
func (c *LogConfig) BuildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}

	var zc zap.Config
	if c.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableCaller = !c.EnableCaller
	return zc.Build()
}
