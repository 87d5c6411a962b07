package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ModelPath string // .hcl file or directory of .hcl files

	Iter          int
	Burn          int
	Thin          int
	TuneInterval  int
	BurnTillTuned bool
	SaveInterval  int
	Seed          uint64

	Database string // "memory" or "sqlite"
	DBPath   string // sqlite file path

	LogFormat string
	LogLevel  string
	Quiet     bool
}

// NewConfig validates the raw configuration produced by the CLI layer.
// Sampling parameters are validated again by the sampler itself; this layer
// only rejects what the app cannot even start with.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("ModelPath is a required configuration field and cannot be empty")
	}
	switch cfg.Database {
	case "memory", "sqlite":
	default:
		return nil, fmt.Errorf("invalid database %q: must be 'memory' or 'sqlite'", cfg.Database)
	}
	if cfg.Database == "sqlite" && cfg.DBPath == "" {
		return nil, errors.New("a database path is required when the sqlite backend is selected")
	}
	return &cfg, nil
}
