// Package orchestrator validates, locks and runs the ingestion and
// rollup jobs, fanning date ranges out over a bounded worker pool.
package orchestrator

import (
	"errors"
	"time"
)

var (
	// ErrInvalidWorkers is returned when the worker pool size is not positive
	ErrInvalidWorkers = errors.New("worker count must be positive")
)

// Config holds orchestration tuning knobs.
type Config struct {
	// Workers bounds how many date partitions ingest concurrently.
	Workers int `yaml:"workers" default:"5"`
	// LockTTL is how long a per-period lock lives if its holder dies.
	LockTTL time.Duration `yaml:"lockTTL" default:"10m"`
	// AbortRangeOnError stops a range run at the first failed partition
	// instead of continuing with the remaining ones.
	AbortRangeOnError bool `yaml:"abortRangeOnError" default:"false"`
}

// Validate validates the orchestrator configuration
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	return nil
}
