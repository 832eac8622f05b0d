// Package rollup computes weekly, monthly and yearly price aggregates
// from the daily price table.
package rollup

import (
	"errors"
	"time"
)

var (
	// ErrInvalidChunkSize is returned when the upsert chunk size is not positive
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
)

// Config holds rollup tuning knobs.
type Config struct {
	// ChunkSize is the number of rollup rows upserted per transaction.
	ChunkSize int `yaml:"chunkSize" default:"200"`
	// WriteRetries is how many times a transient upsert is retried.
	WriteRetries int `yaml:"writeRetries" default:"3"`
	// WriteBackoff is the pause between upsert retries.
	WriteBackoff time.Duration `yaml:"writeBackoff" default:"200ms"`
}

// Validate validates the rollup configuration
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}

	return nil
}
