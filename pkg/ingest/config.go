// Package ingest pulls daily wholesale prices from the upstream API and
// persists them through the chunked batch processor.
package ingest

import (
	"errors"
	"time"
)

var (
	// ErrInvalidChunkSize is returned when a chunk size is not positive
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
)

// Config holds ingestion tuning knobs.
type Config struct {
	// SingleDayChunkSize is the commit size for a one-day run.
	SingleDayChunkSize int `yaml:"singleDayChunkSize" default:"500"`
	// RangeChunkSize is the smaller commit size used for backfill ranges,
	// keeping transactions short while many days run concurrently.
	RangeChunkSize int `yaml:"rangeChunkSize" default:"100"`
	// SkipLimit is the per-day budget of tolerated record failures.
	SkipLimit int `yaml:"skipLimit" default:"10"`
	// FetchRetries is how many times a transient upstream failure is retried.
	FetchRetries int `yaml:"fetchRetries" default:"3"`
	// FetchBackoff is the pause between upstream retries.
	FetchBackoff time.Duration `yaml:"fetchBackoff" default:"500ms"`
	// WriteRetries is how many times a transient chunk commit is retried.
	WriteRetries int `yaml:"writeRetries" default:"3"`
	// WriteBackoff is the pause between commit retries.
	WriteBackoff time.Duration `yaml:"writeBackoff" default:"200ms"`
}

// Validate validates the ingestion configuration
func (c *Config) Validate() error {
	if c.SingleDayChunkSize <= 0 || c.RangeChunkSize <= 0 {
		return ErrInvalidChunkSize
	}

	return nil
}
