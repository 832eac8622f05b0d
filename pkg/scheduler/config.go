// Package scheduler drives the recurring ingestion and rollup jobs.
package scheduler

import (
	"errors"
	"time"
)

var (
	// ErrScheduleRequired is returned when a cron expression is empty
	ErrScheduleRequired = errors.New("schedule expression is required")
)

// Config defines the cron schedules. Expressions use the standard
// five-field cron syntax plus the @every descriptors.
type Config struct {
	// Daily ingests yesterday's prices. KAMIS publishes a day's prices
	// after the markets close, so the job runs the next morning.
	Daily string `yaml:"daily" default:"30 6 * * *"`
	// Weekly rolls up the newest fully elapsed ISO week.
	Weekly string `yaml:"weekly" default:"0 7 * * TUE"`
	// Monthly rolls up the previous calendar month.
	Monthly string `yaml:"monthly" default:"0 8 1 * *"`
	// Yearly rolls up the previous calendar year.
	Yearly string `yaml:"yearly" default:"0 9 2 1 *"`
	// JobTimeout bounds one scheduled run.
	JobTimeout time.Duration `yaml:"jobTimeout" default:"30m"`
}

// Validate checks if the scheduler configuration is valid
func (c *Config) Validate() error {
	for _, expr := range []string{c.Daily, c.Weekly, c.Monthly, c.Yearly} {
		if expr == "" {
			return ErrScheduleRequired
		}
	}

	return nil
}
