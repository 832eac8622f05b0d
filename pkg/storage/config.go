// Package storage persists products, daily prices and period rollups in
// the relational store.
package storage

import (
	"errors"
	"time"
)

var (
	// ErrDSNRequired is returned when no database DSN is provided
	ErrDSNRequired = errors.New("database DSN is required")
)

// Config holds database connection configuration
type Config struct {
	DSN             string        `yaml:"dsn"`
	MaxIdleConns    int           `yaml:"maxIdleConns" default:"10"`
	MaxOpenConns    int           `yaml:"maxOpenConns" default:"50"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" default:"1h"`
}

// Validate validates the database configuration
func (c *Config) Validate() error {
	if c.DSN == "" {
		return ErrDSNRequired
	}

	return nil
}
