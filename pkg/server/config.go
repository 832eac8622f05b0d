// Package server provides server configuration and management
package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/yachaerang/pricebatch/pkg/api"
	"github.com/yachaerang/pricebatch/pkg/ingest"
	"github.com/yachaerang/pricebatch/pkg/kamis"
	"github.com/yachaerang/pricebatch/pkg/orchestrator"
	"github.com/yachaerang/pricebatch/pkg/redis"
	"github.com/yachaerang/pricebatch/pkg/rollup"
	"github.com/yachaerang/pricebatch/pkg/scheduler"
	"github.com/yachaerang/pricebatch/pkg/storage"
)

// Define static errors
var (
	ErrRedisConfigRequired    = errors.New("redis configuration is required")
	ErrDatabaseConfigRequired = errors.New("database configuration is required")
	ErrKamisConfigRequired    = errors.New("kamis configuration is required")
)

// Config holds server configuration
type Config struct {
	// MetricsAddr is the address to listen on for metrics.
	MetricsAddr string `yaml:"metricsAddr" default:":9090"`
	// PProfAddr is the address to listen on for pprof.
	PProfAddr *string `yaml:"pprofAddr"`
	// LoggingLevel is the logging level to use.
	LoggingLevel string `yaml:"logging" default:"info"`
	// ShutdownTimeout is the timeout for shutting down the server.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"10s"`

	// Redis is the redis configuration.
	Redis *redis.Config `yaml:"redis"`
	// Database is the relational store configuration.
	Database *storage.Config `yaml:"database"`
	// Kamis is the upstream price API configuration.
	Kamis *kamis.Config `yaml:"kamis"`

	// Ingest tunes the daily ingestion pipeline.
	Ingest *ingest.Config `yaml:"ingest"`
	// Rollup tunes the period aggregation jobs.
	Rollup *rollup.Config `yaml:"rollup"`
	// Orchestrator tunes job validation, locking and the worker pool.
	Orchestrator *orchestrator.Config `yaml:"orchestrator"`
	// Scheduler holds the cron schedules.
	Scheduler *scheduler.Config `yaml:"scheduler"`
	// API configures the HTTP trigger surface.
	API *api.Config `yaml:"api"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Redis == nil {
		return ErrRedisConfigRequired
	}

	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("invalid redis configuration: %w", err)
	}

	if c.Database == nil {
		return ErrDatabaseConfigRequired
	}

	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("invalid database configuration: %w", err)
	}

	if c.Kamis == nil {
		return ErrKamisConfigRequired
	}

	if err := c.Kamis.Validate(); err != nil {
		return fmt.Errorf("invalid kamis configuration: %w", err)
	}

	if c.API != nil {
		if err := c.API.Validate(); err != nil {
			return fmt.Errorf("invalid api configuration: %w", err)
		}
	}

	return nil
}
