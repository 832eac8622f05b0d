// Package kamis provides a client for the KAMIS daily wholesale price API.
package kamis

import (
	"errors"
	"time"
)

var (
	// ErrCertIDRequired is returned when the API certificate ID is not provided
	ErrCertIDRequired = errors.New("kamis cert ID is required")
	// ErrCertKeyRequired is returned when the API certificate key is not provided
	ErrCertKeyRequired = errors.New("kamis cert key is required")
)

// Config holds KAMIS client configuration. Retry policy for transient
// upstream failures lives with the ingestion pipeline, not the client.
type Config struct {
	BaseURL string        `yaml:"baseUrl" default:"https://www.kamis.or.kr/service/price/xml.do"`
	CertID  string        `yaml:"certId"`
	CertKey string        `yaml:"certKey"`
	Timeout time.Duration `yaml:"timeout" default:"10s"`
}

// Validate validates the KAMIS client configuration
func (c *Config) Validate() error {
	if c.CertID == "" {
		return ErrCertIDRequired
	}

	if c.CertKey == "" {
		return ErrCertKeyRequired
	}

	return nil
}
