// Package testutil provides shared helpers for unit tests:
//   - in-memory SQLite stores exercising the real persistence layer (db.go)
//   - miniredis servers for lock tests (miniredis.go)
//
// Nothing here requires Docker; all helpers run in-process and are torn
// down through t.Cleanup.
package testutil

import (
	"github.com/sirupsen/logrus"
)

// NewLogger returns a quiet logger for tests.
func NewLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}
