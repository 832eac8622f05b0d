package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yachaerang/pricebatch/pkg/storage"
)

// NewSQLiteStore creates a migrated in-memory store. Each call gets a
// private database; it is discarded when the connection closes at the
// end of the test.
func NewSQLiteStore(t *testing.T) *storage.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory sqlite")

	store := storage.NewStoreWithDB(NewLogger(), db)
	require.NoError(t, store.Migrate(context.Background()), "failed to migrate test schema")

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("failed to close test store: %v", err)
		}
	})

	return store
}
