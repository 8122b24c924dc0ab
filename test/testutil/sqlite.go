package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/narwhalmedia/gallery/pkg/database"
)

var dbSeq atomic.Int64

// NewSQLiteDB creates a private in-memory SQLite database with the audit
// plugin installed. The pool holds a single connection, so a query issued
// outside an open transaction blocks until it finishes.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=1", name, dbSeq.Add(1))

	db, err := database.Open(sqlite.Open(dsn), gormlogger.Discard)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// NewGalleryDB returns a migrated SQLite database holding the gallery schema.
func NewGalleryDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := NewSQLiteDB(t)
	require.NoError(t, database.RunMigrations(db, zaptest.NewLogger(t)))
	return db
}
