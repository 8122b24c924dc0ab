package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/narwhalmedia/gallery/internal/gallery/domain"
	"github.com/narwhalmedia/gallery/pkg/database"
	"github.com/narwhalmedia/gallery/test/testutil"
)

func TestMigrator_AppliesOnce(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	migrator := database.NewMigrator(db, zaptest.NewLogger(t))

	pending, err := migrator.GetPendingMigrations()
	require.Error(t, err, "migrations table does not exist yet")
	assert.Empty(t, pending)

	require.NoError(t, migrator.Migrate())
	require.NoError(t, migrator.Migrate())

	pending, err = migrator.GetPendingMigrations()
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.True(t, db.Migrator().HasTable(&domain.Album{}))
	assert.True(t, db.Migrator().HasTable(&domain.Photo{}))
	assert.True(t, db.Migrator().HasIndex(&domain.Photo{}, "idx_photos_album_created"))
	assert.True(t, db.Migrator().HasIndex(&domain.Album{}, "idx_albums_creator"))

	var applied int64
	require.NoError(t, db.Model(&database.Migration{}).Count(&applied).Error)
	assert.Equal(t, int64(2), applied)
}

func TestMigrator_Status(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	migrator := database.NewMigrator(db, zaptest.NewLogger(t))

	applied, pending, err := migrator.Status()
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.Len(t, pending, 2)

	require.NoError(t, migrator.Migrate())

	applied, pending, err = migrator.Status()
	require.NoError(t, err)
	assert.Len(t, applied, 2)
	assert.Empty(t, pending)
	assert.GreaterOrEqual(t, applied[0].Version, applied[1].Version)
}
