package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/narwhalmedia/gallery/internal/gallery/domain"
)

// Migration represents an applied database migration
type Migration struct {
	ID        uint      `gorm:"primaryKey"`
	Version   string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// MigrationFunc is a function that performs a migration
type MigrationFunc func(*gorm.DB) error

// MigrationEntry represents a single migration
type MigrationEntry struct {
	Version string
	Name    string
	Up      MigrationFunc
}

// Migrator applies versioned migrations, each in its own transaction
type Migrator struct {
	db         *gorm.DB
	logger     *zap.Logger
	migrations []MigrationEntry
}

// NewMigrator creates a new migrator instance
func NewMigrator(db *gorm.DB, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{
		db:         db,
		logger:     logger.Named("migrator"),
		migrations: allMigrations(),
	}
}

// Migrate runs all pending migrations
func (m *Migrator) Migrate() error {
	if err := m.db.AutoMigrate(&Migration{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	pending, err := m.GetPendingMigrations()
	if err != nil {
		return err
	}

	for _, migration := range pending {
		m.logger.Info("running migration", zap.String("version", migration.Version), zap.String("name", migration.Name))

		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}
			return tx.Create(&Migration{
				Version:   migration.Version,
				Name:      migration.Name,
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return fmt.Errorf("failed to run migration %s: %w", migration.Version, err)
		}
	}

	return nil
}

// GetPendingMigrations returns the migrations that have not been applied yet
func (m *Migrator) GetPendingMigrations() ([]MigrationEntry, error) {
	var appliedMigrations []Migration
	if err := m.db.Find(&appliedMigrations).Error; err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	applied := make(map[string]bool, len(appliedMigrations))
	for _, migration := range appliedMigrations {
		applied[migration.Version] = true
	}

	var pending []MigrationEntry
	for _, migration := range m.migrations {
		if !applied[migration.Version] {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// Status returns the applied migrations, newest first, and the pending ones.
func (m *Migrator) Status() ([]Migration, []MigrationEntry, error) {
	if err := m.db.AutoMigrate(&Migration{}); err != nil {
		return nil, nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	var applied []Migration
	if err := m.db.Order("version DESC").Find(&applied).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	pending, err := m.GetPendingMigrations()
	if err != nil {
		return nil, nil, err
	}
	return applied, pending, nil
}

// RunMigrations runs all pending database migrations
func RunMigrations(db *gorm.DB, logger *zap.Logger) error {
	return NewMigrator(db, logger).Migrate()
}

func allMigrations() []MigrationEntry {
	return []MigrationEntry{
		{
			Version: "20250101_001",
			Name:    "Create albums and photos",
			Up:      migration001CreateGallerySchema,
		},
		{
			Version: "20250101_002",
			Name:    "Add listing indexes",
			Up:      migration002AddListingIndexes,
		},
	}
}

func migration001CreateGallerySchema(tx *gorm.DB) error {
	if err := tx.AutoMigrate(&domain.Album{}, &domain.Photo{}); err != nil {
		return fmt.Errorf("failed to migrate gallery models: %w", err)
	}
	return nil
}

// migration002AddListingIndexes backs the keyset pagination of albums by
// creator and of photos by album.
func migration002AddListingIndexes(tx *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_photos_album_created ON photos(album_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_albums_creator ON albums(created_by, id)",
	}
	for _, index := range indexes {
		if err := tx.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
