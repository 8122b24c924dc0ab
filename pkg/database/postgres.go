package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/narwhalmedia/gallery/pkg/audit"
)

// Config holds the relational store configuration
type Config struct {
	Driver          string        `koanf:"driver" validate:"oneof=postgres sqlite"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Database        string        `koanf:"database"`
	SSLMode         string        `koanf:"ssl_mode"`
	Path            string        `koanf:"path"`
	MaxConnections  int           `koanf:"max_connections" validate:"min=1"`
	MinConnections  int           `koanf:"min_connections"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time"`
	SlowThreshold   time.Duration `koanf:"slow_threshold"`
	Debug           bool          `koanf:"debug"`
}

// DefaultConfig returns a default PostgreSQL configuration
func DefaultConfig() Config {
	return Config{
		Driver:          "postgres",
		Host:            "localhost",
		Port:            5432,
		User:            "gallery",
		Password:        "gallery_dev",
		Database:        "gallery_dev",
		SSLMode:         "disable",
		MaxConnections:  25,
		MinConnections:  5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		SlowThreshold:   200 * time.Millisecond,
	}
}

// DSN returns the PostgreSQL connection string
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// NewGormDB opens the configured database (Path names the file for the
// sqlite driver) and installs the audit plugin.
// The returned cleanup closes the connection pool.
func NewGormDB(cfg Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := Open(dialector, NewGormLogger(logger, cfg.Debug, cfg.SlowThreshold))
	if err != nil {
		return nil, nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get underlying SQL database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// a single writer avoids "database is locked" under concurrent transactions
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxConnections)
		sqlDB.SetMaxIdleConns(cfg.MinConnections)
		sqlDB.SetConnMaxLifetime(cfg.MaxConnLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	cleanup := func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("closing database", zap.Error(err))
		}
	}
	return db, cleanup, nil
}

// Open opens a GORM session over dialector with the gallery defaults: UTC
// timestamps and the audit plugin.
func Open(dialector gorm.Dialector, gormLogger gormlogger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Use(audit.Plugin{}); err != nil {
		return nil, fmt.Errorf("failed to install audit plugin: %w", err)
	}
	return db, nil
}
