package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/narwhalmedia/gallery/pkg/config"
	"github.com/narwhalmedia/gallery/pkg/database"
)

func main() {
	var (
		status = flag.Bool("status", false, "Show migration status")
		dryRun = flag.Bool("dry-run", false, "Show pending migrations without applying them")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := cfg.Logger.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger := log.Zap()
	defer logger.Sync()

	db, cleanup, err := database.NewGormDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer cleanup()

	migrator := database.NewMigrator(db, logger)
	switch {
	case *status:
		showMigrationStatus(migrator, logger)
	case *dryRun:
		showPendingMigrations(migrator, logger)
	default:
		if err := migrator.Migrate(); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		fmt.Println("Migrations completed successfully!")
	}
}

// showMigrationStatus displays the applied and pending migrations
func showMigrationStatus(m *database.Migrator, logger *zap.Logger) {
	applied, pending, err := m.Status()
	if err != nil {
		logger.Fatal("Failed to get migration status", zap.Error(err))
	}

	if len(applied) == 0 {
		fmt.Println("No migrations have been applied yet.")
	} else {
		fmt.Println("Applied migrations:")
		fmt.Println("==================")
		for _, a := range applied {
			fmt.Printf("%s | %s | Applied at: %s\n", a.Version, a.Name, a.AppliedAt.Format("2006-01-02 15:04:05"))
		}
	}

	printPending(pending, "\nPending migrations:", "\nAll migrations are up to date!")
}

// showPendingMigrations displays migrations that would be applied
func showPendingMigrations(m *database.Migrator, logger *zap.Logger) {
	_, pending, err := m.Status()
	if err != nil {
		logger.Fatal("Failed to get pending migrations", zap.Error(err))
	}
	printPending(pending, "Pending migrations that would be applied:", "No pending migrations.")
}

func printPending(pending []database.MigrationEntry, title, none string) {
	if len(pending) == 0 {
		fmt.Println(none)
		return
	}
	fmt.Println(title)
	fmt.Println("==================")
	for _, p := range pending {
		fmt.Printf("%s | %s\n", p.Version, p.Name)
	}
}
