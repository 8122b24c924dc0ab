package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/narwhalmedia/gallery/pkg/config"
	"github.com/narwhalmedia/gallery/pkg/interfaces"
)

func main() {
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
	defer log.Sync()

	log.Info("Gallery service starting",
		interfaces.String("version", cfg.Service.Version),
		interfaces.String("environment", cfg.Service.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := InitializeApp(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", interfaces.Error(err))
	}
	defer cleanup()

	if err := app.Run(ctx); err != nil {
		log.Error("Gallery service stopped with error", interfaces.Error(err))
		return
	}
	log.Info("Gallery service stopped")
}
