package main

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/narwhalmedia/gallery/internal/gallery/ops"
	"github.com/narwhalmedia/gallery/pkg/config"
	"github.com/narwhalmedia/gallery/pkg/interfaces"
)

const healthInterval = 15 * time.Second

// App runs the HTTP API and the gRPC operations server.
type App struct {
	cfg    *config.GalleryConfig
	router *gin.Engine
	ops    *ops.Server
	logger interfaces.Logger
}

// NewApp creates the application.
func NewApp(cfg *config.GalleryConfig, router *gin.Engine, opsServer *ops.Server, log interfaces.Logger) *App {
	return &App{cfg: cfg, router: router, ops: opsServer, logger: log}
}

// Run serves until ctx is cancelled or a server fails, then shuts both
// servers down.
func (a *App) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         a.cfg.Service.ListenAddress(),
		Handler:      a.router,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
	}

	// Bind every listener before serving so a taken port fails startup
	// without leaving the other server running.
	httpLis, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return err
	}
	var grpcLis net.Listener
	if a.cfg.Service.GRPCPort > 0 {
		grpcLis, err = net.Listen("tcp", a.cfg.Service.GRPCListenAddress())
		if err != nil {
			_ = httpLis.Close()
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server starting", interfaces.String("address", httpLis.Addr().String()))
		if err := httpServer.Serve(httpLis); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if grpcLis != nil {
		g.Go(func() error {
			a.logger.Info("gRPC server starting", interfaces.String("address", grpcLis.Addr().String()))
			return a.ops.GRPC().Serve(grpcLis)
		})
		g.Go(func() error {
			a.ops.Watch(ctx, healthInterval)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		a.ops.Shutdown()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
