package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/narwhalmedia/gallery/internal/gallery/handler"
	"github.com/narwhalmedia/gallery/internal/gallery/ops"
	"github.com/narwhalmedia/gallery/internal/gallery/repository"
	"github.com/narwhalmedia/gallery/internal/gallery/service"
	"github.com/narwhalmedia/gallery/pkg/auth"
	"github.com/narwhalmedia/gallery/pkg/blob"
	"github.com/narwhalmedia/gallery/pkg/config"
	"github.com/narwhalmedia/gallery/pkg/database"
	"github.com/narwhalmedia/gallery/pkg/events"
	"github.com/narwhalmedia/gallery/pkg/interfaces"
	"github.com/narwhalmedia/gallery/pkg/logger"
	"github.com/narwhalmedia/gallery/pkg/pagination"
	"github.com/narwhalmedia/gallery/pkg/transaction"
)

// infrastructureSet provides storage, messaging and observability.
var infrastructureSet = wire.NewSet(
	provideZap,
	provideDB,
	provideRegistry,
	wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
	wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
	transaction.NewMetrics,
	provideTransactionManager,
	provideBlobStore,
	provideEventPublisher,
	provideCodec,
	provideResolver,
)

// gallerySet provides the gallery services and their transports.
var gallerySet = wire.NewSet(
	repository.NewGormRepository,
	wire.Bind(new(repository.Repository), new(*repository.GormRepository)),
	wire.Bind(new(repository.AlbumRepository), new(*repository.GormRepository)),
	service.NewSagaMetrics,
	service.NewAlbumService,
	service.NewPhotoService,
	wire.Bind(new(service.AlbumServiceInterface), new(*service.AlbumService)),
	wire.Bind(new(service.PhotoServiceInterface), new(*service.PhotoService)),
	provideHTTPHandler,
	provideRouter,
	provideOpsServer,
	NewApp,
)

func provideZap(log *logger.ZapLogger) *zap.Logger {
	return log.Zap()
}

func provideDB(cfg *config.GalleryConfig, log *zap.Logger) (*gorm.DB, func(), error) {
	return database.NewGormDB(cfg.Database, log.Named("database"))
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideTransactionManager(
	db *gorm.DB,
	cfg *config.GalleryConfig,
	log interfaces.Logger,
	metrics *transaction.Metrics,
) (*transaction.Manager, error) {
	return transaction.NewManager(transaction.NewGormBackend(db), cfg.Transaction, log, metrics)
}

func provideBlobStore(ctx context.Context, cfg *config.GalleryConfig, log *zap.Logger) (blob.Store, error) {
	return blob.New(ctx, cfg.Storage, log.Named("blob"))
}

func provideEventPublisher(ctx context.Context, cfg *config.GalleryConfig, log *zap.Logger) (interfaces.EventPublisher, func(), error) {
	publisher, err := events.NewPublisher(ctx, cfg.Events, log.Named("events"))
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := publisher.Close(); err != nil {
			log.Warn("closing event publisher", zap.Error(err))
		}
	}
	return publisher, cleanup, nil
}

func provideCodec(cfg *config.GalleryConfig) (pagination.Codec, error) {
	return cfg.Pagination.Codec()
}

func provideResolver(cfg *config.GalleryConfig, log *zap.Logger) (auth.Resolver, error) {
	return auth.NewResolver(cfg.Auth, log.Named("auth"))
}

func provideHTTPHandler(
	cfg *config.GalleryConfig,
	albums service.AlbumServiceInterface,
	photos service.PhotoServiceInterface,
	log interfaces.Logger,
) *handler.HTTPHandler {
	return handler.NewHTTPHandler(albums, photos, cfg.HTTP.MaxUploadSize, cfg.HTTP.MaxRequestBody(), log)
}

func pingCheck(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return sqlDB.PingContext(ctx)
	}
}

func provideRouter(
	cfg *config.GalleryConfig,
	h *handler.HTTPHandler,
	resolver auth.Resolver,
	log interfaces.Logger,
	reg *prometheus.Registry,
	db *gorm.DB,
) *gin.Engine {
	if cfg.Service.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		gatherer = reg
	}
	return handler.NewRouter(h, resolver, log, gatherer, pingCheck(db))
}

func provideOpsServer(resolver auth.Resolver, log interfaces.Logger, db *gorm.DB) *ops.Server {
	return ops.NewServer(resolver, log, pingCheck(db))
}
