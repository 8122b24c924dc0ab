//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/narwhalmedia/gallery/pkg/config"
	"github.com/narwhalmedia/gallery/pkg/interfaces"
	"github.com/narwhalmedia/gallery/pkg/logger"
)

func InitializeApp(ctx context.Context, cfg *config.GalleryConfig, log *logger.ZapLogger) (*App, func(), error) {
	wire.Build(
		wire.Bind(new(interfaces.Logger), new(*logger.ZapLogger)),
		infrastructureSet,
		gallerySet,
	)
	return nil, nil, nil
}
