package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/narwhalmedia/gallery/internal/gallery/domain"
	"github.com/narwhalmedia/gallery/pkg/pagination"
)

// AlbumRepository persists albums.
type AlbumRepository interface {
	CreateAlbum(ctx context.Context, album *domain.Album) error
	GetAlbum(ctx context.Context, id uuid.UUID) (*domain.Album, error)
	// ListAlbumsByCreator returns at most size albums created by creator,
	// newest first, starting after cursor.
	ListAlbumsByCreator(ctx context.Context, creator string, after *pagination.Cursor, size int) ([]domain.Album, error)
	UpdateAlbum(ctx context.Context, id uuid.UUID, update domain.AlbumUpdate) (*domain.Album, error)
	DeleteAlbum(ctx context.Context, id uuid.UUID) error
	// AlbumHasPhotos reports whether the album has at least one live photo.
	AlbumHasPhotos(ctx context.Context, id uuid.UUID) (bool, error)
}

// PhotoRepository persists photos.
type PhotoRepository interface {
	CreatePhoto(ctx context.Context, photo *domain.Photo) error
	GetPhoto(ctx context.Context, id uuid.UUID) (*domain.Photo, error)
	// ListPhotosByAlbum returns at most size photos of the album, newest
	// first, starting after cursor.
	ListPhotosByAlbum(ctx context.Context, albumID uuid.UUID, after *pagination.Cursor, size int) ([]domain.Photo, error)
	UpdatePhoto(ctx context.Context, id uuid.UUID, update domain.PhotoUpdate) (*domain.Photo, error)
	// FinalizePhoto points a provisional photo at its uploaded binary.
	FinalizePhoto(ctx context.Context, id uuid.UUID, url string, metadata domain.Metadata) (*domain.Photo, error)
	DeletePhoto(ctx context.Context, id uuid.UUID) error
}

// Repository combines all gallery repositories.
type Repository interface {
	AlbumRepository
	PhotoRepository
}
