package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/narwhalmedia/gallery/internal/gallery/domain"
	"github.com/narwhalmedia/gallery/pkg/pagination"
)

// AlbumServiceInterface defines the album operations exposed to handlers.
type AlbumServiceInterface interface {
	GetAlbum(ctx context.Context, id uuid.UUID) (*domain.Album, error)
	ListAlbums(ctx context.Context, params pagination.Params) (pagination.Page[domain.Album], error)
	CreateAlbum(ctx context.Context, input CreateAlbumInput) (*domain.Album, error)
	UpdateAlbum(ctx context.Context, id uuid.UUID, update domain.AlbumUpdate) (*domain.Album, error)
	DeleteAlbum(ctx context.Context, id uuid.UUID) error
}

// PhotoServiceInterface defines the photo operations exposed to handlers.
type PhotoServiceInterface interface {
	GetPhoto(ctx context.Context, id uuid.UUID) (*domain.Photo, error)
	ListPhotos(ctx context.Context, albumID uuid.UUID, params pagination.Params) (pagination.Page[domain.Photo], error)
	CreatePhoto(ctx context.Context, input CreatePhotoInput, upload Upload) (*domain.Photo, error)
	UpdatePhoto(ctx context.Context, id uuid.UUID, update domain.PhotoUpdate) (*domain.Photo, error)
	DeletePhoto(ctx context.Context, id uuid.UUID) error
}

// CreateAlbumInput holds the fields of a new album.
type CreateAlbumInput struct {
	Title       string
	Description *string
}

// CreatePhotoInput holds the descriptive fields of a new photo.
type CreatePhotoInput struct {
	AlbumID     uuid.UUID
	Title       string
	Description *string
	AcquireAt   *time.Time
}

// Upload is the binary of a new photo.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the size of the binary in bytes.
func (u Upload) Size() int64 {
	return int64(len(u.Data))
}

// Ensure the services implement the interfaces.
var (
	_ AlbumServiceInterface = (*AlbumService)(nil)
	_ PhotoServiceInterface = (*PhotoService)(nil)
)
