package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/narwhalmedia/gallery/internal/gallery/domain"
	apperrors "github.com/narwhalmedia/gallery/pkg/errors"
	"github.com/narwhalmedia/gallery/pkg/pagination"
	"github.com/narwhalmedia/gallery/pkg/repository"
	"github.com/narwhalmedia/gallery/pkg/transaction"
)

// GormRepository implements the repository interfaces using GORM. It never
// opens transactions itself; it joins whichever one ctx carries.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new GORM repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func albumNotFound(id uuid.UUID) string { return fmt.Sprintf("album %s not found", id) }

func photoNotFound(id uuid.UUID) string { return fmt.Sprintf("photo %s not found", id) }

// CreateAlbum creates a new album.
func (r *GormRepository) CreateAlbum(ctx context.Context, album *domain.Album) error {
	if album.ID == uuid.Nil {
		album.ID = domain.NewID()
	}
	return repository.Create(ctx, r.db, album)
}

// GetAlbum retrieves a live album by ID.
func (r *GormRepository) GetAlbum(ctx context.Context, id uuid.UUID) (*domain.Album, error) {
	return repository.FindByID[domain.Album](ctx, r.db, id, albumNotFound(id))
}

// ListAlbumsByCreator lists albums by id descending.
func (r *GormRepository) ListAlbumsByCreator(ctx context.Context, creator string, after *pagination.Cursor, size int) ([]domain.Album, error) {
	q := transaction.DB(ctx, r.db).Where("created_by = ?", creator)
	if after != nil {
		id, err := uuid.Parse(after.SortValue)
		if err != nil {
			return nil, apperrors.BadRequest("invalid cursor")
		}
		q = q.Where("id < ?", id)
	}

	var albums []domain.Album
	if err := q.Order("id DESC").Limit(size).Find(&albums).Error; err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}
	return albums, nil
}

// UpdateAlbum applies a partial update.
func (r *GormRepository) UpdateAlbum(ctx context.Context, id uuid.UUID, update domain.AlbumUpdate) (*domain.Album, error) {
	return repository.UpdateFields[domain.Album](ctx, r.db, id, update.Fields(), albumNotFound(id))
}

// DeleteAlbum soft-deletes an album.
func (r *GormRepository) DeleteAlbum(ctx context.Context, id uuid.UUID) error {
	return repository.SoftDelete[domain.Album](ctx, r.db, id, albumNotFound(id))
}

// AlbumHasPhotos reports whether the album has live photos.
func (r *GormRepository) AlbumHasPhotos(ctx context.Context, id uuid.UUID) (bool, error) {
	return repository.Exists[domain.Photo](ctx, r.db, "album_id = ?", id)
}

// CreatePhoto creates a new photo.
func (r *GormRepository) CreatePhoto(ctx context.Context, photo *domain.Photo) error {
	if photo.ID == uuid.Nil {
		photo.ID = domain.NewID()
	}
	return repository.Create(ctx, r.db, photo)
}

// GetPhoto retrieves a live photo by ID.
func (r *GormRepository) GetPhoto(ctx context.Context, id uuid.UUID) (*domain.Photo, error) {
	return repository.FindByID[domain.Photo](ctx, r.db, id, photoNotFound(id))
}

// ListPhotosByAlbum lists photos by creation time descending. The cursor
// carries the creation time of the last photo and its id as tie breaker.
func (r *GormRepository) ListPhotosByAlbum(ctx context.Context, albumID uuid.UUID, after *pagination.Cursor, size int) ([]domain.Photo, error) {
	q := transaction.DB(ctx, r.db).Where("album_id = ?", albumID)
	if after != nil {
		createdAt, err := time.Parse(time.RFC3339Nano, after.SortValue)
		if err != nil {
			return nil, apperrors.BadRequest("invalid cursor")
		}
		createdAt = createdAt.UTC()
		if after.ID == "" {
			q = q.Where("created_at < ?", createdAt)
		} else {
			lastID, err := uuid.Parse(after.ID)
			if err != nil {
				return nil, apperrors.BadRequest("invalid cursor")
			}
			q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", createdAt, createdAt, lastID)
		}
	}

	var photos []domain.Photo
	if err := q.Order("created_at DESC").Order("id DESC").Limit(size).Find(&photos).Error; err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	return photos, nil
}

// UpdatePhoto applies a partial update.
func (r *GormRepository) UpdatePhoto(ctx context.Context, id uuid.UUID, update domain.PhotoUpdate) (*domain.Photo, error) {
	return repository.UpdateFields[domain.Photo](ctx, r.db, id, update.Fields(), photoNotFound(id))
}

// FinalizePhoto sets the URL and metadata of a photo.
func (r *GormRepository) FinalizePhoto(ctx context.Context, id uuid.UUID, url string, metadata domain.Metadata) (*domain.Photo, error) {
	fields := map[string]interface{}{
		"url":      url,
		"metadata": metadata,
	}
	return repository.UpdateFields[domain.Photo](ctx, r.db, id, fields, photoNotFound(id))
}

// DeletePhoto soft-deletes a photo.
func (r *GormRepository) DeletePhoto(ctx context.Context, id uuid.UUID) error {
	return repository.SoftDelete[domain.Photo](ctx, r.db, id, photoNotFound(id))
}
