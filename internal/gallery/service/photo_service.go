package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/narwhalmedia/gallery/internal/gallery/domain"
	"github.com/narwhalmedia/gallery/internal/gallery/imaging"
	"github.com/narwhalmedia/gallery/internal/gallery/repository"
	"github.com/narwhalmedia/gallery/pkg/blob"
	"github.com/narwhalmedia/gallery/pkg/errors"
	"github.com/narwhalmedia/gallery/pkg/interfaces"
	"github.com/narwhalmedia/gallery/pkg/pagination"
	"github.com/narwhalmedia/gallery/pkg/transaction"
)

const (
	uploadFailedMessage   = "failed to upload photo"
	finalizeFailedMessage = "failed to save photo information"
)

// PhotoService handles photo business logic
type PhotoService struct {
	repo    repository.Repository
	store   blob.Store
	tx      *transaction.Manager
	codec   pagination.Codec
	events  eventEmitter
	metrics *SagaMetrics
	logger  interfaces.Logger
}

// NewPhotoService creates a new photo service
func NewPhotoService(
	repo repository.Repository,
	store blob.Store,
	tx *transaction.Manager,
	codec pagination.Codec,
	publisher interfaces.EventPublisher,
	metrics *SagaMetrics,
	logger interfaces.Logger,
) *PhotoService {
	if codec == nil {
		codec = pagination.Base64Codec{}
	}
	return &PhotoService{
		repo:    repo,
		store:   store,
		tx:      tx,
		codec:   codec,
		events:  eventEmitter{tx: tx, publisher: publisher, logger: logger},
		metrics: metrics,
		logger:  logger,
	}
}

// GetPhoto retrieves a photo by ID
func (s *PhotoService) GetPhoto(ctx context.Context, id uuid.UUID) (*domain.Photo, error) {
	return s.repo.GetPhoto(ctx, id)
}

// ListPhotos lists the photos of an album, newest first.
func (s *PhotoService) ListPhotos(ctx context.Context, albumID uuid.UUID, params pagination.Params) (pagination.Page[domain.Photo], error) {
	params, err := params.Normalize()
	if err != nil {
		return pagination.Page[domain.Photo]{}, err
	}
	after, err := params.Decode(s.codec)
	if err != nil {
		return pagination.Page[domain.Photo]{}, err
	}

	photos, err := s.repo.ListPhotosByAlbum(ctx, albumID, after, params.Size)
	if err != nil {
		return pagination.Page[domain.Photo]{}, err
	}
	return pagination.NewPage(photos, params.Size, s.codec, photoCursor)
}

func photoCursor(p domain.Photo) *pagination.Cursor {
	return &pagination.Cursor{
		SortValue: p.CreatedAt.UTC().Format(time.RFC3339Nano),
		ID:        p.ID.String(),
	}
}

// CreatePhoto stores a new photo. The record is inserted with a placeholder
// URL, the binary is uploaded and the record is then finalized with the
// upload URL. If finalizing fails, or the transaction holding the record
// rolls back later on, the uploaded binary is deleted again.
func (s *PhotoService) CreatePhoto(ctx context.Context, input CreatePhotoInput, upload Upload) (*domain.Photo, error) {
	if err := validateUpload(upload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.BadRequest("photo title is required")
	}

	metadata, color := imaging.ExtractOrEmpty(upload.Data)

	return transaction.Run(ctx, s.tx, func(ctx context.Context) (*domain.Photo, error) {
		if _, err := s.repo.GetAlbum(ctx, input.AlbumID); err != nil {
			return nil, err
		}

		photo := &domain.Photo{
			ID:          domain.NewID(),
			AlbumID:     input.AlbumID,
			Title:       input.Title,
			Description: input.Description,
			URL:         domain.PendingUploadURL,
			Color:       color,
			AcquireAt:   input.AcquireAt,
			Metadata:    metadata,
		}
		if err := s.repo.CreatePhoto(ctx, photo); err != nil {
			return nil, err
		}
		intent := &writeIntent{ProvisionalID: photo.ID}
		log := s.logger.WithContext(ctx).WithFields(interfaces.String("photo_id", photo.ID.String()))

		key := domain.ObjectKey(photo.AlbumID, photo.ID, upload.ContentType)
		object, err := s.store.Put(ctx, key, bytes.NewReader(upload.Data), blob.PutOptions{
			ContentType: upload.ContentType,
			Size:        upload.Size(),
		})
		if err != nil {
			log.Error("Failed to upload photo", interfaces.String("key", key), interfaces.Error(err))
			return nil, errors.ExternalStore(uploadFailedMessage, err)
		}
		intent.ArtifactKey = key
		s.tx.OnRollback(ctx, func(ctx context.Context) {
			compensate(ctx, intent, reasonRolledBack, s.store, s.metrics, s.logger)
		})

		finalized, err := s.repo.FinalizePhoto(ctx, photo.ID, object.URL, photo.Metadata.Merge(domain.Metadata{
			"storagePath": key,
			"size":        upload.Size(),
		}))
		if err != nil {
			log.Error("Failed to finalize photo, deleting uploaded binary", interfaces.Error(err))
			compensate(ctx, intent, reasonFinalizeFailed, s.store, s.metrics, s.logger)
			return nil, errors.Finalize(finalizeFailedMessage, err)
		}

		s.events.emit(ctx, domain.EventPhotoCreated, aggregatePhoto, photo.ID.String(), map[string]interface{}{
			"album_id": photo.AlbumID.String(),
			"url":      finalized.URL,
		})
		log.Info("Photo created", interfaces.String("album_id", photo.AlbumID.String()))
		return finalized, nil
	})
}

// UpdatePhoto applies a partial update to an existing photo
func (s *PhotoService) UpdatePhoto(ctx context.Context, id uuid.UUID, update domain.PhotoUpdate) (*domain.Photo, error) {
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return nil, errors.BadRequest("photo title cannot be empty")
	}

	return transaction.Run(ctx, s.tx, func(ctx context.Context) (*domain.Photo, error) {
		if _, err := s.repo.GetPhoto(ctx, id); err != nil {
			return nil, err
		}
		photo, err := s.repo.UpdatePhoto(ctx, id, update)
		if err != nil {
			return nil, err
		}

		s.events.emit(ctx, domain.EventPhotoUpdated, aggregatePhoto, id.String(), update.Fields())
		return photo, nil
	})
}

// DeletePhoto soft-deletes a photo. The binary stays in the blob store.
func (s *PhotoService) DeletePhoto(ctx context.Context, id uuid.UUID) error {
	return s.tx.Do(ctx, func(ctx context.Context) error {
		photo, err := s.repo.GetPhoto(ctx, id)
		if err != nil {
			return err
		}
		if err := s.repo.DeletePhoto(ctx, photo.ID); err != nil {
			return err
		}

		s.events.emit(ctx, domain.EventPhotoDeleted, aggregatePhoto, id.String(), map[string]interface{}{
			"album_id": photo.AlbumID.String(),
		})
		return nil
	})
}

func validateUpload(upload Upload) error {
	if !domain.AllowedContentType(upload.ContentType) {
		return errors.BadRequest(fmt.Sprintf("file type not allowed, accepted types: %s",
			strings.Join(domain.AllowedContentTypes(), ", ")))
	}
	if upload.Size() == 0 {
		return errors.BadRequest("file is empty")
	}
	if upload.Size() > domain.MaxPhotoSize {
		return errors.BadRequest(fmt.Sprintf("file exceeds the maximum size of %d bytes", domain.MaxPhotoSize))
	}
	return nil
}
