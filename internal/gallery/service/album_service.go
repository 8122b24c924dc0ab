package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/narwhalmedia/gallery/internal/gallery/domain"
	"github.com/narwhalmedia/gallery/internal/gallery/repository"
	"github.com/narwhalmedia/gallery/pkg/errors"
	"github.com/narwhalmedia/gallery/pkg/identity"
	"github.com/narwhalmedia/gallery/pkg/interfaces"
	"github.com/narwhalmedia/gallery/pkg/pagination"
	"github.com/narwhalmedia/gallery/pkg/transaction"
)

// AlbumHasPhotosMessage is the conflict message returned when deleting an album that still has photos.
const AlbumHasPhotosMessage = "cannot delete an album that contains photos, remove the photos first"

// AlbumService handles album business logic
type AlbumService struct {
	repo   repository.AlbumRepository
	tx     *transaction.Manager
	codec  pagination.Codec
	events eventEmitter
	logger interfaces.Logger
}

// NewAlbumService creates a new album service
func NewAlbumService(
	repo repository.AlbumRepository,
	tx *transaction.Manager,
	codec pagination.Codec,
	publisher interfaces.EventPublisher,
	logger interfaces.Logger,
) *AlbumService {
	if codec == nil {
		codec = pagination.Base64Codec{}
	}
	return &AlbumService{
		repo:   repo,
		tx:     tx,
		codec:  codec,
		events: eventEmitter{tx: tx, publisher: publisher, logger: logger},
		logger: logger,
	}
}

// GetAlbum retrieves an album by ID
func (s *AlbumService) GetAlbum(ctx context.Context, id uuid.UUID) (*domain.Album, error) {
	return s.repo.GetAlbum(ctx, id)
}

// ListAlbums lists the albums created by the acting user, newest first.
func (s *AlbumService) ListAlbums(ctx context.Context, params pagination.Params) (pagination.Page[domain.Album], error) {
	actor := identity.ActorID(ctx)
	if actor == "" {
		return pagination.Page[domain.Album]{}, errors.Unauthorized("authentication required")
	}

	params, err := params.Normalize()
	if err != nil {
		return pagination.Page[domain.Album]{}, err
	}
	after, err := params.Decode(s.codec)
	if err != nil {
		return pagination.Page[domain.Album]{}, err
	}

	albums, err := s.repo.ListAlbumsByCreator(ctx, actor, after, params.Size)
	if err != nil {
		return pagination.Page[domain.Album]{}, err
	}
	return pagination.NewPage(albums, params.Size, s.codec, func(a domain.Album) *pagination.Cursor {
		return &pagination.Cursor{SortValue: a.ID.String()}
	})
}

// CreateAlbum creates a new album owned by the acting user
func (s *AlbumService) CreateAlbum(ctx context.Context, input CreateAlbumInput) (*domain.Album, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.BadRequest("album title is required")
	}

	return transaction.Run(ctx, s.tx, func(ctx context.Context) (*domain.Album, error) {
		album := &domain.Album{
			ID:          domain.NewID(),
			Title:       input.Title,
			Description: input.Description,
		}
		if err := s.repo.CreateAlbum(ctx, album); err != nil {
			s.logger.WithContext(ctx).Error("Failed to create album", interfaces.Error(err))
			return nil, err
		}

		s.events.emit(ctx, domain.EventAlbumCreated, aggregateAlbum, album.ID.String(), map[string]interface{}{
			"title": album.Title,
		})
		s.logger.WithContext(ctx).Info("Album created",
			interfaces.String("id", album.ID.String()),
			interfaces.String("title", album.Title))
		return album, nil
	})
}

// UpdateAlbum applies a partial update to an existing album
func (s *AlbumService) UpdateAlbum(ctx context.Context, id uuid.UUID, update domain.AlbumUpdate) (*domain.Album, error) {
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return nil, errors.BadRequest("album title cannot be empty")
	}

	return transaction.Run(ctx, s.tx, func(ctx context.Context) (*domain.Album, error) {
		if _, err := s.repo.GetAlbum(ctx, id); err != nil {
			return nil, err
		}
		album, err := s.repo.UpdateAlbum(ctx, id, update)
		if err != nil {
			return nil, err
		}

		s.events.emit(ctx, domain.EventAlbumUpdated, aggregateAlbum, id.String(), update.Fields())
		return album, nil
	})
}

// DeleteAlbum soft-deletes an album. Albums with photos cannot be deleted.
func (s *AlbumService) DeleteAlbum(ctx context.Context, id uuid.UUID) error {
	return s.tx.Do(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetAlbum(ctx, id); err != nil {
			return err
		}
		hasPhotos, err := s.repo.AlbumHasPhotos(ctx, id)
		if err != nil {
			return err
		}
		if hasPhotos {
			return errors.Conflict(AlbumHasPhotosMessage)
		}
		if err := s.repo.DeleteAlbum(ctx, id); err != nil {
			return err
		}

		s.events.emit(ctx, domain.EventAlbumDeleted, aggregateAlbum, id.String(), nil)
		s.logger.WithContext(ctx).Info("Album deleted", interfaces.String("id", id.String()))
		return nil
	})
}
