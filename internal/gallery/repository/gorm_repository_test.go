package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/narwhalmedia/gallery/internal/gallery/domain"
	"github.com/narwhalmedia/gallery/internal/gallery/repository"
	apperrors "github.com/narwhalmedia/gallery/pkg/errors"
	"github.com/narwhalmedia/gallery/pkg/identity"
	"github.com/narwhalmedia/gallery/pkg/logger"
	"github.com/narwhalmedia/gallery/pkg/pagination"
	"github.com/narwhalmedia/gallery/pkg/transaction"
	"github.com/narwhalmedia/gallery/test/testutil"
)

type GormRepositorySuite struct {
	suite.Suite

	db   *gorm.DB
	repo *repository.GormRepository
}

func TestGormRepositorySuite(t *testing.T) {
	suite.Run(t, new(GormRepositorySuite))
}

func (s *GormRepositorySuite) SetupTest() {
	s.db = testutil.NewGalleryDB(s.T())
	s.repo = repository.NewGormRepository(s.db)
}

func as(actor string) context.Context {
	return identity.WithIdentity(context.Background(), identity.Identity{ActorID: actor})
}

func (s *GormRepositorySuite) createAlbum(actor, title string) *domain.Album {
	album := &domain.Album{Title: title}
	s.Require().NoError(s.repo.CreateAlbum(as(actor), album))
	return album
}

func (s *GormRepositorySuite) createPhoto(actor string, albumID uuid.UUID, createdAt time.Time) *domain.Photo {
	photo := &domain.Photo{
		AlbumID:   albumID,
		Title:     "photo",
		URL:       domain.PendingUploadURL,
		Color:     domain.DefaultColor,
		CreatedAt: createdAt,
	}
	s.Require().NoError(s.repo.CreatePhoto(as(actor), photo))
	return photo
}

func (s *GormRepositorySuite) TestCreateAlbum_StampsCreator() {
	album := s.createAlbum("alice", "Trip")

	s.NotEqual(uuid.Nil, album.ID)
	got, err := s.repo.GetAlbum(context.Background(), album.ID)
	s.Require().NoError(err)
	s.Equal("Trip", got.Title)
	s.Require().NotNil(got.CreatedBy)
	s.Equal("alice", *got.CreatedBy)
	s.Require().NotNil(got.UpdatedBy)
	s.Equal("alice", *got.UpdatedBy)
}

func (s *GormRepositorySuite) TestGetAlbum_NotFound() {
	_, err := s.repo.GetAlbum(context.Background(), uuid.New())
	s.True(apperrors.IsNotFound(err))
}

func (s *GormRepositorySuite) TestListAlbumsByCreator_Paginates() {
	first := s.createAlbum("alice", "one")
	second := s.createAlbum("alice", "two")
	third := s.createAlbum("alice", "three")
	s.createAlbum("bob", "not mine")

	page, err := s.repo.ListAlbumsByCreator(context.Background(), "alice", nil, 2)
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal(third.ID, page[0].ID)
	s.Equal(second.ID, page[1].ID)

	rest, err := s.repo.ListAlbumsByCreator(context.Background(), "alice", &pagination.Cursor{SortValue: page[1].ID.String()}, 2)
	s.Require().NoError(err)
	s.Require().Len(rest, 1)
	s.Equal(first.ID, rest[0].ID)

	_, err = s.repo.ListAlbumsByCreator(context.Background(), "alice", &pagination.Cursor{SortValue: "garbage"}, 2)
	s.True(apperrors.IsBadRequest(err))
}

func (s *GormRepositorySuite) TestUpdateAlbum_StampsUpdater() {
	album := s.createAlbum("alice", "Trip")
	title := "Road trip"

	got, err := s.repo.UpdateAlbum(as("bob"), album.ID, domain.AlbumUpdate{Title: &title})
	s.Require().NoError(err)
	s.Equal("Road trip", got.Title)
	s.Equal("alice", *got.CreatedBy)
	s.Equal("bob", *got.UpdatedBy)

	_, err = s.repo.UpdateAlbum(as("bob"), uuid.New(), domain.AlbumUpdate{Title: &title})
	s.True(apperrors.IsNotFound(err))
}

func (s *GormRepositorySuite) TestDeleteAlbum_IsSoftAndStampsDeleter() {
	album := s.createAlbum("alice", "Trip")

	s.Require().NoError(s.repo.DeleteAlbum(as("carol"), album.ID))

	_, err := s.repo.GetAlbum(context.Background(), album.ID)
	s.True(apperrors.IsNotFound(err))

	var raw domain.Album
	s.Require().NoError(s.db.Unscoped().First(&raw, "id = ?", album.ID).Error)
	s.True(raw.DeletedAt.Valid)
	s.Require().NotNil(raw.DeletedBy)
	s.Equal("carol", *raw.DeletedBy)

	s.True(apperrors.IsNotFound(s.repo.DeleteAlbum(as("carol"), album.ID)))
}

func (s *GormRepositorySuite) TestAlbumHasPhotos() {
	album := s.createAlbum("alice", "Trip")

	has, err := s.repo.AlbumHasPhotos(context.Background(), album.ID)
	s.Require().NoError(err)
	s.False(has)

	photo := s.createPhoto("alice", album.ID, time.Now().UTC())
	has, err = s.repo.AlbumHasPhotos(context.Background(), album.ID)
	s.Require().NoError(err)
	s.True(has)

	s.Require().NoError(s.repo.DeletePhoto(as("alice"), photo.ID))
	has, err = s.repo.AlbumHasPhotos(context.Background(), album.ID)
	s.Require().NoError(err)
	s.False(has, "deleted photos do not count")
}

func (s *GormRepositorySuite) TestListPhotosByAlbum_NewestFirst() {
	album := s.createAlbum("alice", "Trip")
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	oldest := s.createPhoto("alice", album.ID, base)
	middle := s.createPhoto("alice", album.ID, base.Add(time.Minute))
	newest := s.createPhoto("alice", album.ID, base.Add(2*time.Minute))
	s.createPhoto("alice", s.createAlbum("alice", "other").ID, base.Add(3*time.Minute))

	page, err := s.repo.ListPhotosByAlbum(context.Background(), album.ID, nil, 2)
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal(newest.ID, page[0].ID)
	s.Equal(middle.ID, page[1].ID)

	cursor := &pagination.Cursor{SortValue: page[1].CreatedAt.Format(time.RFC3339Nano), ID: page[1].ID.String()}
	rest, err := s.repo.ListPhotosByAlbum(context.Background(), album.ID, cursor, 2)
	s.Require().NoError(err)
	s.Require().Len(rest, 1)
	s.Equal(oldest.ID, rest[0].ID)
}

func (s *GormRepositorySuite) TestListPhotosByAlbum_TiesBrokenByID() {
	album := s.createAlbum("alice", "Trip")
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	a := s.createPhoto("alice", album.ID, at)
	b := s.createPhoto("alice", album.ID, at)

	page, err := s.repo.ListPhotosByAlbum(context.Background(), album.ID, nil, 1)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal(b.ID, page[0].ID)

	cursor := &pagination.Cursor{SortValue: at.Format(time.RFC3339Nano), ID: b.ID.String()}
	rest, err := s.repo.ListPhotosByAlbum(context.Background(), album.ID, cursor, 5)
	s.Require().NoError(err)
	s.Require().Len(rest, 1)
	s.Equal(a.ID, rest[0].ID)
}

func (s *GormRepositorySuite) TestFinalizePhoto() {
	album := s.createAlbum("alice", "Trip")
	photo := s.createPhoto("alice", album.ID, time.Now().UTC())

	got, err := s.repo.FinalizePhoto(as("alice"), photo.ID, "https://cdn/p.png", domain.Metadata{"storagePath": "photos/x.png", "size": 12})
	s.Require().NoError(err)
	s.Equal("https://cdn/p.png", got.URL)
	s.False(got.IsPending())
	s.Equal("photos/x.png", got.Metadata["storagePath"])
	s.EqualValues(12, got.Metadata["size"])
}

func (s *GormRepositorySuite) TestUpdatePhoto_OnlyMutableFields() {
	album := s.createAlbum("alice", "Trip")
	photo := s.createPhoto("alice", album.ID, time.Now().UTC())
	title := "Sunset"
	acquired := time.Date(2023, 7, 4, 20, 0, 0, 0, time.UTC)

	got, err := s.repo.UpdatePhoto(as("bob"), photo.ID, domain.PhotoUpdate{Title: &title, AcquireAt: &acquired})
	s.Require().NoError(err)
	s.Equal("Sunset", got.Title)
	s.Require().NotNil(got.AcquireAt)
	s.True(acquired.Equal(*got.AcquireAt))
	s.Equal(domain.PendingUploadURL, got.URL)
	s.Equal("bob", *got.UpdatedBy)
}

func (s *GormRepositorySuite) TestWritesJoinTheActiveTransaction() {
	manager, err := transaction.NewManager(transaction.NewGormBackend(s.db), transaction.Config{}, logger.NewNoop(), nil)
	s.Require().NoError(err)

	var albumID uuid.UUID
	boom := errors.New("boom")
	err = manager.Do(as("alice"), func(ctx context.Context) error {
		album := &domain.Album{Title: "rolled back"}
		if err := s.repo.CreateAlbum(ctx, album); err != nil {
			return err
		}
		albumID = album.ID
		if _, err := s.repo.GetAlbum(ctx, album.ID); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.repo.GetAlbum(context.Background(), albumID)
	s.True(apperrors.IsNotFound(err))
}
