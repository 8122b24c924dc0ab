package handler

import (
	"strings"
	"time"

	"github.com/narwhalmedia/gallery/internal/gallery/domain"
)

// CreateAlbumRequest is the body of POST /albums.
type CreateAlbumRequest struct {
	Title       string  `json:"title" binding:"required,max=255"`
	Description *string `json:"description"`
}

// UpdateAlbumRequest is the body of PATCH /albums/:id.
type UpdateAlbumRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
}

func (r UpdateAlbumRequest) toUpdate() domain.AlbumUpdate {
	return domain.AlbumUpdate{Title: r.Title, Description: r.Description}
}

// CreatePhotoForm holds the form fields of POST /photos next to the file.
type CreatePhotoForm struct {
	Title       string `form:"title" binding:"required,max=255"`
	Description string `form:"description"`
	AcquireAt   string `form:"acquireAt" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	AlbumID     string `form:"albumId" binding:"required,uuid"`
}

func (f CreatePhotoForm) description() *string {
	if strings.TrimSpace(f.Description) == "" {
		return nil
	}
	return &f.Description
}

func (f CreatePhotoForm) acquireAt() *time.Time {
	if f.AcquireAt == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, f.AcquireAt)
	if err != nil {
		return nil
	}
	return &t
}

// UpdatePhotoRequest is the body of PATCH /photos/:id. The album and the
// color of a photo cannot be changed.
type UpdatePhotoRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string    `json:"description"`
	AcquireAt   *time.Time `json:"acquireAt"`
}

func (r UpdatePhotoRequest) toUpdate() domain.PhotoUpdate {
	return domain.PhotoUpdate{Title: r.Title, Description: r.Description, AcquireAt: r.AcquireAt}
}
