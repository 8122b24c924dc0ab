package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/narwhalmedia/gallery/internal/gallery/domain"
)

// NewAlbum creates a test album with default values.
func NewAlbum(title string) *domain.Album {
	return &domain.Album{
		ID:    domain.NewID(),
		Title: title,
	}
}

// NewPhoto creates a pending test photo in the given album.
func NewPhoto(albumID uuid.UUID, title string) *domain.Photo {
	return &domain.Photo{
		ID:       domain.NewID(),
		AlbumID:  albumID,
		Title:    title,
		URL:      domain.PendingUploadURL,
		Color:    domain.DefaultColor,
		Metadata: domain.Metadata{},
	}
}

// SolidImage returns a w x h image filled with c.
func SolidImage(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// PNGBytes encodes a solid w x h PNG.
func PNGBytes(t testing.TB, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, SolidImage(w, h, c)))
	return buf.Bytes()
}

// JPEGBytes encodes a solid w x h JPEG.
func JPEGBytes(t testing.TB, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, SolidImage(w, h, c), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}
