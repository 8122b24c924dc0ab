package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowedContentType(t *testing.T) {
	for _, ct := range []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp", "image/heic", "IMAGE/HEIF", "image/png; charset=binary"} {
		assert.True(t, AllowedContentType(ct), ct)
	}
	for _, ct := range []string{"", "application/pdf", "image/svg+xml", "text/plain"} {
		assert.False(t, AllowedContentType(ct), ct)
	}
}

func TestObjectKey(t *testing.T) {
	album := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	photo := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	assert.Equal(t,
		"photos/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222.jpg",
		ObjectKey(album, photo, "image/jpeg"))
	assert.Equal(t, "webp", Extension("image/webp"))
}

func TestMetadataMerge(t *testing.T) {
	base := Metadata{"width": 10, "format": "png"}

	merged := base.Merge(Metadata{"storagePath": "photos/a/b.png", "size": int64(42)})

	assert.Equal(t, Metadata{"width": 10, "format": "png", "storagePath": "photos/a/b.png", "size": int64(42)}, merged)
	assert.NotContains(t, base, "storagePath")
}

func TestPhotoIsPending(t *testing.T) {
	assert.True(t, (&Photo{URL: PendingUploadURL}).IsPending())
	assert.False(t, (&Photo{URL: "https://storage.googleapis.com/b/k"}).IsPending())
}

func TestMetadataValueScan(t *testing.T) {
	v, err := Metadata{"width": 2, "hasAlpha": true}.Value()
	require.NoError(t, err)

	var got Metadata
	require.NoError(t, got.Scan(v))
	assert.Equal(t, Metadata{"width": float64(2), "hasAlpha": true}, got)

	nilValue, err := Metadata(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, nilValue)

	require.NoError(t, got.Scan(nil))
	assert.Nil(t, got)
	assert.Error(t, got.Scan(42))
}

func TestUpdateFields(t *testing.T) {
	title := "Holidays"
	assert.Equal(t, map[string]any{"title": "Holidays"}, AlbumUpdate{Title: &title}.Fields())
	assert.Empty(t, AlbumUpdate{}.Fields())

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	fields := PhotoUpdate{AcquireAt: &at}.Fields()
	assert.Equal(t, at.UTC(), fields["acquire_at"])
	assert.NotContains(t, fields, "title")
}

func TestNewID_TimeOrdered(t *testing.T) {
	first := NewID()
	time.Sleep(2 * time.Millisecond)
	second := NewID()

	assert.Equal(t, uuid.Version(7), first.Version())
	assert.Less(t, first.String(), second.String())
}
