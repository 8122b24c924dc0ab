package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// PendingUploadURL marks a photo whose binary has not been stored yet.
	PendingUploadURL = "pending://upload"
	// DefaultColor is used when the dominant color cannot be determined.
	DefaultColor = "#000000"
	// MaxPhotoSize is the largest accepted upload.
	MaxPhotoSize int64 = 10 << 20
)

var contentTypeOrder = []string{
	"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp", "image/heic", "image/heif",
}

var allowedContentTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/heic": "heic",
	"image/heif": "heif",
}

// AllowedContentType reports whether photos of the given MIME type are
// accepted.
func AllowedContentType(contentType string) bool {
	_, ok := allowedContentTypes[normalizeContentType(contentType)]
	return ok
}

// AllowedContentTypes lists the accepted MIME types.
func AllowedContentTypes() []string {
	return append([]string(nil), contentTypeOrder...)
}

// Extension returns the file extension used for the MIME type.
func Extension(contentType string) string {
	if ext, ok := allowedContentTypes[normalizeContentType(contentType)]; ok {
		return ext
	}
	return "bin"
}

// ObjectKey is the blob store key of a photo binary.
func ObjectKey(albumID, photoID uuid.UUID, contentType string) string {
	return fmt.Sprintf("photos/%s/%s.%s", albumID, photoID, Extension(contentType))
}

func normalizeContentType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
