// Package domain holds the gallery entities.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Album groups photos. Deleting an album is refused while it has photos.
type Album struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Description *string        `json:"description"`
	CreatedAt   time.Time      `json:"createdAt"`
	CreatedBy   *string        `gorm:"size:255" json:"createdBy"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	UpdatedBy   *string        `gorm:"size:255" json:"updatedBy"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	DeletedBy   *string        `gorm:"size:255" json:"-"`
}

// TableName implements schema.Tabler.
func (Album) TableName() string { return "albums" }

// Photo is an image stored in the blob store and described by a row.
type Photo struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AlbumID     uuid.UUID      `gorm:"type:uuid;not null" json:"albumId"`
	Title       string         `gorm:"not null" json:"title"`
	Description *string        `json:"description"`
	URL         string         `gorm:"not null" json:"url"`
	Color       string         `gorm:"size:7;not null" json:"color"`
	AcquireAt   *time.Time     `json:"acquireAt"`
	Metadata    Metadata       `gorm:"type:jsonb" json:"metadata"`
	CreatedAt   time.Time      `json:"createdAt"`
	CreatedBy   *string        `gorm:"size:255" json:"createdBy"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	UpdatedBy   *string        `gorm:"size:255" json:"updatedBy"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	DeletedBy   *string        `gorm:"size:255" json:"-"`
}

// TableName implements schema.Tabler.
func (Photo) TableName() string { return "photos" }

// IsPending reports whether the photo still points at the upload placeholder.
func (p *Photo) IsPending() bool {
	return p.URL == PendingUploadURL
}

// Metadata is free-form image metadata stored as JSON.
type Metadata map[string]any

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", value)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, m)
}

// Merge returns a copy of m overlaid with extra.
func (m Metadata) Merge(extra Metadata) Metadata {
	out := make(Metadata, len(m)+len(extra))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// NewID returns a time-ordered id, so id order follows creation order.
func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
