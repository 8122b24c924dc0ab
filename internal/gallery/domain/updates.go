package domain

import "time"

// AlbumUpdate is a partial album change; nil fields are left alone.
type AlbumUpdate struct {
	Title       *string
	Description *string
}

// Fields returns the changed columns.
func (u AlbumUpdate) Fields() map[string]any {
	fields := make(map[string]any, 2)
	if u.Title != nil {
		fields["title"] = *u.Title
	}
	if u.Description != nil {
		fields["description"] = *u.Description
	}
	return fields
}

// PhotoUpdate is a partial photo change. The album, color, URL and metadata
// of a photo cannot be changed through it.
type PhotoUpdate struct {
	Title       *string
	Description *string
	AcquireAt   *time.Time
}

// Fields returns the changed columns.
func (u PhotoUpdate) Fields() map[string]any {
	fields := make(map[string]any, 3)
	if u.Title != nil {
		fields["title"] = *u.Title
	}
	if u.Description != nil {
		fields["description"] = *u.Description
	}
	if u.AcquireAt != nil {
		fields["acquire_at"] = u.AcquireAt.UTC()
	}
	return fields
}
