package pagination

import (
	"fmt"

	apperrors "github.com/narwhalmedia/gallery/pkg/errors"
)

const (
	DefaultSize = 10
	MaxSize     = 100
)

// Params are the paging inputs of a list request.
type Params struct {
	Cursor string `form:"cursor"`
	Size   int    `form:"size"`
}

// Normalize applies the default size and rejects sizes outside 1..MaxSize.
func (p Params) Normalize() (Params, error) {
	if p.Size == 0 {
		p.Size = DefaultSize
	}
	if p.Size < 1 || p.Size > MaxSize {
		return p, apperrors.BadRequest(fmt.Sprintf("size must be between 1 and %d", MaxSize))
	}
	return p, nil
}

// Decode returns the cursor carried by p, or nil on the first page.
func (p Params) Decode(codec Codec) (*Cursor, error) {
	if p.Cursor == "" {
		return nil, nil
	}
	cursor, err := codec.DecodeCursor(p.Cursor)
	if err != nil {
		return nil, apperrors.BadRequest("invalid cursor")
	}
	return cursor, nil
}

// Page is one page of a list response.
type Page[T any] struct {
	Data        []T     `json:"data"`
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

// NewPage builds a page from at most size items. A full page is assumed to
// have a successor; the cursor of the last item is handed out as
// NextCursor.
func NewPage[T any](items []T, size int, codec Codec, cursorOf func(T) *Cursor) (Page[T], error) {
	page := Page[T]{Data: items, HasNextPage: len(items) == size}
	if page.Data == nil {
		page.Data = []T{}
	}
	if len(items) == 0 {
		return page, nil
	}
	next, err := codec.EncodeCursor(cursorOf(items[len(items)-1]))
	if err != nil {
		return Page[T]{}, err
	}
	page.NextCursor = &next
	return page, nil
}
