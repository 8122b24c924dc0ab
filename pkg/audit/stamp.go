// Package audit stamps created_by, updated_by and deleted_by from the
// identity bound to the call chain.
//
// The stamp functions operate on map payloads and never modify their input.
// Plugin applies the same rules to every GORM create and update.
package audit

import (
	"context"

	"github.com/narwhalmedia/gallery/pkg/identity"
)

// Column and field names of the audit attributes.
const (
	CreatedByColumn = "created_by"
	UpdatedByColumn = "updated_by"
	DeletedByColumn = "deleted_by"
	DeletedAtColumn = "deleted_at"

	CreatedByField = "CreatedBy"
	UpdatedByField = "UpdatedBy"
	DeletedByField = "DeletedBy"
)

type attribute struct {
	column string
	field  string
}

var (
	createdBy = attribute{column: CreatedByColumn, field: CreatedByField}
	updatedBy = attribute{column: UpdatedByColumn, field: UpdatedByField}
	deletedBy = attribute{column: DeletedByColumn, field: DeletedByField}
)

// StampCreate returns a copy of data with created_by and updated_by set to
// the bound actor. Values the caller already supplied are kept. Without a
// bound identity data is returned untouched.
func StampCreate(ctx context.Context, data map[string]any) map[string]any {
	return stamp(ctx, data, createdBy, updatedBy)
}

// StampCreateMany applies StampCreate to every row.
func StampCreateMany(ctx context.Context, rows []map[string]any) []map[string]any {
	return stampMany(ctx, rows, createdBy, updatedBy)
}

// StampUpdate returns a copy of data with updated_by set to the bound actor
// unless the caller supplied it.
func StampUpdate(ctx context.Context, data map[string]any) map[string]any {
	return stamp(ctx, data, updatedBy)
}

// StampUpdateMany applies StampUpdate to every row.
func StampUpdateMany(ctx context.Context, rows []map[string]any) []map[string]any {
	return stampMany(ctx, rows, updatedBy)
}

// StampUpsert stamps the create branch like StampCreate and the update
// branch like StampUpdate.
func StampUpsert(ctx context.Context, create, update map[string]any) (map[string]any, map[string]any) {
	return StampCreate(ctx, create), StampUpdate(ctx, update)
}

// StampDelete returns a copy of data with deleted_by and updated_by set to
// the bound actor unless the caller supplied them.
func StampDelete(ctx context.Context, data map[string]any) map[string]any {
	return stamp(ctx, data, deletedBy, updatedBy)
}

func stamp(ctx context.Context, data map[string]any, attrs ...attribute) map[string]any {
	actor := identity.ActorID(ctx)
	if actor == "" {
		return data
	}
	out := make(map[string]any, len(data)+len(attrs))
	for k, v := range data {
		out[k] = v
	}
	for _, attr := range attrs {
		if !supplied(out, attr) {
			out[attr.column] = actor
		}
	}
	return out
}

func stampMany(ctx context.Context, rows []map[string]any, attrs ...attribute) []map[string]any {
	if identity.ActorID(ctx) == "" {
		return rows
	}
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = stamp(ctx, row, attrs...)
	}
	return out
}

// supplied reports whether data carries a caller value for attr under
// either its column or its field name.
func supplied(data map[string]any, attr attribute) bool {
	return isSet(data[attr.column]) || isSet(data[attr.field])
}

func isSet(v any) bool {
	switch val := v.(type) {
	case string:
		return true
	case *string:
		return val != nil
	default:
		return false
	}
}
