// Package repository holds generic GORM helpers. Every helper runs on the
// transaction bound to ctx when there is one and on db otherwise.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/narwhalmedia/gallery/pkg/errors"
	"github.com/narwhalmedia/gallery/pkg/transaction"
)

// Create creates a new entity in the database.
func Create[T any](ctx context.Context, db *gorm.DB, entity *T) error {
	if err := transaction.DB(ctx, db).Create(entity).Error; err != nil {
		if pkgerrors.IsDuplicateError(err) {
			return pkgerrors.Conflict("entity already exists")
		}
		return err
	}
	return nil
}

// FindByID finds a live entity by its ID.
func FindByID[T any](ctx context.Context, db *gorm.DB, id uuid.UUID, notFound string) (*T, error) {
	var entity T
	if err := transaction.DB(ctx, db).First(&entity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound(notFound)
		}
		return nil, err
	}
	return &entity, nil
}

// Exists reports whether a live entity matches the condition.
func Exists[T any](ctx context.Context, db *gorm.DB, query string, args ...interface{}) (bool, error) {
	var entity T
	var found []map[string]interface{}
	err := transaction.DB(ctx, db).Model(&entity).Select("id").Where(query, args...).Limit(1).Find(&found).Error
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// UpdateFields applies fields to the live entity with the given ID and
// reloads it. The map form lets the audit plugin stamp updated_by.
func UpdateFields[T any](ctx context.Context, db *gorm.DB, id uuid.UUID, fields map[string]interface{}, notFound string) (*T, error) {
	tx := transaction.DB(ctx, db)
	if len(fields) > 0 {
		var model T
		result := tx.Model(&model).Where("id = ?", id).Updates(fields)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, pkgerrors.NotFound(notFound)
		}
	}
	return FindByID[T](ctx, db, id, notFound)
}

// SoftDelete marks the live entity with the given ID as deleted. It goes
// through Updates so that deleted_by is stamped like any other update.
func SoftDelete[T any](ctx context.Context, db *gorm.DB, id uuid.UUID, notFound string) error {
	var model T
	tx := transaction.DB(ctx, db)
	result := tx.Model(&model).Where("id = ?", id).Updates(map[string]interface{}{
		"deleted_at": tx.NowFunc(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.NotFound(notFound)
	}
	return nil
}
