package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Backend opens transactions against the relational store.
type Backend interface {
	// Begin opens a transaction bound to ctx. Cancelling ctx rolls the
	// transaction back.
	Begin(ctx context.Context, isolation sql.IsolationLevel) (Handle, error)
	// DB returns the non-transactional handle.
	DB() *gorm.DB
}

// Handle is one open backend transaction.
type Handle interface {
	Commit() error
	Rollback() error
	SavePoint(name string) error
	RollbackTo(name string) error
	Release(name string) error
	DB() *gorm.DB
}

// GormBackend is the GORM implementation of Backend.
type GormBackend struct {
	db *gorm.DB
}

// NewGormBackend creates a backend over db.
func NewGormBackend(db *gorm.DB) *GormBackend {
	return &GormBackend{db: db}
}

// DB returns the non-transactional handle.
func (b *GormBackend) DB() *gorm.DB {
	return b.db
}

// Begin starts a transaction with the given isolation level.
func (b *GormBackend) Begin(ctx context.Context, isolation sql.IsolationLevel) (Handle, error) {
	var opts *sql.TxOptions
	if isolation != sql.LevelDefault {
		opts = &sql.TxOptions{Isolation: isolation}
	}
	tx := b.db.WithContext(ctx).Begin(opts)
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	return &gormHandle{tx: tx}, nil
}

type gormHandle struct {
	tx *gorm.DB
}

func (h *gormHandle) DB() *gorm.DB {
	return h.tx
}

func (h *gormHandle) Commit() error {
	if err := h.tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback treats an already finished transaction as rolled back. That
// happens when the context deadline fired first.
func (h *gormHandle) Rollback() error {
	if err := h.tx.Rollback().Error; err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return nil
		}
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

func (h *gormHandle) SavePoint(name string) error {
	if err := h.tx.SavePoint(name).Error; err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	return nil
}

func (h *gormHandle) RollbackTo(name string) error {
	if err := h.tx.RollbackTo(name).Error; err != nil {
		return fmt.Errorf("rollback to savepoint %s: %w", name, err)
	}
	return nil
}

func (h *gormHandle) Release(name string) error {
	if err := h.tx.Exec("RELEASE SAVEPOINT " + name).Error; err != nil {
		return fmt.Errorf("release savepoint %s: %w", name, err)
	}
	return nil
}
