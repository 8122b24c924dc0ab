package transaction_test

import (
	"context"
	"database/sql"
	"sync"

	"gorm.io/gorm"

	"github.com/narwhalmedia/gallery/pkg/transaction"
)

// fakeBackend records every call made by the manager.
type fakeBackend struct {
	mu        sync.Mutex
	begins    int
	commits   int
	rollbacks int
	ops       []string
	levels    []sql.IsolationLevel

	beginErr      error
	commitErr     error
	rollbackToErr error
	// gate, when set, blocks Begin until it is closed, ignoring ctx.
	gate chan struct{}
}

func (b *fakeBackend) Begin(ctx context.Context, isolation sql.IsolationLevel) (transaction.Handle, error) {
	if b.gate != nil {
		<-b.gate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	b.begins++
	b.levels = append(b.levels, isolation)
	b.ops = append(b.ops, "begin")
	return &fakeHandle{backend: b}, nil
}

func (b *fakeBackend) DB() *gorm.DB { return nil }

func (b *fakeBackend) record(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, op)
	switch op {
	case "commit":
		b.commits++
	case "rollback":
		b.rollbacks++
	}
}

func (b *fakeBackend) counts() (begins, commits, rollbacks int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.begins, b.commits, b.rollbacks
}

func (b *fakeBackend) history() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.ops...)
}

type fakeHandle struct {
	backend *fakeBackend
}

func (h *fakeHandle) Commit() error {
	if h.backend.commitErr != nil {
		return h.backend.commitErr
	}
	h.backend.record("commit")
	return nil
}

func (h *fakeHandle) Rollback() error {
	h.backend.record("rollback")
	return nil
}

func (h *fakeHandle) SavePoint(name string) error {
	h.backend.record("savepoint")
	return nil
}

func (h *fakeHandle) RollbackTo(name string) error {
	if h.backend.rollbackToErr != nil {
		return h.backend.rollbackToErr
	}
	h.backend.record("rollback_to")
	return nil
}

func (h *fakeHandle) Release(name string) error {
	h.backend.record("release")
	return nil
}

func (h *fakeHandle) DB() *gorm.DB { return nil }
