// Package transaction implements the unit-of-work boundary used by the
// gallery services.
//
// The active transaction travels inside a context.Context. Repositories ask
// for it through DB and never begin transactions of their own; services
// declare their boundary with Manager.Do or Run.
package transaction

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrNoActiveTransaction is returned by operations that need an active
	// transaction when the context carries none.
	ErrNoActiveTransaction = errors.New("no active transaction")
	// ErrUnknownSavepoint is returned when removing a savepoint that was
	// never added to the active transaction.
	ErrUnknownSavepoint = errors.New("unknown savepoint")
)

// TxContext is the state of one open transaction.
type TxContext struct {
	// Level is 0 for an outermost transaction and parent level + 1 for a
	// transaction opened with RequireNew while another one was active.
	Level     int
	Isolation sql.IsolationLevel
	Timeout   time.Duration

	handle Handle

	mu            sync.Mutex
	savepoints    []string
	afterCommit   []func(ctx context.Context)
	afterRollback []func(ctx context.Context)
}

// NewTxContext wraps an open backend handle.
func NewTxContext(handle Handle, level int, isolation sql.IsolationLevel, timeout time.Duration) *TxContext {
	return &TxContext{
		Level:     level,
		Isolation: isolation,
		Timeout:   timeout,
		handle:    handle,
	}
}

// Handle returns the backend transaction.
func (t *TxContext) Handle() Handle {
	return t.handle
}

func (t *TxContext) addSavepoint(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.savepoints = append(t.savepoints, id)
}

// removeSavepoint drops id and every savepoint added after it.
func (t *TxContext) removeSavepoint(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.savepoints) - 1; i >= 0; i-- {
		if t.savepoints[i] == id {
			t.savepoints = t.savepoints[:i]
			return nil
		}
	}
	return ErrUnknownSavepoint
}

func (t *TxContext) savepointList() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.savepoints))
	copy(out, t.savepoints)
	return out
}

func (t *TxContext) onCommit(fn func(ctx context.Context)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.afterCommit = append(t.afterCommit, fn)
}

func (t *TxContext) onRollback(fn func(ctx context.Context)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.afterRollback = append(t.afterRollback, fn)
}

// finish hands out the callbacks belonging to the outcome and discards the
// others. Rollback callbacks come back newest first.
func (t *TxContext) finish(committed bool) []func(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	commit, rollback := t.afterCommit, t.afterRollback
	t.afterCommit, t.afterRollback = nil, nil
	if committed {
		return commit
	}
	for i, j := 0, len(rollback)-1; i < j; i, j = i+1, j-1 {
		rollback[i], rollback[j] = rollback[j], rollback[i]
	}
	return rollback
}

type contextKey struct{}

var txKey = contextKey{}

// FromContext returns the active transaction of ctx, if any.
func FromContext(ctx context.Context) (*TxContext, bool) {
	if ctx == nil {
		return nil, false
	}
	tc, ok := ctx.Value(txKey).(*TxContext)
	return tc, ok && tc != nil
}

// WithTxContext returns a context in which tc is the active transaction. It
// replaces any transaction active in the parent.
func WithTxContext(ctx context.Context, tc *TxContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, txKey, tc)
}

// RunWithContext runs fn with tc as the active transaction.
func RunWithContext(ctx context.Context, tc *TxContext, fn func(ctx context.Context) error) error {
	return fn(WithTxContext(ctx, tc))
}

// DB returns the handle repositories must use for ctx: the active
// transaction when there is one, fallback otherwise. Both are bound to ctx
// so callbacks see the caller's identity.
func DB(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tc, ok := FromContext(ctx); ok {
		return tc.handle.DB().WithContext(ctx)
	}
	return fallback.WithContext(ctx)
}

// AddSavepoint records id on the active transaction.
func AddSavepoint(ctx context.Context, id string) error {
	tc, ok := FromContext(ctx)
	if !ok {
		return ErrNoActiveTransaction
	}
	tc.addSavepoint(id)
	return nil
}

// RemoveSavepoint removes id and every savepoint recorded after it from the
// active transaction.
func RemoveSavepoint(ctx context.Context, id string) error {
	tc, ok := FromContext(ctx)
	if !ok {
		return ErrNoActiveTransaction
	}
	return tc.removeSavepoint(id)
}

// Savepoints returns a copy of the savepoints recorded on the active
// transaction, oldest first.
func Savepoints(ctx context.Context) ([]string, error) {
	tc, ok := FromContext(ctx)
	if !ok {
		return nil, ErrNoActiveTransaction
	}
	return tc.savepointList(), nil
}
