package transaction

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/narwhalmedia/gallery/pkg/errors"
	"github.com/narwhalmedia/gallery/pkg/interfaces"
)

// ErrMaxWaitExceeded is wrapped by the failure returned when beginning a
// transaction takes longer than the configured max wait.
var ErrMaxWaitExceeded = errors.New("transaction acquisition exceeded max wait")

// ErrTimeout is wrapped by the failure returned when a transaction body
// outlives its timeout.
var ErrTimeout = errors.New("transaction timed out")

// Manager opens, joins and finishes transaction boundaries.
type Manager struct {
	backend  Backend
	defaults Options
	logger   interfaces.Logger
	metrics  *Metrics
}

// NewManager creates a manager. metrics may be nil.
func NewManager(backend Backend, cfg Config, logger interfaces.Logger, metrics *Metrics) (*Manager, error) {
	defaults, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return &Manager{
		backend:  backend,
		defaults: defaults,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Backend returns the backend the manager opens transactions on.
func (m *Manager) Backend() Backend {
	return m.backend
}

// Do runs fn inside a transaction boundary.
//
// When ctx already carries a transaction and RequireNew is not given, fn
// joins it: nothing is begun or finished here and fn's error is returned as
// is. Otherwise a new transaction is begun and published to fn through its
// context; it is committed when fn returns nil and rolled back when fn
// returns an error or panics. Backend failures, timeouts and database
// concurrency failures (see IsConcurrencyFailure) are reported as
// transaction errors (see errors.IsTransaction); fn's other errors are
// returned unchanged.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context) error, opts ...Option) error {
	o := m.defaults
	for _, opt := range opts {
		opt(&o)
	}

	parent, active := FromContext(ctx)
	if active && !o.RequireNew {
		m.metrics.observe(outcomeJoin)
		return fn(ctx)
	}

	level := 0
	if active {
		level = parent.Level + 1
	}

	txCtx, cancel := m.boundContext(ctx, o.Timeout)
	defer cancel()

	handle, err := m.begin(txCtx, o)
	if err != nil {
		m.metrics.observe(outcomeFailure)
		return err
	}
	m.metrics.observe(outcomeBegin)

	tc := NewTxContext(handle, level, o.Isolation, o.Timeout)
	log := m.logger.WithContext(ctx).WithFields(interfaces.Int("tx_level", level))

	panicked := true
	defer func() {
		if !panicked {
			return
		}
		if rbErr := handle.Rollback(); rbErr != nil {
			log.Error("Rollback after panic failed", interfaces.Error(rbErr))
		}
		m.metrics.observe(outcomeRollback)
		m.finish(ctx, tc, false)
	}()

	bodyErr := fn(WithTxContext(txCtx, tc))
	panicked = false

	timedOut := errors.Is(txCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil

	if bodyErr != nil || timedOut {
		rbErr := handle.Rollback()
		if rbErr != nil {
			log.Error("Rollback failed", interfaces.Error(rbErr))
			m.metrics.observe(outcomeFailure)
		} else {
			m.metrics.observe(outcomeRollback)
		}
		m.finish(ctx, tc, false)
		if rbErr != nil && bodyErr == nil {
			return apperrors.Transaction("rollback failed", rbErr)
		}
		if timedOut {
			log.Warn("Transaction timed out", interfaces.Duration("timeout", o.Timeout))
			cause := ErrTimeout
			if bodyErr != nil {
				cause = errors.Join(ErrTimeout, bodyErr)
			}
			return apperrors.Transaction("transaction timed out", cause)
		}
		return classify(bodyErr)
	}

	if err := handle.Commit(); err != nil {
		m.metrics.observe(outcomeFailure)
		log.Error("Commit failed", interfaces.Error(err))
		m.finish(ctx, tc, false)
		return apperrors.Transaction("commit failed", err)
	}
	m.metrics.observe(outcomeCommit)
	m.finish(ctx, tc, true)
	return nil
}

// finish runs the callbacks registered for the outcome of tc.
func (m *Manager) finish(ctx context.Context, tc *TxContext, committed bool) {
	for _, cb := range tc.finish(committed) {
		m.runCallback(ctx, cb)
	}
}

// Run is Do for bodies that produce a value. The zero value is returned
// alongside any error.
func Run[T any](ctx context.Context, m *Manager, fn func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var out T
	err := m.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	}, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Savepoint runs fn inside a savepoint of the active transaction. When fn
// fails the work done since the savepoint is rolled back while the
// surrounding transaction stays usable.
func (m *Manager) Savepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	tc, ok := FromContext(ctx)
	if !ok {
		return ErrNoActiveTransaction
	}

	name := "sp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := tc.handle.SavePoint(name); err != nil {
		return apperrors.Transaction("create savepoint", err)
	}
	tc.addSavepoint(name)

	log := m.logger.WithContext(ctx)
	defer func() {
		if err := tc.removeSavepoint(name); err != nil {
			log.Warn("Savepoint missing from transaction", interfaces.String("savepoint", name), interfaces.Error(err))
		}
	}()

	if err := fn(ctx); err != nil {
		if rbErr := tc.handle.RollbackTo(name); rbErr != nil {
			return apperrors.Transaction("rollback to savepoint", errors.Join(rbErr, err))
		}
		return err
	}

	if err := tc.handle.Release(name); err != nil {
		return apperrors.Transaction("release savepoint", err)
	}
	return nil
}

// AfterCommit schedules fn to run once the transaction active in ctx has
// committed. It is dropped if that transaction rolls back. Without an active
// transaction fn runs immediately.
func (m *Manager) AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	tc, ok := FromContext(ctx)
	if !ok {
		m.runCallback(ctx, fn)
		return
	}
	tc.onCommit(fn)
}

// OnRollback schedules fn to run once the transaction active in ctx has
// rolled back, including rollbacks caused by a timeout, a failed commit or
// an enclosing owner the boundary joined. It is dropped when that
// transaction commits. Callbacks run newest first. Without an active
// transaction fn is never run and false is returned.
func (m *Manager) OnRollback(ctx context.Context, fn func(ctx context.Context)) bool {
	tc, ok := FromContext(ctx)
	if !ok {
		return false
	}
	tc.onRollback(fn)
	return true
}

func (m *Manager) runCallback(ctx context.Context, fn func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.WithContext(ctx).Error("Transaction callback panicked", interfaces.Any("panic", r))
		}
	}()
	fn(ctx)
}

func (m *Manager) boundContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

type beginResult struct {
	handle Handle
	err    error
}

// begin opens a transaction, giving up after o.MaxWait. A transaction that
// the backend hands out after the manager gave up is rolled back.
func (m *Manager) begin(ctx context.Context, o Options) (Handle, error) {
	if o.MaxWait <= 0 {
		h, err := m.backend.Begin(ctx, o.Isolation)
		if err != nil {
			return nil, apperrors.Transaction("begin transaction", err)
		}
		return h, nil
	}

	done := make(chan beginResult)
	abandoned := make(chan struct{})
	go func() {
		h, err := m.backend.Begin(ctx, o.Isolation)
		select {
		case done <- beginResult{handle: h, err: err}:
		case <-abandoned:
			if err == nil {
				if rbErr := h.Rollback(); rbErr != nil {
					m.logger.Warn("Rollback of abandoned transaction failed", interfaces.Error(rbErr))
				}
			}
		}
	}()

	timer := time.NewTimer(o.MaxWait)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, apperrors.Transaction("begin transaction", r.err)
		}
		return r.handle, nil
	case <-timer.C:
		close(abandoned)
		m.logger.WithContext(ctx).Warn("Transaction acquisition timed out", interfaces.Duration("max_wait", o.MaxWait))
		return nil, apperrors.Transaction("begin transaction", ErrMaxWaitExceeded)
	case <-ctx.Done():
		close(abandoned)
		return nil, apperrors.Transaction("begin transaction", ctx.Err())
	}
}
