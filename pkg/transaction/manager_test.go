package transaction_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/narwhalmedia/gallery/pkg/errors"
	"github.com/narwhalmedia/gallery/pkg/logger"
	"github.com/narwhalmedia/gallery/pkg/transaction"
)

func newManager(t *testing.T, backend transaction.Backend) *transaction.Manager {
	t.Helper()
	m, err := transaction.NewManager(backend, transaction.Config{}, logger.NewNoop(), nil)
	require.NoError(t, err)
	return m
}

func TestDo_FreshBoundaryCommits(t *testing.T) {
	backend := &fakeBackend{}
	m := newManager(t, backend)

	err := m.Do(context.Background(), func(ctx context.Context) error {
		tc, ok := transaction.FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, 0, tc.Level)
		assert.Equal(t, sql.LevelReadCommitted, tc.Isolation)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"begin", "commit"}, backend.history())
}

func TestDo_BodyErrorRollsBackAndIsReturnedUnchanged(t *testing.T) {
	backend := &fakeBackend{}
	m := newManager(t, backend)
	bodyErr := apperrors.NotFound("album not found")

	err := m.Do(context.Background(), func(ctx context.Context) error {
		return bodyErr
	})

	assert.Same(t, bodyErr, err)
	assert.False(t, apperrors.IsTransaction(err))
	assert.Equal(t, []string{"begin", "rollback"}, backend.history())
}

func TestDo_JoinsActiveTransaction(t *testing.T) {
	backend := &fakeBackend{}
	m := newManager(t, backend)

	err := m.Do(context.Background(), func(ctx context.Context) error {
		outer, _ := transaction.FromContext(ctx)
		return m.Do(ctx, func(ctx context.Context) error {
			inner, ok := transaction.FromContext(ctx)
			require.True(t, ok)
			assert.Same(t, outer, inner)
			return nil
		})
	})

	require.NoError(t, err)
	begins, commits, rollbacks := backend.counts()
	assert.Equal(t, 1, begins)
	assert.Equal(t, 1, commits)
	assert.Equal(t, 0, rollbacks)
}

func TestDo_JoinedFailurePropagatesToOwner(t *testing.T) {
	backend := &fakeBackend{}
	m := newManager(t, backend)
	innerErr := errors.New("insert failed")

	err := m.Do(context.Background(), func(ctx context.Context) error {
		return m.Do(ctx, func(ctx context.Context) error { return innerErr })
	})

	assert.ErrorIs(t, err, innerErr)
	assert.Equal(t, []string{"begin", "rollback"}, backend.history())
}

func TestDo_RequireNewOpensIndependentTransaction(t *testing.T) {
	backend := &fakeBackend{}
	m := newManager(t, backend)

	err := m.Do(context.Background(), func(ctx context.Context) error {
		outer, _ := transaction.FromContext(ctx)

		innerErr := m.Do(ctx, func(ctx context.Context) error {
			inner, ok := transaction.FromContext(ctx)
			require.True(t, ok)
			assert.NotSame(t, outer, inner)
			assert.Equal(t, 1, inner.Level)
			return errors.New("inner failure")
		}, transaction.RequireNew())
		assert.Error(t, innerErr)

		restored, _ := transaction.FromContext(ctx)
		assert.Same(t, outer, restored)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"begin", "begin", "rollback", "commit"}, backend.history())
}

func TestDo_IsolationOption(t *testing.T) {
	backend := &fakeBackend{}
	m := newManager(t, backend)

	require.NoError(t, m.Do(context.Background(), func(ctx context.Context) error { return nil },
		transaction.WithIsolation(sql.LevelSerializable)))

	assert.Equal(t, []sql.IsolationLevel{sql.LevelSerializable}, backend.levels)
}

func TestDo_PanicRollsBackAndRepanics(t *testing.T) {
	backend := &fakeBackend{}
	m := newManager(t, backend)

	assert.PanicsWithValue(t, "boom", func() {
		_ = m.Do(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})
	assert.Equal(t, []string{"begin", "rollback"}, backend.history())
}

func TestDo_TimeoutIsTransactionFailure(t *testing.T) {
	backend := &fakeBackend{}
	m := newManager(t, backend)
	ctx := context.Background()

	err := m.Do(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, transaction.WithTimeout(20*time.Millisecond))

	require.Error(t, err)
	assert.True(t, apperrors.IsTransaction(err))
	assert.ErrorIs(t, err, transaction.ErrTimeout)
	_, active := transaction.FromContext(ctx)
	assert.False(t, active)
	_, commits, rollbacks := backend.counts()
	assert.Equal(t, 0, commits)
	assert.Equal(t, 1, rollbacks)
}

func TestDo_TimeoutAfterSuccessfulBodyStillFails(t *testing.T) {
	backend := &fakeBackend{}
	m := newManager(t, backend)

	err := m.Do(context.Background(), func(ctx context.Context) error {
		time.Sleep(40 * time.Millisecond)
		return nil
	}, transaction.WithTimeout(10*time.Millisecond))

	assert.True(t, apperrors.IsTransaction(err))
	_, commits, _ := backend.counts()
	assert.Equal(t, 0, commits)
}

func TestDo_MaxWaitExceeded(t *testing.T) {
	backend := &fakeBackend{gate: make(chan struct{})}
	m := newManager(t, backend)
	called := false

	err := m.Do(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	}, transaction.WithMaxWait(20*time.Millisecond))

	require.Error(t, err)
	assert.True(t, apperrors.IsTransaction(err))
	assert.ErrorIs(t, err, transaction.ErrMaxWaitExceeded)
	assert.False(t, called)

	// a transaction handed out late is rolled back
	close(backend.gate)
	assert.Eventually(t, func() bool {
		_, _, rollbacks := backend.counts()
		return rollbacks == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDo_BeginFailure(t *testing.T) {
	backend := &fakeBackend{beginErr: errors.New("connection refused")}
	m := newManager(t, backend)

	err := m.Do(context.Background(), func(ctx context.Context) error {
		t.Fatal("body must not run")
		return nil
	})

	assert.True(t, apperrors.IsTransaction(err))
}

func TestDo_CommitFailure(t *testing.T) {
	backend := &fakeBackend{commitErr: errors.New("serialization failure")}
	m := newManager(t, backend)

	err := m.Do(context.Background(), func(ctx context.Context) error { return nil })

	assert.True(t, apperrors.IsTransaction(err))
	assert.ErrorIs(t, err, backend.commitErr)
}

func TestRun_ReturnsValue(t *testing.T) {
	m := newManager(t, &fakeBackend{})

	got, err := transaction.Run(context.Background(), m, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	got, err = transaction.Run(context.Background(), m, func(ctx context.Context) (int, error) {
		return 7, errors.New("nope")
	})
	assert.Error(t, err)
	assert.Zero(t, got)
}

func TestSavepoint_ReleasedOnSuccess(t *testing.T) {
	backend := &fakeBackend{}
	m := newManager(t, backend)

	err := m.Do(context.Background(), func(ctx context.Context) error {
		return m.Savepoint(ctx, func(ctx context.Context) error {
			sps, err := transaction.Savepoints(ctx)
			require.NoError(t, err)
			assert.Len(t, sps, 1)
			return nil
		})
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"begin", "savepoint", "release", "commit"}, backend.history())
}

func TestSavepoint_PartialRollbackKeepsOuterTransaction(t *testing.T) {
	backend := &fakeBackend{}
	m := newManager(t, backend)
	partial := errors.New("optional step failed")

	err := m.Do(context.Background(), func(ctx context.Context) error {
		spErr := m.Savepoint(ctx, func(ctx context.Context) error { return partial })
		assert.ErrorIs(t, spErr, partial)

		sps, _ := transaction.Savepoints(ctx)
		assert.Empty(t, sps)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"begin", "savepoint", "rollback_to", "commit"}, backend.history())
}

func TestSavepoint_ForgottenWhenRollbackToFails(t *testing.T) {
	backend := &fakeBackend{rollbackToErr: errors.New("connection lost")}
	m := newManager(t, backend)

	_ = m.Do(context.Background(), func(ctx context.Context) error {
		spErr := m.Savepoint(ctx, func(ctx context.Context) error { return errors.New("step failed") })
		assert.True(t, apperrors.IsTransaction(spErr))

		sps, err := transaction.Savepoints(ctx)
		require.NoError(t, err)
		assert.Empty(t, sps)
		return spErr
	})
}

func TestSavepoint_RequiresActiveTransaction(t *testing.T) {
	m := newManager(t, &fakeBackend{})

	err := m.Savepoint(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, transaction.ErrNoActiveTransaction)
}

func TestAfterCommit_RunsOnlyAfterCommit(t *testing.T) {
	backend := &fakeBackend{}
	m := newManager(t, backend)
	var ran []string

	err := m.Do(context.Background(), func(ctx context.Context) error {
		m.AfterCommit(ctx, func(ctx context.Context) {
			_, active := transaction.FromContext(ctx)
			assert.False(t, active)
			ran = append(ran, fmt.Sprintf("after %v", backend.history()))
		})
		assert.Empty(t, ran)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"after [begin commit]"}, ran)
}

func TestAfterCommit_DroppedOnRollback(t *testing.T) {
	m := newManager(t, &fakeBackend{})
	ran := false

	_ = m.Do(context.Background(), func(ctx context.Context) error {
		m.AfterCommit(ctx, func(ctx context.Context) { ran = true })
		return errors.New("fail")
	})

	assert.False(t, ran)
}

func TestAfterCommit_ImmediateWithoutTransaction(t *testing.T) {
	m := newManager(t, &fakeBackend{})
	ran := false

	m.AfterCommit(context.Background(), func(ctx context.Context) { ran = true })

	assert.True(t, ran)
}

func TestDo_ConcurrentChainsDoNotShareTransactions(t *testing.T) {
	backend := &fakeBackend{}
	m := newManager(t, backend)

	const workers = 16
	seen := make(chan *transaction.TxContext, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Do(context.Background(), func(ctx context.Context) error {
				tc, _ := transaction.FromContext(ctx)
				time.Sleep(time.Millisecond)
				seen <- tc
				return nil
			})
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[*transaction.TxContext]struct{}{}
	for tc := range seen {
		unique[tc] = struct{}{}
	}
	assert.Len(t, unique, workers)
	begins, commits, _ := backend.counts()
	assert.Equal(t, workers, begins)
	assert.Equal(t, workers, commits)
}

func TestMetrics_CountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := transaction.NewMetrics(reg)
	m, err := transaction.NewManager(&fakeBackend{}, transaction.Config{}, logger.NewNoop(), metrics)
	require.NoError(t, err)

	_ = m.Do(context.Background(), func(ctx context.Context) error {
		return m.Do(ctx, func(ctx context.Context) error { return nil })
	})
	_ = m.Do(context.Background(), func(ctx context.Context) error { return errors.New("x") })

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Outcomes.WithLabelValues("begin")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Outcomes.WithLabelValues("join")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Outcomes.WithLabelValues("commit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Outcomes.WithLabelValues("rollback")))
}

func TestOnRollback_RunsAfterBodyFailure(t *testing.T) {
	backend := &fakeBackend{}
	m := newManager(t, backend)
	var ran []string

	_ = m.Do(context.Background(), func(ctx context.Context) error {
		assert.True(t, m.OnRollback(ctx, func(ctx context.Context) {
			_, active := transaction.FromContext(ctx)
			assert.False(t, active)
			ran = append(ran, fmt.Sprintf("first %v", backend.history()))
		}))
		m.OnRollback(ctx, func(ctx context.Context) { ran = append(ran, "second") })
		return errors.New("fail")
	})

	assert.Equal(t, []string{"second", "first [begin rollback]"}, ran)
}

func TestOnRollback_DroppedOnCommit(t *testing.T) {
	m := newManager(t, &fakeBackend{})
	ran := false

	err := m.Do(context.Background(), func(ctx context.Context) error {
		m.OnRollback(ctx, func(ctx context.Context) { ran = true })
		return nil
	})

	require.NoError(t, err)
	assert.False(t, ran)
}

func TestOnRollback_RunsWhenJoinedOwnerRollsBack(t *testing.T) {
	m := newManager(t, &fakeBackend{})
	ran := 0

	_ = m.Do(context.Background(), func(ctx context.Context) error {
		require.NoError(t, m.Do(ctx, func(ctx context.Context) error {
			m.OnRollback(ctx, func(ctx context.Context) { ran++ })
			return nil
		}))
		assert.Zero(t, ran)
		return errors.New("owner fails later")
	})

	assert.Equal(t, 1, ran)
}

func TestOnRollback_RequireNewCommitIsFinal(t *testing.T) {
	m := newManager(t, &fakeBackend{})
	ran := false

	_ = m.Do(context.Background(), func(ctx context.Context) error {
		require.NoError(t, m.Do(ctx, func(ctx context.Context) error {
			m.OnRollback(ctx, func(ctx context.Context) { ran = true })
			return nil
		}, transaction.RequireNew()))
		return errors.New("outer fails")
	})

	assert.False(t, ran)
}

func TestOnRollback_RunsOnTimeoutAndCommitFailure(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		m := newManager(t, &fakeBackend{})
		ran := false

		err := m.Do(context.Background(), func(ctx context.Context) error {
			m.OnRollback(ctx, func(ctx context.Context) { ran = true })
			time.Sleep(40 * time.Millisecond)
			return nil
		}, transaction.WithTimeout(10*time.Millisecond))

		assert.True(t, apperrors.IsTransaction(err))
		assert.True(t, ran)
	})

	t.Run("commit failure", func(t *testing.T) {
		m := newManager(t, &fakeBackend{commitErr: errors.New("disk full")})
		ran := false

		err := m.Do(context.Background(), func(ctx context.Context) error {
			m.OnRollback(ctx, func(ctx context.Context) { ran = true })
			return nil
		})

		assert.True(t, apperrors.IsTransaction(err))
		assert.True(t, ran)
	})
}

func TestOnRollback_NoTransaction(t *testing.T) {
	m := newManager(t, &fakeBackend{})

	assert.False(t, m.OnRollback(context.Background(), func(ctx context.Context) {
		t.Fatal("must not run")
	}))
}

func TestDo_ConcurrencyFailuresAreTransactionFailures(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		transaction bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, true},
		{"query canceled", &pgconn.PgError{Code: "57014"}, true},
		{"wrapped deadlock", fmt.Errorf("update photo: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("boom"), false},
		{"classified error keeps its type", apperrors.Finalize("finalize", &pgconn.PgError{Code: "40001"}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{}
			m := newManager(t, backend)

			err := m.Do(context.Background(), func(ctx context.Context) error { return tt.err })

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.transaction, apperrors.IsTransaction(err))
			assert.Equal(t, []string{"begin", "rollback"}, backend.history())
		})
	}
}
