package transaction_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narwhalmedia/gallery/pkg/transaction"
)

func newTxContext() *transaction.TxContext {
	return transaction.NewTxContext(&fakeHandle{backend: &fakeBackend{}}, 0, sql.LevelReadCommitted, time.Second)
}

func TestFromContext_NoneActive(t *testing.T) {
	_, ok := transaction.FromContext(context.Background())
	assert.False(t, ok)
}

func TestRunWithContext_ScopedToCallback(t *testing.T) {
	ctx := context.Background()
	tc := newTxContext()

	err := transaction.RunWithContext(ctx, tc, func(ctx context.Context) error {
		got, ok := transaction.FromContext(ctx)
		require.True(t, ok)
		assert.Same(t, tc, got)
		return nil
	})
	require.NoError(t, err)

	_, ok := transaction.FromContext(ctx)
	assert.False(t, ok)
}

func TestWithTxContext_ReplacesParent(t *testing.T) {
	outer := newTxContext()
	inner := newTxContext()

	ctx := transaction.WithTxContext(context.Background(), outer)
	nested := transaction.WithTxContext(ctx, inner)

	got, _ := transaction.FromContext(nested)
	assert.Same(t, inner, got)
	got, _ = transaction.FromContext(ctx)
	assert.Same(t, outer, got)
}

func TestSavepoints_RemoveTruncatesLaterEntries(t *testing.T) {
	ctx := transaction.WithTxContext(context.Background(), newTxContext())

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, transaction.AddSavepoint(ctx, id))
	}

	require.NoError(t, transaction.RemoveSavepoint(ctx, "b"))

	sps, err := transaction.Savepoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, sps)
}

func TestSavepoints_RemoveUnknown(t *testing.T) {
	ctx := transaction.WithTxContext(context.Background(), newTxContext())
	require.NoError(t, transaction.AddSavepoint(ctx, "a"))

	err := transaction.RemoveSavepoint(ctx, "zzz")
	assert.ErrorIs(t, err, transaction.ErrUnknownSavepoint)

	sps, _ := transaction.Savepoints(ctx)
	assert.Equal(t, []string{"a"}, sps)
}

func TestSavepoints_NoActiveTransaction(t *testing.T) {
	ctx := context.Background()

	assert.ErrorIs(t, transaction.AddSavepoint(ctx, "a"), transaction.ErrNoActiveTransaction)
	assert.ErrorIs(t, transaction.RemoveSavepoint(ctx, "a"), transaction.ErrNoActiveTransaction)
	_, err := transaction.Savepoints(ctx)
	assert.ErrorIs(t, err, transaction.ErrNoActiveTransaction)
}

func TestSavepoints_ReturnsCopy(t *testing.T) {
	ctx := transaction.WithTxContext(context.Background(), newTxContext())
	require.NoError(t, transaction.AddSavepoint(ctx, "a"))

	sps, _ := transaction.Savepoints(ctx)
	sps[0] = "mutated"

	again, _ := transaction.Savepoints(ctx)
	assert.Equal(t, []string{"a"}, again)
}

func TestParseIsolation(t *testing.T) {
	tests := map[string]sql.IsolationLevel{
		"read_committed":  sql.LevelReadCommitted,
		"REPEATABLE READ": sql.LevelRepeatableRead,
		"serializable":    sql.LevelSerializable,
		"default":         sql.LevelDefault,
	}
	for name, want := range tests {
		got, err := transaction.ParseIsolation(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := transaction.ParseIsolation("snapshot-ish")
	assert.Error(t, err)
}

func TestConfigOptions_Defaults(t *testing.T) {
	o, err := transaction.Config{}.Options()
	require.NoError(t, err)
	assert.Equal(t, sql.LevelReadCommitted, o.Isolation)
	assert.Equal(t, 30*time.Second, o.Timeout)
	assert.Equal(t, 2*time.Second, o.MaxWait)
	assert.False(t, o.RequireNew)
}
