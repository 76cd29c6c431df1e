package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/farm-engine/generic"
	"github.com/warp/farm-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func debitTx(id, pool string, amount int64, step generic.TimePoint) generic.Transaction {
	return generic.Transaction{
		ID:           generic.TransactionID(id),
		ResourceType: pool,
		Unit:         generic.UnitDollars,
		Debit:        decimal.NewFromInt(amount),
		Credit:       decimal.Zero,
		Activity:     "Wool sales",
		ActivityType: "finance_income",
		Reason:       "Sale",
		Step:         step,
		CreatedAt:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestStore_AppendAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	march := generic.NewTimePoint(2024, time.March, 1)

	require.NoError(t, store.Append(ctx, debitTx("tx-1", "Bank", 100, march)))
	require.NoError(t, store.Append(ctx, debitTx("tx-2", "Hay", 5, march)))
	require.NoError(t, store.Append(ctx, debitTx("tx-3", "Bank", 7, march)))

	txs, err := store.Load(ctx, "Bank")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, generic.TransactionID("tx-1"), txs[0].ID)
	assert.True(t, txs[0].Debit.Equal(decimal.NewFromInt(100)))
	assert.True(t, txs[0].Credit.IsZero())
	assert.Equal(t, "Wool sales", txs[0].Activity)
	assert.Equal(t, "2024-03-01", txs[0].Step.String())

	recent, err := store.LoadAll(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, generic.TransactionID("tx-3"), recent[0].ID)

	byStep, err := store.LoadStep(ctx, march)
	require.NoError(t, err)
	assert.Len(t, byStep, 3)
}

func TestStore_DuplicateIDRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, debitTx("tx-1", "Bank", 1, generic.TimePoint{})))
	err := store.Append(ctx, debitTx("tx-1", "Bank", 1, generic.TimePoint{}))
	assert.ErrorIs(t, err, generic.ErrDuplicateTransaction)
}

func TestStore_AppendBatchIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, debitTx("tx-1", "Bank", 1, generic.TimePoint{})))

	err := store.AppendBatch(ctx, []generic.Transaction{
		debitTx("tx-2", "Bank", 1, generic.TimePoint{}),
		debitTx("tx-1", "Bank", 1, generic.TimePoint{}),
	})
	assert.ErrorIs(t, err, generic.ErrDuplicateTransaction)

	all, err := store.LoadAll(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1, "batch must roll back as a whole")
}

// =============================================================================
// BALANCES AND RUNS
// =============================================================================

func TestStore_Balances(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.LoadBalance(ctx, "Bank")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveBalance(ctx, "Bank", decimal.RequireFromString("-500.00")))
	require.NoError(t, store.SaveBalance(ctx, "Bank", decimal.RequireFromString("-200.25")))

	amount, ok, err := store.LoadBalance(ctx, "Bank")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "-200.25", amount.StringFixed(2))
}

func TestStore_Runs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := sqlite.Run{ID: "run-1", Scenario: "dry-season", StartStep: "2024-01", Status: "running", StartedAt: time.Now().UTC()}
	require.NoError(t, store.SaveRun(ctx, run))

	done := time.Now().UTC()
	run.Steps = 12
	run.Status = "completed"
	run.CompletedAt = &done
	require.NoError(t, store.SaveRun(ctx, run))

	runs, err := store.ListRuns(ctx, "completed")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 12, runs[0].Steps)
	assert.NotNil(t, runs[0].CompletedAt)

	require.NoError(t, store.Reset(ctx))
	runs, err = store.ListRuns(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, runs)
}

// =============================================================================
// CORRUPT ROWS
// =============================================================================

func TestStore_CorruptRowsReturnErrors(t *testing.T) {
	// GIVEN: A file database with rows written behind the store's back
	path := filepath.Join(t.TempDir(), "farm.db")
	store, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	ctx := context.Background()
	insertTx := `INSERT INTO transactions (id, resource_type, unit, debit, credit, step, created_at)
		VALUES (?, ?, 'dollars', '10', '0', ?, ?)`
	_, err = raw.ExecContext(ctx, insertTx, "tx-step", "Bank", "April", "2024-04-01T00:00:00Z")
	require.NoError(t, err)
	_, err = raw.ExecContext(ctx, insertTx, "tx-created", "Cash", "2024-04-01", "yesterday")
	require.NoError(t, err)
	_, err = raw.ExecContext(ctx, `INSERT INTO runs (id, scenario, start_step, started_at) VALUES ('run-1', 'x', '2024-01', 'soon')`)
	require.NoError(t, err)

	// WHEN / THEN: Each read reports the bad value instead of a zero time
	_, err = store.Load(ctx, "Bank")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid step "April"`)

	_, err = store.Load(ctx, "Cash")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid created_at "yesterday"`)

	_, err = store.ListRuns(ctx, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid started_at "soon"`)
}
