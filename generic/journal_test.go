package generic_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/farm-engine/generic"
	"github.com/warp/farm-engine/generic/store"
)

func TestJournal_BuffersUntilFlush(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	clock := generic.NewMonthlyClock(generic.NewMonthPoint(2024, 3))
	reg := generic.NewRegistry()
	hay := newHay(100)
	require.NoError(t, reg.Register(hay))

	j := generic.NewJournal(mem, clock)
	j.Attach(reg)

	hay.Remove(generic.NewResourceRequest("Hay", 10, grazer, "Feed"))
	require.NoError(t, hay.Add(5.0, grazer, "Growth"))

	// Nothing written until the flush
	all, err := mem.LoadAll(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Len(t, j.Pending(), 2)

	require.NoError(t, j.Flush(ctx))
	assert.Empty(t, j.Pending())

	txs, err := mem.Load(ctx, "Hay")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "2024-03", txs[0].Step.String())
	assert.True(t, txs[0].Delta().Equal(decimal.NewFromInt(-10)))
	assert.True(t, txs[1].Delta().Equal(decimal.NewFromInt(5)))

	// Newest first
	recent, err := mem.LoadAll(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Growth", recent[0].Reason)
}

func TestJournal_DetachStopsRecording(t *testing.T) {
	reg := generic.NewRegistry()
	hay := newHay(100)
	require.NoError(t, reg.Register(hay))

	j := generic.NewJournal(store.NewMemory(), nil)
	j.Attach(reg)
	assert.Equal(t, 1, hay.TransactionSubscribers())

	j.Detach()
	hay.Remove(generic.NewResourceRequest("Hay", 10, grazer, "Feed"))

	assert.Zero(t, hay.TransactionSubscribers())
	assert.Empty(t, j.Pending())
}

func TestJournal_DuplicateFlushKeepsBuffer(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	tx := generic.Transaction{ID: "tx-1", ResourceType: "Hay", Debit: decimal.NewFromInt(1), Credit: decimal.Zero}
	require.NoError(t, mem.Append(ctx, tx))

	err := mem.Append(ctx, tx)
	assert.ErrorIs(t, err, generic.ErrDuplicateTransaction)

	err = mem.AppendBatch(ctx, []generic.Transaction{{ID: "tx-2"}, {ID: "tx-2"}})
	assert.ErrorIs(t, err, generic.ErrDuplicateTransaction)

	all, err := mem.LoadAll(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestJournal_SaveAndRestoreBalances(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	reg := generic.NewRegistry()
	hay := newHay(42.5)
	require.NoError(t, reg.Register(hay))
	require.NoError(t, reg.Register(generic.NewQuantityPool("Unsaved", generic.CategoryPasture, generic.UnitKilograms)))

	j := generic.NewJournal(mem, nil)
	require.NoError(t, j.SaveBalances(ctx, reg))

	hay.Set(0)
	require.NoError(t, mem.SaveBalance(ctx, "Unsaved", decimal.Zero))
	require.NoError(t, mem.Reset(ctx))
	require.NoError(t, mem.SaveBalance(ctx, "Hay", decimal.RequireFromString("42.5")))

	restored, err := j.Restore(ctx, reg)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)
	assert.Equal(t, 42.5, hay.Balance())
	assert.Nil(t, hay.LastTransaction())
}
