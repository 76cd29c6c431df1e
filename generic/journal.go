/*
journal.go - Append-only audit journal of pool transactions

PURPOSE:
  Pools keep only their last transaction. The Journal subscribes to every
  pool's transaction feed, stamps each record with the current simulation
  step, and buffers it. The driver flushes the buffer to a Store outside
  the tick, so allocation never waits on I/O.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: flushed transactions are never updated or deleted
  2. ORDERED: records are flushed in the order pools emitted them
  3. DETACHABLE: every subscription the journal takes is released by Detach

BALANCES:
  SaveBalances writes each pool's running amount at the end of a run.
  Restore sets pools back to saved amounts through Pool.Set, which records
  no transaction (it is an administrative override, not a flow).

EXAMPLE FLOW:
  j := generic.NewJournal(store, clock)
  j.Attach(registry)
  ... ticks ...
  j.Flush(ctx)
  j.SaveBalances(ctx, registry)
  j.Detach()

SEE ALSO:
  - store.go: Store and BalanceStore interfaces
  - simulation/simulation.go: When the journal is flushed
*/
package generic

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// JOURNAL
// =============================================================================

type Journal struct {
	Store JournalStore
	Clock Clock

	pending []Transaction
	subs    Subscriptions
}

func NewJournal(store JournalStore, clock Clock) *Journal {
	return &Journal{Store: store, Clock: clock}
}

// Attach subscribes to every pool in the registry.
func (j *Journal) Attach(reg *Registry) {
	for _, p := range reg.List() {
		j.subs.Add(p.OnTransaction(j.record))
	}
}

// Detach releases every pool subscription.
func (j *Journal) Detach() {
	j.subs.ReleaseAll()
}

func (j *Journal) record(tx Transaction) {
	if j.Clock != nil {
		tx.Step = j.Clock.Today()
	}
	j.pending = append(j.pending, tx)
}

// Pending returns the buffered, not yet flushed transactions.
func (j *Journal) Pending() []Transaction {
	result := make([]Transaction, len(j.pending))
	copy(result, j.pending)
	return result
}

// Flush writes buffered transactions atomically and clears the buffer.
// On error the buffer is kept so the flush can be retried.
func (j *Journal) Flush(ctx context.Context) error {
	if len(j.pending) == 0 {
		return nil
	}
	if err := j.Store.AppendBatch(ctx, j.pending); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}
	j.pending = nil
	return nil
}

// SaveBalances persists every pool's current balance.
func (j *Journal) SaveBalances(ctx context.Context, reg *Registry) error {
	for _, p := range reg.List() {
		if err := j.Store.SaveBalance(ctx, p.Name(), decimal.NewFromFloat(p.Balance())); err != nil {
			return fmt.Errorf("save balance %s: %w", p.Name(), err)
		}
	}
	return nil
}

// Restore sets each pool with a saved balance back to that amount.
// It returns the number of pools restored.
func (j *Journal) Restore(ctx context.Context, reg *Registry) (int, error) {
	restored := 0
	for _, p := range reg.List() {
		amount, ok, err := j.Store.LoadBalance(ctx, p.Name())
		if err != nil {
			return restored, fmt.Errorf("load balance %s: %w", p.Name(), err)
		}
		if !ok {
			continue
		}
		p.Set(amount.InexactFloat64())
		restored++
	}
	return restored, nil
}
