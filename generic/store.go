/*
store.go - Persistence interface for the transaction journal and balances

PURPOSE:
  Defines the interface between the engine and the database. The engine
  itself never blocks on storage during a tick: transactions are buffered
  by the Journal and written when the driver flushes it.

WHAT IS PERSISTED:
  transactions: append-only record of every pool mutation (audit)
  balances:     the running amount of each pool, saved at the end of a run
                so the next run can resume from it

APPEND-ONLY CONTRACT:
  - Append(): single transaction write
  - AppendBatch(): atomic multi-transaction write
  - NO Update() or Delete() methods exist for transactions
  Balances are a snapshot table and are overwritten by SaveBalance.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - journal.go: Buffers transactions and calls the Store
*/
package generic

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Interface for journal persistence
// =============================================================================

type Store interface {
	// Append persists a transaction. Returns ErrDuplicateTransaction if the
	// ID exists.
	Append(ctx context.Context, tx Transaction) error

	// AppendBatch persists multiple transactions atomically.
	// Either all succeed or none do.
	AppendBatch(ctx context.Context, txs []Transaction) error

	// Load returns all transactions for a pool, oldest first.
	Load(ctx context.Context, pool string) ([]Transaction, error)

	// LoadAll returns the most recent transactions across pools, newest
	// first. limit <= 0 returns everything.
	LoadAll(ctx context.Context, limit int) ([]Transaction, error)
}

// BalanceStore persists pool balances between runs.
type BalanceStore interface {
	SaveBalance(ctx context.Context, pool string, amount decimal.Decimal) error

	// LoadBalance returns the saved amount and whether one exists.
	LoadBalance(ctx context.Context, pool string) (decimal.Decimal, bool, error)
}

// JournalStore is what the Journal needs.
type JournalStore interface {
	Store
	BalanceStore
}
