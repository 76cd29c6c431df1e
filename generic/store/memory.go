// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/farm-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	transactions []generic.Transaction
	byPool       map[string][]int
	ids          map[generic.TransactionID]bool
	balances     map[string]decimal.Decimal
}

func NewMemory() *Memory {
	return &Memory{
		byPool:   make(map[string][]int),
		ids:      make(map[generic.TransactionID]bool),
		balances: make(map[string]decimal.Decimal),
	}
}

// Append adds a single transaction. Append-only.
func (m *Memory) Append(_ context.Context, tx generic.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids[tx.ID] {
		return generic.ErrDuplicateTransaction
	}
	m.appendLocked(tx)
	return nil
}

// AppendBatch adds multiple transactions atomically.
func (m *Memory) AppendBatch(_ context.Context, txs []generic.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all IDs first (atomic check)
	seen := make(map[generic.TransactionID]bool, len(txs))
	for _, tx := range txs {
		if m.ids[tx.ID] || seen[tx.ID] {
			return generic.ErrDuplicateTransaction
		}
		seen[tx.ID] = true
	}

	for _, tx := range txs {
		m.appendLocked(tx)
	}
	return nil
}

func (m *Memory) appendLocked(tx generic.Transaction) {
	m.transactions = append(m.transactions, tx)
	m.byPool[tx.ResourceType] = append(m.byPool[tx.ResourceType], len(m.transactions)-1)
	m.ids[tx.ID] = true
}

func (m *Memory) Load(_ context.Context, pool string) ([]generic.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := m.byPool[pool]
	result := make([]generic.Transaction, len(idx))
	for i, n := range idx {
		result[i] = m.transactions[n]
	}
	return result, nil
}

func (m *Memory) LoadAll(_ context.Context, limit int) ([]generic.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.transactions)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]generic.Transaction, 0, n)
	for i := len(m.transactions) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, m.transactions[i])
	}
	return result, nil
}

// =============================================================================
// BALANCES
// =============================================================================

func (m *Memory) SaveBalance(_ context.Context, pool string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[pool] = amount
	return nil
}

func (m *Memory) LoadBalance(_ context.Context, pool string) (decimal.Decimal, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	amount, ok := m.balances[pool]
	return amount, ok, nil
}

// Reset clears everything.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = nil
	m.byPool = make(map[string][]int)
	m.ids = make(map[generic.TransactionID]bool)
	m.balances = make(map[string]decimal.Decimal)
	return nil
}

var _ generic.JournalStore = (*Memory)(nil)
