/*
Package generic provides the core resource allocation engine.

PURPOSE:
  This package contains domain-agnostic types and algorithms for allocating
  scarce resources to simulated activities. Whether the pool holds money,
  labour days or kilograms of forage, the same request/fulfilment contract,
  transaction record and event wiring apply.

KEY CONCEPTS IN THIS FILE (types.go):
  - Unit: what a pool counts (dollars, days, kilograms)
  - Model: anything that can be named in a transaction (activities, pools)
  - Transaction: the record of a single pool mutation
  - Round2: the 2 decimal place, half-to-even rounding used by money pools

DESIGN PRINCIPLES:
  1. Precision: money uses decimal.Decimal, never raw float arithmetic
  2. Attribution: every transaction names the activity that caused it
  3. Synchronous: nothing here blocks, allocation is in-memory arithmetic

SEE ALSO:
  - request.go: ResourceRequest and Fulfilment
  - pool.go: Pool interface and the shared pool plumbing
  - events.go: Feed and Subscription
  - resource.go: Registry of pools
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// UNITS
// =============================================================================

type Unit string

const (
	UnitDollars   Unit = "dollars"
	UnitDays      Unit = "days"
	UnitKilograms Unit = "kg"
)

// =============================================================================
// MODEL - Named participant in a transaction
// =============================================================================

// Model is implemented by everything that can be attributed in a
// transaction record: activities and pools themselves (opening balances).
type Model interface {
	Name() string
	Kind() string
}

// NamedModel is a plain Model value, handy for attribution outside the
// activity tree (administrative deposits, tests).
type NamedModel struct {
	ModelName string
	ModelKind string
}

func (m NamedModel) Name() string { return m.ModelName }
func (m NamedModel) Kind() string { return m.ModelKind }

// =============================================================================
// ROUNDING
// =============================================================================

// Round2 rounds to 2 decimal places using round-half-to-even.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// Round2Float rounds a float64 to 2 decimal places. The value is scaled by
// 100 as a float64 before the half-to-even rounding, so 1.015 (stored as
// 101.49999999999999 cents) becomes 1.01 and 2.675 (exactly 267.5 cents)
// becomes 2.68.
func Round2Float(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v * 100).RoundBank(0).Shift(-2)
}

// =============================================================================
// TRANSACTION - Record of a single pool mutation
// =============================================================================

type TransactionID string

// Transaction is emitted by a pool for every Add or Remove that changes its
// amount. Exactly one of Debit (added) or Credit (removed) is non-zero.
type Transaction struct {
	ID           TransactionID
	ResourceType string // pool name
	Unit         Unit
	Debit        decimal.Decimal
	Credit       decimal.Decimal
	Activity     string
	ActivityType string
	Reason       string

	// Step is stamped by the journal from the simulation clock.
	Step      TimePoint
	CreatedAt time.Time
}

// Delta returns the signed change the transaction applied to its pool.
func (t Transaction) Delta() decimal.Decimal {
	return t.Debit.Sub(t.Credit)
}

// IsDebit reports whether the transaction added to the pool.
func (t Transaction) IsDebit() bool {
	return t.Credit.IsZero()
}
