/*
pool.go - Resource pools

PURPOSE:
  A Pool owns a quantity of one resource and fulfils requests against it.
  Money, labour days and forage all satisfy the same interface so the
  scheduler allocates them with one piece of code.

POOL CONTRACT:
  Add(value, activity, reason):
    - value must be a float64, anything else is UnsupportedResourceKindError
    - value <= 0 is a no-op (no mutation, no transaction, no event)
    - otherwise the pool grows and records a debit transaction

  Remove(request):
    - Required <= 0 is a no-op
    - removes min(Available(), Required), never more than is there
    - writes request.Provided, records a credit transaction
    - a clamped amount of zero changes nothing and emits nothing

  Set(value):
    - administrative override, no transaction, no event

  Available():
    - what a request may take right now; +Inf for unbounded pools

KEY COMPONENTS:
  Pool:         The interface every pool satisfies
  PoolBase:     Shared plumbing (name, last transaction, transaction feed)
  QuantityPool: Float quantity pool used for labour days and forage

SEE ALSO:
  - finance/account.go: Money pool with 2 dp rounding and withdrawal limits
  - labour/pool.go, pasture/store.go: QuantityPool based pools
*/
package generic

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CATEGORY
// =============================================================================

// Category groups pools for catalog enumeration.
type Category string

const (
	CategoryFinance    Category = "finance"
	CategoryLabour     Category = "labour"
	CategoryPasture    Category = "pasture"
	CategoryCommonLand Category = "common_land"
)

// =============================================================================
// POOL INTERFACE
// =============================================================================

type Pool interface {
	Model

	Category() Category
	Unit() Unit

	// Balance is the amount currently held.
	Balance() float64

	// Available is the most a request can take now.
	Available() float64

	Add(value any, activity Model, reason string) error
	Remove(request *ResourceRequest) Fulfilment
	Set(value float64)

	LastTransaction() *Transaction
	OnTransaction(fn func(Transaction)) *Subscription
}

// ResourceInitialiser is implemented by pools that seed themselves once at
// resource initialisation (opening balances).
type ResourceInitialiser interface {
	InitialiseResource() error
}

// StepStarter is implemented by pools that change at the start of every
// step (labour refills, pasture growth).
type StepStarter interface {
	StartStep(step TimePoint) error
}

// =============================================================================
// POOL BASE - Shared plumbing
// =============================================================================

// PoolBase carries the name, category and transaction notification shared
// by every pool. Embed it by value.
type PoolBase struct {
	PoolName     string
	PoolCategory Category
	PoolUnit     Unit

	last         *Transaction
	transactions Feed[Transaction]
}

func (p *PoolBase) Name() string { return p.PoolName }
func (p *PoolBase) Category() Category { return p.PoolCategory }
func (p *PoolBase) Unit() Unit { return p.PoolUnit }
func (p *PoolBase) Kind() string { return string(p.PoolCategory) }

// LastTransaction returns the most recent mutation, or nil before the first.
func (p *PoolBase) LastTransaction() *Transaction {
	if p.last == nil {
		return nil
	}
	tx := *p.last
	return &tx
}

// OnTransaction subscribes to transaction notifications.
func (p *PoolBase) OnTransaction(fn func(Transaction)) *Subscription {
	return p.transactions.Subscribe(fn)
}

// TransactionSubscribers returns the number of live transaction handlers.
func (p *PoolBase) TransactionSubscribers() int {
	return p.transactions.Len()
}

// RecordDebit stores and emits a transaction for an addition.
func (p *PoolBase) RecordDebit(amount decimal.Decimal, activity Model, reason string) Transaction {
	tx := p.newTransaction(activity, reason)
	tx.Debit = amount
	return p.record(tx)
}

// RecordCredit stores and emits a transaction for a removal.
func (p *PoolBase) RecordCredit(amount decimal.Decimal, request *ResourceRequest) Transaction {
	tx := p.newTransaction(request.Activity, request.Reason)
	tx.Credit = amount
	return p.record(tx)
}

func (p *PoolBase) newTransaction(activity Model, reason string) Transaction {
	tx := Transaction{
		ID:           TransactionID(uuid.NewString()),
		ResourceType: p.PoolName,
		Unit:         p.PoolUnit,
		Debit:        decimal.Zero,
		Credit:       decimal.Zero,
		Reason:       reason,
		CreatedAt:    time.Now().UTC(),
	}
	if activity != nil {
		tx.Activity = activity.Name()
		tx.ActivityType = activity.Kind()
	}
	return tx
}

func (p *PoolBase) record(tx Transaction) Transaction {
	p.last = &tx
	p.transactions.Emit(tx)
	return tx
}

// CheckFloat returns the float64 held in value or an
// UnsupportedResourceKindError naming this pool.
func (p *PoolBase) CheckFloat(value any) (float64, error) {
	v, ok := value.(float64)
	if !ok {
		return 0, &UnsupportedResourceKindError{Pool: p.PoolName, Kind: fmt.Sprintf("%T", value)}
	}
	return v, nil
}

// =============================================================================
// QUANTITY POOL - Float quantity, no rounding
// =============================================================================

// QuantityPool holds a plain non-negative float quantity.
type QuantityPool struct {
	PoolBase
	amount float64
}

// NewQuantityPool creates an empty pool.
func NewQuantityPool(name string, category Category, unit Unit) *QuantityPool {
	return &QuantityPool{PoolBase: PoolBase{PoolName: name, PoolCategory: category, PoolUnit: unit}}
}

func (q *QuantityPool) Balance() float64 { return q.amount }
func (q *QuantityPool) Available() float64 { return q.amount }

func (q *QuantityPool) Add(value any, activity Model, reason string) error {
	v, err := q.CheckFloat(value)
	if err != nil {
		return err
	}
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	q.amount += v
	q.RecordDebit(decimal.NewFromFloat(v), activity, reason)
	return nil
}

func (q *QuantityPool) Remove(request *ResourceRequest) Fulfilment {
	if f, done := request.Settled(); done {
		return f
	}
	removed := math.Min(q.amount, request.Required)
	if removed <= 0 || math.IsNaN(removed) {
		return Fulfil(request, 0)
	}
	q.amount -= removed
	f := Fulfil(request, removed)
	q.RecordCredit(decimal.NewFromFloat(removed), request)
	return f
}

func (q *QuantityPool) Set(value float64) {
	if value < 0 || math.IsNaN(value) {
		value = 0
	}
	q.amount = value
}

var _ Pool = (*QuantityPool)(nil)
