package finance_test

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/farm-engine/finance"
	"github.com/warp/farm-engine/generic"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var buyer = generic.NamedModel{ModelName: "Buy feed", ModelKind: "test"}

func newAccount(t *testing.T, opening float64) *finance.Account {
	t.Helper()
	acc := finance.NewAccount("Bank")
	acc.OpeningBalance = opening
	require.NoError(t, acc.InitialiseResource())
	return acc
}

func request(amount float64) *generic.ResourceRequest {
	return generic.NewResourceRequest("Bank", amount, buyer, "Purchase")
}

// =============================================================================
// OPENING BALANCE
// =============================================================================

func TestAccount_OpeningBalanceDepositedOnce(t *testing.T) {
	// GIVEN: An account with an opening balance of 1000
	acc := newAccount(t, 1000)

	// THEN: The deposit is attributed to the account itself
	tx := acc.LastTransaction()
	require.NotNil(t, tx)
	assert.Equal(t, finance.ReasonOpeningBalance, tx.Reason)
	assert.Equal(t, "Bank", tx.Activity)
	assert.True(t, tx.Debit.Equal(decimal.NewFromInt(1000)))

	// WHEN: Initialised again
	require.NoError(t, acc.InitialiseResource())

	// THEN: The balance is not doubled
	assert.Equal(t, 1000.0, acc.Balance())
}

func TestAccount_NoOpeningBalance(t *testing.T) {
	acc := newAccount(t, 0)
	assert.Equal(t, 0.0, acc.Balance())
	assert.Nil(t, acc.LastTransaction())
}

// =============================================================================
// ADD
// =============================================================================

func TestAccount_AddRoundsHalfToEven(t *testing.T) {
	acc := newAccount(t, 0)

	require.NoError(t, acc.Add(10.125, buyer, "Sale"))
	assert.Equal(t, "10.12", acc.Amount().StringFixed(2))

	require.NoError(t, acc.Add(0.135, buyer, "Sale"))
	assert.Equal(t, "10.26", acc.Amount().StringFixed(2))
}

func TestAccount_AddRoundsScaledCents(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{1.015, "1.01"},
		{2.675, "2.68"},
		{12.345, "12.34"},
		{12.346, "12.35"},
	}
	for _, tt := range tests {
		acc := newAccount(t, 0)
		require.NoError(t, acc.Add(tt.amount, buyer, "Sale"))
		assert.Equal(t, tt.expected, acc.Amount().StringFixed(2), "amount %v", tt.amount)
		assert.Equal(t, tt.expected, acc.LastTransaction().Debit.StringFixed(2))
	}
}

func TestAccount_AddNonPositiveIsNoOp(t *testing.T) {
	acc := newAccount(t, 50)
	before := acc.LastTransaction()

	events := 0
	sub := acc.OnTransaction(func(generic.Transaction) { events++ })
	defer sub.Unsubscribe()

	require.NoError(t, acc.Add(0.0, buyer, "Nothing"))
	require.NoError(t, acc.Add(-25.0, buyer, "Negative"))

	assert.Equal(t, 50.0, acc.Balance())
	assert.Equal(t, before, acc.LastTransaction())
	assert.Zero(t, events)
}

func TestAccount_AddTinyAmountRecordsZeroDebit(t *testing.T) {
	// The positive check runs before rounding.
	acc := newAccount(t, 0)
	require.NoError(t, acc.Add(0.004, buyer, "Rounding"))

	tx := acc.LastTransaction()
	require.NotNil(t, tx)
	assert.True(t, tx.Debit.IsZero())
	assert.Equal(t, 0.0, acc.Balance())
}

func TestAccount_AddWrongKindFails(t *testing.T) {
	acc := newAccount(t, 10)

	err := acc.Add(5, buyer, "Int")

	var kindErr *generic.UnsupportedResourceKindError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, "Bank", kindErr.Pool)
	assert.Equal(t, "int", kindErr.Kind)
	assert.ErrorIs(t, err, generic.ErrUnsupportedResourceKind)
	assert.True(t, generic.IsFatal(err))
	assert.Equal(t, 10.0, acc.Balance())
}

// =============================================================================
// REMOVE
// =============================================================================

func TestAccount_RemoveUnenforcedAllowsOverdraft(t *testing.T) {
	// GIVEN: Opening balance 1000, no withdrawal limit
	acc := newAccount(t, 1000)

	// WHEN: 1500 is requested
	req := request(1500)
	f := acc.Remove(req)

	// THEN: All of it is provided and the balance goes to -500
	assert.Equal(t, 1500.0, f.Provided)
	assert.Equal(t, 1500.0, req.Provided)
	assert.True(t, f.Met())
	assert.Equal(t, -500.0, acc.Balance())
	assert.True(t, math.IsInf(acc.Available(), 1))

	tx := acc.LastTransaction()
	require.NotNil(t, tx)
	assert.True(t, tx.Credit.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, "Buy feed", tx.Activity)
	assert.Equal(t, "Purchase", tx.Reason)
}

func TestAccount_RemoveClampsToNegativeLimit(t *testing.T) {
	// GIVEN: Opening balance 1000, limit enforced at -200
	acc := newAccount(t, 1000)
	acc.EnforceWithdrawalLimit = true
	acc.WithdrawalLimit = -200
	assert.Equal(t, 1200.0, acc.Available())

	// WHEN: 1500 is requested
	f := acc.Remove(request(1500))

	// THEN: 1200 is provided and the balance stops at the limit
	assert.Equal(t, 1200.0, f.Provided)
	assert.Equal(t, 300.0, f.Shortfall())
	assert.Equal(t, -200.0, acc.Balance())
}

func TestAccount_RemoveClampsToZeroLimit(t *testing.T) {
	acc := newAccount(t, 1000)
	acc.EnforceWithdrawalLimit = true

	f := acc.Remove(request(1500))

	assert.Equal(t, 1000.0, f.Provided)
	assert.Equal(t, 0.0, acc.Balance())
}

func TestAccount_RemoveWithNothingAvailableEmitsNothing(t *testing.T) {
	acc := newAccount(t, 0)
	acc.EnforceWithdrawalLimit = true

	events := 0
	sub := acc.OnTransaction(func(generic.Transaction) { events++ })
	defer sub.Unsubscribe()

	f := acc.Remove(request(30))

	assert.Equal(t, 0.0, f.Provided)
	assert.True(t, f.Starved())
	assert.Zero(t, events)
	assert.Nil(t, acc.LastTransaction())
}

func TestAccount_RemoveEmptyRequestIsNoOp(t *testing.T) {
	acc := newAccount(t, 100)
	before := acc.LastTransaction()

	for _, amount := range []float64{0, -10} {
		req := request(amount)
		f := acc.Remove(req)
		assert.Equal(t, 0.0, f.Provided)
		assert.True(t, f.Met())
		assert.False(t, req.Fulfilled())
	}
	assert.Equal(t, 100.0, acc.Balance())
	assert.Equal(t, before, acc.LastTransaction())
}

func TestAccount_RemoveOnlyFulfilsOnce(t *testing.T) {
	acc := newAccount(t, 100)
	req := request(40)

	acc.Remove(req)
	acc.Remove(req)

	assert.Equal(t, 40.0, req.Provided)
	assert.Equal(t, 60.0, acc.Balance())
}

// =============================================================================
// SET AND DESCRIBE
// =============================================================================

func TestAccount_SetRecordsNoTransaction(t *testing.T) {
	acc := newAccount(t, 0)
	acc.Set(123.455)

	assert.Equal(t, "123.46", acc.Amount().StringFixed(2))
	assert.Nil(t, acc.LastTransaction())
}

func TestAccount_Describe(t *testing.T) {
	acc := finance.NewAccount("Bank")
	acc.OpeningBalance = 12500
	acc.EnforceWithdrawalLimit = true
	acc.WithdrawalLimit = -2000

	assert.Equal(t, "Opening balance of 12,500.00 that can be overdrawn by 2,000.00", acc.Describe())

	acc.EnforceWithdrawalLimit = false
	assert.Contains(t, acc.Describe(), "no withdrawal limit")
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestAccount_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("Add increases the balance by the rounded amount", prop.ForAll(
		func(opening, amount float64) bool {
			acc := finance.NewAccount("Bank")
			acc.OpeningBalance = opening
			if err := acc.InitialiseResource(); err != nil {
				return false
			}
			before := acc.Amount()
			if err := acc.Add(amount, buyer, "Sale"); err != nil {
				return false
			}
			rounded := generic.Round2Float(amount)
			tx := acc.LastTransaction()
			return acc.Amount().Equal(before.Add(rounded)) && tx != nil && tx.Debit.Equal(rounded)
		},
		gen.Float64Range(0, 1e6),
		gen.Float64Range(0.001, 1e6),
	))

	properties.Property("Add of a non-positive amount changes nothing", prop.ForAll(
		func(opening, amount float64) bool {
			acc := finance.NewAccount("Bank")
			acc.OpeningBalance = opening
			if err := acc.InitialiseResource(); err != nil {
				return false
			}
			before := acc.LastTransaction()
			balance := acc.Amount()
			if err := acc.Add(amount, buyer, "Refund"); err != nil {
				return false
			}
			after := acc.LastTransaction()
			sameTx := (before == nil && after == nil) || (before != nil && after != nil && before.ID == after.ID)
			return acc.Amount().Equal(balance) && sameTx
		},
		gen.Float64Range(0, 1e6),
		gen.Float64Range(-1e6, 0),
	))

	properties.Property("Remove with a zero limit clamps to the balance", prop.ForAll(
		func(opening, required float64) bool {
			acc := finance.NewAccount("Bank")
			acc.OpeningBalance = opening
			acc.EnforceWithdrawalLimit = true
			if err := acc.InitialiseResource(); err != nil {
				return false
			}
			balance := acc.Balance()
			f := acc.Remove(request(balance + required))
			return f.Provided == balance && acc.Amount().IsZero()
		},
		gen.Float64Range(0, 1e5),
		gen.Float64Range(0.01, 1e5),
	))

	properties.Property("Remove never provides more than required", prop.ForAll(
		func(opening, required, limit float64) bool {
			acc := finance.NewAccount("Bank")
			acc.OpeningBalance = opening
			acc.EnforceWithdrawalLimit = true
			acc.WithdrawalLimit = limit
			if err := acc.InitialiseResource(); err != nil {
				return false
			}
			f := acc.Remove(request(generic.Round2Float(required).InexactFloat64()))
			return f.Provided <= f.Required && f.Provided >= 0 && acc.Balance() >= math.Min(limit, opening)-0.005
		},
		gen.Float64Range(0, 1e5),
		gen.Float64Range(0, 1e5),
		gen.Float64Range(-1e4, 1e4),
	))

	properties.Property("Set then Balance round trips to two places", prop.ForAll(
		func(x float64) bool {
			acc := finance.NewAccount("Bank")
			acc.Set(x)
			return acc.Amount().Equal(generic.Round2Float(x))
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.TestingRun(t)
}
