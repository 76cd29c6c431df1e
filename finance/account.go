/*
account.go - Finance ledger pool

PURPOSE:
  An Account is a money pool. Every amount that enters or leaves it is
  rounded to two decimal places, half to even, and the balance is held as
  a decimal so repeated cents never drift.

WITHDRAWAL LIMIT:
  With EnforceWithdrawalLimit off the account is an overdraft facility:
  Available() is +Inf and a removal always gets its full (rounded)
  requirement, so the balance may go negative.

  With it on, Available() is Balance - WithdrawalLimit and removals clamp
  to that. A limit of 0 means the balance never goes below zero; a limit
  of -200 allows an overdraft down to -200.

  ┌──────────────────────────────────────────────────────────────┐
  │ Balance 1000, limit enforced at 0, request 1500              │
  │   removed  = min(1000 - 0, 1500) = 1000                      │
  │   Provided = 1000, Balance = 0, shortfall 500                │
  └──────────────────────────────────────────────────────────────┘

OPENING BALANCE:
  Deposited once by InitialiseResource with reason "Opening balance",
  attributed to the account itself. Never reapplied.

SEE ALSO:
  - generic/pool.go: Pool contract
  - activities.go: Expense and Income activities that use accounts
*/
package finance

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/warp/farm-engine/generic"
)

// ReasonOpeningBalance is recorded on the opening deposit.
const ReasonOpeningBalance = "Opening balance"

// =============================================================================
// ACCOUNT
// =============================================================================

type Account struct {
	generic.PoolBase

	OpeningBalance         float64
	EnforceWithdrawalLimit bool
	WithdrawalLimit        float64

	// Interest rates are carried for reporting only.
	InterestRateCharged float64
	InterestRatePaid    float64

	amount      decimal.Decimal
	initialised bool
}

// NewAccount creates an empty account. Call InitialiseResource to deposit
// the opening balance.
func NewAccount(name string) *Account {
	return &Account{
		PoolBase: generic.PoolBase{
			PoolName:     name,
			PoolCategory: generic.CategoryFinance,
			PoolUnit:     generic.UnitDollars,
		},
		amount: decimal.Zero,
	}
}

// InitialiseResource resets the amount and deposits the opening balance.
// Later calls do nothing.
func (a *Account) InitialiseResource() error {
	if a.initialised {
		return nil
	}
	a.initialised = true
	a.amount = decimal.Zero
	if a.OpeningBalance > 0 {
		return a.Add(a.OpeningBalance, a, ReasonOpeningBalance)
	}
	return nil
}

// =============================================================================
// POOL OPERATIONS
// =============================================================================

func (a *Account) Balance() float64 {
	return a.amount.InexactFloat64()
}

// Amount returns the exact decimal balance.
func (a *Account) Amount() decimal.Decimal {
	return a.amount
}

// Available is the most a removal can take: +Inf without an enforced limit.
func (a *Account) Available() float64 {
	if !a.EnforceWithdrawalLimit {
		return math.Inf(1)
	}
	return a.available().InexactFloat64()
}

func (a *Account) available() decimal.Decimal {
	return a.amount.Sub(decimal.NewFromFloat(a.WithdrawalLimit))
}

// Add deposits a float64 amount. Values that are not positive change
// nothing. The positive check happens before rounding, so 0.004 records a
// zero debit.
func (a *Account) Add(value any, activity generic.Model, reason string) error {
	v, err := a.CheckFloat(value)
	if err != nil {
		return err
	}
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	deposit := generic.Round2Float(v)
	a.amount = generic.Round2(a.amount.Add(deposit))
	a.RecordDebit(deposit, activity, reason)
	return nil
}

// Remove withdraws the rounded requirement, clamped to Available when the
// limit is enforced.
func (a *Account) Remove(request *generic.ResourceRequest) generic.Fulfilment {
	if f, done := request.Settled(); done {
		return f
	}
	if math.IsInf(request.Required, 0) || math.IsNaN(request.Required) {
		return generic.Fulfil(request, 0)
	}

	removed := generic.Round2Float(request.Required)
	if a.EnforceWithdrawalLimit {
		removed = decimal.Min(removed, a.available())
	}
	if !removed.IsPositive() {
		return generic.Fulfil(request, 0)
	}

	a.amount = generic.Round2(a.amount.Sub(removed))
	f := generic.Fulfil(request, removed.InexactFloat64())
	a.RecordCredit(removed, request)
	return f
}

// Set overwrites the balance with the rounded value. No transaction.
func (a *Account) Set(value float64) {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return
	}
	a.amount = generic.Round2Float(value)
}

// =============================================================================
// DESCRIPTION
// =============================================================================

// Describe returns a one line account summary for logs and the API.
func (a *Account) Describe() string {
	var b strings.Builder
	if a.OpeningBalance > 0 {
		fmt.Fprintf(&b, "Opening balance of %s", money(a.OpeningBalance))
	} else {
		b.WriteString("No opening balance")
	}
	if a.EnforceWithdrawalLimit {
		switch {
		case a.WithdrawalLimit < 0:
			fmt.Fprintf(&b, " that can be overdrawn by %s", money(-a.WithdrawalLimit))
		case a.WithdrawalLimit > 0:
			fmt.Fprintf(&b, " that must keep at least %s", money(a.WithdrawalLimit))
		default:
			b.WriteString(" that cannot go below zero")
		}
	} else {
		b.WriteString(" with no withdrawal limit")
	}
	if a.InterestRateCharged > 0 {
		fmt.Fprintf(&b, "; interest charged at %s%%", humanize.Ftoa(a.InterestRateCharged))
	}
	if a.InterestRatePaid > 0 {
		fmt.Fprintf(&b, "; interest paid at %s%%", humanize.Ftoa(a.InterestRatePaid))
	}
	return b.String()
}

func money(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

var (
	_ generic.Pool                = (*Account)(nil)
	_ generic.ResourceInitialiser = (*Account)(nil)
)
