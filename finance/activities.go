package finance

import (
	"fmt"

	"github.com/warp/farm-engine/activity"
	"github.com/warp/farm-engine/generic"
)

const (
	KindExpense = "finance_expense"
	KindIncome  = "finance_income"
)

// =============================================================================
// EXPENSE - Pays a fixed amount from an account every step
// =============================================================================

type Expense struct {
	activity.Node

	Account   string
	Amount    float64
	Mandatory bool
	Reason    string

	// Paid is the amount actually withdrawn in the last step.
	Paid float64
}

func NewExpense(name, account string, amount float64) *Expense {
	e := &Expense{Account: account, Amount: amount, Reason: name}
	e.Init(name, KindExpense)
	return e
}

func (e *Expense) Base() *activity.Node { return &e.Node }

func (e *Expense) GetResourceRequests() ([]*generic.ResourceRequest, error) {
	if e.Amount <= 0 {
		return nil, nil
	}
	req := generic.NewResourceRequest(e.Account, generic.Round2Float(e.Amount).InexactFloat64(), e, e.Reason)
	req.Mandatory = e.Mandatory
	return []*generic.ResourceRequest{req}, nil
}

func (e *Expense) Adjust(requests []*generic.ResourceRequest) {
	e.Paid = 0
	for _, r := range requests {
		e.Paid += r.Provided
	}
}

func (e *Expense) Perform() error { return nil }

// =============================================================================
// INCOME - Deposits a fixed amount into an account every step
// =============================================================================

type Income struct {
	activity.Node

	Account string
	Amount  float64
	Reason  string
}

func NewIncome(name, account string, amount float64) *Income {
	i := &Income{Account: account, Amount: amount, Reason: name}
	i.Init(name, KindIncome)
	return i
}

func (i *Income) Base() *activity.Node { return &i.Node }

func (i *Income) GetResourceRequests() ([]*generic.ResourceRequest, error) { return nil, nil }

func (i *Income) Adjust([]*generic.ResourceRequest) {}

func (i *Income) Perform() error {
	if i.Amount <= 0 {
		i.MarkNoTask()
		return nil
	}
	if i.Resources == nil {
		return fmt.Errorf("income %s: %w", i.Name(), generic.ErrPoolNotFound)
	}
	pool, err := i.Resources.Lookup(i.Account)
	if err != nil {
		return fmt.Errorf("income %s: %w", i.Name(), err)
	}
	if err := pool.Add(i.Amount, i, i.Reason); err != nil {
		return err
	}
	i.SetStatus(activity.Success)
	return nil
}

var (
	_ activity.Activity = (*Expense)(nil)
	_ activity.Activity = (*Income)(nil)
)
