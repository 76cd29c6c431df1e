/*
Package factory provides JSON to Go farm model conversion.

PURPOSE:
  Converts a JSON farm definition into a ready to run simulation: pools
  registered in catalog order, herd individuals created, and activity
  roots configured. The API loads preset scenarios and custom definitions
  through it, so a model can change without code changes.

JSON SCHEMA:
  {
    "name": "Dry season",
    "start": "2024-01",
    "accounts": [
      {"name": "Bank", "opening_balance": 1000,
       "enforce_withdrawal_limit": true, "withdrawal_limit": -200}
    ],
    "labour_pools": [{"name": "Family", "workers": 2, "days_per_step": 20}],
    "pastures": [
      {"name": "North", "area": 40, "initial_biomass": 20000, "growth_per_step": 3000},
      {"name": "Commons", "common_land": true, "initial_biomass": 50000}
    ],
    "herd_types": [
      {"name": "Angus", "count": 20, "pasture": "North",
       "adult_equivalent": 1, "potential_intake": 12}
    ],
    "grazing": {
      "hours_grazed": 8,
      "include_common_land": false,
      "herd_labour": [{"name": "Check water", "unit_type": "perHead",
                       "labour_per_unit": 1, "unit_size": 10,
                       "whole_unit_blocks": true, "labour_pool": "Family"}]
    },
    "expenses": [{"name": "Rent", "account": "Bank", "amount": 300, "mandatory": true}],
    "incomes":  [{"name": "Off-farm work", "account": "Bank", "amount": 250}],
    "tasks":    [{"name": "Fencing", "labour": {"unit_type": "fixed",
                  "labour_per_unit": 2, "labour_pool": "Family"}}]
  }

VALIDATION:
  Every configuration defect is reported before the run starts as a
  ConfigurationError naming the offending item: unsupported labour unit
  types, hours grazed outside (0, 8], unknown pools, duplicate names and
  unknown partial policies.

USAGE:
  f := NewFarmFactory()
  spec, err := f.ParseFarm(jsonString)
  sim, err := f.Build(spec, store, summary)
  sim.Initialise(ctx)

SEE ALSO:
  - simulation/simulation.go: What Build returns
  - api/scenarios.go: Preset farm definitions
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/warp/farm-engine/activity"
	"github.com/warp/farm-engine/finance"
	"github.com/warp/farm-engine/generic"
	"github.com/warp/farm-engine/grazing"
	"github.com/warp/farm-engine/herd"
	"github.com/warp/farm-engine/labour"
	"github.com/warp/farm-engine/pasture"
	"github.com/warp/farm-engine/simulation"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// FarmSpec is the JSON representation of a farm model.
type FarmSpec struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Start       string            `json:"start"` // YYYY-MM or YYYY-MM-DD
	Accounts    []AccountSpec     `json:"accounts,omitempty"`
	LabourPools []LabourPoolSpec  `json:"labour_pools,omitempty"`
	Pastures    []PastureSpec     `json:"pastures,omitempty"`
	HerdTypes   []HerdTypeSpec    `json:"herd_types,omitempty"`
	Grazing     *GrazingSpec      `json:"grazing,omitempty"`
	Expenses    []ExpenseSpec     `json:"expenses,omitempty"`
	Incomes     []IncomeSpec      `json:"incomes,omitempty"`
	Tasks       []TaskSpec        `json:"tasks,omitempty"`
	Restore     bool              `json:"restore_balances,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// AccountSpec represents a finance account.
type AccountSpec struct {
	Name                   string  `json:"name"`
	OpeningBalance         float64 `json:"opening_balance,omitempty"`
	EnforceWithdrawalLimit bool    `json:"enforce_withdrawal_limit,omitempty"`
	WithdrawalLimit        float64 `json:"withdrawal_limit,omitempty"`
	InterestRateCharged    float64 `json:"interest_rate_charged,omitempty"`
	InterestRatePaid       float64 `json:"interest_rate_paid,omitempty"`
}

// LabourPoolSpec represents a workforce.
type LabourPoolSpec struct {
	Name        string  `json:"name"`
	Workers     int     `json:"workers"`
	DaysPerStep float64 `json:"days_per_step"`
}

// PastureSpec represents a forage store.
type PastureSpec struct {
	Name           string  `json:"name"`
	CommonLand     bool    `json:"common_land,omitempty"`
	Area           float64 `json:"area,omitempty"`
	InitialBiomass float64 `json:"initial_biomass,omitempty"`
	GrowthPerStep  float64 `json:"growth_per_step,omitempty"`
}

// HerdTypeSpec represents a breed and its starting individuals.
type HerdTypeSpec struct {
	Name            string  `json:"name"`
	Breed           string  `json:"breed,omitempty"`
	Count           int     `json:"count"`
	Pasture         string  `json:"pasture"`
	AdultEquivalent float64 `json:"adult_equivalent"`
	PotentialIntake float64 `json:"potential_intake"` // kg/day
}

// LabourSpec represents a labour requirement.
type LabourSpec struct {
	Name            string  `json:"name,omitempty"`
	UnitType        string  `json:"unit_type"`
	LabourPerUnit   float64 `json:"labour_per_unit"`
	UnitSize        float64 `json:"unit_size,omitempty"`
	WholeUnitBlocks bool    `json:"whole_unit_blocks,omitempty"`
	LabourPool      string  `json:"labour_pool"`
}

// GrazingSpec configures the grazing tree root.
type GrazingSpec struct {
	Name              string       `json:"name,omitempty"`
	HoursGrazed       float64      `json:"hours_grazed,omitempty"`
	IncludeCommonLand bool         `json:"include_common_land,omitempty"`
	PartialPolicy     string       `json:"partial_policy,omitempty"`
	HerdLabour        []LabourSpec `json:"herd_labour,omitempty"`
	PastureLabour     []LabourSpec `json:"pasture_labour,omitempty"`
}

// ExpenseSpec represents a recurring payment.
type ExpenseSpec struct {
	Name          string  `json:"name"`
	Account       string  `json:"account"`
	Amount        float64 `json:"amount"`
	Mandatory     bool    `json:"mandatory,omitempty"`
	PartialPolicy string  `json:"partial_policy,omitempty"`
}

// IncomeSpec represents a recurring deposit.
type IncomeSpec struct {
	Name    string  `json:"name"`
	Account string  `json:"account"`
	Amount  float64 `json:"amount"`
}

// TaskSpec represents a standalone labour task.
type TaskSpec struct {
	Name          string     `json:"name"`
	Labour        LabourSpec `json:"labour"`
	PartialPolicy string     `json:"partial_policy,omitempty"`
}

// =============================================================================
// FARM FACTORY
// =============================================================================

// FarmFactory converts farm definitions into simulations.
type FarmFactory struct{}

// NewFarmFactory creates a new farm factory.
func NewFarmFactory() *FarmFactory {
	return &FarmFactory{}
}

// ParseFarm decodes a JSON farm definition. Unknown fields are rejected.
func (f *FarmFactory) ParseFarm(jsonStr string) (FarmSpec, error) {
	var spec FarmSpec
	dec := json.NewDecoder(strings.NewReader(jsonStr))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return FarmSpec{}, fmt.Errorf("failed to parse farm JSON: %w", err)
	}
	return spec, nil
}

// Build validates spec and assembles a simulation. store may be nil for a
// run without a journal.
func (f *FarmFactory) Build(spec FarmSpec, store generic.JournalStore, summary generic.Summary) (*simulation.Simulation, error) {
	start, err := parseStart(spec.Start)
	if err != nil {
		return nil, configError(spec.Name, "start", spec.Start, err)
	}

	b := &builder{spec: spec, reg: generic.NewRegistry(), herd: herd.NewHerd()}
	if err := b.pools(); err != nil {
		return nil, err
	}
	if err := b.herds(); err != nil {
		return nil, err
	}
	roots, err := b.activities()
	if err != nil {
		return nil, err
	}

	var journal *generic.Journal
	if store != nil {
		journal = generic.NewJournal(store, nil)
	}
	sim := simulation.New(spec.Name, start, b.reg, journal, summary)
	sim.RestoreBalances = spec.Restore
	for _, root := range roots {
		sim.AddActivity(root)
	}
	return sim, nil
}

// Herd returns the herd a spec would create, for previews.
func (f *FarmFactory) Herd(spec FarmSpec) (*herd.Herd, error) {
	b := &builder{spec: spec, reg: generic.NewRegistry(), herd: herd.NewHerd()}
	if err := b.pools(); err != nil {
		return nil, err
	}
	if err := b.herds(); err != nil {
		return nil, err
	}
	return b.herd, nil
}

// =============================================================================
// BUILDER
// =============================================================================

type builder struct {
	spec FarmSpec
	reg  *generic.Registry
	herd *herd.Herd
}

func (b *builder) pools() error {
	for _, a := range b.spec.Accounts {
		acc := finance.NewAccount(a.Name)
		acc.OpeningBalance = a.OpeningBalance
		acc.EnforceWithdrawalLimit = a.EnforceWithdrawalLimit
		acc.WithdrawalLimit = a.WithdrawalLimit
		acc.InterestRateCharged = a.InterestRateCharged
		acc.InterestRatePaid = a.InterestRatePaid
		if err := b.register(acc); err != nil {
			return err
		}
	}
	for _, l := range b.spec.LabourPools {
		if l.Workers < 0 || l.DaysPerStep < 0 {
			return configError(l.Name, "labour pool", fmt.Sprintf("%d x %g", l.Workers, l.DaysPerStep), nil)
		}
		if err := b.register(labour.NewPool(l.Name, l.Workers, l.DaysPerStep)); err != nil {
			return err
		}
	}
	for _, p := range b.spec.Pastures {
		category := generic.CategoryPasture
		if p.CommonLand {
			category = generic.CategoryCommonLand
		}
		store := pasture.NewStore(p.Name, category)
		store.Area = p.Area
		store.InitialBiomass = p.InitialBiomass
		store.GrowthPerStep = p.GrowthPerStep
		if err := b.register(store); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) register(p generic.Pool) error {
	if p.Name() == "" {
		return configError(b.spec.Name, "pool name", "", nil)
	}
	if err := b.reg.Register(p); err != nil {
		return &generic.ConfigurationError{Requirement: p.Name(), Activity: b.spec.Name, Field: "pool name", Value: p.Name(), Err: errors.Join(generic.ErrInvalidConfiguration, err)}
	}
	return nil
}

func (b *builder) herds() error {
	for _, ht := range b.spec.HerdTypes {
		if ht.Count < 0 || ht.AdultEquivalent < 0 || ht.PotentialIntake < 0 {
			return configError(ht.Name, "herd type", ht.Name, nil)
		}
		if err := b.requirePool(ht.Name, ht.Pasture, generic.CategoryPasture, generic.CategoryCommonLand); err != nil {
			return err
		}
		breed := ht.Breed
		if breed == "" {
			breed = ht.Name
		}
		if err := b.herd.AddType(herd.HerdType{Name: ht.Name, Breed: breed}); err != nil {
			return &generic.ConfigurationError{Requirement: ht.Name, Activity: b.spec.Name, Field: "herd type", Value: ht.Name, Err: errors.Join(generic.ErrInvalidConfiguration, err)}
		}
		for i := 0; i < ht.Count; i++ {
			b.herd.Add(&herd.Ruminant{
				ID:              fmt.Sprintf("%s-%03d", ht.Name, i+1),
				Breed:           breed,
				Location:        ht.Pasture,
				AdultEquivalent: ht.AdultEquivalent,
				PotentialIntake: ht.PotentialIntake,
			})
		}
	}
	return nil
}

func (b *builder) activities() ([]activity.Activity, error) {
	var roots []activity.Activity

	for _, e := range b.spec.Expenses {
		if err := b.requirePool(e.Name, e.Account, generic.CategoryFinance); err != nil {
			return nil, err
		}
		exp := finance.NewExpense(e.Name, e.Account, e.Amount)
		exp.Mandatory = e.Mandatory
		if err := setPolicy(&exp.Node, e.PartialPolicy); err != nil {
			return nil, err
		}
		roots = append(roots, exp)
	}

	for _, in := range b.spec.Incomes {
		if err := b.requirePool(in.Name, in.Account, generic.CategoryFinance); err != nil {
			return nil, err
		}
		roots = append(roots, finance.NewIncome(in.Name, in.Account, in.Amount))
	}

	for _, ts := range b.spec.Tasks {
		req, err := b.requirement(ts.Name, ts.Labour)
		if err != nil {
			return nil, err
		}
		task := labour.NewTask(ts.Name, req)
		if err := task.Validate(); err != nil {
			return nil, err
		}
		if err := setPolicy(&task.Node, ts.PartialPolicy); err != nil {
			return nil, err
		}
		roots = append(roots, task)
	}

	if g := b.spec.Grazing; g != nil {
		name := g.Name
		if name == "" {
			name = "GrazeAll"
		}
		root := grazing.NewGrazeAll(name, b.herd)
		if g.HoursGrazed != 0 {
			root.HoursGrazed = g.HoursGrazed
		}
		root.IncludeCommonLand = g.IncludeCommonLand
		if err := setPolicy(&root.Node, g.PartialPolicy); err != nil {
			return nil, err
		}
		for _, ls := range g.HerdLabour {
			req, err := b.requirement(name, ls)
			if err != nil {
				return nil, err
			}
			root.HerdLabour = append(root.HerdLabour, req)
		}
		for _, ls := range g.PastureLabour {
			req, err := b.requirement(name, ls)
			if err != nil {
				return nil, err
			}
			root.PastureLabour = append(root.PastureLabour, req)
		}
		if err := root.Validate(); err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}

	return roots, nil
}

func (b *builder) requirement(owner string, ls LabourSpec) (labour.Requirement, error) {
	name := ls.Name
	if name == "" {
		name = owner + " labour"
	}
	req := labour.Requirement{
		Name:            name,
		Activity:        owner,
		UnitType:        labour.UnitType(ls.UnitType),
		LabourPerUnit:   ls.LabourPerUnit,
		UnitSize:        ls.UnitSize,
		WholeUnitBlocks: ls.WholeUnitBlocks,
		LabourPool:      ls.LabourPool,
	}
	if err := req.Validate(); err != nil {
		return req, err
	}
	if err := b.requirePool(name, ls.LabourPool, generic.CategoryLabour); err != nil {
		return req, err
	}
	return req, nil
}

// requirePool checks that name is a registered pool of one of categories.
func (b *builder) requirePool(owner, name string, categories ...generic.Category) error {
	p, err := b.reg.Lookup(name)
	if err != nil {
		return &generic.ConfigurationError{Requirement: owner, Activity: b.spec.Name, Field: "pool", Value: name, Err: errors.Join(generic.ErrInvalidConfiguration, err)}
	}
	for _, c := range categories {
		if p.Category() == c {
			return nil
		}
	}
	return configError(owner, "pool category", fmt.Sprintf("%s (%s)", name, p.Category()), nil)
}

func setPolicy(n *activity.Node, policy string) error {
	p := activity.PartialPolicy(policy)
	if !p.Valid() {
		return configError(n.Name(), "partial policy", policy, nil)
	}
	n.PartialPolicy = p
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func parseStart(s string) (generic.TimePoint, error) {
	if s == "" {
		now := time.Now().UTC()
		return generic.NewMonthPoint(now.Year(), now.Month()), nil
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return generic.NewMonthPoint(t.Year(), t.Month()), nil
	}
	return generic.ParseTimePoint(s)
}

func configError(owner, field, value string, err error) *generic.ConfigurationError {
	if err != nil {
		value = fmt.Sprintf("%s: %v", value, err)
	}
	return &generic.ConfigurationError{Requirement: owner, Activity: owner, Field: field, Value: value}
}
