/*
scenarios.go - Preset farm models for testing and demonstrations

PURPOSE:

	Provides pre-built farms that exercise specific engine behaviour. Each
	scenario is a FarmSpec handed to the factory, so loading one is the same
	code path as loading a custom farm.

AVAILABLE SCENARIOS:

	overdraft:          Account with no withdrawal limit pays past zero
	overdraft-limit:    Same account stopped at its withdrawal limit
	dry-season:         Grazing tree with herd labour, rent and wool income
	common-land:        Grazing extended to common land with pasture labour
	stop-on-shortfall:  Mandatory payment that ends the run when short

HOW LOADING WORKS:
 1. Complete the current run (saves balances, releases handlers)
 2. Reset the database
 3. Build the farm via the factory
 4. Initialise it (opening balances, grazing tree)
 5. Record a new run

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "dry-season"}

	POST /api/scenarios/load
	{"scenario_id": "my-farm", "farm": { ...FarmSpec... }}

NOTE:

	Loading resets the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Step and inspection endpoints
  - factory/farm.go: FarmSpec schema
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/farm-engine/factory"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "overdraft",
		Name:        "Overdraft",
		Description: "A 1500 feed bill against 1000 in an account with no withdrawal limit",
		Category:    "finance",
	},
	{
		ID:          "overdraft-limit",
		Name:        "Overdraft Limit",
		Description: "The same feed bill against an account that can go to -200",
		Category:    "finance",
	},
	{
		ID:          "dry-season",
		Name:        "Dry Season",
		Description: "Two pastures, two herds, per head labour, mandatory rent and wool income",
		Category:    "grazing",
	},
	{
		ID:          "common-land",
		Name:        "Common Land",
		Description: "Grazing extended to common land with per pasture labour",
		Category:    "grazing",
	},
	{
		ID:          "stop-on-shortfall",
		Name:        "Stop On Shortfall",
		Description: "A loan repayment that ends the run when it cannot be paid",
		Category:    "finance",
	},
}

// presetFarm returns the farm for a scenario ID.
func presetFarm(id string) (factory.FarmSpec, bool) {
	switch id {
	case "overdraft":
		return overdraftFarm(false), true
	case "overdraft-limit":
		return overdraftFarm(true), true
	case "dry-season":
		return drySeasonFarm(), true
	case "common-land":
		return commonLandFarm(), true
	case "stop-on-shortfall":
		return stopOnShortfallFarm(), true
	}
	return factory.FarmSpec{}, false
}

// LoadPreset loads a preset scenario into h.
func LoadPreset(ctx context.Context, h *Handler, id string) error {
	spec, ok := presetFarm(id)
	if !ok {
		return fmt.Errorf("unknown scenario %q", id)
	}
	return h.Load(ctx, id, spec)
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	// Custom farm
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          current,
		Name:        current,
		Description: "Custom farm",
		Category:    "custom",
	})
}

// LoadScenario loads a preset scenario or a custom farm.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var spec factory.FarmSpec
	switch {
	case req.Farm != nil:
		spec = *req.Farm
		if req.ScenarioID == "" {
			req.ScenarioID = spec.Name
		}
	default:
		preset, ok := presetFarm(req.ScenarioID)
		if !ok {
			writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
			return
		}
		spec = preset
	}

	if err := h.Load(r.Context(), req.ScenarioID, spec); err != nil {
		writeError(w, statusFor(err), "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase completes the current run and clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// PRESET FARMS
// =============================================================================

func overdraftFarm(enforce bool) factory.FarmSpec {
	return factory.FarmSpec{
		Name:  "Overdraft",
		Start: "2024-01",
		Accounts: []factory.AccountSpec{{
			Name:                   "Bank",
			OpeningBalance:         1000,
			EnforceWithdrawalLimit: enforce,
			WithdrawalLimit:        -200,
		}},
		Expenses: []factory.ExpenseSpec{{Name: "Feed bill", Account: "Bank", Amount: 1500}},
	}
}

func drySeasonFarm() factory.FarmSpec {
	return factory.FarmSpec{
		Name:  "Dry season",
		Start: "2024-04",
		Accounts: []factory.AccountSpec{{
			Name:                   "Bank",
			OpeningBalance:         2500,
			EnforceWithdrawalLimit: true,
			WithdrawalLimit:        -500,
			InterestRateCharged:    7.5,
		}},
		LabourPools: []factory.LabourPoolSpec{{Name: "Family", Workers: 2, DaysPerStep: 20}},
		Pastures: []factory.PastureSpec{
			{Name: "North", Area: 40, InitialBiomass: 20000, GrowthPerStep: 1500},
			{Name: "South", Area: 25, InitialBiomass: 6000, GrowthPerStep: 500},
		},
		HerdTypes: []factory.HerdTypeSpec{
			{Name: "Angus", Count: 30, Pasture: "North", AdultEquivalent: 1, PotentialIntake: 12},
			{Name: "Merino", Count: 60, Pasture: "South", AdultEquivalent: 0.15, PotentialIntake: 1.8},
		},
		Grazing: &factory.GrazingSpec{
			HoursGrazed: 8,
			HerdLabour: []factory.LabourSpec{{
				Name:            "Check stock",
				UnitType:        "perHead",
				LabourPerUnit:   1,
				UnitSize:        20,
				WholeUnitBlocks: true,
				LabourPool:      "Family",
			}},
		},
		Expenses: []factory.ExpenseSpec{
			{Name: "Rent", Account: "Bank", Amount: 400, Mandatory: true},
			{Name: "Vet", Account: "Bank", Amount: 120.5},
		},
		Incomes: []factory.IncomeSpec{{Name: "Wool sales", Account: "Bank", Amount: 350}},
		Tasks: []factory.TaskSpec{{
			Name:   "Fencing",
			Labour: factory.LabourSpec{UnitType: "fixed", LabourPerUnit: 4, LabourPool: "Family"},
		}},
	}
}

func commonLandFarm() factory.FarmSpec {
	spec := drySeasonFarm()
	spec.Name = "Common land"
	spec.Pastures = append(spec.Pastures, factory.PastureSpec{Name: "Commons", CommonLand: true, InitialBiomass: 50000})
	spec.Grazing.IncludeCommonLand = true
	spec.Grazing.HoursGrazed = 6
	spec.Grazing.PastureLabour = []factory.LabourSpec{{
		Name:          "Move water troughs",
		UnitType:      "fixed",
		LabourPerUnit: 1,
		LabourPool:    "Family",
	}}
	return spec
}

func stopOnShortfallFarm() factory.FarmSpec {
	return factory.FarmSpec{
		Name:  "Stop on shortfall",
		Start: "2024-01",
		Accounts: []factory.AccountSpec{{
			Name:                   "Bank",
			OpeningBalance:         500,
			EnforceWithdrawalLimit: true,
		}},
		Expenses: []factory.ExpenseSpec{{
			Name:          "Loan repayment",
			Account:       "Bank",
			Amount:        200,
			Mandatory:     true,
			PartialPolicy: "stop",
		}},
	}
}
