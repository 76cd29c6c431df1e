/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Requests before any scenario is loaded
- Pool inspection and stepping through the overdraft scenarios
- Fatal stop policy and run records
- Custom farm loading and configuration errors
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/farm-engine/factory"
	"github.com/warp/farm-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	handler *Handler
	router  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store)
	return &testServer{handler: h, router: NewRouter(h)}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) load(t *testing.T, scenarioID string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: scenarioID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// NO SCENARIO
// =============================================================================

func TestAPI_NoScenarioLoaded(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodGet, "/api/pools", nil).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodGet, "/api/activities", nil).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/steps", nil).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/complete", nil).Code)

	state := decode[map[string]any](t, s.do(t, http.MethodGet, "/api/state", nil))
	assert.Equal(t, false, state["loaded"])

	rec := s.do(t, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

// =============================================================================
// OVERDRAFT SCENARIOS
// =============================================================================

func TestAPI_OverdraftWithoutLimit(t *testing.T) {
	// GIVEN the overdraft scenario: 1000 in the bank, a 1500 feed bill
	s := newTestServer(t)
	s.load(t, "overdraft")

	bank := decode[PoolDTO](t, s.do(t, http.MethodGet, "/api/pools/Bank", nil))
	assert.Equal(t, 1000.0, bank.Balance)
	assert.True(t, bank.Unlimited)
	assert.Nil(t, bank.Available)
	assert.Equal(t, "Opening balance of 1,000.00 with no withdrawal limit", bank.Description)
	require.NotNil(t, bank.LastTransaction)
	assert.Equal(t, "Opening balance", bank.LastTransaction.Reason)

	// WHEN one step is posted with an empty body
	rec := s.do(t, http.MethodPost, "/api/steps", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN the bill is paid in full and the bank is overdrawn
	resp := decode[StepResponse](t, rec)
	require.Len(t, resp.Ticks, 1)
	assert.Equal(t, "2024-01", resp.Ticks[0].Step)
	assert.Equal(t, "success", resp.Ticks[0].Reports[0].Status)
	assert.Empty(t, resp.Ticks[0].Reports[0].Shortfalls)
	assert.Equal(t, "2024-02", resp.Today)
	assert.Equal(t, 1, resp.Steps)

	bank = decode[PoolDTO](t, s.do(t, http.MethodGet, "/api/pools/Bank", nil))
	assert.Equal(t, -500.0, bank.Balance)
	assert.Equal(t, -1500.0, bank.LastTransaction.Delta)
}

func TestAPI_OverdraftWithLimit(t *testing.T) {
	// GIVEN the same bill against an account limited to -200
	s := newTestServer(t)
	s.load(t, "overdraft-limit")

	// WHEN one step runs
	rec := s.do(t, http.MethodPost, "/api/steps", StepRequest{Steps: 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN 1200 is paid and the shortfall of 300 is reported
	resp := decode[StepResponse](t, rec)
	report := resp.Ticks[0].Reports[0]
	assert.Equal(t, "partial", report.Status)
	require.Len(t, report.Shortfalls, 1)
	assert.Equal(t, ShortfallDTO{Pool: "Bank", Required: 1500, Provided: 1200, Shortfall: 300}, report.Shortfalls[0])

	bank := decode[PoolDTO](t, s.do(t, http.MethodGet, "/api/pools/Bank", nil))
	assert.Equal(t, -200.0, bank.Balance)
	require.NotNil(t, bank.Available)
	assert.Equal(t, 0.0, *bank.Available)

	activities := decode[[]ActivityDTO](t, s.do(t, http.MethodGet, "/api/activities", nil))
	require.Len(t, activities, 1)
	assert.Equal(t, "Feed bill", activities[0].Name)
	assert.Equal(t, "partial", activities[0].Status)
	assert.Equal(t, "use_available", activities[0].PartialPolicy)
}

// =============================================================================
// POOLS AND TRANSACTIONS
// =============================================================================

func TestAPI_PoolsAndTransactions(t *testing.T) {
	s := newTestServer(t)
	s.load(t, "overdraft")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/steps", StepRequest{Steps: 2}).Code)

	pools := decode[[]PoolDTO](t, s.do(t, http.MethodGet, "/api/pools", nil))
	require.Len(t, pools, 1)
	assert.Equal(t, "finance", pools[0].Category)
	assert.Equal(t, "dollars", pools[0].Unit)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/pools/Savings", nil).Code)

	txs := decode[[]TransactionDTO](t, s.do(t, http.MethodGet, "/api/pools/Bank/transactions", nil))
	require.Len(t, txs, 3)
	assert.Equal(t, 1000.0, txs[0].Debit)
	assert.Equal(t, "2024-01", txs[1].Step)
	assert.Equal(t, "2024-02", txs[2].Step)
	assert.Equal(t, "Feed bill", txs[2].Activity)
	assert.Equal(t, "finance_expense", txs[2].ActivityType)

	recent := decode[[]TransactionDTO](t, s.do(t, http.MethodGet, "/api/transactions?limit=1", nil))
	require.Len(t, recent, 1)
	assert.Equal(t, "2024-02", recent[0].Step)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/transactions?limit=abc", nil).Code)
}

// =============================================================================
// STEPS
// =============================================================================

func TestAPI_StepValidation(t *testing.T) {
	s := newTestServer(t)
	s.load(t, "overdraft")

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/steps", StepRequest{Steps: -1}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/steps", StepRequest{Steps: maxStepsPerRequest + 1}).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/steps", strings.NewReader("{oops"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_StopPolicyFailsRun(t *testing.T) {
	// GIVEN a 200 repayment that must stop the run, against 500
	s := newTestServer(t)
	s.load(t, "stop-on-shortfall")

	// WHEN three steps are requested
	rec := s.do(t, http.MethodPost, "/api/steps", StepRequest{Steps: 3})

	// THEN the third step stops the run
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errResp := decode[ErrorResponse](t, rec)
	assert.Contains(t, errResp.Details, "insufficient resources for Loan repayment")

	bank := decode[PoolDTO](t, s.do(t, http.MethodGet, "/api/pools/Bank", nil))
	assert.Equal(t, 100.0, bank.Balance)

	// AND the run is recorded as failed
	runs := decode[[]RunDTO](t, s.do(t, http.MethodGet, "/api/runs?status=failed", nil))
	require.Len(t, runs, 1)
	assert.Equal(t, "stop-on-shortfall", runs[0].Scenario)
	assert.Equal(t, 2, runs[0].Steps)
	assert.NotEmpty(t, runs[0].Error)

	// AND later steps keep failing
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodPost, "/api/steps", nil).Code)

	state := decode[map[string]any](t, s.do(t, http.MethodGet, "/api/state", nil))
	assert.NotEmpty(t, state["error"])
}

func TestAPI_CompleteRun(t *testing.T) {
	s := newTestServer(t)
	s.load(t, "overdraft")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/steps", nil).Code)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/complete", nil).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/steps", nil).Code)

	runs := decode[[]RunDTO](t, s.do(t, http.MethodGet, "/api/runs?status=completed", nil))
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Steps)
	assert.NotNil(t, runs[0].CompletedAt)

	saved, ok, err := s.handler.Store.LoadBalance(context.Background(), "Bank")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "-500.00", saved.StringFixed(2))
}

// =============================================================================
// CUSTOM FARMS
// =============================================================================

func TestAPI_LoadCustomFarm(t *testing.T) {
	s := newTestServer(t)

	farm := factory.FarmSpec{
		Name:     "Smallholding",
		Start:    "2025-07",
		Accounts: []factory.AccountSpec{{Name: "Cash", OpeningBalance: 50, EnforceWithdrawalLimit: true}},
		Incomes:  []factory.IncomeSpec{{Name: "Eggs", Account: "Cash", Amount: 12.346}},
	}
	rec := s.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{Farm: &farm})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	current := decode[ScenarioDTO](t, s.do(t, http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "Smallholding", current.ID)
	assert.Equal(t, "custom", current.Category)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/steps", nil).Code)
	cash := decode[PoolDTO](t, s.do(t, http.MethodGet, "/api/pools/Cash", nil))
	assert.Equal(t, 62.35, cash.Balance)
	assert.Equal(t, "Opening balance of 50.00 that cannot go below zero", cash.Description)
}

func TestAPI_LoadInvalidFarm(t *testing.T) {
	s := newTestServer(t)

	farm := factory.FarmSpec{
		Name:    "Broken",
		Start:   "2025-07",
		Grazing: &factory.GrazingSpec{HoursGrazed: 9},
	}
	rec := s.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{Farm: &farm})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "drought"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	state := decode[map[string]any](t, s.do(t, http.MethodGet, "/api/state", nil))
	assert.Equal(t, false, state["loaded"])
}

func TestAPI_DiagnosticsForEmptyGrazing(t *testing.T) {
	s := newTestServer(t)

	farm := factory.FarmSpec{Name: "Bare", Start: "2025-07", Grazing: &factory.GrazingSpec{}}
	rec := s.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{Farm: &farm})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	diags := decode[[]DiagnosticDTO](t, s.do(t, http.MethodGet, "/api/diagnostics", nil))
	require.NotEmpty(t, diags)
	assert.Equal(t, "warning", diags[0].Severity)
	assert.Equal(t, "GrazeAll", diags[0].Source)

	rec = s.do(t, http.MethodPost, "/api/steps", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[StepResponse](t, rec)
	assert.Equal(t, "no_task", resp.Ticks[0].Reports[0].Status)
}

func TestAPI_Reset(t *testing.T) {
	s := newTestServer(t)
	s.load(t, "overdraft")

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/scenarios/reset", nil).Code)

	state := decode[map[string]any](t, s.do(t, http.MethodGet, "/api/state", nil))
	assert.Equal(t, false, state["loaded"])
	txs := decode[[]TransactionDTO](t, s.do(t, http.MethodGet, "/api/transactions", nil))
	assert.Empty(t, txs)
}
