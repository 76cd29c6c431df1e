/*
handlers.go - HTTP API handlers for the farm simulation

PURPOSE:
  Exposes the allocation engine via REST API. Handles HTTP request and
  response, JSON serialization, and delegates to the loaded simulation.

ENDPOINTS:
  State:
    GET    /api/state                    Scenario, clock and run status

  Pools:
    GET    /api/pools                    All pools in catalog order
    GET    /api/pools/{name}             One pool with its last transaction
    GET    /api/pools/{name}/transactions Journal for one pool

  Activities:
    GET    /api/activities               Activity tree with last status

  Simulation:
    POST   /api/steps                    Run one or more steps
    POST   /api/complete                 Complete the run
    GET    /api/transactions             Most recent journal entries
    GET    /api/diagnostics              Warnings written during the run
    GET    /api/runs                     Recorded runs

  Scenarios:
    GET    /api/scenarios                List preset farms
    GET    /api/scenarios/current        Currently loaded farm
    POST   /api/scenarios/load           Load a preset or custom farm
    POST   /api/scenarios/reset          Complete the run and clear data

ARCHITECTURE:
  Handler holds one simulation at a time together with its run record.
  The simulation serializes its own ticks; the handler lock only guards
  which simulation is current.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input or farm configuration
  - 404: Pool not found
  - 409: No farm loaded, or the run is already completed
  - 422: The run stopped on a fatal error
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Preset farms
  - stepper.go: Steps the simulation on a timer
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/farm-engine/activity"
	"github.com/warp/farm-engine/factory"
	"github.com/warp/farm-engine/generic"
	"github.com/warp/farm-engine/simulation"
	"github.com/warp/farm-engine/store/sqlite"
)

// ErrNoScenario is returned when a request needs a loaded farm.
var ErrNoScenario = errors.New("no scenario loaded")

// Run status values.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// maxStepsPerRequest bounds POST /api/steps.
const maxStepsPerRequest = 120

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Factory *factory.FarmFactory

	mu              sync.RWMutex
	sim             *simulation.Simulation
	summary         *generic.RecordingSummary
	currentScenario string
	run             sqlite.Run
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:   store,
		Factory: factory.NewFarmFactory(),
	}
}

// Load completes the current run, resets the database and starts spec as a
// new run.
func (h *Handler) Load(ctx context.Context, id string, spec factory.FarmSpec) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.completeLocked(ctx); err != nil {
		return err
	}
	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	h.sim, h.summary, h.currentScenario = nil, nil, ""

	summary := &generic.RecordingSummary{Next: generic.LogSummary{}}
	sim, err := h.Factory.Build(spec, h.Store, summary)
	if err != nil {
		return err
	}
	if err := sim.Initialise(ctx); err != nil {
		return err
	}

	h.sim, h.summary, h.currentScenario = sim, summary, id
	h.run = sqlite.Run{
		ID:        "run-" + uuid.NewString(),
		Scenario:  id,
		StartStep: sim.Clock.Today().String(),
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveRun(ctx, h.run); err != nil {
		return err
	}
	log.Printf("[API] Loaded scenario %s as %s", id, h.run.ID)
	return nil
}

// Advance runs steps ticks of the current simulation and records the run's
// progress. A fatal error marks the run failed.
func (h *Handler) Advance(ctx context.Context, steps int) ([]activity.TickResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sim == nil {
		return nil, ErrNoScenario
	}
	results, err := h.sim.Run(ctx, steps)

	h.run.Steps = h.sim.Clock.Steps()
	if err != nil && generic.IsFatal(err) && h.run.Status == RunRunning {
		h.run.Status = RunFailed
		h.run.Error = err.Error()
		now := time.Now().UTC()
		h.run.CompletedAt = &now
	}
	if saveErr := h.Store.SaveRun(ctx, h.run); saveErr != nil {
		log.Printf("[API] Failed to save run %s: %v", h.run.ID, saveErr)
	}
	return results, err
}

// Complete ends the current run.
func (h *Handler) Complete(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sim == nil {
		return ErrNoScenario
	}
	return h.completeLocked(ctx)
}

// Reset ends the current run and clears all data.
func (h *Handler) Reset(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.completeLocked(ctx); err != nil {
		return err
	}
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.sim, h.summary, h.currentScenario = nil, nil, ""
	return nil
}

func (h *Handler) completeLocked(ctx context.Context) error {
	if h.sim == nil || h.sim.Completed() {
		return nil
	}
	if err := h.sim.Complete(ctx); err != nil {
		return err
	}
	h.run.Steps = h.sim.Clock.Steps()
	if h.run.Status == RunRunning {
		h.run.Status = RunCompleted
		now := time.Now().UTC()
		h.run.CompletedAt = &now
	}
	return h.Store.SaveRun(ctx, h.run)
}

// current returns the loaded simulation, or nil.
func (h *Handler) current() *simulation.Simulation {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sim
}

// =============================================================================
// STATE HANDLERS
// =============================================================================

// GetState returns the scenario, clock and run status.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	sim, run, scenario := h.sim, h.run, h.currentScenario
	h.mu.RUnlock()

	if sim == nil {
		writeJSON(w, http.StatusOK, map[string]any{"loaded": false})
		return
	}

	state := map[string]any{
		"loaded":    true,
		"scenario":  scenario,
		"farm":      sim.Name,
		"run":       toRunDTO(run),
		"completed": sim.Completed(),
	}
	sim.View(func() {
		state["today"] = sim.Clock.Today().String()
		state["steps"] = sim.Clock.Steps()
	})
	if err := sim.Err(); err != nil {
		state["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, state)
}

// =============================================================================
// POOL HANDLERS
// =============================================================================

// ListPools returns every pool in catalog order.
func (h *Handler) ListPools(w http.ResponseWriter, r *http.Request) {
	sim := h.current()
	if sim == nil {
		writeError(w, http.StatusConflict, "No scenario loaded", ErrNoScenario)
		return
	}

	var dtos []PoolDTO
	sim.View(func() {
		pools := sim.Resources.List()
		dtos = make([]PoolDTO, len(pools))
		for i, p := range pools {
			dtos[i] = toPoolDTO(p)
		}
	})
	writeJSON(w, http.StatusOK, dtos)
}

// GetPool returns one pool.
func (h *Handler) GetPool(w http.ResponseWriter, r *http.Request) {
	sim := h.current()
	if sim == nil {
		writeError(w, http.StatusConflict, "No scenario loaded", ErrNoScenario)
		return
	}

	name := chi.URLParam(r, "name")
	var dto PoolDTO
	var err error
	sim.View(func() {
		var p generic.Pool
		if p, err = sim.Resources.Lookup(name); err == nil {
			dto = toPoolDTO(p)
		}
	})
	if err != nil {
		writeError(w, http.StatusNotFound, "Pool not found", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetPoolTransactions returns the journal for one pool, oldest first.
func (h *Handler) GetPoolTransactions(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	txs, err := h.Store.Load(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// ListTransactions returns the most recent journal entries across pools.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	txs, err := h.Store.LoadAll(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// =============================================================================
// ACTIVITY HANDLERS
// =============================================================================

// ListActivities returns the activity tree with each node's last status.
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	sim := h.current()
	if sim == nil {
		writeError(w, http.StatusConflict, "No scenario loaded", ErrNoScenario)
		return
	}

	var dtos []ActivityDTO
	sim.View(func() {
		dtos = make([]ActivityDTO, len(sim.Activities))
		for i, a := range sim.Activities {
			dtos[i] = toActivityDTO(a)
		}
	})
	writeJSON(w, http.StatusOK, dtos)
}

// ListDiagnostics returns the warnings written during the current run.
func (h *Handler) ListDiagnostics(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	summary := h.summary
	h.mu.RUnlock()

	dtos := []DiagnosticDTO{}
	if summary != nil {
		for _, d := range summary.Diagnostics() {
			dtos = append(dtos, DiagnosticDTO{Severity: string(d.Severity), Source: d.Source, Message: d.Message})
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SIMULATION HANDLERS
// =============================================================================

// Step runs one or more steps.
func (h *Handler) Step(w http.ResponseWriter, r *http.Request) {
	req := StepRequest{Steps: 1}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Steps == 0 {
		req.Steps = 1
	}
	if req.Steps < 0 || req.Steps > maxStepsPerRequest {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Steps must be between 1 and %d", maxStepsPerRequest), nil)
		return
	}

	results, err := h.Advance(r.Context(), req.Steps)
	if err != nil {
		writeError(w, statusFor(err), "Step failed", err)
		return
	}

	resp := StepResponse{Ticks: make([]TickDTO, len(results))}
	for i, res := range results {
		resp.Ticks[i] = toTickDTO(res)
	}
	if sim := h.current(); sim != nil {
		sim.View(func() {
			resp.Today = sim.Clock.Today().String()
			resp.Steps = sim.Clock.Steps()
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CompleteRun completes the current run.
func (h *Handler) CompleteRun(w http.ResponseWriter, r *http.Request) {
	if err := h.Complete(r.Context()); err != nil {
		writeError(w, statusFor(err), "Failed to complete run", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": RunCompleted})
}

// ListRuns returns recorded runs, optionally filtered by ?status=.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNoScenario),
		errors.Is(err, simulation.ErrCompleted),
		errors.Is(err, simulation.ErrNotInitialised):
		return http.StatusConflict
	case generic.IsConfigurationError(err):
		return http.StatusBadRequest
	case generic.IsFatal(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
