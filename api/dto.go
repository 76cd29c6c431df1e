/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Pools:       PoolDTO, TransactionDTO
  Activities:  ActivityDTO
  Steps:       StepRequest, TickDTO, ReportDTO, ShortfallDTO
  Runs:        RunDTO
  Scenarios:   ScenarioDTO, LoadScenarioRequest

AMOUNTS:
  Money and quantities are sent as plain numbers. A pool without a withdrawal limit has no "available" field and sets
  "unlimited" instead, since JSON has no infinity.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/farm.go: FarmSpec, accepted as a custom scenario
*/
package api

import (
	"math"
	"time"

	"github.com/warp/farm-engine/activity"
	"github.com/warp/farm-engine/factory"
	"github.com/warp/farm-engine/generic"
	"github.com/warp/farm-engine/store/sqlite"
)

// =============================================================================
// POOLS
// =============================================================================

// PoolDTO represents a resource pool in API responses.
type PoolDTO struct {
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	Unit            string          `json:"unit"`
	Balance         float64         `json:"balance"`
	Available       *float64        `json:"available,omitempty"`
	Unlimited       bool            `json:"unlimited,omitempty"`
	Description     string          `json:"description,omitempty"`
	LastTransaction *TransactionDTO `json:"last_transaction,omitempty"`
}

// TransactionDTO represents one journal entry.
type TransactionDTO struct {
	ID           string    `json:"id"`
	Pool         string    `json:"pool"`
	Unit         string    `json:"unit"`
	Debit        float64   `json:"debit"`
	Credit       float64   `json:"credit"`
	Delta        float64   `json:"delta"`
	Activity     string    `json:"activity,omitempty"`
	ActivityType string    `json:"activity_type,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Step         string    `json:"step,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// describer is implemented by pools that can explain their settings.
type describer interface {
	Describe() string
}

func toPoolDTO(p generic.Pool) PoolDTO {
	dto := PoolDTO{
		Name:     p.Name(),
		Category: string(p.Category()),
		Unit:     string(p.Unit()),
		Balance:  p.Balance(),
	}
	if avail := p.Available(); math.IsInf(avail, 1) {
		dto.Unlimited = true
	} else {
		dto.Available = &avail
	}
	if d, ok := p.(describer); ok {
		dto.Description = d.Describe()
	}
	if tx := p.LastTransaction(); tx != nil {
		txDTO := toTransactionDTO(*tx)
		dto.LastTransaction = &txDTO
	}
	return dto
}

func toTransactionDTO(tx generic.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:           string(tx.ID),
		Pool:         tx.ResourceType,
		Unit:         string(tx.Unit),
		Debit:        tx.Debit.InexactFloat64(),
		Credit:       tx.Credit.InexactFloat64(),
		Delta:        tx.Delta().InexactFloat64(),
		Activity:     tx.Activity,
		ActivityType: tx.ActivityType,
		Reason:       tx.Reason,
		CreatedAt:    tx.CreatedAt,
	}
	if !tx.Step.IsZero() {
		dto.Step = tx.Step.String()
	}
	return dto
}

func toTransactionDTOs(txs []generic.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

// =============================================================================
// ACTIVITIES
// =============================================================================

// ActivityDTO represents a node of the activity tree.
type ActivityDTO struct {
	Name          string        `json:"name"`
	Kind          string        `json:"kind"`
	Path          string        `json:"path"`
	Status        string        `json:"status"`
	PartialPolicy string        `json:"partial_policy"`
	Children      []ActivityDTO `json:"children,omitempty"`
}

func toActivityDTO(a activity.Activity) ActivityDTO {
	n := a.Base()
	dto := ActivityDTO{
		Name:          n.Name(),
		Kind:          n.Kind(),
		Path:          n.Path(),
		Status:        n.Status().String(),
		PartialPolicy: string(n.PartialPolicy.Effective()),
	}
	for _, child := range n.Children() {
		dto.Children = append(dto.Children, toActivityDTO(child))
	}
	return dto
}

// =============================================================================
// STEPS
// =============================================================================

// StepRequest asks for one or more steps. Steps defaults to 1.
type StepRequest struct {
	Steps int `json:"steps"`
}

// StepResponse reports the ticks that ran and where the clock stands.
type StepResponse struct {
	Ticks []TickDTO `json:"ticks"`
	Today string    `json:"today"`
	Steps int       `json:"steps"`
}

// TickDTO summarises one step.
type TickDTO struct {
	Step    string      `json:"step"`
	Reports []ReportDTO `json:"reports"`
}

// ReportDTO is the outcome of one activity in a step.
type ReportDTO struct {
	Activity   string         `json:"activity"`
	Status     string         `json:"status"`
	Shortfalls []ShortfallDTO `json:"shortfalls,omitempty"`
}

// ShortfallDTO is one request that was not fully met.
type ShortfallDTO struct {
	Pool      string  `json:"pool"`
	Required  float64 `json:"required"`
	Provided  float64 `json:"provided"`
	Shortfall float64 `json:"shortfall"`
}

func toTickDTO(r activity.TickResult) TickDTO {
	dto := TickDTO{Step: r.Step.String(), Reports: make([]ReportDTO, 0, len(r.Reports))}
	for _, rep := range r.Reports {
		rd := ReportDTO{Activity: rep.Name, Status: rep.Status.String()}
		for _, f := range rep.Shortfalls {
			rd.Shortfalls = append(rd.Shortfalls, ShortfallDTO{
				Pool:      f.ResourceType,
				Required:  f.Required,
				Provided:  f.Provided,
				Shortfall: f.Shortfall(),
			})
		}
		dto.Reports = append(dto.Reports, rd)
	}
	return dto
}

// =============================================================================
// RUNS AND DIAGNOSTICS
// =============================================================================

// RunDTO represents a recorded simulation run.
type RunDTO struct {
	ID          string     `json:"id"`
	Scenario    string     `json:"scenario"`
	StartStep   string     `json:"start_step"`
	Steps       int        `json:"steps"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func toRunDTO(r sqlite.Run) RunDTO {
	return RunDTO{
		ID:          r.ID,
		Scenario:    r.Scenario,
		StartStep:   r.StartStep,
		Steps:       r.Steps,
		Status:      r.Status,
		Error:       r.Error,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
}

// DiagnosticDTO is one warning or error written during the run.
type DiagnosticDTO struct {
	Severity string `json:"severity"`
	Source   string `json:"source"`
	Message  string `json:"message"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a preset farm.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest loads a preset by ID, or a custom farm when Farm is
// set.
type LoadScenarioRequest struct {
	ScenarioID string            `json:"scenario_id"`
	Farm       *factory.FarmSpec `json:"farm,omitempty"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
