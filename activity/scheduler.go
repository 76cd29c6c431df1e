/*
scheduler.go - Per tick allocation and status state machine

PURPOSE:
  Tick walks the activity tree depth-first, parent before children, and
  runs every node through the same sequence:

    ┌──────────────┐   ┌──────────────┐   ┌──────────────┐   ┌─────────┐
    │ GetResource  │──▶│ Availability │──▶│ Pool.Remove  │──▶│ Adjust  │
    │ Requests     │   │ check        │   │ per request  │   │ Perform │
    └──────────────┘   └──────────────┘   └──────────────┘   └─────────┘
           │ empty            │ short + skip                      │
           ▼                  ▼                                   ▼
        NoTask             Ignored                     Shortfall, Performed

STATUS RULES:
  - No requests with demand:    NoTask (Perform may still settle it)
  - Every request met:          Success
  - Any request short:          Partial
  - Mandatory request starved:  Critical
  - Perform may upgrade NoTask but never downgrades Partial or Critical

PARTIAL POLICY:
  The availability check sums demand per pool before anything is
  removed. If any pool is short the node's policy decides:
    UseResourcesAvailable  allocate and clamp
    SkipActivity           take nothing, Adjust sees zero, status Ignored
    ReportErrorAndStop     return InsufficientResourcesError

CONCURRENCY:
  Tick is single threaded. Handlers run synchronously inside Tick and must
  not call Tick again; a re-entrant call returns ErrReentrantTick.

SEE ALSO:
  - node.go: Activity interface and feeds
  - generic/pool.go: Remove contract
*/
package activity

import (
	"errors"
	"fmt"
	"log"

	"github.com/warp/farm-engine/generic"
)

// ErrReentrantTick is returned when an event handler calls Tick.
var ErrReentrantTick = errors.New("tick already in progress")

// =============================================================================
// SCHEDULER
// =============================================================================

type Scheduler struct {
	// Resources is used for nodes that carry no registry of their own.
	Resources *generic.Registry

	// Clock stamps reports for nodes that carry no clock of their own.
	Clock generic.Clock

	// Summary receives warnings for nodes without their own summary.
	Summary generic.Summary

	ticking bool
}

// TickResult collects the performed report of every node in visit order.
type TickResult struct {
	Step    generic.TimePoint
	Reports []Report
}

// Shortfalls returns the reports that carried at least one shortfall.
func (r TickResult) Shortfalls() []Report {
	var result []Report
	for _, rep := range r.Reports {
		if len(rep.Shortfalls) > 0 {
			result = append(result, rep)
		}
	}
	return result
}

// Tick runs one step for every root and its descendants.
func (s *Scheduler) Tick(roots ...Activity) (TickResult, error) {
	if s.ticking {
		return TickResult{}, ErrReentrantTick
	}
	s.ticking = true
	defer func() { s.ticking = false }()

	var result TickResult
	if s.Clock != nil {
		result.Step = s.Clock.Today()
	}
	for _, root := range roots {
		if err := s.visit(root, &result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *Scheduler) visit(a Activity, result *TickResult) error {
	report, err := s.run(a)
	if err != nil {
		return err
	}
	result.Reports = append(result.Reports, report)

	for _, child := range a.Base().Children() {
		if err := s.visit(child, result); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// PER NODE STATE MACHINE
// =============================================================================

func (s *Scheduler) run(a Activity) (Report, error) {
	n := a.Base()
	report := Report{Activity: a, Name: a.Name(), Step: s.today(n)}

	requests, err := a.GetResourceRequests()
	if err != nil {
		return report, fmt.Errorf("get resource requests for %s: %w", a.Name(), err)
	}
	requests = withDemand(requests)

	status := NoTask
	var fulfilments []generic.Fulfilment

	if len(requests) > 0 {
		predicted := s.checkAvailability(n, a, requests)
		policy := n.PartialPolicy.Effective()

		switch {
		case len(predicted) > 0 && policy == ReportErrorAndStop:
			return report, &generic.InsufficientResourcesError{Activity: a.Name(), Shortfalls: predicted}

		case len(predicted) > 0 && policy == SkipActivity:
			for _, r := range requests {
				generic.Unfulfilled(r)
			}
			a.Adjust(requests)
			n.SetStatus(Ignored)
			report.Status = Ignored
			report.Shortfalls = predicted
			n.RaiseShortfall(report)
			n.RaisePerformed(report)
			return report, nil
		}

		status = Success
		for _, r := range requests {
			f := s.fulfil(n, r)
			fulfilments = append(fulfilments, f)
			if !f.Met() && status == Success {
				status = Partial
			}
			if r.Mandatory && f.Starved() {
				status = Critical
			}
		}
	}
	n.SetStatus(status)

	a.Adjust(requests)
	if err := a.Perform(); err != nil {
		return report, fmt.Errorf("perform %s: %w", a.Name(), err)
	}
	if n.Status().severity() < status.severity() && status.IsShortfall() {
		n.SetStatus(status)
	}

	report.Status = n.Status()
	for _, f := range fulfilments {
		if !f.Met() {
			report.Shortfalls = append(report.Shortfalls, f)
		}
	}
	if len(report.Shortfalls) > 0 {
		n.RaiseShortfall(report)
	}
	n.RaisePerformed(report)
	return report, nil
}

// checkAvailability sums demand per pool and returns one Fulfilment per
// pool that cannot cover it. Nothing is removed. A missing pool counts as
// empty and is reported as a warning.
func (s *Scheduler) checkAvailability(n *Node, a Activity, requests []*generic.ResourceRequest) []generic.Fulfilment {
	var order []string
	demand := make(map[string]float64)
	for _, r := range requests {
		if _, ok := demand[r.ResourceType]; !ok {
			order = append(order, r.ResourceType)
		}
		demand[r.ResourceType] += r.Required
	}

	var short []generic.Fulfilment
	for _, name := range order {
		available := 0.0
		if p, ok := s.lookup(n, a, name); ok {
			available = p.Available()
		}
		if available < 0 {
			available = 0
		}
		if demand[name] > available {
			short = append(short, generic.Fulfilment{ResourceType: name, Required: demand[name], Provided: available})
		}
	}
	return short
}

// fulfil removes one request from its pool. A missing pool provides
// nothing; checkAvailability has already warned about it.
func (s *Scheduler) fulfil(n *Node, r *generic.ResourceRequest) generic.Fulfilment {
	reg := s.registry(n)
	if reg == nil {
		return generic.Unfulfilled(r)
	}
	p, err := reg.Lookup(r.ResourceType)
	if err != nil {
		return generic.Unfulfilled(r)
	}
	return p.Remove(r)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Scheduler) registry(n *Node) *generic.Registry {
	if n.Resources != nil {
		return n.Resources
	}
	return s.Resources
}

func (s *Scheduler) lookup(n *Node, a Activity, name string) (generic.Pool, bool) {
	reg := s.registry(n)
	if reg == nil {
		s.warn(n, a, fmt.Sprintf("No resources are available for request %s", name))
		return nil, false
	}
	p, err := reg.Lookup(name)
	if err != nil {
		s.warn(n, a, fmt.Sprintf("No resource pool named %s is available", name))
		return nil, false
	}
	return p, true
}

func (s *Scheduler) today(n *Node) generic.TimePoint {
	if n.Clock != nil {
		return n.Clock.Today()
	}
	if s.Clock != nil {
		return s.Clock.Today()
	}
	return generic.TimePoint{}
}

func (s *Scheduler) warn(n *Node, a Activity, message string) {
	switch {
	case n.Summary != nil:
		n.Summary.Warning(a, message)
	case s.Summary != nil:
		s.Summary.Warning(a, message)
	default:
		log.Printf("[Scheduler] WARNING %s: %s", a.Name(), message)
	}
}

// withDemand drops nil and empty requests.
func withDemand(requests []*generic.ResourceRequest) []*generic.ResourceRequest {
	var result []*generic.ResourceRequest
	for _, r := range requests {
		if r != nil && !r.IsEmpty() {
			result = append(result, r)
		}
	}
	return result
}
