/*
simulation.go - Run driver for one farm model

PURPOSE:
  Owns everything one simulation run needs (clock, pools, activity roots,
  scheduler, journal) and delivers the lifecycle signals in order:

    Initialise   pools seed opening balances, activities build their trees
    Step (xN)    pools start the step, the scheduler ticks every root,
                 the journal is flushed, the clock advances
    Complete     activities tear their trees down, balances are saved

FATAL ERRORS:
  A configuration error, a resource kind error or an insufficient
  resources stop from the scheduler ends the run. The error is kept and
  every later Step returns it; there is no partial continuation.

I/O:
  Ticks never touch storage. The journal buffers pool transactions during
  the tick and is flushed between ticks.

CONCURRENCY:
  The API and the auto stepper may call into the same simulation from
  different goroutines. Every public method takes the simulation lock, so
  ticks never overlap.

SEE ALSO:
  - activity/scheduler.go: What one tick does
  - factory/farm.go: Builds a Simulation from a FarmSpec
*/
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/warp/farm-engine/activity"
	"github.com/warp/farm-engine/generic"
)

var (
	ErrNotInitialised = errors.New("simulation not initialised")
	ErrCompleted      = errors.New("simulation already completed")
)

// =============================================================================
// SIMULATION
// =============================================================================

type Simulation struct {
	Name       string
	Clock      *generic.MonthlyClock
	Resources  *generic.Registry
	Activities []activity.Activity
	Scheduler  *activity.Scheduler
	Journal    *generic.Journal
	Summary    generic.Summary

	// RestoreBalances sets pools to their saved amounts after the opening
	// balances are deposited.
	RestoreBalances bool

	mu          sync.Mutex
	initialised bool
	completed   bool
	failed      error
	history     []activity.TickResult
}

// New creates a simulation starting at start. The scheduler shares the
// simulation's registry, clock and summary.
func New(name string, start generic.TimePoint, reg *generic.Registry, journal *generic.Journal, summary generic.Summary) *Simulation {
	clock := generic.NewMonthlyClock(start)
	if summary == nil {
		summary = generic.LogSummary{}
	}
	if journal != nil && journal.Clock == nil {
		journal.Clock = clock
	}
	return &Simulation{
		Name:      name,
		Clock:     clock,
		Resources: reg,
		Journal:   journal,
		Summary:   summary,
		Scheduler: &activity.Scheduler{Resources: reg, Clock: clock, Summary: summary},
	}
}

// AddActivity appends a root and gives it the simulation's shared
// references where it has none of its own.
func (s *Simulation) AddActivity(a activity.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := a.Base()
	if n.Clock == nil {
		n.Clock = s.Clock
	}
	if n.Resources == nil {
		n.Resources = s.Resources
	}
	if n.Summary == nil {
		n.Summary = s.Summary
	}
	s.Activities = append(s.Activities, a)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Initialise seeds every pool and builds every dynamic activity tree.
func (s *Simulation) Initialise(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialised {
		return fmt.Errorf("%s: %w", s.Name, generic.ErrAlreadyInitialised)
	}
	s.initialised = true

	if s.Journal != nil {
		s.Journal.Attach(s.Resources)
	}
	if err := s.Resources.InitialiseResources(); err != nil {
		return s.fail(err)
	}
	if s.Journal != nil && s.RestoreBalances {
		n, err := s.Journal.Restore(ctx, s.Resources)
		if err != nil {
			return s.fail(err)
		}
		log.Printf("[Simulation] %s: restored %d pool balances", s.Name, n)
	}

	for _, root := range s.Activities {
		var initErr error
		activity.Walk(root, func(a activity.Activity) {
			if initErr != nil {
				return
			}
			if init, ok := a.(activity.Initialiser); ok {
				initErr = init.InitialiseActivities()
			}
		})
		if initErr != nil {
			return s.fail(initErr)
		}
	}

	log.Printf("[Simulation] %s: initialised %d pools and %d activity roots at %s",
		s.Name, len(s.Resources.List()), len(s.Activities), s.Clock.Today())
	return s.flush(ctx)
}

// Step runs one tick at the current clock step, then advances the clock.
func (s *Simulation) Step(ctx context.Context) (activity.TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step(ctx)
}

func (s *Simulation) step(ctx context.Context) (activity.TickResult, error) {
	switch {
	case s.failed != nil:
		return activity.TickResult{}, s.failed
	case !s.initialised:
		return activity.TickResult{}, ErrNotInitialised
	case s.completed:
		return activity.TickResult{}, ErrCompleted
	}
	if err := ctx.Err(); err != nil {
		return activity.TickResult{}, err
	}

	today := s.Clock.Today()
	if err := s.Resources.StartStep(today); err != nil {
		return activity.TickResult{}, s.fail(err)
	}

	result, err := s.Scheduler.Tick(s.Activities...)
	if err != nil {
		return result, s.fail(err)
	}
	s.history = append(s.history, result)

	if err := s.flush(ctx); err != nil {
		return result, err
	}
	log.Printf("[Simulation] %s: step %s ran %d activities, %d with shortfalls",
		s.Name, today, len(result.Reports), len(result.Shortfalls()))

	s.Clock.Advance()
	return result, nil
}

// Run performs steps ticks, stopping at the first error or when ctx is
// cancelled.
func (s *Simulation) Run(ctx context.Context, steps int) ([]activity.TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []activity.TickResult
	for i := 0; i < steps; i++ {
		result, err := s.step(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// Complete tears down dynamic activity trees, flushes the journal and
// saves every pool balance. Later calls do nothing.
func (s *Simulation) Complete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completed {
		return nil
	}
	s.completed = true

	for _, root := range s.Activities {
		var completers []activity.Completer
		activity.Walk(root, func(a activity.Activity) {
			if c, ok := a.(activity.Completer); ok {
				completers = append(completers, c)
			}
		})
		for _, c := range completers {
			c.Completed()
		}
	}

	if s.Journal == nil {
		return nil
	}
	defer s.Journal.Detach()
	if err := s.flush(ctx); err != nil {
		return err
	}
	if err := s.Journal.SaveBalances(ctx, s.Resources); err != nil {
		return err
	}
	log.Printf("[Simulation] %s: completed after %d steps", s.Name, s.Clock.Steps())
	return nil
}

// =============================================================================
// STATE
// =============================================================================

// Err returns the fatal error that ended the run, if any.
func (s *Simulation) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// Completed reports whether Complete has run.
func (s *Simulation) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// History returns the result of every tick so far.
func (s *Simulation) History() []activity.TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]activity.TickResult, len(s.history))
	copy(result, s.history)
	return result
}

// View runs fn under the simulation lock, for consistent reads of pools
// and activity status.
func (s *Simulation) View(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

func (s *Simulation) fail(err error) error {
	s.failed = fmt.Errorf("%s: %w", s.Name, err)
	log.Printf("[Simulation] %s: stopped: %v", s.Name, err)
	return s.failed
}

func (s *Simulation) flush(ctx context.Context) error {
	if s.Journal == nil {
		return nil
	}
	return s.Journal.Flush(ctx)
}
