/*
stepper.go - Timed simulation stepping

PURPOSE:
  Advances the loaded simulation by one step on a fixed interval, so a
  demo farm runs without clients posting to /api/steps.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Skips ticks while no scenario is loaded
  - Stops stepping a run once it is completed or has failed; loading a
    new scenario resumes stepping
  - Steps go through Handler.Advance, so the run record stays current

CONFIGURATION:
  - Interval: Time between steps (default: 5 seconds)
  - Enabled:  Whether the stepper is active (default: true)

USAGE:
  stepper := NewAutoStepper(handler)
  stepper.Start()
  // ... later
  stepper.Stop()

SEE ALSO:
  - handlers.go: Step endpoint (manual stepping)
  - simulation/simulation.go: What one step does
*/
package api

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warp/farm-engine/simulation"
)

// AutoStepper advances the current simulation on a timer.
type AutoStepper struct {
	Handler  *Handler
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	stepped atomic.Int64
}

// NewAutoStepper creates a new stepper.
func NewAutoStepper(handler *Handler) *AutoStepper {
	return &AutoStepper{
		Handler:  handler,
		Interval: 5 * time.Second,
		Enabled:  true,
	}
}

// Start begins stepping.
func (as *AutoStepper) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled {
		log.Println("[Stepper] Disabled, not starting")
		return
	}
	if as.ticker != nil {
		return
	}

	as.ticker = time.NewTicker(as.Interval)
	as.stop = make(chan struct{})
	as.wg.Add(1)

	go as.run(as.ticker, as.stop)

	log.Printf("[Stepper] Started with interval: %v", as.Interval)
}

// Stop stops stepping and waits for an in-flight step to finish.
func (as *AutoStepper) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker == nil {
		return
	}
	as.ticker.Stop()
	close(as.stop)
	as.wg.Wait()
	as.ticker = nil
	log.Printf("[Stepper] Stopped after %d steps", as.stepped.Load())
}

func (as *AutoStepper) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer as.wg.Done()

	for {
		select {
		case <-ticker.C:
			as.StepNow()
		case <-stop:
			return
		}
	}
}

// StepNow runs one step immediately. It reports whether a step ran.
func (as *AutoStepper) StepNow() bool {
	sim := as.Handler.current()
	if sim == nil || sim.Completed() || sim.Err() != nil {
		return false
	}

	results, err := as.Handler.Advance(context.Background(), 1)
	switch {
	case errors.Is(err, ErrNoScenario), errors.Is(err, simulation.ErrCompleted):
		return false
	case err != nil:
		log.Printf("[Stepper] Run stopped: %v", err)
		return false
	}

	as.stepped.Add(1)

	for _, res := range results {
		if short := res.Shortfalls(); len(short) > 0 {
			log.Printf("[Stepper] %s: %d activities short of resources", res.Step, len(short))
		}
	}
	return true
}

// Stepped returns the number of steps this stepper has run.
func (as *AutoStepper) Stepped() int {
	return int(as.stepped.Load())
}
