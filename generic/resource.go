/*
resource.go - Resource pool registration and lookup

PURPOSE:
  Provides the registry through which activities find the pools they draw
  on, and through which the grazing tree builder enumerates the pasture
  catalog. One registry exists per simulation run.

HOW IT WORKS:
  1. The factory registers every pool in configuration order
  2. Activities look pools up by name when their requests are allocated
  3. Catalog enumeration by category returns pools in registration order

ORDERING:
  Registration order is the catalog order. The tree builder depends on it
  to give deterministic node names and allocation priority.

USAGE:
  reg := generic.NewRegistry()
  reg.Register(finance.NewAccount(...))
  pool, err := reg.Lookup("General account")
  pastures := reg.ListByCategory(generic.CategoryPasture)

SEE ALSO:
  - pool.go: Pool interface
  - grazing/graze_all.go: Pasture enumeration
*/
package generic

import (
	"fmt"
	"sync"
)

// =============================================================================
// RESOURCE REGISTRY
// =============================================================================

type Registry struct {
	mu    sync.RWMutex
	pools map[string]Pool
	order []Pool
}

func NewRegistry() *Registry {
	return &Registry{pools: make(map[string]Pool)}
}

// Register adds a pool. Names must be unique.
func (r *Registry) Register(p Pool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pools[p.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePool, p.Name())
	}
	r.pools[p.Name()] = p
	r.order = append(r.order, p)
	return nil
}

// Lookup finds a registered pool by name.
func (r *Registry) Lookup(name string) (Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, name)
	}
	return p, nil
}

// MustLookup finds a registered pool or panics.
// Use in tests or when you're certain the pool exists.
func (r *Registry) MustLookup(name string) Pool {
	p, err := r.Lookup(name)
	if err != nil {
		panic(err.Error())
	}
	return p
}

// List returns all pools in registration order.
func (r *Registry) List() []Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Pool, len(r.order))
	copy(result, r.order)
	return result
}

// ListByCategory returns the pools whose category is one of categories,
// in registration order.
func (r *Registry) ListByCategory(categories ...Category) []Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Pool
	for _, p := range r.order {
		for _, c := range categories {
			if p.Category() == c {
				result = append(result, p)
				break
			}
		}
	}
	return result
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// InitialiseResources runs every pool's one-time seeding in registration
// order. It stops at the first error.
func (r *Registry) InitialiseResources() error {
	for _, p := range r.List() {
		if init, ok := p.(ResourceInitialiser); ok {
			if err := init.InitialiseResource(); err != nil {
				return fmt.Errorf("initialise %s: %w", p.Name(), err)
			}
		}
	}
	return nil
}

// StartStep notifies every pool that a new step has begun.
func (r *Registry) StartStep(step TimePoint) error {
	for _, p := range r.List() {
		if s, ok := p.(StepStarter); ok {
			if err := s.StartStep(step); err != nil {
				return fmt.Errorf("start step %s for %s: %w", step, p.Name(), err)
			}
		}
	}
	return nil
}
