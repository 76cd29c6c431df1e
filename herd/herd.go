/*
herd.go - Ruminant herd catalog and population access

PURPOSE:
  Holds the individual animals of a farm and answers the question the
  grazing and labour code keeps asking: "which animals belong to this
  activity, how many head are they and how many adult equivalents?"

CATALOG:
  A Herd is a list of HerdTypes (breeds, in configuration order) and the
  individuals currently alive. The grazing tree builder creates one node
  per HerdType under every pasture, in catalog order.

FILTERING:
  An activity narrows the population through a Filter:
    Pasture  individuals located on this pasture ("" = anywhere)
    Breed    individuals of this herd type ("" = any)
    Where    extra predicate, only applied when the caller asks for the
             filtered view (includeFiltered = true)

SEE ALSO:
  - grazing/graze_pasture_herd.go: Main consumer
  - labour/requirement.go: Turns head and AE into labour days
*/
package herd

import (
	"fmt"
	"sync"
)

// =============================================================================
// INDIVIDUALS
// =============================================================================

// Ruminant is one animal.
type Ruminant struct {
	ID       string
	Breed    string
	Location string

	// AdultEquivalent is the animal's size relative to a standard adult.
	AdultEquivalent float64

	// PotentialIntake is the most forage the animal can eat, kg per day.
	PotentialIntake float64

	// Intake is the forage eaten in the current step, kg.
	Intake float64
}

// HerdType describes one breed in the catalog.
type HerdType struct {
	Name  string
	Breed string
}

// =============================================================================
// HERD
// =============================================================================

type Herd struct {
	mu          sync.RWMutex
	types       []HerdType
	individuals []*Ruminant
}

func NewHerd() *Herd {
	return &Herd{}
}

// AddType appends a herd type to the catalog. Names must be unique.
func (h *Herd) AddType(t HerdType) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, existing := range h.types {
		if existing.Name == t.Name {
			return fmt.Errorf("duplicate herd type %s", t.Name)
		}
	}
	if t.Breed == "" {
		t.Breed = t.Name
	}
	h.types = append(h.types, t)
	return nil
}

// Types returns the catalog in configuration order.
func (h *Herd) Types() []HerdType {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]HerdType, len(h.types))
	copy(result, h.types)
	return result
}

// Add places individuals in the herd.
func (h *Herd) Add(animals ...*Ruminant) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.individuals = append(h.individuals, animals...)
}

// CurrentHerd returns the individuals matching f. Where is only applied
// when includeFiltered is true.
func (h *Herd) CurrentHerd(f Filter, includeFiltered bool) Population {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var result Population
	for _, r := range h.individuals {
		if f.matches(r, includeFiltered) {
			result = append(result, r)
		}
	}
	return result
}

// Size returns the number of individuals in the herd.
func (h *Herd) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.individuals)
}

// =============================================================================
// FILTER AND ACCESSOR
// =============================================================================

type Filter struct {
	Pasture string
	Breed   string
	Where   func(*Ruminant) bool
}

func (f Filter) matches(r *Ruminant, includeFiltered bool) bool {
	if f.Pasture != "" && r.Location != f.Pasture {
		return false
	}
	if f.Breed != "" && r.Breed != f.Breed {
		return false
	}
	if includeFiltered && f.Where != nil && !f.Where(r) {
		return false
	}
	return true
}

// Scope is implemented by activities that select part of the herd.
type Scope interface {
	HerdFilter() Filter
}

// Accessor returns the population an activity works with.
type Accessor interface {
	CurrentHerd(f Filter, includeFiltered bool) Population
}

// For returns the population selected by an activity's scope.
func For(a Accessor, scope Scope, includeFiltered bool) Population {
	return a.CurrentHerd(scope.HerdFilter(), includeFiltered)
}

var _ Accessor = (*Herd)(nil)

// =============================================================================
// POPULATION
// =============================================================================

// Population is a selection of individuals.
type Population []*Ruminant

func (p Population) Head() int { return len(p) }

func (p Population) AdultEquivalents() float64 {
	total := 0.0
	for _, r := range p {
		total += r.AdultEquivalent
	}
	return total
}

// PotentialIntake returns the summed potential intake, kg per day.
func (p Population) PotentialIntake() float64 {
	total := 0.0
	for _, r := range p {
		total += r.PotentialIntake
	}
	return total
}

// Feed shares kg of forage between individuals in proportion to their
// potential intake for days days. An animal never eats more than its
// potential.
func (p Population) Feed(kg float64, days int) {
	potential := p.PotentialIntake() * float64(days)
	if potential <= 0 {
		return
	}
	fraction := kg / potential
	if fraction > 1 {
		fraction = 1
	}
	for _, r := range p {
		r.Intake += r.PotentialIntake * float64(days) * fraction
	}
}

// ResetIntake clears the step's intake for every individual.
func (p Population) ResetIntake() {
	for _, r := range p {
		r.Intake = 0
	}
}
