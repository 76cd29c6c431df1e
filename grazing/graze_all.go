/*
graze_all.go - Runtime construction of the grazing activity tree

PURPOSE:
  GrazeAll is the root of "graze every herd on every pasture". The tree
  under it cannot be configured by hand because it depends on which
  pastures and herd types exist, so it is built once when the
  initialise-activities signal arrives:

    GrazeAll
    ├── Graze_<pasture A>
    │   ├── Graze_<pasture A>_<herd 1>
    │   └── Graze_<pasture A>_<herd 2>
    └── Graze_<pasture B>
        ├── Graze_<pasture B>_<herd 1>
        └── Graze_<pasture B>_<herd 2>

  Pastures come from the resource registry and herds from the herd
  catalog, both in catalog order, so names and allocation priority are
  identical across reruns.

WIRING:
  Every herd node's shortfall and performed feeds bubble to its pasture
  node, and every pasture node's bubble to the root. Each Bubble call
  returns owned handles that GrazeAll keeps in one Subscriptions group.

TEARDOWN:
  Completed releases every handle in reverse order of creation and drops
  the node lists. It is safe to call more than once and after a build
  that stopped half way.

COMMON LAND:
  Pastures in the common land category are only included when
  IncludeCommonLand is set.

SEE ALSO:
  - graze_pasture.go, graze_pasture_herd.go: The synthesized nodes
  - activity/node.go: Bubble and Inherit
*/
package grazing

import (
	"fmt"
	"log"

	"github.com/warp/farm-engine/activity"
	"github.com/warp/farm-engine/generic"
	"github.com/warp/farm-engine/herd"
	"github.com/warp/farm-engine/labour"
)

const (
	KindGrazeAll         = "graze_all"
	KindGrazePasture     = "graze_pasture"
	KindGrazePastureHerd = "graze_pasture_herd"

	ReasonGrazing = "Grazing"

	// MaxHoursGrazedPerDay is the grazing time at which an animal reaches
	// its potential intake.
	MaxHoursGrazedPerDay = 8.0
)

const (
	defaultDaysInStep    = 30
	noForageStoreMessage = "No GrazeFoodStore is available for the ruminant grazing activity!"
	noHerdTypesMessage   = "No ruminant herd types are available for the ruminant grazing activity!"
)

// Catalog is the herd data the builder needs: the herd types to create
// nodes for and the population accessor they share.
type Catalog interface {
	herd.Accessor
	Types() []herd.HerdType
}

// =============================================================================
// GRAZE ALL
// =============================================================================

type GrazeAll struct {
	activity.Node

	// HoursGrazed per day, 0 < h <= 8. Copied to every node.
	HoursGrazed float64

	IncludeCommonLand bool

	Herd Catalog

	// HerdLabour is given to every pasture-herd node, PastureLabour to
	// every pasture node.
	HerdLabour    []labour.Requirement
	PastureLabour []labour.Requirement

	pastures    []*GrazePasture
	subs        generic.Subscriptions
	initialised bool
}

func NewGrazeAll(name string, catalog Catalog) *GrazeAll {
	g := &GrazeAll{Herd: catalog, HoursGrazed: MaxHoursGrazedPerDay}
	g.Init(name, KindGrazeAll)
	return g
}

func (g *GrazeAll) Base() *activity.Node { return &g.Node }

// Validate checks the settings that are copied into the tree.
func (g *GrazeAll) Validate() error {
	if err := validateHours(g.HoursGrazed, g.Name()); err != nil {
		return err
	}
	for _, r := range append(append([]labour.Requirement{}, g.HerdLabour...), g.PastureLabour...) {
		if r.Activity == "" {
			r.Activity = g.Name()
		}
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func validateHours(hours float64, activityName string) error {
	if hours <= 0 || hours > MaxHoursGrazedPerDay {
		return &generic.ConfigurationError{
			Requirement: "hours grazed",
			Activity:    activityName,
			Field:       "hours grazed per day",
			Value:       fmt.Sprintf("%g", hours),
		}
	}
	return nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// InitialiseActivities builds the pasture and pasture-herd nodes. It runs
// once; a second call returns ErrAlreadyInitialised. A missing pasture
// catalog is a warning and leaves the root with nothing to do.
func (g *GrazeAll) InitialiseActivities() error {
	if g.initialised {
		return fmt.Errorf("%s: %w", g.Name(), generic.ErrAlreadyInitialised)
	}
	g.initialised = true

	if err := g.Validate(); err != nil {
		return err
	}

	stores := g.forageStores()
	if len(stores) == 0 {
		g.warn(noForageStoreMessage)
		return nil
	}

	var herdTypes []herd.HerdType
	if g.Herd != nil {
		herdTypes = g.Herd.Types()
	}
	if len(herdTypes) == 0 {
		g.warn(noHerdTypesMessage)
	}

	for _, store := range stores {
		p := NewGrazePasture("Graze_"+store.Name(), store.Name())
		g.adopt(p)

		for _, ht := range herdTypes {
			h := NewGrazePastureHerd(p.Name()+"_"+ht.Name, store.Name(), ht)
			p.adopt(h)
			g.subs.Add(activity.Bubble(h, p)...)
		}
		g.subs.Add(activity.Bubble(p, g)...)
	}
	return nil
}

// adopt appends a pasture node and copies shared settings into it.
func (g *GrazeAll) adopt(p *GrazePasture) {
	p.Inherit(&g.Node)
	if p.HoursGrazed == 0 {
		p.HoursGrazed = g.HoursGrazed
	}
	if p.Herd == nil {
		p.Herd = g.Herd
	}
	p.Labour = ownedRequirements(g.PastureLabour, p.Name())
	p.herdLabour = g.HerdLabour
	g.AddChild(g, p)
	g.pastures = append(g.pastures, p)
}

// Completed releases every wired handler in reverse order and drops the
// synthesized nodes.
func (g *GrazeAll) Completed() {
	g.subs.ReleaseAll()
	for _, p := range g.pastures {
		p.ClearChildren()
	}
	g.ClearChildren()
	g.pastures = nil
}

// Pastures returns the synthesized pasture nodes in catalog order.
func (g *GrazeAll) Pastures() []*GrazePasture {
	result := make([]*GrazePasture, len(g.pastures))
	copy(result, g.pastures)
	return result
}

// Wired returns the number of live subscriptions the builder owns.
func (g *GrazeAll) Wired() int {
	return g.subs.Len()
}

// =============================================================================
// ACTIVITY
// =============================================================================

func (g *GrazeAll) GetResourceRequests() ([]*generic.ResourceRequest, error) { return nil, nil }

func (g *GrazeAll) Adjust([]*generic.ResourceRequest) {}

func (g *GrazeAll) Perform() error {
	g.MarkNoTask()
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (g *GrazeAll) forageStores() []generic.Pool {
	if g.Resources == nil {
		return nil
	}
	categories := []generic.Category{generic.CategoryPasture}
	if g.IncludeCommonLand {
		categories = append(categories, generic.CategoryCommonLand)
	}
	return g.Resources.ListByCategory(categories...)
}

func (g *GrazeAll) warn(message string) {
	if g.Summary == nil {
		log.Printf("[Grazing] WARNING %s: %s", g.Name(), message)
		return
	}
	g.Summary.Warning(g, message)
}

// ownedRequirements copies reqs and stamps the owning activity name.
func ownedRequirements(reqs []labour.Requirement, owner string) []labour.Requirement {
	if len(reqs) == 0 {
		return nil
	}
	result := make([]labour.Requirement, len(reqs))
	for i, r := range reqs {
		r.Activity = owner
		result[i] = r
	}
	return result
}

var (
	_ activity.Activity    = (*GrazeAll)(nil)
	_ activity.Initialiser = (*GrazeAll)(nil)
	_ activity.Completer   = (*GrazeAll)(nil)
)
