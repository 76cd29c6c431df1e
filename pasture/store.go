// Package pasture provides the forage stores that grazing draws on.
package pasture

import (
	"github.com/warp/farm-engine/generic"
)

// ReasonGrowth is recorded on the monthly growth deposit.
const ReasonGrowth = "Pasture growth"

// Store holds standing dry matter in kg. Paddocks use CategoryPasture and
// shared grazing uses CategoryCommonLand.
type Store struct {
	*generic.QuantityPool

	Area           float64
	InitialBiomass float64

	// GrowthPerStep is added at the start of every step, kg.
	GrowthPerStep float64
}

func NewStore(name string, category generic.Category) *Store {
	return &Store{QuantityPool: generic.NewQuantityPool(name, category, generic.UnitKilograms)}
}

// IsCommonLand reports whether the store is shared grazing.
func (s *Store) IsCommonLand() bool {
	return s.Category() == generic.CategoryCommonLand
}

// InitialiseResource seeds the initial biomass.
func (s *Store) InitialiseResource() error {
	s.Set(0)
	return s.Add(s.InitialBiomass, s, "Initial biomass")
}

// StartStep adds the step's growth.
func (s *Store) StartStep(generic.TimePoint) error {
	return s.Add(s.GrowthPerStep, s, ReasonGrowth)
}

var (
	_ generic.Pool                = (*Store)(nil)
	_ generic.StepStarter         = (*Store)(nil)
	_ generic.ResourceInitialiser = (*Store)(nil)
)
