package labour

import (
	"math"

	"github.com/warp/farm-engine/generic"
)

// Pool holds the labour days a workforce can give in one step. Unused days
// do not carry over.
type Pool struct {
	*generic.QuantityPool

	Workers     int
	DaysPerStep float64
}

func NewPool(name string, workers int, daysPerStep float64) *Pool {
	return &Pool{
		QuantityPool: generic.NewQuantityPool(name, generic.CategoryLabour, generic.UnitDays),
		Workers:      workers,
		DaysPerStep:  daysPerStep,
	}
}

// Capacity is the number of days available at the start of every step.
func (p *Pool) Capacity() float64 {
	return math.Max(0, float64(p.Workers)*p.DaysPerStep)
}

func (p *Pool) InitialiseResource() error {
	p.Set(p.Capacity())
	return nil
}

// StartStep resets the pool to full capacity.
func (p *Pool) StartStep(generic.TimePoint) error {
	p.Set(p.Capacity())
	return nil
}

var (
	_ generic.Pool                = (*Pool)(nil)
	_ generic.StepStarter         = (*Pool)(nil)
	_ generic.ResourceInitialiser = (*Pool)(nil)
)
