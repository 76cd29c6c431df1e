package grazing

import (
	"github.com/warp/farm-engine/activity"
	"github.com/warp/farm-engine/generic"
	"github.com/warp/farm-engine/herd"
	"github.com/warp/farm-engine/labour"
)

// GrazePastureHerd feeds one herd type from one pasture.
//
// Each step it asks the pasture for
//
//	potential intake (kg/day) x HoursGrazed / 8 x days in the step
//
// and the herd labour evaluated for the animals on the pasture. Whatever
// forage is provided is shared between the animals in proportion to their
// potential intake.
type GrazePastureHerd struct {
	activity.Node

	Pasture     string
	HerdType    herd.HerdType
	HoursGrazed float64
	Herd        herd.Accessor
	Labour      []labour.Requirement

	// Results of the last step.
	DaysLabourRequired float64
	ForageRequired     float64
	ForageProvided     float64

	population herd.Population
	days       int
}

// NewGrazePastureHerd creates the node for one herd type on one pasture.
// A herd type without a breed selects animals of the breed named after it.
func NewGrazePastureHerd(name, pasture string, ht herd.HerdType) *GrazePastureHerd {
	if ht.Breed == "" {
		ht.Breed = ht.Name
	}
	h := &GrazePastureHerd{Pasture: pasture, HerdType: ht}
	h.Init(name, KindGrazePastureHerd)
	return h
}

func (h *GrazePastureHerd) Base() *activity.Node { return &h.Node }

// HerdFilter selects this herd type on this pasture.
func (h *GrazePastureHerd) HerdFilter() herd.Filter {
	return herd.Filter{Pasture: h.Pasture, Breed: h.HerdType.Breed}
}

// ProvidedFraction is ForageProvided / ForageRequired, 1 when nothing was
// required.
func (h *GrazePastureHerd) ProvidedFraction() float64 {
	if h.ForageRequired <= 0 {
		return 1
	}
	return h.ForageProvided / h.ForageRequired
}

func (h *GrazePastureHerd) GetResourceRequests() ([]*generic.ResourceRequest, error) {
	h.DaysLabourRequired, h.ForageRequired, h.ForageProvided = 0, 0, 0
	h.population = nil

	if h.Herd == nil {
		return nil, nil
	}
	if err := validateHours(h.HoursGrazed, h.Name()); err != nil {
		return nil, err
	}
	h.population = herd.For(h.Herd, h, true)
	if h.population.Head() == 0 {
		return nil, nil
	}
	h.population.ResetIntake()

	h.days = h.daysInStep()
	h.ForageRequired = h.population.PotentialIntake() * h.HoursGrazed / MaxHoursGrazedPerDay * float64(h.days)

	var requests []*generic.ResourceRequest
	if h.ForageRequired > 0 {
		requests = append(requests, generic.NewResourceRequest(h.Pasture, h.ForageRequired, h, ReasonGrazing))
	}

	labourReqs, days, err := labourRequests(h, h.Labour, h.population)
	if err != nil {
		return nil, err
	}
	h.DaysLabourRequired = days
	return append(requests, labourReqs...), nil
}

func (h *GrazePastureHerd) Adjust(requests []*generic.ResourceRequest) {
	for _, r := range requests {
		if r.ResourceType == h.Pasture && r.Reason == ReasonGrazing {
			h.ForageProvided += r.Provided
		}
	}
}

func (h *GrazePastureHerd) Perform() error {
	if h.ForageProvided > 0 {
		h.population.Feed(h.ForageProvided, h.days)
	}
	if h.population.Head() == 0 {
		h.MarkNoTask()
	}
	return nil
}

func (h *GrazePastureHerd) daysInStep() int {
	if h.Clock == nil {
		return defaultDaysInStep
	}
	return h.Clock.Today().DaysInMonth()
}

var (
	_ activity.Activity = (*GrazePastureHerd)(nil)
	_ herd.Scope        = (*GrazePastureHerd)(nil)
)
