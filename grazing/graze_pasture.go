package grazing

import (
	"github.com/warp/farm-engine/activity"
	"github.com/warp/farm-engine/generic"
	"github.com/warp/farm-engine/herd"
	"github.com/warp/farm-engine/labour"
)

// GrazePasture groups the herd nodes grazing one pasture. It asks only for
// the pasture's own labour (fence checks, water points); forage is
// requested by the herd nodes below it.
type GrazePasture struct {
	activity.Node

	// Pasture is the registry name of the forage store.
	Pasture     string
	HoursGrazed float64
	Herd        herd.Accessor
	Labour      []labour.Requirement

	// DaysLabourRequired is the labour asked for in the last step.
	DaysLabourRequired float64

	herdLabour []labour.Requirement
}

func NewGrazePasture(name, pasture string) *GrazePasture {
	p := &GrazePasture{Pasture: pasture}
	p.Init(name, KindGrazePasture)
	return p
}

func (p *GrazePasture) Base() *activity.Node { return &p.Node }

// HerdFilter selects every individual on this pasture.
func (p *GrazePasture) HerdFilter() herd.Filter {
	return herd.Filter{Pasture: p.Pasture}
}

// adopt appends a herd node and copies shared settings into it.
func (p *GrazePasture) adopt(h *GrazePastureHerd) {
	h.Inherit(&p.Node)
	if h.HoursGrazed == 0 {
		h.HoursGrazed = p.HoursGrazed
	}
	if h.Herd == nil {
		h.Herd = p.Herd
	}
	h.Labour = ownedRequirements(p.herdLabour, h.Name())
	p.AddChild(p, h)
}

func (p *GrazePasture) GetResourceRequests() ([]*generic.ResourceRequest, error) {
	p.DaysLabourRequired = 0
	if len(p.Labour) == 0 || p.Herd == nil {
		return nil, nil
	}
	pop := herd.For(p.Herd, p, true)
	if pop.Head() == 0 {
		return nil, nil
	}
	reqs, days, err := labourRequests(p, p.Labour, pop)
	p.DaysLabourRequired = days
	return reqs, err
}

func (p *GrazePasture) Adjust([]*generic.ResourceRequest) {}

func (p *GrazePasture) Perform() error {
	if p.DaysLabourRequired == 0 {
		p.MarkNoTask()
	}
	return nil
}

// labourRequests evaluates every requirement against pop.
func labourRequests(owner generic.Model, reqs []labour.Requirement, pop herd.Population) ([]*generic.ResourceRequest, float64, error) {
	var result []*generic.ResourceRequest
	total := 0.0
	for _, r := range reqs {
		req, err := r.Request(owner, pop.Head(), pop.AdultEquivalents())
		if err != nil {
			return nil, 0, err
		}
		if req == nil {
			continue
		}
		total += req.Required
		result = append(result, req)
	}
	return result, total, nil
}

var (
	_ activity.Activity = (*GrazePasture)(nil)
	_ herd.Scope        = (*GrazePasture)(nil)
)
