package labour

import (
	"fmt"

	"github.com/warp/farm-engine/activity"
	"github.com/warp/farm-engine/generic"
)

const KindTask = "labour_task"

// Task is a standalone job (fencing, repairs) that needs a fixed number of
// labour days every step. It has no herd, so only Fixed requirements are
// accepted.
type Task struct {
	activity.Node

	Requirement Requirement

	// DaysWorked is the labour actually provided in the last step.
	DaysWorked float64
}

func NewTask(name string, req Requirement) *Task {
	req.Activity = name
	t := &Task{Requirement: req}
	t.Init(name, KindTask)
	return t
}

func (t *Task) Base() *activity.Node { return &t.Node }

// Validate rejects any unit type other than Fixed.
func (t *Task) Validate() error {
	if t.Requirement.UnitType != Fixed {
		return t.Requirement.configError("unit type", string(t.Requirement.UnitType),
			fmt.Errorf("%w: only %s is supported by a labour task", generic.ErrUnsupportedUnitType, Fixed))
	}
	return t.Requirement.Validate()
}

func (t *Task) GetResourceRequests() ([]*generic.ResourceRequest, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	req, err := t.Requirement.Request(t, 0, 0)
	if err != nil || req == nil {
		return nil, err
	}
	return []*generic.ResourceRequest{req}, nil
}

func (t *Task) Adjust(requests []*generic.ResourceRequest) {
	t.DaysWorked = 0
	for _, r := range requests {
		t.DaysWorked += r.Provided
	}
}

func (t *Task) Perform() error {
	if t.DaysWorked == 0 {
		t.MarkNoTask()
	}
	return nil
}

var _ activity.Activity = (*Task)(nil)
