/*
requirement.go - Labour requirement evaluator

PURPOSE:
  Converts a labour requirement and the current herd context into days of
  labour. The evaluation is a pure function: it reads no clock and no pool,
  and identical inputs always give identical outputs.

UNIT TYPES:
  ┌─────────────┬──────────────────────────────────────────────────────┐
  │ fixed       │ LabourPerUnit, herd inputs are not consulted         │
  │ perHead     │ head / UnitSize units, times LabourPerUnit           │
  │ perAE       │ adult equivalents / UnitSize units, times LabourPer. │
  └─────────────┴──────────────────────────────────────────────────────┘

  With WholeUnitBlocks the unit count is rounded up before multiplying:
    perHead, LabourPerUnit 2, UnitSize 10, head 25
      units = ceil(25 / 10) = 3, days = 6

ERRORS:
  Any other unit type is a ConfigurationError naming the requirement and
  the owning activity. Validate reports it when the model is built, so a
  run never starts with a requirement it cannot evaluate.

SEE ALSO:
  - task.go: Fixed-only labour task activity
  - grazing/graze_pasture_herd.go: Per-head grazing labour
*/
package labour

import (
	"fmt"
	"math"

	"github.com/warp/farm-engine/generic"
)

// ReasonLabour is recorded on labour removals.
const ReasonLabour = "Labour"

// =============================================================================
// UNIT TYPE
// =============================================================================

type UnitType string

const (
	Fixed              UnitType = "fixed"
	PerHead            UnitType = "perHead"
	PerAdultEquivalent UnitType = "perAE"
)

// UnitTypes lists the supported unit types in display order.
var UnitTypes = []UnitType{Fixed, PerHead, PerAdultEquivalent}

// =============================================================================
// REQUIREMENT
// =============================================================================

// Requirement specifies how much labour an activity needs each step.
type Requirement struct {
	Name     string
	Activity string

	UnitType        UnitType
	LabourPerUnit   float64
	UnitSize        float64
	WholeUnitBlocks bool

	// LabourPool is the registry name of the pool to draw from.
	LabourPool string
}

func (r Requirement) String() string {
	return fmt.Sprintf("%s (%s, %g days per unit)", r.Name, r.UnitType, r.LabourPerUnit)
}

// Validate reports configuration defects.
func (r Requirement) Validate() error {
	switch r.UnitType {
	case Fixed:
	case PerHead, PerAdultEquivalent:
		if r.UnitSize <= 0 || math.IsNaN(r.UnitSize) {
			return r.configError("unit size", fmt.Sprintf("%g", r.UnitSize), nil)
		}
	default:
		return r.configError("unit type", string(r.UnitType), generic.ErrUnsupportedUnitType)
	}
	if r.LabourPerUnit < 0 || math.IsNaN(r.LabourPerUnit) {
		return r.configError("labour per unit", fmt.Sprintf("%g", r.LabourPerUnit), nil)
	}
	return nil
}

func (r Requirement) configError(field, value string, err error) *generic.ConfigurationError {
	return &generic.ConfigurationError{
		Requirement: r.Name,
		Activity:    r.Activity,
		Field:       field,
		Value:       value,
		Err:         err,
	}
}

// DaysRequired returns the days of labour r needs for a herd of head
// individuals totalling adultEquivalents.
func DaysRequired(r Requirement, head int, adultEquivalents float64) (float64, error) {
	var units float64
	switch r.UnitType {
	case Fixed:
		return r.LabourPerUnit, nil
	case PerHead:
		units = float64(head)
	case PerAdultEquivalent:
		units = adultEquivalents
	default:
		return 0, r.configError("unit type", string(r.UnitType), generic.ErrUnsupportedUnitType)
	}
	if r.UnitSize <= 0 {
		return 0, r.configError("unit size", fmt.Sprintf("%g", r.UnitSize), nil)
	}

	units /= r.UnitSize
	if r.WholeUnitBlocks {
		units = math.Ceil(units)
	}
	return units * r.LabourPerUnit, nil
}

// Request builds the labour request for one step. It returns nil when no
// labour is needed.
func (r Requirement) Request(activity generic.Model, head int, adultEquivalents float64) (*generic.ResourceRequest, error) {
	days, err := DaysRequired(r, head, adultEquivalents)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, nil
	}
	return generic.NewResourceRequest(r.LabourPool, days, activity, ReasonLabour), nil
}
