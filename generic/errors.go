/*
errors.go - Centralized error types for the allocation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages construct the structured errors; callers match them
  with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Configuration errors - unsupported unit type, missing field (fatal)
  2. Resource kind errors - wrong value type passed to a pool (fatal)
  3. Insufficient resources - only when an activity's policy says stop (fatal)
  4. Lifecycle errors - double initialisation, unknown pool

  Shortfalls are NOT errors. They are reported through Fulfilment,
  activity status and the shortfall feed.

SEE ALSO:
  - labour/requirement.go: raises ConfigurationError
  - finance/account.go: raises UnsupportedResourceKindError
  - activity/scheduler.go: raises InsufficientResourcesError
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnsupportedResourceKind is returned when a pool receives a value of a
	// type it does not hold.
	ErrUnsupportedResourceKind = errors.New("unsupported resource kind")

	// ErrUnsupportedUnitType is returned for a labour unit type the
	// evaluator cannot handle.
	ErrUnsupportedUnitType = errors.New("unsupported labour unit type")

	// ErrInvalidConfiguration is returned when a model is missing a required
	// value or holds one outside its allowed range.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInsufficientResources is returned only when an activity's partial
	// resource policy asks for the run to stop on shortfall.
	ErrInsufficientResources = errors.New("insufficient resources")

	// ErrPoolNotFound is returned when a named pool is not registered.
	ErrPoolNotFound = errors.New("resource pool not found")

	// ErrDuplicatePool is returned when two pools share a name.
	ErrDuplicatePool = errors.New("duplicate resource pool")

	// ErrDuplicateTransaction is returned when a transaction ID is already
	// in the journal.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrAlreadyInitialised is returned when a one-shot lifecycle signal is
	// delivered twice.
	ErrAlreadyInitialised = errors.New("already initialised")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// UnsupportedResourceKindError names the pool and the offending value type.
type UnsupportedResourceKindError struct {
	Pool string
	Kind string
}

func (e *UnsupportedResourceKindError) Error() string {
	return fmt.Sprintf("resource amount of type %s is not supported by Add in %s", e.Kind, e.Pool)
}

func (e *UnsupportedResourceKindError) Unwrap() error {
	return ErrUnsupportedResourceKind
}

// ConfigurationError identifies the requirement and owning activity of a
// configuration defect.
type ConfigurationError struct {
	Requirement string
	Activity    string
	Field       string
	Value       string
	Err         error
}

func (e *ConfigurationError) Error() string {
	if errors.Is(e.Err, ErrUnsupportedUnitType) {
		return fmt.Sprintf("labour unit type %s is not supported for %s in %s", e.Value, e.Requirement, e.Activity)
	}
	return fmt.Sprintf("invalid %s %q for %s in %s", e.Field, e.Value, e.Requirement, e.Activity)
}

func (e *ConfigurationError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidConfiguration
	}
	return e.Err
}

// InsufficientResourcesError lists the shortfalls that stopped an activity.
type InsufficientResourcesError struct {
	Activity   string
	Shortfalls []Fulfilment
}

func (e *InsufficientResourcesError) Error() string {
	if len(e.Shortfalls) == 0 {
		return fmt.Sprintf("insufficient resources for %s", e.Activity)
	}
	f := e.Shortfalls[0]
	return fmt.Sprintf("insufficient resources for %s: %s short by %.2f (and %d more)",
		e.Activity, f.ResourceType, f.Shortfall(), len(e.Shortfalls)-1)
}

func (e *InsufficientResourcesError) Unwrap() error {
	return ErrInsufficientResources
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigurationError returns true for defects in the model configuration.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrUnsupportedUnitType) ||
		errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrDuplicatePool)
}

// IsFatal returns true if the error must abort the simulation run.
func IsFatal(err error) bool {
	return IsConfigurationError(err) ||
		errors.Is(err, ErrUnsupportedResourceKind) ||
		errors.Is(err, ErrInsufficientResources)
}
