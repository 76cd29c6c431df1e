// Package activity implements activity nodes, their status lifecycle, and
// the scheduler that allocates pool resources to them each tick.
package activity

// =============================================================================
// STATUS - Outcome of the most recent tick for a node
// =============================================================================

type Status string

const (
	Success  Status = "success"
	Partial  Status = "partial"
	Critical Status = "critical"
	NoTask   Status = "no_task"
	Ignored  Status = "ignored"
)

// severity orders statuses for the no-downgrade rule.
func (s Status) severity() int {
	switch s {
	case Critical:
		return 3
	case Partial:
		return 2
	case Success:
		return 1
	default:
		return 0
	}
}

// IsShortfall reports whether the status records a resource shortfall.
func (s Status) IsShortfall() bool {
	return s == Partial || s == Critical
}

func (s Status) String() string { return string(s) }

// =============================================================================
// PARTIAL RESOURCE POLICY - What to do when a pool cannot meet a request
// =============================================================================

type PartialPolicy string

const (
	// UseResourcesAvailable takes whatever the pools can give.
	UseResourcesAvailable PartialPolicy = "use_available"

	// SkipActivity takes nothing and marks the node Ignored.
	SkipActivity PartialPolicy = "skip"

	// ReportErrorAndStop aborts the run.
	ReportErrorAndStop PartialPolicy = "stop"
)

// Valid reports whether p is a known policy. The zero value is valid and
// means "not set".
func (p PartialPolicy) Valid() bool {
	switch p {
	case "", UseResourcesAvailable, SkipActivity, ReportErrorAndStop:
		return true
	}
	return false
}

// Effective returns p, or UseResourcesAvailable when p is unset.
func (p PartialPolicy) Effective() PartialPolicy {
	if p == "" {
		return UseResourcesAvailable
	}
	return p
}
