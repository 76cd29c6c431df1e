/*
request.go - Resource requests and their fulfilment

PURPOSE:
  A ResourceRequest is one activity's demand on one pool for one tick.
  The pool writes Provided exactly once while fulfilling it and returns a
  Fulfilment, so the caller is forced to look at the shortfall instead of
  assuming the request was met.

REQUEST FLOW:
  ┌───────────────────────────────────────────────────────────────┐
  │                                                               │
  │  Activity builds   Scheduler checks    Pool.Remove    Activity │
  │  requests     ──▶  availability   ──▶  clamps    ──▶  adjusts  │
  │                                                               │
  └───────────────────────────────────────────────────────────────┘

SHORTFALL:
  Pools never fail a removal for lack of supply. They clamp to what is
  available and report Provided < Required. Whether that is Partial or
  Critical is the activity's decision, never the pool's.

SEE ALSO:
  - pool.go: Remove implementations
  - activity/scheduler.go: Allocation phase
*/
package generic

import "fmt"

// =============================================================================
// RESOURCE REQUEST
// =============================================================================

// ResourceRequest describes one demand on a pool.
type ResourceRequest struct {
	// ResourceType is the registry name of the targeted pool.
	ResourceType string

	// Required is the non-negative quantity requested.
	Required float64

	// Provided is written by the pool during fulfilment.
	Provided float64

	// Activity is the requesting node, used for transaction attribution.
	Activity Model

	Reason string

	// Mandatory requests that receive nothing make the activity Critical.
	Mandatory bool

	fulfilled bool
}

// NewResourceRequest creates a request for the given pool.
func NewResourceRequest(resourceType string, required float64, activity Model, reason string) *ResourceRequest {
	return &ResourceRequest{
		ResourceType: resourceType,
		Required:     required,
		Activity:     activity,
		Reason:       reason,
	}
}

// IsEmpty reports whether the request asks for nothing and must short-circuit.
func (r *ResourceRequest) IsEmpty() bool {
	return r.Required <= 0
}

// Fulfilled reports whether a pool has already written Provided.
func (r *ResourceRequest) Fulfilled() bool {
	return r.fulfilled
}

// Settled reports whether a pool must leave this request alone: it asks for
// nothing, or a pool already fulfilled it. The returned Fulfilment is the
// request's current state.
func (r *ResourceRequest) Settled() (Fulfilment, bool) {
	f := Fulfilment{ResourceType: r.ResourceType, Required: r.Required, Provided: r.Provided}
	if r.Required < 0 {
		f.Required = 0
	}
	return f, r.IsEmpty() || r.fulfilled
}

// Shortfall returns Required - Provided, never negative.
func (r *ResourceRequest) Shortfall() float64 {
	if r.Required <= r.Provided {
		return 0
	}
	return r.Required - r.Provided
}

// provide records the granted amount. Only the first call has an effect.
func (r *ResourceRequest) provide(amount float64) {
	if r.fulfilled {
		return
	}
	r.Provided = amount
	r.fulfilled = true
}

func (r *ResourceRequest) String() string {
	return fmt.Sprintf("%s: required %.2f provided %.2f (%s)",
		r.ResourceType, r.Required, r.Provided, r.Reason)
}

// =============================================================================
// FULFILMENT - Explicit result of a removal
// =============================================================================

// Fulfilment is returned by Pool.Remove.
type Fulfilment struct {
	ResourceType string
	Required     float64
	Provided     float64
}

// Shortfall returns the unmet part of the request.
func (f Fulfilment) Shortfall() float64 {
	if f.Required <= f.Provided {
		return 0
	}
	return f.Required - f.Provided
}

// Met reports whether the request was provided in full.
func (f Fulfilment) Met() bool {
	return f.Shortfall() == 0
}

// Starved reports a non-zero requirement that received nothing.
func (f Fulfilment) Starved() bool {
	return f.Required > 0 && f.Provided == 0
}

// Fulfil writes the granted amount into the request and returns the result.
// Pools call it once per request; later calls leave Provided unchanged.
func Fulfil(r *ResourceRequest, provided float64) Fulfilment {
	r.provide(provided)
	return Fulfilment{ResourceType: r.ResourceType, Required: r.Required, Provided: r.Provided}
}

// Unfulfilled returns the Fulfilment for a request no pool could serve.
func Unfulfilled(r *ResourceRequest) Fulfilment {
	return Fulfil(r, 0)
}
