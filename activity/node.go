/*
node.go - Activity nodes

PURPOSE:
  Every activity (grazing, labour task, expense) is an Activity: a node in
  the activity tree with a status, ordered children and two outward feeds.
  The behaviour that differs per node kind sits behind three methods:

    GetResourceRequests  what the node wants from pools this tick
    Adjust               react to what was actually provided
    Perform              do the work and settle the status

  The traversal and allocation logic in scheduler.go is written once
  against this interface.

OWNERSHIP:
  A parent owns its children's lifecycle. A child's parent reference is
  only used to compose names and paths, never for control.

FEEDS:
  Shortfall fires when any request of the tick was not met in full.
  Performed fires once per tick with the final status. Both carry a
  Report that names the node that produced it; bubbling re-emits the
  same Report unchanged on the ancestor's feed.

SEE ALSO:
  - scheduler.go: Per tick state machine
  - grazing/graze_all.go: Runtime tree construction and wiring
*/
package activity

import (
	"strings"

	"github.com/warp/farm-engine/generic"
)

// =============================================================================
// ACTIVITY INTERFACE
// =============================================================================

type Activity interface {
	generic.Model

	// Base returns the shared node state.
	Base() *Node

	// GetResourceRequests returns this tick's demand. Nil or empty means
	// nothing to do.
	GetResourceRequests() ([]*generic.ResourceRequest, error)

	// Adjust may change planned behaviour based on Provided vs Required.
	// It must not create new requests.
	Adjust(requests []*generic.ResourceRequest)

	// Perform carries out the activity.
	Perform() error
}

// Initialiser is implemented by activities that build structure when the
// initialise-activities signal arrives.
type Initialiser interface {
	InitialiseActivities() error
}

// Completer is implemented by activities that release structure when the
// simulation completes.
type Completer interface {
	Completed()
}

// =============================================================================
// REPORT - Payload of shortfall and performed notifications
// =============================================================================

type Report struct {
	Activity   Activity
	Name       string
	Status     Status
	Step       generic.TimePoint
	Shortfalls []generic.Fulfilment
}

// =============================================================================
// NODE - Shared state embedded by every activity
// =============================================================================

type Node struct {
	name string
	kind string

	parent   Activity
	children []Activity
	status   Status

	shortfall generic.Feed[Report]
	performed generic.Feed[Report]

	// Shared references, copied down by tree builders when unset.
	Clock         generic.Clock
	Resources     *generic.Registry
	PartialPolicy PartialPolicy
	Summary       generic.Summary
}

// Init names the node. Call it from the activity constructor.
func (n *Node) Init(name, kind string) {
	n.name = name
	n.kind = kind
	n.status = NoTask
}

func (n *Node) Name() string { return n.name }
func (n *Node) Kind() string { return n.kind }

func (n *Node) Status() Status { return n.status }

// SetStatus is used by Perform to settle the outcome. The scheduler still
// refuses any downgrade from Partial or Critical set during allocation.
func (n *Node) SetStatus(s Status) { n.status = s }

// MarkNoTask records that there was nothing to do, unless the tick already
// recorded a shortfall.
func (n *Node) MarkNoTask() {
	if n.status.IsShortfall() {
		return
	}
	n.status = NoTask
}

// =============================================================================
// TREE
// =============================================================================

func (n *Node) Parent() Activity { return n.parent }

// Children returns a copy of the ordered child list.
func (n *Node) Children() []Activity {
	result := make([]Activity, len(n.children))
	copy(result, n.children)
	return result
}

// AddChild appends child and sets its parent reference.
func (n *Node) AddChild(self, child Activity) {
	child.Base().parent = self
	n.children = append(n.children, child)
}

// ClearChildren drops every child and its back-reference.
func (n *Node) ClearChildren() {
	for _, c := range n.children {
		c.Base().parent = nil
	}
	n.children = nil
}

// Path returns the slash separated names from the root to this node.
func (n *Node) Path() string {
	var names []string
	names = append(names, n.name)
	for p := n.parent; p != nil; p = p.Base().parent {
		names = append(names, p.Name())
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, "/")
}

// Inherit copies shared references from parent for every one that is unset.
// An explicitly set reference is never overwritten.
func (n *Node) Inherit(parent *Node) {
	if n.Clock == nil {
		n.Clock = parent.Clock
	}
	if n.Resources == nil {
		n.Resources = parent.Resources
	}
	if n.PartialPolicy == "" {
		n.PartialPolicy = parent.PartialPolicy
	}
	if n.Summary == nil {
		n.Summary = parent.Summary
	}
}

// =============================================================================
// FEEDS
// =============================================================================

func (n *Node) OnShortfall(fn func(Report)) *generic.Subscription {
	return n.shortfall.Subscribe(fn)
}

func (n *Node) OnPerformed(fn func(Report)) *generic.Subscription {
	return n.performed.Subscribe(fn)
}

func (n *Node) RaiseShortfall(r Report) { n.shortfall.Emit(r) }
func (n *Node) RaisePerformed(r Report) { n.performed.Emit(r) }

// Subscribers returns the number of live shortfall and performed handlers.
func (n *Node) Subscribers() int {
	return n.shortfall.Len() + n.performed.Len()
}

// Bubble re-emits from's shortfall and performed reports on to's feeds,
// unchanged. The caller owns the returned handles.
func Bubble(from, to Activity) []*generic.Subscription {
	target := to.Base()
	return []*generic.Subscription{
		from.Base().OnShortfall(target.RaiseShortfall),
		from.Base().OnPerformed(target.RaisePerformed),
	}
}

// Walk visits a and its descendants depth-first, parent before children.
func Walk(a Activity, fn func(Activity)) {
	fn(a)
	for _, c := range a.Base().Children() {
		Walk(c, fn)
	}
}
