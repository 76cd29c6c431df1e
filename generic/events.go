/*
events.go - Synchronous notification feeds with owned subscriptions

PURPOSE:
  Pools emit transaction notifications and activities emit shortfall and
  activity-performed notifications. Every subscription returns a handle the
  subscriber owns; releasing the handle is the only way a handler goes away.
  Nothing relies on garbage collection to drop a stale handler.

DISPATCH:
  Emit runs handlers synchronously, in subscription order, on the caller's
  goroutine. The handler list is copied before dispatch, so a handler may
  unsubscribe itself (or others) while an emission is in flight.

TEARDOWN:
  Subscriptions collects handles created while wiring a structure (the
  grazing tree) and releases them as a unit, newest first.

SEE ALSO:
  - activity/node.go: shortfall and performed feeds
  - grazing/graze_all.go: collects wiring handles
*/
package generic

import "sync"

// =============================================================================
// FEED
// =============================================================================

// Feed is a list of handlers for one kind of notification.
type Feed[T any] struct {
	mu       sync.Mutex
	nextID   uint64
	handlers []feedHandler[T]
}

type feedHandler[T any] struct {
	id uint64
	fn func(T)
}

// Subscribe adds fn and returns the handle that removes it.
func (f *Feed[T]) Subscribe(fn func(T)) *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := f.nextID
	f.handlers = append(f.handlers, feedHandler[T]{id: id, fn: fn})
	return &Subscription{cancel: func() { f.remove(id) }}
}

func (f *Feed[T]) remove(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, h := range f.handlers {
		if h.id == id {
			f.handlers = append(f.handlers[:i:i], f.handlers[i+1:]...)
			return
		}
	}
}

// Emit delivers v to every current handler.
func (f *Feed[T]) Emit(v T) {
	f.mu.Lock()
	handlers := make([]feedHandler[T], len(f.handlers))
	copy(handlers, f.handlers)
	f.mu.Unlock()

	for _, h := range handlers {
		h.fn(v)
	}
}

// Len returns the number of subscribed handlers.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

// =============================================================================
// SUBSCRIPTION HANDLES
// =============================================================================

// Subscription removes its handler when unsubscribed. Unsubscribe is
// idempotent and safe on a nil handle.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Subscriptions owns a group of handles.
type Subscriptions struct {
	subs []*Subscription
}

// Add takes ownership of the handles.
func (s *Subscriptions) Add(subs ...*Subscription) {
	s.subs = append(s.subs, subs...)
}

func (s *Subscriptions) Len() int {
	return len(s.subs)
}

// ReleaseAll unsubscribes every handle in reverse order of creation.
func (s *Subscriptions) ReleaseAll() {
	for i := len(s.subs) - 1; i >= 0; i-- {
		s.subs[i].Unsubscribe()
	}
	s.subs = nil
}
