package generic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/farm-engine/generic"
)

func TestFeed_EmitsInSubscriptionOrder(t *testing.T) {
	var feed generic.Feed[int]
	var got []string

	feed.Subscribe(func(v int) { got = append(got, "first") })
	feed.Subscribe(func(v int) { got = append(got, "second") })
	feed.Emit(1)

	assert.Equal(t, []string{"first", "second"}, got)
}

func TestSubscription_UnsubscribeIsIdempotent(t *testing.T) {
	var feed generic.Feed[int]
	calls := 0
	sub := feed.Subscribe(func(int) { calls++ })
	other := feed.Subscribe(func(int) {})

	sub.Unsubscribe()
	sub.Unsubscribe()
	feed.Emit(1)

	assert.Zero(t, calls)
	assert.Equal(t, 1, feed.Len())
	other.Unsubscribe()
	assert.Zero(t, feed.Len())

	var nilSub *generic.Subscription
	assert.NotPanics(t, nilSub.Unsubscribe)
}

func TestFeed_HandlerMayUnsubscribeDuringEmit(t *testing.T) {
	var feed generic.Feed[int]
	calls := 0
	var sub *generic.Subscription
	sub = feed.Subscribe(func(int) {
		calls++
		sub.Unsubscribe()
	})

	feed.Emit(1)
	feed.Emit(2)

	assert.Equal(t, 1, calls)
}

func TestSubscriptions_ReleaseAllInReverseOrder(t *testing.T) {
	var feed generic.Feed[int]
	var subs generic.Subscriptions
	for i := 0; i < 3; i++ {
		subs.Add(feed.Subscribe(func(int) {}))
	}
	assert.Equal(t, 3, subs.Len())

	subs.ReleaseAll()

	assert.Zero(t, subs.Len())
	assert.Zero(t, feed.Len())
	assert.NotPanics(t, subs.ReleaseAll)
}
