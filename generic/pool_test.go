package generic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/farm-engine/generic"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var grazer = generic.NamedModel{ModelName: "Graze_North_Angus", ModelKind: "test"}

func newHay(amount float64) *generic.QuantityPool {
	p := generic.NewQuantityPool("Hay", generic.CategoryPasture, generic.UnitKilograms)
	p.Set(amount)
	return p
}

// =============================================================================
// RESOURCE REQUEST
// =============================================================================

func TestResourceRequest_ProvidedWrittenOnce(t *testing.T) {
	req := generic.NewResourceRequest("Hay", 10, grazer, "Feed")

	f := generic.Fulfil(req, 4)
	generic.Fulfil(req, 9)

	assert.True(t, req.Fulfilled())
	assert.Equal(t, 4.0, req.Provided)
	assert.Equal(t, 6.0, req.Shortfall())
	assert.Equal(t, 6.0, f.Shortfall())
	assert.False(t, f.Met())
	assert.False(t, f.Starved())
}

func TestFulfilment_Starved(t *testing.T) {
	assert.True(t, generic.Fulfilment{Required: 5}.Starved())
	assert.False(t, generic.Fulfilment{}.Starved())
	assert.True(t, generic.Fulfilment{}.Met())
}

// =============================================================================
// QUANTITY POOL
// =============================================================================

func TestQuantityPool_RemoveClamps(t *testing.T) {
	hay := newHay(30)
	req := generic.NewResourceRequest("Hay", 50, grazer, "Feed")

	f := hay.Remove(req)

	assert.Equal(t, 30.0, f.Provided)
	assert.Equal(t, 20.0, f.Shortfall())
	assert.Equal(t, 0.0, hay.Balance())

	tx := hay.LastTransaction()
	require.NotNil(t, tx)
	assert.Equal(t, "30", tx.Credit.String())
	assert.Equal(t, "Graze_North_Angus", tx.Activity)
	assert.Equal(t, "test", tx.ActivityType)
	assert.False(t, tx.IsDebit())
	assert.NotEmpty(t, tx.ID)
}

func TestQuantityPool_ZeroRequestShortCircuits(t *testing.T) {
	hay := newHay(30)
	events := 0
	sub := hay.OnTransaction(func(generic.Transaction) { events++ })
	defer sub.Unsubscribe()

	req := generic.NewResourceRequest("Hay", 0, grazer, "Feed")
	f := hay.Remove(req)

	assert.True(t, f.Met())
	assert.False(t, req.Fulfilled())
	assert.Zero(t, events)
	assert.Nil(t, hay.LastTransaction())
	assert.Equal(t, 30.0, hay.Balance())
}

func TestQuantityPool_EmptyPoolEmitsNothing(t *testing.T) {
	hay := newHay(0)
	events := 0
	defer hay.OnTransaction(func(generic.Transaction) { events++ }).Unsubscribe()

	f := hay.Remove(generic.NewResourceRequest("Hay", 5, grazer, "Feed"))

	assert.True(t, f.Starved())
	assert.Zero(t, events)
}

func TestQuantityPool_Add(t *testing.T) {
	hay := newHay(0)

	require.NoError(t, hay.Add(12.5, grazer, "Growth"))
	require.NoError(t, hay.Add(-3.0, grazer, "Ignored"))
	assert.Equal(t, 12.5, hay.Balance())
	assert.True(t, hay.LastTransaction().IsDebit())

	err := hay.Add("lots", grazer, "Growth")
	assert.ErrorIs(t, err, generic.ErrUnsupportedResourceKind)
}

// =============================================================================
// REGISTRY
// =============================================================================

func TestRegistry_OrderAndLookup(t *testing.T) {
	reg := generic.NewRegistry()
	require.NoError(t, reg.Register(generic.NewQuantityPool("North", generic.CategoryPasture, generic.UnitKilograms)))
	require.NoError(t, reg.Register(generic.NewQuantityPool("Commons", generic.CategoryCommonLand, generic.UnitKilograms)))
	require.NoError(t, reg.Register(generic.NewQuantityPool("South", generic.CategoryPasture, generic.UnitKilograms)))

	var names []string
	for _, p := range reg.ListByCategory(generic.CategoryPasture) {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"North", "South"}, names)
	assert.Len(t, reg.ListByCategory(generic.CategoryPasture, generic.CategoryCommonLand), 3)

	_, err := reg.Lookup("West")
	assert.ErrorIs(t, err, generic.ErrPoolNotFound)

	err = reg.Register(generic.NewQuantityPool("North", generic.CategoryPasture, generic.UnitKilograms))
	assert.ErrorIs(t, err, generic.ErrDuplicatePool)
	assert.True(t, generic.IsConfigurationError(err))
}

// =============================================================================
// TIME
// =============================================================================

func TestMonthlyClock_Advance(t *testing.T) {
	clock := generic.NewMonthlyClock(generic.NewTimePoint(2024, 1, 15))
	assert.Equal(t, "2024-01", clock.Today().String())
	assert.Equal(t, 31, clock.Today().DaysInMonth())

	clock.Advance()
	assert.Equal(t, "2024-02", clock.Today().String())
	assert.Equal(t, 29, clock.Today().DaysInMonth())
	assert.Equal(t, 1, clock.Steps())

	clock.Reset()
	assert.Equal(t, "2024-01", clock.Today().String())
}
