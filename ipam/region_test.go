package ipam

import (
	"context"
	"fmt"
	"sync"
	"testing"

	events "github.com/docker/go-events"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moby/ipamkit/api"
	"github.com/moby/ipamkit/store"
)

func TestAllocateRegionOrder(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx, nil))

	for i := 0; i < 3; i++ {
		r, err := e.AllocateRegion(ctx, RegionRequest{CountryCode: "IN", OwnerID: "acme"})
		require.NoError(t, err)
		assert.Equal(t, uint32(0), r.X)
		assert.Equal(t, uint32(i), r.Y)
		assert.Equal(t, "IN", r.CountryCode)
		assert.Equal(t, api.StatusActive, r.Status)
		assert.Equal(t, fmt.Sprintf("10.0.%d.0/24", i), r.CIDR())
	}
}

func TestAllocateRegionPreferred(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx, nil))

	r, err := e.AllocateRegion(ctx, RegionRequest{
		CountryCode: "IN",
		OwnerID:     "acme",
		PreferredX:  u32(5),
		PreferredY:  u32(7),
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(5), r.X)
	assert.Equal(t, uint32(7), r.Y)

	// A taken preferred slot fails; there is no silent fallback.
	_, err = e.AllocateRegion(ctx, RegionRequest{
		CountryCode: "IN",
		OwnerID:     "other",
		PreferredX:  u32(5),
		PreferredY:  u32(7),
	})
	require.Error(t, err)
	assert.Equal(t, ErrAllocationConflict, errors.Cause(err))
}

func TestAllocateRegionInvalidCoordinates(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx, nil))

	// x outside the country's range.
	_, err := e.AllocateRegion(ctx, RegionRequest{
		CountryCode: "IN",
		OwnerID:     "acme",
		PreferredX:  u32(40),
	})
	assert.Equal(t, ErrInvalidCoordinate, errors.Cause(err))

	// y outside the octet.
	_, err = e.AllocateRegion(ctx, RegionRequest{
		CountryCode: "IN",
		OwnerID:     "acme",
		PreferredX:  u32(0),
		PreferredY:  u32(300),
	})
	assert.Equal(t, ErrInvalidCoordinate, errors.Cause(err))

	_, err = e.AllocateRegion(ctx, RegionRequest{CountryCode: "ZZ", OwnerID: "acme"})
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}

func TestAllocateRegionExhaustion(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx, tinyCatalog()))

	for i := 0; i < octetSlots; i++ {
		_, err := e.AllocateRegion(ctx, RegionRequest{CountryCode: "TT", OwnerID: "acme"})
		require.NoError(t, err)
	}

	_, err := e.AllocateRegion(ctx, RegionRequest{CountryCode: "TT", OwnerID: "acme"})
	require.Error(t, err)
	assert.Equal(t, ErrCountryExhausted, errors.Cause(err))

	stats, err := e.GetCountryStats("TT")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), stats.RemainingCapacity)
	assert.Equal(t, 100.0, stats.UtilizationPercent)
}

func TestReleaseRegion(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx, nil))

	r, err := e.AllocateRegion(ctx, RegionRequest{CountryCode: "IN", OwnerID: "acme"})
	require.NoError(t, err)

	require.NoError(t, e.ReleaseRegion(ctx, r.ID, "acme"))

	// Released means gone from the allocator's point of view.
	err = e.ReleaseRegion(ctx, r.ID, "acme")
	assert.Equal(t, ErrNotFound, errors.Cause(err))

	stats, err := e.GetCountryStats("IN")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), stats.AllocatedRegions)

	// The freed pair is the first candidate again.
	r2, err := e.AllocateRegion(ctx, RegionRequest{CountryCode: "IN", OwnerID: "acme"})
	require.NoError(t, err)
	assert.Equal(t, r.X, r2.X)
	assert.Equal(t, r.Y, r2.Y)
	assert.NotEqual(t, r.ID, r2.ID)
}

func TestReleaseRegionWithHosts(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx, nil))

	r, err := e.AllocateRegion(ctx, RegionRequest{CountryCode: "IN", OwnerID: "acme"})
	require.NoError(t, err)
	h, err := e.AllocateHost(ctx, HostRequest{RegionID: r.ID, OwnerID: "acme"})
	require.NoError(t, err)

	err = e.ReleaseRegion(ctx, r.ID, "acme")
	require.Error(t, err)
	assert.Equal(t, ErrRegionNotEmpty, errors.Cause(err))

	require.NoError(t, e.ReleaseHost(ctx, h.ID, "acme"))
	require.NoError(t, e.ReleaseRegion(ctx, r.ID, "acme"))
}

func TestAllocateRegionConcurrent(t *testing.T) {
	// A generous retry budget keeps the test about slot uniqueness rather
	// than about losing the race repeatedly.
	config := DefaultConfig()
	config.AllocationRetries = 64
	e, _ := newTestEngine(t, config)
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx, nil))

	const workers = 32

	var wg sync.WaitGroup
	results := make([]*api.Region, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.AllocateRegion(ctx, RegionRequest{
				CountryCode: "IN",
				OwnerID:     fmt.Sprintf("owner-%d", i),
			})
		}(i)
	}
	wg.Wait()

	seen := make(map[slot]int)
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		seen[slot{x: results[i].X, y: results[i].Y}]++
	}
	assert.Len(t, seen, workers)
	for pair, n := range seen {
		assert.Equal(t, 1, n, "slot (%d,%d) was handed out more than once", pair.x, pair.y)
	}

	stats, err := e.GetCountryStats("IN")
	require.NoError(t, err)
	assert.Equal(t, uint32(workers), stats.AllocatedRegions)
}

func TestCapacityWarningEvent(t *testing.T) {
	config := DefaultConfig()
	config.CapacityWarnThreshold = 50.0
	e, _ := newTestEngine(t, config)
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx, tinyCatalog()))

	watch, cancel := e.Watch()
	defer cancel()

	// 128 of 256 slots crosses the 50% threshold; one extra allocation
	// afterwards must not warn again.
	var last *api.Region
	for i := 0; i < 129; i++ {
		r, err := e.AllocateRegion(ctx, RegionRequest{CountryCode: "TT", OwnerID: "acme"})
		require.NoError(t, err)
		last = r
	}

	// Delivery is FIFO per watcher, so once the final allocation's success
	// event arrives every earlier event has been seen.
	warnings := 0
	waitEvent(t, watch, func(event events.Event) bool {
		if w, ok := event.(api.CapacityWarning); ok {
			warnings++
			assert.Equal(t, "TT", w.CountryCode)
			assert.Equal(t, 50.0, w.UtilizationPercent)
		}
		ev, ok := event.(api.AllocationSucceeded)
		return ok && ev.ResourceID == last.ID
	})
	assert.Equal(t, 1, warnings)
}

func TestAllocationEvents(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx, nil))

	watch, cancel := e.Watch()
	defer cancel()

	r, err := e.AllocateRegion(ctx, RegionRequest{CountryCode: "IN", OwnerID: "acme"})
	require.NoError(t, err)
	_, err = e.AllocateRegion(ctx, RegionRequest{CountryCode: "ZZ", OwnerID: "acme"})
	require.Error(t, err)

	// The failure event was published second, so seeing it means the
	// success event already went by.
	var succeeded *api.AllocationSucceeded
	failed := waitEvent(t, watch, func(event events.Event) bool {
		if ev, ok := event.(api.AllocationSucceeded); ok {
			succeeded = &ev
		}
		_, ok := event.(api.AllocationFailed)
		return ok
	}).(api.AllocationFailed)

	require.NotNil(t, succeeded)
	assert.Equal(t, r.ID, succeeded.ResourceID)
	assert.Equal(t, r.CIDR(), succeeded.Address)
	assert.Equal(t, "acme", failed.OwnerID)
}

func TestRegionListFilters(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx, nil))

	_, err := e.AllocateRegion(ctx, RegionRequest{CountryCode: "IN", OwnerID: "acme"})
	require.NoError(t, err)
	_, err = e.AllocateRegion(ctx, RegionRequest{CountryCode: "DE", OwnerID: "acme"})
	require.NoError(t, err)
	_, err = e.AllocateRegion(ctx, RegionRequest{CountryCode: "IN", OwnerID: "umbrella"})
	require.NoError(t, err)

	byOwner, err := e.ListRegions(store.ByOwner("acme"))
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	byCountry, err := e.ListRegions(store.ByCountry("IN"))
	require.NoError(t, err)
	assert.Len(t, byCountry, 2)
}
