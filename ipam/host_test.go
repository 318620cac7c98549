package ipam

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moby/ipamkit/api"
	"github.com/moby/ipamkit/store"
)

func allocTestRegion(t *testing.T, e *Engine, owner string) *api.Region {
	t.Helper()
	r, err := e.AllocateRegion(context.Background(), RegionRequest{CountryCode: "IN", OwnerID: owner})
	require.NoError(t, err)
	return r
}

func TestAllocateHostOrder(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx, nil))
	r := allocTestRegion(t, e, "acme")

	for i := 0; i < 3; i++ {
		h, err := e.AllocateHost(ctx, HostRequest{
			RegionID: r.ID,
			OwnerID:  "acme",
			Hostname: fmt.Sprintf("node-%d", i),
		})
		require.NoError(t, err)
		assert.Equal(t, r.ID, h.RegionID)
		assert.Equal(t, uint32(i), h.Z)
		assert.Equal(t, fmt.Sprintf("10.%d.%d.%d", r.X, r.Y, i), h.Addr())
	}

	regions, err := e.ListRegions(store.ByRegionSlot(r.X, r.Y))
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, uint32(3), regions[0].HostCount)
}

func TestAllocateHostPreferred(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx, nil))
	r := allocTestRegion(t, e, "acme")

	h, err := e.AllocateHost(ctx, HostRequest{RegionID: r.ID, OwnerID: "acme", PreferredZ: u32(200)})
	require.NoError(t, err)
	assert.Equal(t, uint32(200), h.Z)

	_, err = e.AllocateHost(ctx, HostRequest{RegionID: r.ID, OwnerID: "other", PreferredZ: u32(200)})
	require.Error(t, err)
	assert.Equal(t, ErrAllocationConflict, errors.Cause(err))

	_, err = e.AllocateHost(ctx, HostRequest{RegionID: r.ID, OwnerID: "acme", PreferredZ: u32(300)})
	assert.Equal(t, ErrInvalidCoordinate, errors.Cause(err))
}

func TestAllocateHostRegionChecks(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx, nil))

	_, err := e.AllocateHost(ctx, HostRequest{RegionID: "nope", OwnerID: "acme"})
	assert.Equal(t, ErrNotFound, errors.Cause(err))

	r := allocTestRegion(t, e, "acme")
	require.NoError(t, e.ReleaseRegion(ctx, r.ID, "acme"))

	// A released region does not accept hosts.
	_, err = e.AllocateHost(ctx, HostRequest{RegionID: r.ID, OwnerID: "acme"})
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}

func TestAllocateHostRegionFull(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx, nil))
	r := allocTestRegion(t, e, "acme")

	for i := 0; i < octetSlots; i++ {
		_, err := e.AllocateHost(ctx, HostRequest{RegionID: r.ID, OwnerID: "acme"})
		require.NoError(t, err)
	}

	_, err := e.AllocateHost(ctx, HostRequest{RegionID: r.ID, OwnerID: "acme"})
	require.Error(t, err)
	assert.Equal(t, ErrRegionFull, errors.Cause(err))
}

func TestReleaseHost(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx, nil))
	r := allocTestRegion(t, e, "acme")

	h, err := e.AllocateHost(ctx, HostRequest{RegionID: r.ID, OwnerID: "acme"})
	require.NoError(t, err)
	require.NoError(t, e.ReleaseHost(ctx, h.ID, "acme"))

	err = e.ReleaseHost(ctx, h.ID, "acme")
	assert.Equal(t, ErrNotFound, errors.Cause(err))

	regions, err := e.ListRegions(store.ByRegionSlot(r.X, r.Y))
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, uint32(0), regions[0].HostCount)

	// The freed z is handed out again.
	h2, err := e.AllocateHost(ctx, HostRequest{RegionID: r.ID, OwnerID: "acme"})
	require.NoError(t, err)
	assert.Equal(t, h.Z, h2.Z)
	assert.NotEqual(t, h.ID, h2.ID)
}

func TestAllocateHostConcurrent(t *testing.T) {
	config := DefaultConfig()
	config.AllocationRetries = 64
	e, _ := newTestEngine(t, config)
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx, nil))
	r := allocTestRegion(t, e, "acme")

	const workers = 16

	var wg sync.WaitGroup
	results := make([]*api.Host, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.AllocateHost(ctx, HostRequest{
				RegionID: r.ID,
				OwnerID:  fmt.Sprintf("owner-%d", i),
			})
		}(i)
	}
	wg.Wait()

	seen := make(map[uint32]int)
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		seen[results[i].Z]++
	}
	assert.Len(t, seen, workers)

	regions, err := e.ListRegions(store.ByRegionSlot(r.X, r.Y))
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, uint32(workers), regions[0].HostCount)
}
