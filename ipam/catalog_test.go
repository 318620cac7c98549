package ipam

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moby/ipamkit/api"
	"github.com/moby/ipamkit/store"
)

func TestBootstrapDefaults(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, e.Bootstrap(ctx, nil))

	countries, err := e.ListCountries("")
	require.NoError(t, err)
	assert.Len(t, countries, len(DefaultCountries()))

	in, err := e.GetCountry("IN")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), in.XStart)
	assert.Equal(t, uint32(29), in.XEnd)
	assert.Equal(t, uint32(30), in.TotalBlocks())

	// The default ranges partition the X octet with no gaps or overlaps.
	var covered uint32
	for _, c := range countries {
		covered += c.TotalBlocks()
	}
	assert.Equal(t, uint32(256), covered)
}

func TestBootstrapIdempotent(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, e.Bootstrap(ctx, nil))
	require.NoError(t, e.Bootstrap(ctx, nil))

	countries, err := e.ListCountries("")
	require.NoError(t, err)
	assert.Len(t, countries, len(DefaultCountries()))

	// Only the first call appends a bootstrap record.
	records, err := e.Audit().All()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestBootstrapRejectsOverlap(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	err := e.Bootstrap(context.Background(), []*api.Country{
		{Code: "AA", Name: "Alpha", Continent: "Atlantis", XStart: 0, XEnd: 10},
		{Code: "BB", Name: "Beta", Continent: "Atlantis", XStart: 10, XEnd: 20},
	})
	require.Error(t, err)
	assert.Equal(t, store.ErrRangeOverlap, errors.Cause(err))

	// The seed aborts as a unit; no partial catalog remains.
	countries, err := e.ListCountries("")
	require.NoError(t, err)
	assert.Empty(t, countries)
}

func TestBootstrapRejectsInvalidRange(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	err := e.Bootstrap(context.Background(), []*api.Country{
		{Code: "AA", Name: "Alpha", Continent: "Atlantis", XStart: 20, XEnd: 10},
	})
	require.Error(t, err)
	assert.Equal(t, ErrInvalidCoordinate, errors.Cause(err))
}

func TestListCountriesByContinent(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	require.NoError(t, e.Bootstrap(context.Background(), nil))

	asia, err := e.ListCountries("Asia")
	require.NoError(t, err)
	require.NotEmpty(t, asia)
	for _, c := range asia {
		assert.Equal(t, "Asia", c.Continent)
	}

	none, err := e.ListCountries("Pangaea")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCountryStats(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, e.Bootstrap(ctx, nil))

	stats, err := e.GetCountryStats("IN")
	require.NoError(t, err)
	assert.Equal(t, uint32(30), stats.TotalBlocks)
	assert.Equal(t, uint32(7680), stats.TotalCapacity)
	assert.Equal(t, uint32(0), stats.AllocatedRegions)
	assert.Equal(t, uint32(7680), stats.RemainingCapacity)
	assert.Zero(t, stats.UtilizationPercent)

	_, err = e.AllocateRegion(ctx, RegionRequest{CountryCode: "IN", OwnerID: "acme"})
	require.NoError(t, err)

	stats, err = e.GetCountryStats("IN")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.AllocatedRegions)
	assert.Equal(t, uint32(7679), stats.RemainingCapacity)
	assert.InDelta(t, 100.0/7680.0, stats.UtilizationPercent, 1e-9)

	_, err = e.GetCountryStats("ZZ")
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}
