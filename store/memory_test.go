package store

import (
	"bytes"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moby/ipamkit/api"
)

func testTime() time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
}

func newTestCountry(code string, xStart, xEnd uint32) *api.Country {
	return &api.Country{
		Code:      code,
		Name:      code,
		Continent: "Testland",
		XStart:    xStart,
		XEnd:      xEnd,
	}
}

func newTestRegion(id string, x, y uint32, owner string) *api.Region {
	return &api.Region{
		ID:          id,
		X:           x,
		Y:           y,
		CountryCode: "T1",
		OwnerID:     owner,
		Status:      api.StatusActive,
	}
}

func TestStoreCountry(t *testing.T) {
	s := NewMemoryStore(nil)
	require.NotNil(t, s)
	defer s.Close()

	err := s.Update(func(tx Tx) error {
		require.NoError(t, CreateCountry(tx, newTestCountry("T1", 0, 9)))
		require.NoError(t, CreateCountry(tx, newTestCountry("T2", 10, 19)))

		// Rejected: code collision and range overlap.
		assert.Equal(t, ErrRangeOverlap, CreateCountry(tx, newTestCountry("T3", 5, 12)))
		assert.Equal(t, ErrRangeOverlap, CreateCountry(tx, newTestCountry("T1", 0, 9)))
		return nil
	})
	require.NoError(t, err)

	s.View(func(tx ReadTx) {
		assert.Equal(t, "T1", GetCountry(tx, "T1").Code)
		assert.Nil(t, GetCountry(tx, "T9"))

		all, err := FindCountries(tx, All)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		byContinent, err := FindCountries(tx, ByContinent("testland"))
		require.NoError(t, err)
		assert.Len(t, byContinent, 2)

		assert.Equal(t, "T2", GetCountryForX(tx, 15).Code)
		assert.Nil(t, GetCountryForX(tx, 50))
	})
}

func TestStoreRegionSlotGuard(t *testing.T) {
	s := NewMemoryStore(nil)
	defer s.Close()

	err := s.Update(func(tx Tx) error {
		require.NoError(t, CreateCountry(tx, newTestCountry("T1", 0, 9)))
		require.NoError(t, CreateRegion(tx, newTestRegion("r1", 0, 5, "alice")))

		// A second live row on (0,5) must be refused.
		assert.Equal(t, ErrSlotInUse, CreateRegion(tx, newTestRegion("r2", 0, 5, "bob")))
		return nil
	})
	require.NoError(t, err)

	// Releasing r1 frees the slot for a brand-new row.
	err = s.Update(func(tx Tx) error {
		r := GetRegion(tx, "r1")
		require.NotNil(t, r)
		r.Status = api.StatusReleased
		require.NoError(t, UpdateRegion(tx, r))

		assert.Nil(t, GetRegionBySlot(tx, 0, 5))
		require.NoError(t, CreateRegion(tx, newTestRegion("r2", 0, 5, "bob")))
		return nil
	})
	require.NoError(t, err)

	s.View(func(tx ReadTx) {
		// Both rows retained; only the live one matches the slot.
		assert.NotNil(t, GetRegion(tx, "r1"))
		assert.Equal(t, "r2", GetRegionBySlot(tx, 0, 5).ID)

		active, err := FindRegions(tx, ByStatus(string(api.StatusActive)))
		require.NoError(t, err)
		assert.Len(t, active, 1)

		byOwner, err := FindRegions(tx, ByOwner("alice"))
		require.NoError(t, err)
		assert.Len(t, byOwner, 1)
	})
}

func TestStoreHostSlotGuard(t *testing.T) {
	s := NewMemoryStore(nil)
	defer s.Close()

	host := func(id string, z uint32) *api.Host {
		return &api.Host{ID: id, RegionID: "r1", X: 0, Y: 5, Z: z, OwnerID: "alice", Status: api.StatusActive}
	}

	err := s.Update(func(tx Tx) error {
		require.NoError(t, CreateHost(tx, host("h1", 1)))
		assert.Equal(t, ErrSlotInUse, CreateHost(tx, host("h2", 1)))
		require.NoError(t, CreateHost(tx, host("h2", 2)))
		return nil
	})
	require.NoError(t, err)

	s.View(func(tx ReadTx) {
		assert.Equal(t, "h1", GetHostBySlot(tx, "r1", 1).ID)
		assert.Nil(t, GetHostBySlot(tx, "r1", 3))

		hosts, err := FindHosts(tx, ByRegionID("r1"))
		require.NoError(t, err)
		assert.Len(t, hosts, 2)
	})
}

func TestStoreReservationSlotGuard(t *testing.T) {
	s := NewMemoryStore(nil)
	defer s.Close()

	res := func(id string, status api.ReservationStatus) *api.Reservation {
		return &api.Reservation{ID: id, Target: api.ReserveRegion, X: 0, Y: 5, ReservedBy: "alice", Status: status}
	}

	err := s.Update(func(tx Tx) error {
		require.NoError(t, CreateReservation(tx, res("v1", api.ReservationPending)))
		assert.Equal(t, ErrSlotInUse, CreateReservation(tx, res("v2", api.ReservationPending)))

		// Retiring the pending row frees the slot.
		r := GetReservation(tx, "v1")
		r.Status = api.ReservationCancelled
		require.NoError(t, UpdateReservation(tx, r))
		require.NoError(t, CreateReservation(tx, res("v2", api.ReservationPending)))
		return nil
	})
	require.NoError(t, err)

	s.View(func(tx ReadTx) {
		held := GetReservationBySlot(tx, string(api.ReserveRegion), 0, 5, 0)
		require.NotNil(t, held)
		assert.Equal(t, "v2", held.ID)
	})
}

func TestStoreAbortOnError(t *testing.T) {
	s := NewMemoryStore(nil)
	defer s.Close()

	errBoom := assert.AnError
	err := s.Update(func(tx Tx) error {
		require.NoError(t, CreateCountry(tx, newTestCountry("T1", 0, 9)))
		return errBoom
	})
	assert.Equal(t, errBoom, err)

	s.View(func(tx ReadTx) {
		assert.Nil(t, GetCountry(tx, "T1"))
	})
}

func TestStoreWatch(t *testing.T) {
	s := NewMemoryStore(nil)
	defer s.Close()

	watcher, cancel := s.WatchQueue().Watch()
	defer cancel()

	require.NoError(t, s.Update(func(tx Tx) error {
		return CreateCountry(tx, newTestCountry("T1", 0, 9))
	}))

	ev := <-watcher
	created, ok := ev.(EventCreateCountry)
	require.True(t, ok)
	assert.Equal(t, "T1", created.Country.Code)

	ev = <-watcher
	_, ok = ev.(EventCommit)
	assert.True(t, ok)
}

func TestStoreSnapshotRoundTrip(t *testing.T) {
	c := fakeclock.NewFakeClock(testTime())
	s := NewMemoryStore(c)
	defer s.Close()

	require.NoError(t, s.Update(func(tx Tx) error {
		if err := CreateCountry(tx, newTestCountry("T1", 0, 9)); err != nil {
			return err
		}
		if err := CreateRegion(tx, newTestRegion("r1", 0, 0, "alice")); err != nil {
			return err
		}
		if err := CreateHost(tx, &api.Host{ID: "h1", RegionID: "r1", X: 0, Y: 0, Z: 7, OwnerID: "alice", Status: api.StatusActive}); err != nil {
			return err
		}
		if err := CreateReservation(tx, &api.Reservation{ID: "v1", Target: api.ReserveRegion, X: 0, Y: 1, ReservedBy: "bob", Status: api.ReservationPending}); err != nil {
			return err
		}
		return CreateQuota(tx, &api.Quota{OwnerID: "alice", Regions: api.Limited(5), Hosts: api.Limited(10)})
	}))

	var buf bytes.Buffer
	require.NoError(t, s.WriteTo(&buf))

	restored := NewMemoryStore(c)
	defer restored.Close()
	require.NoError(t, restored.ReadFrom(&buf))

	restored.View(func(tx ReadTx) {
		require.NotNil(t, GetCountry(tx, "T1"))

		r := GetRegion(tx, "r1")
		require.NotNil(t, r)
		assert.Equal(t, "alice", r.OwnerID)
		assert.False(t, r.CreatedAt.IsZero())

		assert.NotNil(t, GetHostBySlot(tx, "r1", 7))
		assert.NotNil(t, GetReservationBySlot(tx, string(api.ReserveRegion), 0, 1, 0))

		q := GetQuota(tx, "alice")
		require.NotNil(t, q)
		assert.Equal(t, api.LimitModeLimited, q.Regions.Mode)
		assert.Equal(t, uint32(5), q.Regions.Max)
	})
}
