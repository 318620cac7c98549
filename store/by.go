package store

import "fmt"

// By is an interface type passed to Find methods. Implementations must be
// defined in this package.
type By interface {
	// isBy allows this interface to only be satisfied by certain internal
	// types.
	isBy()
}

type byAll struct{}

func (a byAll) isBy() {
}

// All is an argument that can be passed to find to list all items in the
// set.
var All byAll

type byOwner string

func (b byOwner) isBy() {
}

// ByOwner creates an object to pass to Find to select by owner.
func ByOwner(ownerID string) By {
	return byOwner(ownerID)
}

type byCountry string

func (b byCountry) isBy() {
}

// ByCountry creates an object to pass to Find to select by country code.
func ByCountry(code string) By {
	return byCountry(code)
}

type byContinent string

func (b byContinent) isBy() {
}

// ByContinent creates an object to pass to Find to select countries by
// continent.
func ByContinent(continent string) By {
	return byContinent(continent)
}

type byRegionID string

func (b byRegionID) isBy() {
}

// ByRegionID creates an object to pass to Find to select hosts by their
// owning region.
func ByRegionID(regionID string) By {
	return byRegionID(regionID)
}

type byStatus string

func (b byStatus) isBy() {
}

// ByStatus creates an object to pass to Find to select by lifecycle status.
func ByStatus(status string) By {
	return byStatus(status)
}

type bySlot struct {
	key string
}

func (b bySlot) isBy() {
}

// ByRegionSlot creates an object to pass to Find to select the live region
// occupying the (x,y) pair.
func ByRegionSlot(x, y uint32) By {
	return bySlot{key: regionSlotKey(x, y)}
}

// ByHostSlot creates an object to pass to Find to select the live host
// occupying z within a region.
func ByHostSlot(regionID string, z uint32) By {
	return bySlot{key: hostSlotKey(regionID, z)}
}

// ByReservationSlot creates an object to pass to Find to select the pending
// reservation holding a slot.
func ByReservationSlot(target string, x, y, z uint32) By {
	return bySlot{key: reservationSlotKey(target, x, y, z)}
}

func regionSlotKey(x, y uint32) string {
	return fmt.Sprintf("%d/%d", x, y)
}

func hostSlotKey(regionID string, z uint32) string {
	return fmt.Sprintf("%s/%d", regionID, z)
}

func reservationSlotKey(target string, x, y, z uint32) string {
	return fmt.Sprintf("%s/%d/%d/%d", target, x, y, z)
}
