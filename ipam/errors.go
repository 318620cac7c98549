package ipam

import "github.com/pkg/errors"

// Expected, recoverable conditions reported to callers. Operations wrap
// these with coordinate/owner/limit context; use errors.Cause (or errors.Is)
// to classify.
var (
	// ErrNotFound indicates an unknown resource ID, or one that is already
	// released.
	ErrNotFound = errors.New("not found")

	// ErrCountryExhausted indicates no free (x,y) slot remains in the
	// country's range.
	ErrCountryExhausted = errors.New("country address space exhausted")

	// ErrRegionFull indicates all 256 z slots of the region are taken.
	ErrRegionFull = errors.New("region is full")

	// ErrAllocationConflict indicates the claim retry budget was exhausted
	// under contention, or a preferred slot was already taken.
	ErrAllocationConflict = errors.New("allocation conflict")

	// ErrQuotaExceeded indicates the owner is at their limit and carries no
	// administrative override.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrReservationExpired indicates the reservation's hold lapsed before
	// conversion.
	ErrReservationExpired = errors.New("reservation expired")

	// ErrReservationClosed indicates the reservation was already converted,
	// expired or cancelled.
	ErrReservationClosed = errors.New("reservation is no longer pending")

	// ErrRegionNotEmpty indicates a release was blocked by active child
	// hosts.
	ErrRegionNotEmpty = errors.New("region has active hosts")

	// ErrInvalidCoordinate indicates an x/y/z value out of range or outside
	// the owning country's block.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)
