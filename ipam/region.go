package ipam

import (
	"context"

	"github.com/pkg/errors"

	"github.com/moby/ipamkit/api"
	"github.com/moby/ipamkit/audit"
	"github.com/moby/ipamkit/identity"
	"github.com/moby/ipamkit/log"
	"github.com/moby/ipamkit/store"
)

// RegionRequest asks for one (x,y) pair in a country.
type RegionRequest struct {
	CountryCode string
	OwnerID     string
	// Actor defaults to OwnerID when empty.
	Actor string
	// PreferredX/PreferredY pin the claim to exact coordinates. A given
	// preference is authoritative: if the preferred slot is taken the call
	// fails instead of silently falling back to a scan.
	PreferredX *uint32
	PreferredY *uint32
	Tags       []string
}

// slot is a candidate coordinate pair produced by the free-slot search.
type slot struct {
	x, y uint32
}

// AllocateRegion claims the first free (x,y) pair in the country's range (or
// the preferred pair), charges the owner's region quota, updates the
// country's counters and audits the claim, all in one atomic unit. A
// concurrent claim of the candidate slot is retried from the next candidate
// up to the configured budget.
func (e *Engine) AllocateRegion(ctx context.Context, req RegionRequest) (*api.Region, error) {
	actor := req.Actor
	if actor == "" {
		actor = req.OwnerID
	}

	region, err := e.allocateRegion(ctx, req, actor)
	if err != nil {
		e.publish(api.AllocationFailed{ResourceType: resourceRegion, OwnerID: req.OwnerID, Reason: err.Error()})
		if errors.Cause(err) == ErrQuotaExceeded {
			e.publish(api.QuotaExceeded{OwnerID: req.OwnerID, ResourceType: resourceRegion})
		}
		allocations.WithValues(resourceRegion, allocOutcome(err)).Inc()
		return nil, err
	}

	e.publish(api.AllocationSucceeded{
		ResourceType: resourceRegion,
		ResourceID:   region.ID,
		Address:      region.CIDR(),
		OwnerID:      region.OwnerID,
	})
	allocations.WithValues(resourceRegion, outcomeSuccess).Inc()

	log.G(ctx).WithFields(map[string]interface{}{
		"region":  region.ID,
		"cidr":    region.CIDR(),
		"owner":   region.OwnerID,
		"country": region.CountryCode,
	}).Info("region allocated")
	return region, nil
}

func (e *Engine) allocateRegion(ctx context.Context, req RegionRequest, actor string) (*api.Region, error) {
	country, err := e.GetCountry(req.CountryCode)
	if err != nil {
		return nil, err
	}
	if err := validateRegionPrefs(country, req.PreferredX, req.PreferredY); err != nil {
		return nil, err
	}

	// The search runs on a read snapshot; the claim transaction re-verifies
	// the slot, so a stale candidate costs one retry, never a double
	// allocation.
	var after *slot
	for attempt := 0; attempt < e.config.AllocationRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidate, err := e.findRegionSlot(country, req.PreferredX, req.PreferredY, after)
		if err != nil {
			return nil, err
		}

		region, err := e.claimRegion(candidate, country.Code, req, actor)
		if err == nil {
			return region, nil
		}
		if errors.Cause(err) != store.ErrSlotInUse {
			return nil, err
		}
		if req.PreferredX != nil || req.PreferredY != nil {
			return nil, errors.Wrapf(ErrAllocationConflict, "slot (%d,%d) is taken", candidate.x, candidate.y)
		}
		after = &candidate
	}

	return nil, errors.Wrapf(ErrAllocationConflict, "country %s: retry budget exhausted", req.CountryCode)
}

func validateRegionPrefs(country *api.Country, prefX, prefY *uint32) error {
	if prefX != nil && (*prefX < country.XStart || *prefX > country.XEnd) {
		return errors.Wrapf(ErrInvalidCoordinate, "x=%d outside country %s range [%d,%d]", *prefX, country.Code, country.XStart, country.XEnd)
	}
	if prefY != nil && *prefY > maxOctet {
		return errors.Wrapf(ErrInvalidCoordinate, "y=%d", *prefY)
	}
	return nil
}

// findRegionSlot returns the first free (x,y) pair in ascending order,
// starting after the given slot if a previous claim attempt lost a race.
// Preferences narrow the scan; a full preference checks exactly one pair.
func (e *Engine) findRegionSlot(country *api.Country, prefX, prefY *uint32, after *slot) (slot, error) {
	var found *slot
	e.store.View(func(tx store.ReadTx) {
		now := e.now()
		for x := country.XStart; x <= country.XEnd; x++ {
			if prefX != nil && x != *prefX {
				continue
			}
			for y := uint32(0); y <= maxOctet; y++ {
				if prefY != nil && y != *prefY {
					continue
				}
				if after != nil && (x < after.x || (x == after.x && y <= after.y)) {
					continue
				}
				if store.GetRegionBySlot(tx, x, y) != nil {
					continue
				}
				if res := store.GetReservationBySlot(tx, string(api.ReserveRegion), x, y, 0); res != nil && now.Before(res.ExpiresAt) {
					// Held by an unexpired pending reservation.
					continue
				}
				found = &slot{x: x, y: y}
				return
			}
		}
	})

	if found == nil {
		if prefX != nil && prefY != nil {
			return slot{}, errors.Wrapf(ErrAllocationConflict, "slot (%d,%d) is taken", *prefX, *prefY)
		}
		return slot{}, errors.Wrapf(ErrCountryExhausted, "country %s", country.Code)
	}
	return *found, nil
}

// claimRegion is the atomic unit: quota charge, stale-hold retirement, slot
// insert, counter updates and the audit append either all commit or none do.
func (e *Engine) claimRegion(candidate slot, countryCode string, req RegionRequest, actor string) (*api.Region, error) {
	var (
		region     *api.Region
		prevU, curU float64
	)
	err := e.store.Update(func(tx store.Tx) error {
		if err := chargeQuota(tx, req.OwnerID, resourceRegion); err != nil {
			return err
		}

		if err := e.retireStaleHold(tx, string(api.ReserveRegion), candidate.x, candidate.y, 0, actor); err != nil {
			return err
		}

		r := &api.Region{
			ID:          identity.NewID(),
			X:           candidate.x,
			Y:           candidate.y,
			CountryCode: countryCode,
			OwnerID:     req.OwnerID,
			Tags:        req.Tags,
			Status:      api.StatusActive,
		}
		if err := store.CreateRegion(tx, r); err != nil {
			return err
		}

		var err error
		if prevU, curU, err = e.chargeCountry(tx, countryCode, 1); err != nil {
			return err
		}
		region = r

		return e.ledger.Append(&audit.Record{
			Action:       audit.ActionAllocateRegion,
			Actor:        actor,
			ResourceType: resourceRegion,
			ResourceID:   r.ID,
			After:        audit.Snapshot(r),
			Timestamp:    e.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	e.settleCountry(countryCode, prevU, curU)
	return region, nil
}

// retireStaleHold marks an expired-but-unswept pending reservation on the
// slot as expired so the slot index stays one-pending-per-slot. An unexpired
// hold fails the claim; the search should not have produced this candidate
// unless a reservation landed after the snapshot.
func (e *Engine) retireStaleHold(tx store.Tx, target string, x, y, z uint32, actor string) error {
	res := store.GetReservationBySlot(tx, target, x, y, z)
	if res == nil {
		return nil
	}
	if e.now().Before(res.ExpiresAt) {
		return errors.Wrapf(store.ErrSlotInUse, "slot held by reservation %s", res.ID)
	}

	before := audit.Snapshot(res)
	res.Status = api.ReservationExpired
	if err := store.UpdateReservation(tx, res); err != nil {
		return err
	}
	return e.ledger.Append(&audit.Record{
		Action:       audit.ActionExpireReservation,
		Actor:        actor,
		ResourceType: "reservation",
		ResourceID:   res.ID,
		Before:       before,
		After:        audit.Snapshot(res),
		Timestamp:    e.now(),
	})
}

// chargeCountry adjusts the country's allocated-region counter inside the
// claim transaction. It returns the utilization before and after the change
// so the caller can emit metrics and capacity warnings once the transaction
// has committed.
func (e *Engine) chargeCountry(tx store.Tx, code string, delta int) (prev, cur float64, err error) {
	c := store.GetCountry(tx, code)
	if c == nil {
		return 0, 0, errors.Wrapf(ErrNotFound, "country %s", code)
	}

	prev = utilization(c)
	if delta > 0 {
		c.AllocatedRegions += uint32(delta)
	} else {
		c.AllocatedRegions -= uint32(-delta)
	}
	if err := store.UpdateCountry(tx, c); err != nil {
		return 0, 0, err
	}

	return prev, utilization(c), nil
}

// settleCountry publishes the post-commit side effects of a counter change:
// the utilization gauge and, on an upward threshold crossing, a capacity
// warning.
func (e *Engine) settleCountry(code string, prev, cur float64) {
	countryUtilization.WithValues(code).Set(cur)
	if prev < e.config.CapacityWarnThreshold && cur >= e.config.CapacityWarnThreshold {
		e.publish(api.CapacityWarning{CountryCode: code, UtilizationPercent: cur})
		log.L.WithFields(map[string]interface{}{
			"country":     code,
			"utilization": cur,
		}).Warn("country capacity threshold crossed")
	}
}

// ReleaseRegion marks an active region released, freeing its (x,y) pair for
// a future brand-new allocation. Regions with active hosts cannot be
// released.
func (e *Engine) ReleaseRegion(ctx context.Context, regionID, actor string) error {
	var (
		countryCode string
		prevU, curU float64
	)
	err := e.store.Update(func(tx store.Tx) error {
		r := store.GetRegion(tx, regionID)
		if r == nil || r.Status == api.StatusReleased {
			return errors.Wrapf(ErrNotFound, "region %s", regionID)
		}
		if r.HostCount > 0 {
			return errors.Wrapf(ErrRegionNotEmpty, "region %s has %d hosts", regionID, r.HostCount)
		}

		before := audit.Snapshot(r)
		r.Status = api.StatusReleased
		if err := store.UpdateRegion(tx, r); err != nil {
			return err
		}

		countryCode = r.CountryCode
		var err error
		if prevU, curU, err = e.chargeCountry(tx, r.CountryCode, -1); err != nil {
			return err
		}
		if err := refundQuota(tx, r.OwnerID, resourceRegion); err != nil {
			return err
		}

		return e.ledger.Append(&audit.Record{
			Action:       audit.ActionReleaseRegion,
			Actor:        actor,
			ResourceType: resourceRegion,
			ResourceID:   r.ID,
			Before:       before,
			After:        audit.Snapshot(r),
			Timestamp:    e.now(),
		})
	})
	if err != nil {
		return err
	}

	e.settleCountry(countryCode, prevU, curU)
	releases.WithValues(resourceRegion).Inc()
	log.G(ctx).WithFields(map[string]interface{}{
		"region": regionID,
		"actor":  actor,
	}).Info("region released")
	return nil
}

// allocOutcome maps an allocation error to its metric label.
func allocOutcome(err error) string {
	switch errors.Cause(err) {
	case ErrCountryExhausted, ErrRegionFull:
		return outcomeExhausted
	case ErrAllocationConflict:
		return outcomeConflict
	case ErrQuotaExceeded:
		return outcomeQuota
	case ErrInvalidCoordinate:
		return outcomeInvalid
	default:
		return "error"
	}
}
