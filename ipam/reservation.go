package ipam

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/moby/ipamkit/api"
	"github.com/moby/ipamkit/audit"
	"github.com/moby/ipamkit/identity"
	"github.com/moby/ipamkit/log"
	"github.com/moby/ipamkit/store"
)

// ReserveRequest places a time-bounded hold on a slot. For region targets,
// either an explicit (X,Y) or a CountryCode to auto-select in must be given.
// For host targets, RegionID names the region and Z may pin the slot.
type ReserveRequest struct {
	Target      api.ReservationTarget
	CountryCode string
	RegionID    string
	X, Y, Z     *uint32
	ReservedBy  string
	// Actor defaults to ReservedBy when empty.
	Actor string
	// TTL of the hold; the engine default applies when zero.
	TTL time.Duration
}

// Reserve holds a region or host slot for the requester. The hold uses the
// same free-slot search and uniqueness discipline as a real allocation, so
// from the moment it commits the slot is invisible to other searches until
// the hold converts, is cancelled, or expires.
func (e *Engine) Reserve(ctx context.Context, req ReserveRequest) (*api.Reservation, error) {
	actor := req.Actor
	if actor == "" {
		actor = req.ReservedBy
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = e.config.DefaultReservationTTL
	}

	switch req.Target {
	case api.ReserveRegion:
		return e.reserveRegionSlot(ctx, req, actor, ttl)
	case api.ReserveHost:
		return e.reserveHostSlot(ctx, req, actor, ttl)
	default:
		return nil, errors.Wrapf(ErrInvalidCoordinate, "unknown reservation target %q", req.Target)
	}
}

func (e *Engine) reserveRegionSlot(ctx context.Context, req ReserveRequest, actor string, ttl time.Duration) (*api.Reservation, error) {
	countryCode := req.CountryCode
	if countryCode == "" && req.X != nil {
		e.store.View(func(tx store.ReadTx) {
			if c := store.GetCountryForX(tx, *req.X); c != nil {
				countryCode = c.Code
			}
		})
	}
	country, err := e.GetCountry(countryCode)
	if err != nil {
		return nil, err
	}
	if err := validateRegionPrefs(country, req.X, req.Y); err != nil {
		return nil, err
	}

	var after *slot
	for attempt := 0; attempt < e.config.AllocationRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidate, err := e.findRegionSlot(country, req.X, req.Y, after)
		if err != nil {
			return nil, err
		}

		res, err := e.placeHold(api.ReserveRegion, candidate.x, candidate.y, 0, "", req.ReservedBy, actor, ttl)
		if err == nil {
			return res, nil
		}
		if errors.Cause(err) != store.ErrSlotInUse {
			return nil, err
		}
		if req.X != nil || req.Y != nil {
			return nil, errors.Wrapf(ErrAllocationConflict, "slot (%d,%d) is taken", candidate.x, candidate.y)
		}
		after = &candidate
	}

	return nil, errors.Wrapf(ErrAllocationConflict, "country %s: retry budget exhausted", countryCode)
}

func (e *Engine) reserveHostSlot(ctx context.Context, req ReserveRequest, actor string, ttl time.Duration) (*api.Reservation, error) {
	if req.Z != nil && *req.Z > maxOctet {
		return nil, errors.Wrapf(ErrInvalidCoordinate, "z=%d", *req.Z)
	}

	var region *api.Region
	e.store.View(func(tx store.ReadTx) {
		if req.RegionID != "" {
			region = store.GetRegion(tx, req.RegionID)
		} else if req.X != nil && req.Y != nil {
			region = store.GetRegionBySlot(tx, *req.X, *req.Y)
		}
	})
	if region == nil || region.Status != api.StatusActive {
		return nil, errors.Wrap(ErrNotFound, "target region")
	}

	var afterZ *uint32
	for attempt := 0; attempt < e.config.AllocationRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		z, err := e.findHostSlot(region, req.Z, afterZ)
		if err != nil {
			return nil, err
		}

		res, err := e.placeHold(api.ReserveHost, region.X, region.Y, z, region.ID, req.ReservedBy, actor, ttl)
		if err == nil {
			return res, nil
		}
		if errors.Cause(err) != store.ErrSlotInUse {
			return nil, err
		}
		if req.Z != nil {
			return nil, errors.Wrapf(ErrAllocationConflict, "slot z=%d is taken in region %s", z, region.ID)
		}
		zz := z
		afterZ = &zz
	}

	return nil, errors.Wrapf(ErrAllocationConflict, "region %s: retry budget exhausted", region.ID)
}

// placeHold inserts the pending reservation under the same uniqueness
// discipline as a claim: the target slot must be free of live rows and of
// other pending holds at commit time.
func (e *Engine) placeHold(target api.ReservationTarget, x, y, z uint32, regionID, reservedBy, actor string, ttl time.Duration) (*api.Reservation, error) {
	var reservation *api.Reservation
	err := e.store.Update(func(tx store.Tx) error {
		// Re-verify the slot against live rows; the search snapshot may be
		// stale.
		switch target {
		case api.ReserveRegion:
			if store.GetRegionBySlot(tx, x, y) != nil {
				return errors.Wrapf(store.ErrSlotInUse, "slot (%d,%d)", x, y)
			}
		case api.ReserveHost:
			if store.GetHostBySlot(tx, regionID, z) != nil {
				return errors.Wrapf(store.ErrSlotInUse, "slot z=%d", z)
			}
		}

		if err := e.retireStaleHold(tx, string(target), x, y, z, actor); err != nil {
			return err
		}

		r := &api.Reservation{
			ID:         identity.NewID(),
			Target:     target,
			X:          x,
			Y:          y,
			Z:          z,
			RegionID:   regionID,
			ReservedBy: reservedBy,
			ExpiresAt:  e.now().Add(ttl),
			Status:     api.ReservationPending,
		}
		if err := store.CreateReservation(tx, r); err != nil {
			return err
		}
		reservation = r

		return e.ledger.Append(&audit.Record{
			Action:       audit.ActionReserve,
			Actor:        actor,
			ResourceType: "reservation",
			ResourceID:   r.ID,
			After:        audit.Snapshot(r),
			Timestamp:    e.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	log.L.WithFields(map[string]interface{}{
		"reservation": reservation.ID,
		"target":      string(target),
		"owner":       reservedBy,
		"expires_at":  reservation.ExpiresAt,
	}).Info("slot reserved")
	return reservation, nil
}

// Convert turns an unexpired pending reservation into the real allocation it
// was holding a slot for. The converting owner must be the reservation
// holder. Exactly one of the returned region/host is set, matching the
// reservation's target type.
func (e *Engine) Convert(ctx context.Context, reservationID, ownerID string) (*api.Region, *api.Host, error) {
	actor := ownerID

	var (
		region      *api.Region
		host        *api.Host
		resource    string
		prevU, curU float64
		countryCode string
	)
	err := e.store.Update(func(tx store.Tx) error {
		res := store.GetReservation(tx, reservationID)
		if res == nil {
			return errors.Wrapf(ErrNotFound, "reservation %s", reservationID)
		}
		resource = string(res.Target)
		if res.ReservedBy != ownerID {
			return errors.Wrapf(ErrNotFound, "reservation %s for owner %s", reservationID, ownerID)
		}
		if res.Status != api.ReservationPending {
			return errors.Wrapf(ErrReservationClosed, "reservation %s is %s", reservationID, res.Status)
		}
		if !e.now().Before(res.ExpiresAt) {
			return errors.Wrapf(ErrReservationExpired, "reservation %s expired at %s", reservationID, res.ExpiresAt.Format(time.RFC3339))
		}

		before := audit.Snapshot(res)
		res.Status = api.ReservationConverted
		if err := store.UpdateReservation(tx, res); err != nil {
			return err
		}

		switch res.Target {
		case api.ReserveRegion:
			c := store.GetCountryForX(tx, res.X)
			if c == nil {
				return errors.Wrapf(ErrInvalidCoordinate, "x=%d has no owning country", res.X)
			}
			if err := chargeQuota(tx, ownerID, resourceRegion); err != nil {
				return err
			}
			r := &api.Region{
				ID:          identity.NewID(),
				X:           res.X,
				Y:           res.Y,
				CountryCode: c.Code,
				OwnerID:     ownerID,
				Status:      api.StatusActive,
			}
			if err := store.CreateRegion(tx, r); err != nil {
				return err
			}
			countryCode = c.Code
			var err error
			if prevU, curU, err = e.chargeCountry(tx, c.Code, 1); err != nil {
				return err
			}
			region = r

			return e.ledger.Append(&audit.Record{
				Action:       audit.ActionConvertReservation,
				Actor:        actor,
				ResourceType: resourceRegion,
				ResourceID:   r.ID,
				Before:       before,
				After:        audit.Snapshot(r),
				Timestamp:    e.now(),
			})

		case api.ReserveHost:
			r := store.GetRegion(tx, res.RegionID)
			if r == nil || r.Status != api.StatusActive {
				return errors.Wrapf(ErrNotFound, "region %s", res.RegionID)
			}
			if err := chargeQuota(tx, ownerID, resourceHost); err != nil {
				return err
			}
			h := &api.Host{
				ID:       identity.NewID(),
				RegionID: r.ID,
				X:        r.X,
				Y:        r.Y,
				Z:        res.Z,
				OwnerID:  ownerID,
				Status:   api.StatusActive,
			}
			if err := store.CreateHost(tx, h); err != nil {
				return err
			}
			r.HostCount++
			if err := store.UpdateRegion(tx, r); err != nil {
				return err
			}
			host = h

			return e.ledger.Append(&audit.Record{
				Action:       audit.ActionConvertReservation,
				Actor:        actor,
				ResourceType: resourceHost,
				ResourceID:   h.ID,
				Before:       before,
				After:        audit.Snapshot(h),
				Timestamp:    e.now(),
			})
		}
		return errors.Wrapf(ErrInvalidCoordinate, "unknown reservation target %q", res.Target)
	})
	if err != nil {
		if resource == "" {
			resource = resourceRegion
		}
		e.publish(api.AllocationFailed{ResourceType: resource, OwnerID: ownerID, Reason: err.Error()})
		allocations.WithValues(resource, allocOutcome(err)).Inc()
		return nil, nil, err
	}

	if region != nil {
		e.settleCountry(countryCode, prevU, curU)
		e.publish(api.AllocationSucceeded{ResourceType: resourceRegion, ResourceID: region.ID, Address: region.CIDR(), OwnerID: ownerID})
		allocations.WithValues(resourceRegion, outcomeSuccess).Inc()
	}
	if host != nil {
		e.publish(api.AllocationSucceeded{ResourceType: resourceHost, ResourceID: host.ID, Address: host.Addr(), OwnerID: ownerID})
		allocations.WithValues(resourceHost, outcomeSuccess).Inc()
	}

	log.G(ctx).WithField("reservation", reservationID).Info("reservation converted")
	return region, host, nil
}

// Cancel marks a pending reservation cancelled, freeing its slot
// immediately.
func (e *Engine) Cancel(ctx context.Context, reservationID, actor string) error {
	err := e.store.Update(func(tx store.Tx) error {
		res := store.GetReservation(tx, reservationID)
		if res == nil {
			return errors.Wrapf(ErrNotFound, "reservation %s", reservationID)
		}
		if res.Status != api.ReservationPending {
			return errors.Wrapf(ErrReservationClosed, "reservation %s is %s", reservationID, res.Status)
		}

		before := audit.Snapshot(res)
		res.Status = api.ReservationCancelled
		if err := store.UpdateReservation(tx, res); err != nil {
			return err
		}

		return e.ledger.Append(&audit.Record{
			Action:       audit.ActionCancelReservation,
			Actor:        actor,
			ResourceType: "reservation",
			ResourceID:   res.ID,
			Before:       before,
			After:        audit.Snapshot(res),
			Timestamp:    e.now(),
		})
	})
	if err != nil {
		return err
	}

	log.G(ctx).WithField("reservation", reservationID).Info("reservation cancelled")
	return nil
}

// SweepExpired marks every pending reservation past its expiry as expired,
// freeing the held slots. It is idempotent and driven by an external
// scheduler; the engine never runs it on its own. Searches treat expired
// holds as absent, so running the sweep concurrently with allocations is
// safe.
func (e *Engine) SweepExpired(ctx context.Context) (int, error) {
	swept := 0
	err := e.store.Update(func(tx store.Tx) error {
		pending, err := store.FindReservations(tx, store.ByStatus(string(api.ReservationPending)))
		if err != nil {
			return err
		}

		now := e.now()
		for _, res := range pending {
			if now.Before(res.ExpiresAt) {
				continue
			}
			before := audit.Snapshot(res)
			res.Status = api.ReservationExpired
			if err := store.UpdateReservation(tx, res); err != nil {
				return err
			}
			if err := e.ledger.Append(&audit.Record{
				Action:       audit.ActionExpireReservation,
				Actor:        "system",
				ResourceType: "reservation",
				ResourceID:   res.ID,
				Before:       before,
				After:        audit.Snapshot(res),
				Timestamp:    now,
			}); err != nil {
				return err
			}
			swept++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if swept > 0 {
		reservationsSwept.Inc(float64(swept))
		log.G(ctx).WithField("swept", swept).Info("expired reservations swept")
	}
	return swept, nil
}
