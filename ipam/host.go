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

// HostRequest asks for one z slot inside an active region.
type HostRequest struct {
	RegionID string
	OwnerID  string
	// Actor defaults to OwnerID when empty.
	Actor    string
	Hostname string
	// PreferredZ pins the claim to an exact slot; a taken preferred slot
	// fails the call rather than falling back to a scan.
	PreferredZ *uint32
}

// AllocateHost claims the first free z in the region's 256-slot space (or
// the preferred z), charges the owner's host quota, bumps the region's host
// count and audits the claim atomically.
func (e *Engine) AllocateHost(ctx context.Context, req HostRequest) (*api.Host, error) {
	actor := req.Actor
	if actor == "" {
		actor = req.OwnerID
	}

	host, err := e.allocateHost(ctx, req, actor)
	if err != nil {
		e.publish(api.AllocationFailed{ResourceType: resourceHost, OwnerID: req.OwnerID, Reason: err.Error()})
		if errors.Cause(err) == ErrQuotaExceeded {
			e.publish(api.QuotaExceeded{OwnerID: req.OwnerID, ResourceType: resourceHost})
		}
		allocations.WithValues(resourceHost, allocOutcome(err)).Inc()
		return nil, err
	}

	e.publish(api.AllocationSucceeded{
		ResourceType: resourceHost,
		ResourceID:   host.ID,
		Address:      host.Addr(),
		OwnerID:      host.OwnerID,
	})
	allocations.WithValues(resourceHost, outcomeSuccess).Inc()

	log.G(ctx).WithFields(map[string]interface{}{
		"host":    host.ID,
		"address": host.Addr(),
		"owner":   host.OwnerID,
	}).Info("host allocated")
	return host, nil
}

func (e *Engine) allocateHost(ctx context.Context, req HostRequest, actor string) (*api.Host, error) {
	if req.PreferredZ != nil && *req.PreferredZ > maxOctet {
		return nil, errors.Wrapf(ErrInvalidCoordinate, "z=%d", *req.PreferredZ)
	}

	var region *api.Region
	e.store.View(func(tx store.ReadTx) {
		region = store.GetRegion(tx, req.RegionID)
	})
	if region == nil || region.Status != api.StatusActive {
		return nil, errors.Wrapf(ErrNotFound, "region %s", req.RegionID)
	}

	var afterZ *uint32
	for attempt := 0; attempt < e.config.AllocationRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		z, err := e.findHostSlot(region, req.PreferredZ, afterZ)
		if err != nil {
			return nil, err
		}

		host, err := e.claimHost(region, z, req, actor)
		if err == nil {
			return host, nil
		}
		if errors.Cause(err) != store.ErrSlotInUse {
			return nil, err
		}
		if req.PreferredZ != nil {
			return nil, errors.Wrapf(ErrAllocationConflict, "slot z=%d is taken in region %s", z, req.RegionID)
		}
		zz := z
		afterZ = &zz
	}

	return nil, errors.Wrapf(ErrAllocationConflict, "region %s: retry budget exhausted", req.RegionID)
}

// findHostSlot returns the first free z in ascending order, starting after
// afterZ when a previous claim attempt lost a race.
func (e *Engine) findHostSlot(region *api.Region, prefZ, afterZ *uint32) (uint32, error) {
	found := -1
	e.store.View(func(tx store.ReadTx) {
		now := e.now()
		for z := uint32(0); z <= maxOctet; z++ {
			if prefZ != nil && z != *prefZ {
				continue
			}
			if afterZ != nil && z <= *afterZ {
				continue
			}
			if store.GetHostBySlot(tx, region.ID, z) != nil {
				continue
			}
			if res := store.GetReservationBySlot(tx, string(api.ReserveHost), region.X, region.Y, z); res != nil && now.Before(res.ExpiresAt) {
				continue
			}
			found = int(z)
			return
		}
	})

	if found < 0 {
		if prefZ != nil {
			return 0, errors.Wrapf(ErrAllocationConflict, "slot z=%d is taken in region %s", *prefZ, region.ID)
		}
		return 0, errors.Wrapf(ErrRegionFull, "region %s", region.ID)
	}
	return uint32(found), nil
}

func (e *Engine) claimHost(region *api.Region, z uint32, req HostRequest, actor string) (*api.Host, error) {
	var host *api.Host
	err := e.store.Update(func(tx store.Tx) error {
		// The region may have been released since the read snapshot.
		r := store.GetRegion(tx, region.ID)
		if r == nil || r.Status != api.StatusActive {
			return errors.Wrapf(ErrNotFound, "region %s", region.ID)
		}

		if err := chargeQuota(tx, req.OwnerID, resourceHost); err != nil {
			return err
		}

		if err := e.retireStaleHold(tx, string(api.ReserveHost), r.X, r.Y, z, actor); err != nil {
			return err
		}

		h := &api.Host{
			ID:       identity.NewID(),
			RegionID: r.ID,
			X:        r.X,
			Y:        r.Y,
			Z:        z,
			OwnerID:  req.OwnerID,
			Hostname: req.Hostname,
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
			Action:       audit.ActionAllocateHost,
			Actor:        actor,
			ResourceType: resourceHost,
			ResourceID:   h.ID,
			After:        audit.Snapshot(h),
			Timestamp:    e.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return host, nil
}

// ReleaseHost marks an active host released and gives the z slot back to
// the region.
func (e *Engine) ReleaseHost(ctx context.Context, hostID, actor string) error {
	err := e.store.Update(func(tx store.Tx) error {
		h := store.GetHost(tx, hostID)
		if h == nil || h.Status == api.StatusReleased {
			return errors.Wrapf(ErrNotFound, "host %s", hostID)
		}

		before := audit.Snapshot(h)
		h.Status = api.StatusReleased
		if err := store.UpdateHost(tx, h); err != nil {
			return err
		}

		r := store.GetRegion(tx, h.RegionID)
		if r == nil {
			return errors.Wrapf(ErrNotFound, "region %s", h.RegionID)
		}
		if r.HostCount > 0 {
			r.HostCount--
		}
		if err := store.UpdateRegion(tx, r); err != nil {
			return err
		}

		if err := refundQuota(tx, h.OwnerID, resourceHost); err != nil {
			return err
		}

		return e.ledger.Append(&audit.Record{
			Action:       audit.ActionReleaseHost,
			Actor:        actor,
			ResourceType: resourceHost,
			ResourceID:   h.ID,
			Before:       before,
			After:        audit.Snapshot(h),
			Timestamp:    e.now(),
		})
	})
	if err != nil {
		return err
	}

	releases.WithValues(resourceHost).Inc()
	log.G(ctx).WithFields(map[string]interface{}{
		"host":  hostID,
		"actor": actor,
	}).Info("host released")
	return nil
}
