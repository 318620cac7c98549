package ipam

import (
	"context"

	"github.com/pkg/errors"

	"github.com/moby/ipamkit/api"
	"github.com/moby/ipamkit/audit"
	"github.com/moby/ipamkit/log"
	"github.com/moby/ipamkit/store"
)

const (
	resourceRegion = "region"
	resourceHost   = "host"
)

// SetQuotaRequest configures an owner's allocation ceilings. Use
// api.Unlimited() for an administrative override; the tagged limit avoids
// any ambiguity about what a stored max means while overridden.
type SetQuotaRequest struct {
	OwnerID string
	Regions api.Limit
	Hosts   api.Limit
	// Actor is the administrator applying the change.
	Actor string
}

// SetQuota creates or updates the owner's quota. Usage counters are
// recomputed from live rows when the quota record is first created, and a
// limit below current usage is rejected so the quota invariant can't be
// violated by the update itself.
func (e *Engine) SetQuota(ctx context.Context, req SetQuotaRequest) (*api.Quota, error) {
	if req.OwnerID == "" {
		return nil, errors.Wrap(ErrNotFound, "owner id required")
	}
	actor := req.Actor
	if actor == "" {
		actor = req.OwnerID
	}

	var updated *api.Quota
	err := e.store.Update(func(tx store.Tx) error {
		q := store.GetQuota(tx, req.OwnerID)
		before := q.Copy()

		if q == nil {
			q = &api.Quota{OwnerID: req.OwnerID}
			regions, err := store.FindRegions(tx, store.ByOwner(req.OwnerID))
			if err != nil {
				return err
			}
			for _, r := range regions {
				if r.Status != api.StatusReleased {
					q.CurrentRegions++
				}
			}
			hosts, err := store.FindHosts(tx, store.ByOwner(req.OwnerID))
			if err != nil {
				return err
			}
			for _, h := range hosts {
				if h.Status != api.StatusReleased {
					q.CurrentHosts++
				}
			}
		}

		if req.Regions.Mode == api.LimitModeLimited && q.CurrentRegions > req.Regions.Max {
			return errors.Wrapf(ErrQuotaExceeded, "owner %s already has %d regions, above requested limit %d", req.OwnerID, q.CurrentRegions, req.Regions.Max)
		}
		if req.Hosts.Mode == api.LimitModeLimited && q.CurrentHosts > req.Hosts.Max {
			return errors.Wrapf(ErrQuotaExceeded, "owner %s already has %d hosts, above requested limit %d", req.OwnerID, q.CurrentHosts, req.Hosts.Max)
		}

		q.Regions = req.Regions
		q.Hosts = req.Hosts
		q.UpdatedBy = actor

		var err error
		if before == nil {
			err = store.CreateQuota(tx, q)
		} else {
			err = store.UpdateQuota(tx, q)
		}
		if err != nil {
			return err
		}
		updated = q

		record := &audit.Record{
			Action:       audit.ActionSetQuota,
			Actor:        actor,
			ResourceType: "quota",
			ResourceID:   q.OwnerID,
			After:        audit.Snapshot(q),
			Timestamp:    e.now(),
		}
		if before != nil {
			record.Before = audit.Snapshot(before)
		}
		return e.ledger.Append(record)
	})
	if err != nil {
		return nil, err
	}

	log.G(ctx).WithFields(map[string]interface{}{
		"owner": req.OwnerID,
		"actor": actor,
	}).Info("quota updated")
	return updated, nil
}

// GetQuota returns the owner's quota record, or ErrNotFound if the owner has
// never been given one and has no tracked usage.
func (e *Engine) GetQuota(ownerID string) (*api.Quota, error) {
	var q *api.Quota
	e.store.View(func(tx store.ReadTx) {
		q = store.GetQuota(tx, ownerID)
	})
	if q == nil {
		return nil, errors.Wrapf(ErrNotFound, "quota for owner %s", ownerID)
	}
	return q, nil
}

// ensureQuota returns the owner's quota row inside a write transaction,
// creating an unlimited one the first time an owner allocates so usage is
// tracked from the very first claim.
func ensureQuota(tx store.Tx, ownerID string) (*api.Quota, error) {
	q := store.GetQuota(tx, ownerID)
	if q != nil {
		return q, nil
	}
	q = &api.Quota{
		OwnerID: ownerID,
		Regions: api.Unlimited(),
		Hosts:   api.Unlimited(),
	}
	if err := store.CreateQuota(tx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// chargeQuota checks the owner's ceiling for the resource type and, if the
// claim is allowed, increments the usage counter. It runs inside the same
// transaction as the slot claim; check and increment are never separated.
func chargeQuota(tx store.Tx, ownerID, resource string) error {
	q, err := ensureQuota(tx, ownerID)
	if err != nil {
		return err
	}

	switch resource {
	case resourceRegion:
		if !q.Regions.Allows(q.CurrentRegions) {
			return errors.Wrapf(ErrQuotaExceeded, "owner %s at region limit %d", ownerID, q.Regions.Max)
		}
		q.CurrentRegions++
	case resourceHost:
		if !q.Hosts.Allows(q.CurrentHosts) {
			return errors.Wrapf(ErrQuotaExceeded, "owner %s at host limit %d", ownerID, q.Hosts.Max)
		}
		q.CurrentHosts++
	}

	return store.UpdateQuota(tx, q)
}

// refundQuota decrements the owner's usage counter on release.
func refundQuota(tx store.Tx, ownerID, resource string) error {
	q, err := ensureQuota(tx, ownerID)
	if err != nil {
		return err
	}

	switch resource {
	case resourceRegion:
		if q.CurrentRegions > 0 {
			q.CurrentRegions--
		}
	case resourceHost:
		if q.CurrentHosts > 0 {
			q.CurrentHosts--
		}
	}

	return store.UpdateQuota(tx, q)
}
