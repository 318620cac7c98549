package store

import (
	events "github.com/docker/go-events"
	memdb "github.com/hashicorp/go-memdb"

	"github.com/moby/ipamkit/api"
)

const tableHost = "host"

func init() {
	register(ObjectStoreConfig{
		Table: &memdb.TableSchema{
			Name: tableHost,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: hostIndexerByID{},
				},
				// Live rows only; the uniqueness guard for (region_id, z).
				indexSlot: {
					Name:         indexSlot,
					Unique:       true,
					AllowMissing: true,
					Indexer:      hostIndexerBySlot{},
				},
				indexRegionID: {
					Name:    indexRegionID,
					Indexer: hostIndexerByRegion{},
				},
				indexOwner: {
					Name:    indexOwner,
					Indexer: hostIndexerByOwner{},
				},
				indexStatus: {
					Name:    indexStatus,
					Indexer: hostIndexerByStatus{},
				},
			},
		},
		Save: func(tx ReadTx, snapshot *Snapshot) error {
			var err error
			snapshot.Hosts, err = FindHosts(tx, All)
			return err
		},
		Restore: func(tx Tx, snapshot *Snapshot) error {
			hosts, err := FindHosts(tx, All)
			if err != nil {
				return err
			}
			for _, h := range hosts {
				if err := DeleteHost(tx, h.ID); err != nil {
					return err
				}
			}
			for _, h := range snapshot.Hosts {
				if err := CreateHost(tx, h); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

type hostEntry struct {
	*api.Host
}

func (h hostEntry) ID() string {
	return h.Host.ID
}

func (h hostEntry) CopyStoreObject() Object {
	return hostEntry{Host: h.Host.Copy()}
}

func (h hostEntry) GetMeta() api.Meta {
	return h.Host.Meta
}

func (h hostEntry) SetMeta(meta api.Meta) {
	h.Host.Meta = meta
}

func (h hostEntry) EventCreate() events.Event {
	return EventCreateHost{Host: h.Host}
}

func (h hostEntry) EventUpdate() events.Event {
	return EventUpdateHost{Host: h.Host}
}

func (h hostEntry) EventDelete() events.Event {
	return EventDeleteHost{Host: h.Host}
}

// CreateHost adds a new host to the store.
// Returns ErrExist if the ID is already taken and ErrSlotInUse if a live
// host already occupies z within the region.
func CreateHost(tx Tx, h *api.Host) error {
	if h.Status != api.StatusReleased {
		if tx.lookup(tableHost, indexSlot, hostSlotKey(h.RegionID, h.Z)) != nil {
			return ErrSlotInUse
		}
	}

	return tx.create(tableHost, hostEntry{h})
}

// UpdateHost updates an existing host in the store.
// Returns ErrNotExist if the host doesn't exist.
func UpdateHost(tx Tx, h *api.Host) error {
	if h.Status != api.StatusReleased {
		if existing := tx.lookup(tableHost, indexSlot, hostSlotKey(h.RegionID, h.Z)); existing != nil && existing.ID() != h.ID {
			return ErrSlotInUse
		}
	}

	return tx.update(tableHost, hostEntry{h})
}

// DeleteHost removes a host from the store.
// Returns ErrNotExist if the host doesn't exist.
func DeleteHost(tx Tx, id string) error {
	return tx.delete(tableHost, id)
}

// GetHost looks up a host by ID.
// Returns nil if the host doesn't exist.
func GetHost(tx ReadTx, id string) *api.Host {
	h := tx.get(tableHost, id)
	if h == nil {
		return nil
	}
	return h.(hostEntry).Host
}

// GetHostBySlot returns the live host occupying z within the region, or nil
// if the slot is free. Released rows never match.
func GetHostBySlot(tx ReadTx, regionID string, z uint32) *api.Host {
	o := tx.lookup(tableHost, indexSlot, hostSlotKey(regionID, z))
	if o == nil {
		return nil
	}
	return o.CopyStoreObject().(hostEntry).Host
}

// FindHosts selects a set of hosts and returns them.
func FindHosts(tx ReadTx, by By) ([]*api.Host, error) {
	checkType := func(by By) error {
		switch by.(type) {
		case byAll, byOwner, byRegionID, byStatus, bySlot:
			return nil
		default:
			return ErrInvalidFindBy
		}
	}

	hostList := []*api.Host{}
	appendResult := func(o Object) {
		hostList = append(hostList, o.(hostEntry).Host)
	}

	err := tx.find(tableHost, by, checkType, appendResult)
	return hostList, err
}

type hostIndexerByID struct{}

func (hi hostIndexerByID) FromArgs(args ...interface{}) ([]byte, error) {
	return fromArgs(args...)
}

func (hi hostIndexerByID) FromObject(obj interface{}) (bool, []byte, error) {
	h := obj.(hostEntry)

	// Add the null character as a terminator
	val := h.Host.ID + "\x00"
	return true, []byte(val), nil
}

type hostIndexerBySlot struct{}

func (hi hostIndexerBySlot) FromArgs(args ...interface{}) ([]byte, error) {
	return fromArgs(args...)
}

func (hi hostIndexerBySlot) FromObject(obj interface{}) (bool, []byte, error) {
	h := obj.(hostEntry)
	if h.Host.Status == api.StatusReleased {
		return false, nil, nil
	}

	val := hostSlotKey(h.Host.RegionID, h.Host.Z) + "\x00"
	return true, []byte(val), nil
}

type hostIndexerByRegion struct{}

func (hi hostIndexerByRegion) FromArgs(args ...interface{}) ([]byte, error) {
	return fromArgs(args...)
}

func (hi hostIndexerByRegion) FromObject(obj interface{}) (bool, []byte, error) {
	h := obj.(hostEntry)

	val := h.Host.RegionID + "\x00"
	return true, []byte(val), nil
}

type hostIndexerByOwner struct{}

func (hi hostIndexerByOwner) FromArgs(args ...interface{}) ([]byte, error) {
	return fromArgs(args...)
}

func (hi hostIndexerByOwner) FromObject(obj interface{}) (bool, []byte, error) {
	h := obj.(hostEntry)

	val := h.Host.OwnerID + "\x00"
	return true, []byte(val), nil
}

type hostIndexerByStatus struct{}

func (hi hostIndexerByStatus) FromArgs(args ...interface{}) ([]byte, error) {
	return fromArgs(args...)
}

func (hi hostIndexerByStatus) FromObject(obj interface{}) (bool, []byte, error) {
	h := obj.(hostEntry)

	val := string(h.Host.Status) + "\x00"
	return true, []byte(val), nil
}
