package store

import (
	events "github.com/docker/go-events"
	memdb "github.com/hashicorp/go-memdb"

	"github.com/moby/ipamkit/api"
)

const tableRegion = "region"

func init() {
	register(ObjectStoreConfig{
		Table: &memdb.TableSchema{
			Name: tableRegion,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: regionIndexerByID{},
				},
				// The slot index covers live (non-released) rows only. It is
				// the load-bearing uniqueness mechanism for (x,y) pairs;
				// CreateRegion consults it before inserting.
				indexSlot: {
					Name:         indexSlot,
					Unique:       true,
					AllowMissing: true,
					Indexer:      regionIndexerBySlot{},
				},
				indexCountry: {
					Name:    indexCountry,
					Indexer: regionIndexerByCountry{},
				},
				indexOwner: {
					Name:    indexOwner,
					Indexer: regionIndexerByOwner{},
				},
				indexStatus: {
					Name:    indexStatus,
					Indexer: regionIndexerByStatus{},
				},
			},
		},
		Save: func(tx ReadTx, snapshot *Snapshot) error {
			var err error
			snapshot.Regions, err = FindRegions(tx, All)
			return err
		},
		Restore: func(tx Tx, snapshot *Snapshot) error {
			regions, err := FindRegions(tx, All)
			if err != nil {
				return err
			}
			for _, r := range regions {
				if err := DeleteRegion(tx, r.ID); err != nil {
					return err
				}
			}
			for _, r := range snapshot.Regions {
				if err := CreateRegion(tx, r); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

type regionEntry struct {
	*api.Region
}

func (r regionEntry) ID() string {
	return r.Region.ID
}

func (r regionEntry) CopyStoreObject() Object {
	return regionEntry{Region: r.Region.Copy()}
}

func (r regionEntry) GetMeta() api.Meta {
	return r.Region.Meta
}

func (r regionEntry) SetMeta(meta api.Meta) {
	r.Region.Meta = meta
}

func (r regionEntry) EventCreate() events.Event {
	return EventCreateRegion{Region: r.Region}
}

func (r regionEntry) EventUpdate() events.Event {
	return EventUpdateRegion{Region: r.Region}
}

func (r regionEntry) EventDelete() events.Event {
	return EventDeleteRegion{Region: r.Region}
}

// CreateRegion adds a new region to the store.
// Returns ErrExist if the ID is already taken and ErrSlotInUse if a live
// region already occupies the (x,y) pair.
func CreateRegion(tx Tx, r *api.Region) error {
	if r.Status != api.StatusReleased {
		if tx.lookup(tableRegion, indexSlot, regionSlotKey(r.X, r.Y)) != nil {
			return ErrSlotInUse
		}
	}

	return tx.create(tableRegion, regionEntry{r})
}

// UpdateRegion updates an existing region in the store.
// Returns ErrNotExist if the region doesn't exist.
func UpdateRegion(tx Tx, r *api.Region) error {
	// A live row may not move onto a slot held by a different live row.
	if r.Status != api.StatusReleased {
		if existing := tx.lookup(tableRegion, indexSlot, regionSlotKey(r.X, r.Y)); existing != nil && existing.ID() != r.ID {
			return ErrSlotInUse
		}
	}

	return tx.update(tableRegion, regionEntry{r})
}

// DeleteRegion removes a region from the store.
// Returns ErrNotExist if the region doesn't exist.
func DeleteRegion(tx Tx, id string) error {
	return tx.delete(tableRegion, id)
}

// GetRegion looks up a region by ID.
// Returns nil if the region doesn't exist.
func GetRegion(tx ReadTx, id string) *api.Region {
	r := tx.get(tableRegion, id)
	if r == nil {
		return nil
	}
	return r.(regionEntry).Region
}

// GetRegionBySlot returns the live region occupying (x,y), or nil if the
// slot is free. Released rows never match.
func GetRegionBySlot(tx ReadTx, x, y uint32) *api.Region {
	o := tx.lookup(tableRegion, indexSlot, regionSlotKey(x, y))
	if o == nil {
		return nil
	}
	return o.CopyStoreObject().(regionEntry).Region
}

// FindRegions selects a set of regions and returns them.
func FindRegions(tx ReadTx, by By) ([]*api.Region, error) {
	checkType := func(by By) error {
		switch by.(type) {
		case byAll, byOwner, byCountry, byStatus, bySlot:
			return nil
		default:
			return ErrInvalidFindBy
		}
	}

	regionList := []*api.Region{}
	appendResult := func(o Object) {
		regionList = append(regionList, o.(regionEntry).Region)
	}

	err := tx.find(tableRegion, by, checkType, appendResult)
	return regionList, err
}

type regionIndexerByID struct{}

func (ri regionIndexerByID) FromArgs(args ...interface{}) ([]byte, error) {
	return fromArgs(args...)
}

func (ri regionIndexerByID) FromObject(obj interface{}) (bool, []byte, error) {
	r := obj.(regionEntry)

	// Add the null character as a terminator
	val := r.Region.ID + "\x00"
	return true, []byte(val), nil
}

type regionIndexerBySlot struct{}

func (ri regionIndexerBySlot) FromArgs(args ...interface{}) ([]byte, error) {
	return fromArgs(args...)
}

func (ri regionIndexerBySlot) FromObject(obj interface{}) (bool, []byte, error) {
	r := obj.(regionEntry)
	if r.Region.Status == api.StatusReleased {
		return false, nil, nil
	}

	val := regionSlotKey(r.Region.X, r.Region.Y) + "\x00"
	return true, []byte(val), nil
}

type regionIndexerByCountry struct{}

func (ri regionIndexerByCountry) FromArgs(args ...interface{}) ([]byte, error) {
	return fromArgs(args...)
}

func (ri regionIndexerByCountry) FromObject(obj interface{}) (bool, []byte, error) {
	r := obj.(regionEntry)

	val := r.Region.CountryCode + "\x00"
	return true, []byte(val), nil
}

type regionIndexerByOwner struct{}

func (ri regionIndexerByOwner) FromArgs(args ...interface{}) ([]byte, error) {
	return fromArgs(args...)
}

func (ri regionIndexerByOwner) FromObject(obj interface{}) (bool, []byte, error) {
	r := obj.(regionEntry)

	val := r.Region.OwnerID + "\x00"
	return true, []byte(val), nil
}

type regionIndexerByStatus struct{}

func (ri regionIndexerByStatus) FromArgs(args ...interface{}) ([]byte, error) {
	return fromArgs(args...)
}

func (ri regionIndexerByStatus) FromObject(obj interface{}) (bool, []byte, error) {
	r := obj.(regionEntry)

	val := string(r.Region.Status) + "\x00"
	return true, []byte(val), nil
}
