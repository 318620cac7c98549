package store

import (
	events "github.com/docker/go-events"
	memdb "github.com/hashicorp/go-memdb"

	"github.com/moby/ipamkit/api"
)

const tableQuota = "quota"

func init() {
	register(ObjectStoreConfig{
		Table: &memdb.TableSchema{
			Name: tableQuota,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: quotaIndexerByOwner{},
				},
			},
		},
		Save: func(tx ReadTx, snapshot *Snapshot) error {
			var err error
			snapshot.Quotas, err = FindQuotas(tx, All)
			return err
		},
		Restore: func(tx Tx, snapshot *Snapshot) error {
			quotas, err := FindQuotas(tx, All)
			if err != nil {
				return err
			}
			for _, q := range quotas {
				if err := DeleteQuota(tx, q.OwnerID); err != nil {
					return err
				}
			}
			for _, q := range snapshot.Quotas {
				if err := CreateQuota(tx, q); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

type quotaEntry struct {
	*api.Quota
}

func (q quotaEntry) ID() string {
	return q.Quota.OwnerID
}

func (q quotaEntry) CopyStoreObject() Object {
	return quotaEntry{Quota: q.Quota.Copy()}
}

func (q quotaEntry) GetMeta() api.Meta {
	return q.Quota.Meta
}

func (q quotaEntry) SetMeta(meta api.Meta) {
	q.Quota.Meta = meta
}

func (q quotaEntry) EventCreate() events.Event {
	return EventCreateQuota{Quota: q.Quota}
}

func (q quotaEntry) EventUpdate() events.Event {
	return EventUpdateQuota{Quota: q.Quota}
}

func (q quotaEntry) EventDelete() events.Event {
	return EventDeleteQuota{Quota: q.Quota}
}

// CreateQuota adds a new quota to the store.
// Returns ErrExist if the owner already has one.
func CreateQuota(tx Tx, q *api.Quota) error {
	return tx.create(tableQuota, quotaEntry{q})
}

// UpdateQuota updates an existing quota in the store.
// Returns ErrNotExist if the quota doesn't exist.
func UpdateQuota(tx Tx, q *api.Quota) error {
	return tx.update(tableQuota, quotaEntry{q})
}

// DeleteQuota removes a quota from the store.
// Returns ErrNotExist if the quota doesn't exist.
func DeleteQuota(tx Tx, ownerID string) error {
	return tx.delete(tableQuota, ownerID)
}

// GetQuota looks up a quota by owner ID.
// Returns nil if the owner has no quota record.
func GetQuota(tx ReadTx, ownerID string) *api.Quota {
	q := tx.get(tableQuota, ownerID)
	if q == nil {
		return nil
	}
	return q.(quotaEntry).Quota
}

// FindQuotas selects a set of quotas and returns them.
func FindQuotas(tx ReadTx, by By) ([]*api.Quota, error) {
	checkType := func(by By) error {
		switch by.(type) {
		case byAll:
			return nil
		default:
			return ErrInvalidFindBy
		}
	}

	quotaList := []*api.Quota{}
	appendResult := func(o Object) {
		quotaList = append(quotaList, o.(quotaEntry).Quota)
	}

	err := tx.find(tableQuota, by, checkType, appendResult)
	return quotaList, err
}

type quotaIndexerByOwner struct{}

func (qi quotaIndexerByOwner) FromArgs(args ...interface{}) ([]byte, error) {
	return fromArgs(args...)
}

func (qi quotaIndexerByOwner) FromObject(obj interface{}) (bool, []byte, error) {
	q := obj.(quotaEntry)

	// Add the null character as a terminator
	val := q.Quota.OwnerID + "\x00"
	return true, []byte(val), nil
}
