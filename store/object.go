package store

import (
	events "github.com/docker/go-events"
	memdb "github.com/hashicorp/go-memdb"

	"github.com/moby/ipamkit/api"
)

// Object is the interface implemented by the table entry wrappers around api
// objects. The store only deals with copies, never with caller-owned memory.
type Object interface {
	ID() string
	CopyStoreObject() Object
	GetMeta() api.Meta
	SetMeta(api.Meta)
	EventCreate() events.Event
	EventUpdate() events.Event
	EventDelete() events.Event
}

// ObjectStoreConfig binds a table schema to the snapshot save/restore hooks
// for one object type.
type ObjectStoreConfig struct {
	Table   *memdb.TableSchema
	Save    func(ReadTx, *Snapshot) error
	Restore func(Tx, *Snapshot) error
}
