package store

import (
	"fmt"
	"sync"

	"code.cloudfoundry.org/clock"
	events "github.com/docker/go-events"
	memdb "github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"

	"github.com/moby/ipamkit/watch"
)

const (
	indexID        = "id"
	indexSlot      = "slot"
	indexCountry   = "country"
	indexContinent = "continent"
	indexOwner     = "owner"
	indexRegionID  = "regionid"
	indexStatus    = "status"
)

var (
	// ErrExist is returned by create operations if the provided ID is already
	// taken.
	ErrExist = errors.New("object already exists")

	// ErrNotExist is returned by altering operations (update, delete) if the
	// object does not exist.
	ErrNotExist = errors.New("object does not exist")

	// ErrSlotInUse is returned by create operations if the object's
	// coordinate slot is already claimed by a live row.
	ErrSlotInUse = errors.New("slot is in use")

	// ErrRangeOverlap is returned when a country's X range overlaps an
	// existing country's range.
	ErrRangeOverlap = errors.New("x range overlaps an existing country")

	// ErrInvalidFindBy is returned if an unrecognized or unsupported type is
	// passed to Find.
	ErrInvalidFindBy = errors.New("invalid find argument type")
)

var (
	objectStorers []ObjectStoreConfig
	schema        = &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{},
	}
)

func register(os ObjectStoreConfig) {
	objectStorers = append(objectStorers, os)
	schema.Tables[os.Table.Name] = os.Table
}

// MemoryStore is a concurrency-safe, in-memory implementation of the object
// store. Readers run in parallel against an MVCC snapshot; writers are
// serialized by updateLock, which makes lookup-then-insert uniqueness guards
// race-free.
type MemoryStore struct {
	// updateLock must be held during an update transaction.
	updateLock sync.Mutex

	memDB *memdb.MemDB
	queue *watch.Queue
	clock clock.Clock
}

// NewMemoryStore returns an in-memory store. The clock is used to stamp
// object metadata; pass a fake clock in tests.
func NewMemoryStore(c clock.Clock) *MemoryStore {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		// This shouldn't fail
		panic(err)
	}

	if c == nil {
		c = clock.NewClock()
	}

	return &MemoryStore{
		memDB: memDB,
		queue: watch.NewQueue(),
		clock: c,
	}
}

// Close releases the memory store's watch queue.
func (s *MemoryStore) Close() error {
	return s.queue.Close()
}

// Clock returns the clock used to stamp objects.
func (s *MemoryStore) Clock() clock.Clock {
	return s.clock
}

func fromArgs(args ...interface{}) ([]byte, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("must provide only a single argument")
	}
	arg, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("argument must be a string: %#v", args[0])
	}
	// Add the null character as a terminator
	arg += "\x00"
	return []byte(arg), nil
}

// ReadTx is a read transaction. Note that transaction does not imply any
// internal batching. It only means that the transaction presents a consistent
// view of the data that cannot be affected by other transactions.
type ReadTx interface {
	lookup(table, index, id string) Object
	get(table, id string) Object
	find(table string, by By, checkType func(By) error, appendResult func(Object)) error
}

type readTx struct {
	memDBTx *memdb.Txn
}

// View executes a read transaction.
func (s *MemoryStore) View(cb func(ReadTx)) {
	memDBTx := s.memDB.Txn(false)
	cb(readTx{memDBTx: memDBTx})
	memDBTx.Commit()
}

// Tx is a read/write transaction. Note that transaction does not imply any
// internal batching. The purpose of this transaction is to give the user a
// guarantee that its changes won't be visible to other transactions until the
// transaction is over.
type Tx interface {
	ReadTx
	create(table string, o Object) error
	update(table string, o Object) error
	delete(table, id string) error
}

type tx struct {
	readTx
	clock      clock.Clock
	changelist []events.Event
}

// Update executes a read/write transaction.
func (s *MemoryStore) Update(cb func(Tx) error) error {
	s.updateLock.Lock()
	memDBTx := s.memDB.Txn(true)

	tx := tx{
		readTx: readTx{memDBTx: memDBTx},
		clock:  s.clock,
	}

	err := cb(&tx)

	if err == nil {
		memDBTx.Commit()
		for _, c := range tx.changelist {
			s.queue.Publish(c)
		}
		if len(tx.changelist) != 0 {
			s.queue.Publish(EventCommit{})
		}
	} else {
		memDBTx.Abort()
	}
	s.updateLock.Unlock()
	return err
}

// lookup is an internal typed wrapper around memdb.
func (t readTx) lookup(table, index, id string) Object {
	j, err := t.memDBTx.First(table, index, id)
	if err != nil {
		return nil
	}
	if j != nil {
		return j.(Object)
	}
	return nil
}

// get returns a copy of the object with the given ID, or nil if it doesn't
// exist.
func (t readTx) get(table, id string) Object {
	o := t.lookup(table, indexID, id)
	if o == nil {
		return nil
	}
	return o.CopyStoreObject()
}

// find selects a set of objects and calls the callback with a copy of each
// matching object.
func (t readTx) find(table string, by By, checkType func(By) error, appendResult func(Object)) error {
	if err := checkType(by); err != nil {
		return err
	}

	fromResultIterator := func(it memdb.ResultIterator) {
		for {
			obj := it.Next()
			if obj == nil {
				break
			}
			appendResult(obj.(Object).CopyStoreObject())
		}
	}

	indexArgs := func(index string, args ...interface{}) error {
		it, err := t.memDBTx.Get(table, index, args...)
		if err != nil {
			return err
		}
		fromResultIterator(it)
		return nil
	}

	switch v := by.(type) {
	case byAll:
		return indexArgs(indexID)
	case byOwner:
		return indexArgs(indexOwner, string(v))
	case byCountry:
		return indexArgs(indexCountry, string(v))
	case byContinent:
		return indexArgs(indexContinent, string(v))
	case byRegionID:
		return indexArgs(indexRegionID, string(v))
	case byStatus:
		return indexArgs(indexStatus, string(v))
	case bySlot:
		return indexArgs(indexSlot, v.key)
	default:
		return ErrInvalidFindBy
	}
}

// create adds a new object to the store.
// Returns ErrExist if the ID is already taken.
func (tx *tx) create(table string, o Object) error {
	if tx.lookup(table, indexID, o.ID()) != nil {
		return ErrExist
	}

	copy := o.CopyStoreObject()
	// Preserve timestamps carried by restored objects; stamp fresh ones.
	meta := copy.GetMeta()
	now := tx.clock.Now().UTC()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	if meta.UpdatedAt.IsZero() {
		meta.UpdatedAt = now
	}
	copy.SetMeta(meta)

	err := tx.memDBTx.Insert(table, copy)
	if err == nil {
		tx.changelist = append(tx.changelist, copy.EventCreate())
		o.SetMeta(copy.GetMeta())
	}
	return err
}

// update replaces an existing object in the store.
// Returns ErrNotExist if the object doesn't exist.
func (tx *tx) update(table string, o Object) error {
	oldN := tx.lookup(table, indexID, o.ID())
	if oldN == nil {
		return ErrNotExist
	}

	copy := o.CopyStoreObject()
	meta := copy.GetMeta()
	meta.CreatedAt = oldN.GetMeta().CreatedAt
	meta.UpdatedAt = tx.clock.Now().UTC()
	copy.SetMeta(meta)

	err := tx.memDBTx.Insert(table, copy)
	if err == nil {
		tx.changelist = append(tx.changelist, copy.EventUpdate())
		o.SetMeta(copy.GetMeta())
	}
	return err
}

// delete removes an object from the store.
// Returns ErrNotExist if the object doesn't exist.
func (tx *tx) delete(table, id string) error {
	n := tx.lookup(table, indexID, id)
	if n == nil {
		return ErrNotExist
	}

	err := tx.memDBTx.Delete(table, n)
	if err == nil {
		tx.changelist = append(tx.changelist, n.EventDelete())
	}
	return err
}

// WatchQueue returns the publish/subscribe queue where store change events
// are published on transaction commit.
func (s *MemoryStore) WatchQueue() *watch.Queue {
	return s.queue
}
