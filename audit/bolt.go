package audit

import (
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/moby/ipamkit/identity"
)

var (
	bucketRecords = []byte("records")

	// ErrChainBroken is returned by VerifyChain when a stored record does not
	// match its recomputed digest or its parent link.
	ErrChainBroken = errors.New("audit chain verification failed")
)

// Ledger is a bbolt-backed audit log. Appends are serialized; reads run on
// bolt's own consistent snapshots.
type Ledger struct {
	mu      sync.Mutex
	db      *bolt.DB
	head    digest.Digest
	nextSeq uint64
}

// Open opens (or creates) the ledger file and positions the chain head at
// the last stored record.
func Open(path string) (*Ledger, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 10 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open audit ledger")
	}

	l := &Ledger{db: db}
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketRecords)
		if err != nil {
			return err
		}
		k, v := b.Cursor().Last()
		if k == nil {
			return nil
		}
		var last Record
		if err := json.Unmarshal(v, &last); err != nil {
			return errors.Wrap(err, "corrupt tail record")
		}
		l.head = last.Digest
		l.nextSeq = last.Seq + 1
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Append chains and persists the record. The record's ID, Seq, Parent and
// Digest fields are filled in; a zero Timestamp is rejected so callers can't
// accidentally lose ordering information.
func (l *Ledger) Append(r *Record) error {
	if r.Timestamp.IsZero() {
		return errors.New("audit record requires a timestamp")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if r.ID == "" {
		r.ID = identity.NewID()
	}
	r.Seq = l.nextSeq
	r.Parent = l.head

	d, err := chainDigest(r)
	if err != nil {
		return err
	}
	r.Digest = d

	value, err := json.Marshal(r)
	if err != nil {
		return err
	}

	err = l.db.Update(func(tx *bolt.Tx) error {
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], r.Seq)
		return tx.Bucket(bucketRecords).Put(key[:], value)
	})
	if err != nil {
		return errors.Wrap(err, "failed to append audit record")
	}

	l.head = r.Digest
	l.nextSeq++
	return nil
}

// scan walks all records in sequence order and collects those matching the
// predicate.
func (l *Ledger) scan(pred func(*Record) bool) ([]*Record, error) {
	var out []*Record
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			if pred == nil || pred(&r) {
				out = append(out, &r)
			}
			return nil
		})
	})
	return out, err
}

// All returns every record in append order.
func (l *Ledger) All() ([]*Record, error) {
	return l.scan(nil)
}

// ByActor returns the records written on behalf of the given actor.
func (l *Ledger) ByActor(actor string) ([]*Record, error) {
	return l.scan(func(r *Record) bool {
		return r.Actor == actor
	})
}

// ByResource returns the records touching the given resource.
func (l *Ledger) ByResource(resourceType, resourceID string) ([]*Record, error) {
	return l.scan(func(r *Record) bool {
		return r.ResourceType == resourceType && r.ResourceID == resourceID
	})
}

// ByTimeRange returns the records with from <= Timestamp < to.
func (l *Ledger) ByTimeRange(from, to time.Time) ([]*Record, error) {
	return l.scan(func(r *Record) bool {
		if r.Timestamp.Before(from) {
			return false
		}
		return to.IsZero() || r.Timestamp.Before(to)
	})
}

// VerifyChain recomputes every record's digest and parent link from the
// start of the ledger. It returns ErrChainBroken (with the offending
// sequence number) on the first mismatch.
func (l *Ledger) VerifyChain() error {
	records, err := l.All()
	if err != nil {
		return err
	}

	var prev digest.Digest
	for _, r := range records {
		if r.Parent != prev {
			return errors.Wrapf(ErrChainBroken, "record %d parent mismatch", r.Seq)
		}
		d, err := chainDigest(r)
		if err != nil {
			return err
		}
		if d != r.Digest {
			return errors.Wrapf(ErrChainBroken, "record %d content mismatch", r.Seq)
		}
		prev = r.Digest
	}
	return nil
}
