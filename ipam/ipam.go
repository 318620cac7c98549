// Package ipam implements the hierarchical allocation engine for the
// 10.X.Y.Z private space: countries own contiguous X ranges, regions claim
// (X,Y) pairs, hosts claim (X,Y,Z) triples. The engine guarantees slot
// uniqueness under concurrent callers, keeps capacity accounting exact,
// supports time-bounded reservations, enforces per-owner quotas and writes a
// hash-chained audit record for every state change.
package ipam

import (
	"time"

	"code.cloudfoundry.org/clock"
	events "github.com/docker/go-events"

	"github.com/moby/ipamkit/audit"
	"github.com/moby/ipamkit/store"
)

const (
	// octetSlots is the number of values one octet can take; each X octet
	// carries this many region slots and each region this many host slots.
	octetSlots = 256

	// maxOctet is the largest valid coordinate value.
	maxOctet = 255
)

// Config carries the engine's tunables.
type Config struct {
	// AllocationRetries bounds how many times a claim is retried after a
	// concurrent writer takes the candidate slot. Exhausting it surfaces
	// ErrAllocationConflict rather than spinning.
	AllocationRetries int

	// CapacityWarnThreshold is the utilization percentage at or above which
	// a CapacityWarning event is emitted for a country.
	CapacityWarnThreshold float64

	// DefaultReservationTTL applies when a reserve request carries no TTL.
	DefaultReservationTTL time.Duration
}

// DefaultConfig returns the stock engine configuration.
func DefaultConfig() Config {
	return Config{
		AllocationRetries:     5,
		CapacityWarnThreshold: 85.0,
		DefaultReservationTTL: 5 * time.Minute,
	}
}

// Engine is the allocation engine. It is safe for concurrent use; every
// operation is one atomic store transaction, and the audit append happens
// inside that transaction so a failed append aborts the claim with it.
type Engine struct {
	store  *store.MemoryStore
	ledger *audit.Ledger
	clock  clock.Clock
	config Config
}

// NewEngine assembles an engine around a store and an audit ledger. The
// ledger is mandatory: the engine refuses to run unaudited.
func NewEngine(s *store.MemoryStore, ledger *audit.Ledger, config Config) *Engine {
	if ledger == nil {
		panic("ipam: engine requires an audit ledger")
	}
	if config.AllocationRetries <= 0 {
		config.AllocationRetries = DefaultConfig().AllocationRetries
	}
	if config.CapacityWarnThreshold <= 0 {
		config.CapacityWarnThreshold = DefaultConfig().CapacityWarnThreshold
	}
	if config.DefaultReservationTTL <= 0 {
		config.DefaultReservationTTL = DefaultConfig().DefaultReservationTTL
	}

	return &Engine{
		store:  s,
		ledger: ledger,
		clock:  s.Clock(),
		config: config,
	}
}

// Store exposes the underlying object store for read access and snapshots.
func (e *Engine) Store() *store.MemoryStore {
	return e.store
}

// Audit exposes the ledger's read/filter queries. The ledger has no update
// or delete operations.
func (e *Engine) Audit() *audit.Ledger {
	return e.ledger
}

// Watch subscribes to the engine's event stream: store change events plus
// the domain events in the api package. cancel must be called when done.
func (e *Engine) Watch() (eventq chan events.Event, cancel func()) {
	return e.store.WatchQueue().Watch()
}

// publish emits a domain event after a transaction has committed.
func (e *Engine) publish(event events.Event) {
	e.store.WatchQueue().Publish(event)
}

func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}
