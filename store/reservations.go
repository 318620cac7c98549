package store

import (
	events "github.com/docker/go-events"
	memdb "github.com/hashicorp/go-memdb"

	"github.com/moby/ipamkit/api"
)

const tableReservation = "reservation"

func init() {
	register(ObjectStoreConfig{
		Table: &memdb.TableSchema{
			Name: tableReservation,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: reservationIndexerByID{},
				},
				// Pending rows only. At most one pending reservation may hold
				// a slot at a time; converted, expired and cancelled rows
				// fall out of this index and free the slot.
				indexSlot: {
					Name:         indexSlot,
					Unique:       true,
					AllowMissing: true,
					Indexer:      reservationIndexerBySlot{},
				},
				indexOwner: {
					Name:    indexOwner,
					Indexer: reservationIndexerByOwner{},
				},
				indexStatus: {
					Name:    indexStatus,
					Indexer: reservationIndexerByStatus{},
				},
			},
		},
		Save: func(tx ReadTx, snapshot *Snapshot) error {
			var err error
			snapshot.Reservations, err = FindReservations(tx, All)
			return err
		},
		Restore: func(tx Tx, snapshot *Snapshot) error {
			reservations, err := FindReservations(tx, All)
			if err != nil {
				return err
			}
			for _, r := range reservations {
				if err := DeleteReservation(tx, r.ID); err != nil {
					return err
				}
			}
			for _, r := range snapshot.Reservations {
				if err := CreateReservation(tx, r); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

type reservationEntry struct {
	*api.Reservation
}

func (r reservationEntry) ID() string {
	return r.Reservation.ID
}

func (r reservationEntry) CopyStoreObject() Object {
	return reservationEntry{Reservation: r.Reservation.Copy()}
}

func (r reservationEntry) GetMeta() api.Meta {
	return r.Reservation.Meta
}

func (r reservationEntry) SetMeta(meta api.Meta) {
	r.Reservation.Meta = meta
}

func (r reservationEntry) EventCreate() events.Event {
	return EventCreateReservation{Reservation: r.Reservation}
}

func (r reservationEntry) EventUpdate() events.Event {
	return EventUpdateReservation{Reservation: r.Reservation}
}

func (r reservationEntry) EventDelete() events.Event {
	return EventDeleteReservation{Reservation: r.Reservation}
}

// CreateReservation adds a new reservation to the store.
// Returns ErrExist if the ID is already taken and ErrSlotInUse if another
// pending reservation already holds the slot. Callers are expected to retire
// any stale pending reservation on the slot in the same transaction before
// creating a new one.
func CreateReservation(tx Tx, r *api.Reservation) error {
	if r.Status == api.ReservationPending {
		key := reservationSlotKey(string(r.Target), r.X, r.Y, r.Z)
		if tx.lookup(tableReservation, indexSlot, key) != nil {
			return ErrSlotInUse
		}
	}

	return tx.create(tableReservation, reservationEntry{r})
}

// UpdateReservation updates an existing reservation in the store.
// Returns ErrNotExist if the reservation doesn't exist.
func UpdateReservation(tx Tx, r *api.Reservation) error {
	return tx.update(tableReservation, reservationEntry{r})
}

// DeleteReservation removes a reservation from the store.
// Returns ErrNotExist if the reservation doesn't exist.
func DeleteReservation(tx Tx, id string) error {
	return tx.delete(tableReservation, id)
}

// GetReservation looks up a reservation by ID.
// Returns nil if the reservation doesn't exist.
func GetReservation(tx ReadTx, id string) *api.Reservation {
	r := tx.get(tableReservation, id)
	if r == nil {
		return nil
	}
	return r.(reservationEntry).Reservation
}

// GetReservationBySlot returns the pending reservation holding the slot, or
// nil if no pending reservation holds it. The caller decides whether an
// expired-but-unswept pending row still counts as a hold.
func GetReservationBySlot(tx ReadTx, target string, x, y, z uint32) *api.Reservation {
	o := tx.lookup(tableReservation, indexSlot, reservationSlotKey(target, x, y, z))
	if o == nil {
		return nil
	}
	return o.CopyStoreObject().(reservationEntry).Reservation
}

// FindReservations selects a set of reservations and returns them.
func FindReservations(tx ReadTx, by By) ([]*api.Reservation, error) {
	checkType := func(by By) error {
		switch by.(type) {
		case byAll, byOwner, byStatus, bySlot:
			return nil
		default:
			return ErrInvalidFindBy
		}
	}

	reservationList := []*api.Reservation{}
	appendResult := func(o Object) {
		reservationList = append(reservationList, o.(reservationEntry).Reservation)
	}

	err := tx.find(tableReservation, by, checkType, appendResult)
	return reservationList, err
}

type reservationIndexerByID struct{}

func (ri reservationIndexerByID) FromArgs(args ...interface{}) ([]byte, error) {
	return fromArgs(args...)
}

func (ri reservationIndexerByID) FromObject(obj interface{}) (bool, []byte, error) {
	r := obj.(reservationEntry)

	// Add the null character as a terminator
	val := r.Reservation.ID + "\x00"
	return true, []byte(val), nil
}

type reservationIndexerBySlot struct{}

func (ri reservationIndexerBySlot) FromArgs(args ...interface{}) ([]byte, error) {
	return fromArgs(args...)
}

func (ri reservationIndexerBySlot) FromObject(obj interface{}) (bool, []byte, error) {
	r := obj.(reservationEntry)
	if r.Reservation.Status != api.ReservationPending {
		return false, nil, nil
	}

	val := reservationSlotKey(string(r.Reservation.Target), r.Reservation.X, r.Reservation.Y, r.Reservation.Z) + "\x00"
	return true, []byte(val), nil
}

type reservationIndexerByOwner struct{}

func (ri reservationIndexerByOwner) FromArgs(args ...interface{}) ([]byte, error) {
	return fromArgs(args...)
}

func (ri reservationIndexerByOwner) FromObject(obj interface{}) (bool, []byte, error) {
	r := obj.(reservationEntry)

	val := r.Reservation.ReservedBy + "\x00"
	return true, []byte(val), nil
}

type reservationIndexerByStatus struct{}

func (ri reservationIndexerByStatus) FromArgs(args ...interface{}) ([]byte, error) {
	return fromArgs(args...)
}

func (ri reservationIndexerByStatus) FromObject(obj interface{}) (bool, []byte, error) {
	r := obj.(reservationEntry)

	val := string(r.Reservation.Status) + "\x00"
	return true, []byte(val), nil
}
