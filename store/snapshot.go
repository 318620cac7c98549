package store

import (
	"encoding/json"
	"io"

	"github.com/moby/ipamkit/api"
)

// Snapshot is the serializable image of the full store contents. It is what
// ipamctl persists between invocations.
type Snapshot struct {
	Countries    []*api.Country     `json:"countries"`
	Regions      []*api.Region      `json:"regions"`
	Hosts        []*api.Host        `json:"hosts"`
	Reservations []*api.Reservation `json:"reservations"`
	Quotas       []*api.Quota       `json:"quotas"`
}

// Save serializes the data in the store.
func (s *MemoryStore) Save() (*Snapshot, error) {
	var snapshot Snapshot
	var saveErr error
	s.View(func(tx ReadTx) {
		for _, os := range objectStorers {
			if err := os.Save(tx, &snapshot); err != nil {
				saveErr = err
				return
			}
		}
	})
	if saveErr != nil {
		return nil, saveErr
	}
	return &snapshot, nil
}

// Restore sets the contents of the store to the serialized data in the
// argument.
func (s *MemoryStore) Restore(snapshot *Snapshot) error {
	return s.Update(func(tx Tx) error {
		for _, os := range objectStorers {
			if err := os.Restore(tx, snapshot); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteTo writes a JSON-encoded snapshot of the store.
func (s *MemoryStore) WriteTo(w io.Writer) error {
	snapshot, err := s.Save()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}

// ReadFrom replaces the store contents with a JSON-encoded snapshot.
func (s *MemoryStore) ReadFrom(r io.Reader) error {
	var snapshot Snapshot
	if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
		return err
	}
	return s.Restore(&snapshot)
}
