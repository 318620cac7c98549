package store

import (
	"strings"

	events "github.com/docker/go-events"
	memdb "github.com/hashicorp/go-memdb"

	"github.com/moby/ipamkit/api"
)

const tableCountry = "country"

func init() {
	register(ObjectStoreConfig{
		Table: &memdb.TableSchema{
			Name: tableCountry,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: countryIndexerByCode{},
				},
				indexContinent: {
					Name:    indexContinent,
					Indexer: countryIndexerByContinent{},
				},
			},
		},
		Save: func(tx ReadTx, snapshot *Snapshot) error {
			var err error
			snapshot.Countries, err = FindCountries(tx, All)
			return err
		},
		Restore: func(tx Tx, snapshot *Snapshot) error {
			countries, err := FindCountries(tx, All)
			if err != nil {
				return err
			}
			for _, c := range countries {
				if err := DeleteCountry(tx, c.Code); err != nil {
					return err
				}
			}
			for _, c := range snapshot.Countries {
				if err := CreateCountry(tx, c); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

type countryEntry struct {
	*api.Country
}

func (c countryEntry) ID() string {
	return c.Country.Code
}

func (c countryEntry) CopyStoreObject() Object {
	return countryEntry{Country: c.Country.Copy()}
}

func (c countryEntry) GetMeta() api.Meta {
	return c.Country.Meta
}

func (c countryEntry) SetMeta(meta api.Meta) {
	c.Country.Meta = meta
}

func (c countryEntry) EventCreate() events.Event {
	return EventCreateCountry{Country: c.Country}
}

func (c countryEntry) EventUpdate() events.Event {
	return EventUpdateCountry{Country: c.Country}
}

func (c countryEntry) EventDelete() events.Event {
	return EventDeleteCountry{Country: c.Country}
}

// rangesOverlap reports whether [aStart,aEnd] and [bStart,bEnd] intersect.
func rangesOverlap(aStart, aEnd, bStart, bEnd uint32) bool {
	return aStart <= bEnd && bStart <= aEnd
}

// CreateCountry adds a new country to the store.
// Returns ErrExist if the code is already taken, or ErrRangeOverlap if the
// X range intersects an existing country's range.
func CreateCountry(tx Tx, c *api.Country) error {
	var overlap error
	err := tx.find(tableCountry, All, func(By) error { return nil }, func(o Object) {
		existing := o.(countryEntry).Country
		if overlap == nil && rangesOverlap(c.XStart, c.XEnd, existing.XStart, existing.XEnd) {
			overlap = ErrRangeOverlap
		}
	})
	if err != nil {
		return err
	}
	if overlap != nil {
		return overlap
	}

	return tx.create(tableCountry, countryEntry{c})
}

// UpdateCountry updates an existing country in the store.
// Returns ErrNotExist if the country doesn't exist.
func UpdateCountry(tx Tx, c *api.Country) error {
	return tx.update(tableCountry, countryEntry{c})
}

// DeleteCountry removes a country from the store.
// Returns ErrNotExist if the country doesn't exist.
func DeleteCountry(tx Tx, code string) error {
	return tx.delete(tableCountry, code)
}

// GetCountry looks up a country by code.
// Returns nil if the country doesn't exist.
func GetCountry(tx ReadTx, code string) *api.Country {
	c := tx.get(tableCountry, code)
	if c == nil {
		return nil
	}
	return c.(countryEntry).Country
}

// GetCountryForX returns the country whose X range covers the given octet,
// or nil if no country owns it.
func GetCountryForX(tx ReadTx, x uint32) *api.Country {
	var found *api.Country
	tx.find(tableCountry, All, func(By) error { return nil }, func(o Object) {
		c := o.(countryEntry).Country
		if found == nil && c.XStart <= x && x <= c.XEnd {
			found = c
		}
	})
	return found
}

// FindCountries selects a set of countries and returns them.
func FindCountries(tx ReadTx, by By) ([]*api.Country, error) {
	checkType := func(by By) error {
		switch by.(type) {
		case byAll, byContinent:
			return nil
		default:
			return ErrInvalidFindBy
		}
	}

	countryList := []*api.Country{}
	appendResult := func(o Object) {
		countryList = append(countryList, o.(countryEntry).Country)
	}

	err := tx.find(tableCountry, by, checkType, appendResult)
	return countryList, err
}

type countryIndexerByCode struct{}

func (ci countryIndexerByCode) FromArgs(args ...interface{}) ([]byte, error) {
	return fromArgs(args...)
}

func (ci countryIndexerByCode) FromObject(obj interface{}) (bool, []byte, error) {
	c := obj.(countryEntry)

	// Add the null character as a terminator
	val := c.Country.Code + "\x00"
	return true, []byte(val), nil
}

type countryIndexerByContinent struct{}

func (ci countryIndexerByContinent) FromArgs(args ...interface{}) ([]byte, error) {
	val, err := fromArgs(args...)
	if err != nil {
		return nil, err
	}
	return []byte(strings.ToLower(string(val))), nil
}

func (ci countryIndexerByContinent) FromObject(obj interface{}) (bool, []byte, error) {
	c := obj.(countryEntry)
	if c.Country.Continent == "" {
		return false, nil, nil
	}

	val := strings.ToLower(c.Country.Continent) + "\x00"
	return true, []byte(val), nil
}
