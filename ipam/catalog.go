package ipam

import (
	"context"

	"github.com/pkg/errors"

	"github.com/moby/ipamkit/api"
	"github.com/moby/ipamkit/audit"
	"github.com/moby/ipamkit/log"
	"github.com/moby/ipamkit/store"
)

// Bootstrap seeds the address space catalog with the provided country table,
// or with DefaultCountries when the table is nil. It is idempotent: if any
// country exists the call is a no-op, so it is safe to run on every startup.
func (e *Engine) Bootstrap(ctx context.Context, countries []*api.Country) error {
	if countries == nil {
		countries = DefaultCountries()
	}

	seeded := false
	err := e.store.Update(func(tx store.Tx) error {
		existing, err := store.FindCountries(tx, store.All)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}

		for _, c := range countries {
			if c.XStart > c.XEnd || c.XEnd > maxOctet {
				return errors.Wrapf(ErrInvalidCoordinate, "country %s range [%d,%d]", c.Code, c.XStart, c.XEnd)
			}
			if err := store.CreateCountry(tx, c.Copy()); err != nil {
				return errors.Wrapf(err, "failed to seed country %s", c.Code)
			}
		}
		seeded = true

		return e.ledger.Append(&audit.Record{
			Action:       audit.ActionBootstrap,
			Actor:        "system",
			ResourceType: "catalog",
			ResourceID:   "default",
			After:        audit.Snapshot(countries),
			Timestamp:    e.now(),
		})
	})
	if err != nil {
		return err
	}

	if seeded {
		log.G(ctx).WithField("countries", len(countries)).Info("address space catalog seeded")
	}
	return nil
}

// GetCountry returns the catalog entry for a country code.
func (e *Engine) GetCountry(code string) (*api.Country, error) {
	var c *api.Country
	e.store.View(func(tx store.ReadTx) {
		c = store.GetCountry(tx, code)
	})
	if c == nil {
		return nil, errors.Wrapf(ErrNotFound, "country %s", code)
	}
	return c, nil
}

// ListCountries returns catalog entries, optionally filtered to one
// continent.
func (e *Engine) ListCountries(continent string) ([]*api.Country, error) {
	by := store.By(store.All)
	if continent != "" {
		by = store.ByContinent(continent)
	}

	var countries []*api.Country
	var err error
	e.store.View(func(tx store.ReadTx) {
		countries, err = store.FindCountries(tx, by)
	})
	return countries, err
}

// GetCountryStats returns the capacity accounting view of one country. All
// derived values are recomputed from the authoritative counter at read time.
func (e *Engine) GetCountryStats(code string) (*api.CountryStats, error) {
	c, err := e.GetCountry(code)
	if err != nil {
		return nil, err
	}
	return computeStats(c), nil
}

// ListCountryStats returns the capacity view of every country.
func (e *Engine) ListCountryStats() ([]*api.CountryStats, error) {
	countries, err := e.ListCountries("")
	if err != nil {
		return nil, err
	}
	stats := make([]*api.CountryStats, 0, len(countries))
	for _, c := range countries {
		stats = append(stats, computeStats(c))
	}
	return stats, nil
}

// ListRegions returns regions matching the filter.
func (e *Engine) ListRegions(by store.By) ([]*api.Region, error) {
	var regions []*api.Region
	var err error
	e.store.View(func(tx store.ReadTx) {
		regions, err = store.FindRegions(tx, by)
	})
	return regions, err
}

// ListHosts returns hosts matching the filter.
func (e *Engine) ListHosts(by store.By) ([]*api.Host, error) {
	var hosts []*api.Host
	var err error
	e.store.View(func(tx store.ReadTx) {
		hosts, err = store.FindHosts(tx, by)
	})
	return hosts, err
}

// ListReservations returns reservations matching the filter.
func (e *Engine) ListReservations(by store.By) ([]*api.Reservation, error) {
	var reservations []*api.Reservation
	var err error
	e.store.View(func(tx store.ReadTx) {
		reservations, err = store.FindReservations(tx, by)
	})
	return reservations, err
}
