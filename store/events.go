package store

import "github.com/moby/ipamkit/api"

// Change events published on the watch queue when a write transaction
// commits. Every event carries a copy of the object as of the commit.

// EventCommit delimits a completed transaction on the queue.
type EventCommit struct{}

// EventCreateCountry is published when a country is created.
type EventCreateCountry struct {
	Country *api.Country
}

// EventUpdateCountry is published when a country is updated.
type EventUpdateCountry struct {
	Country *api.Country
}

// EventDeleteCountry is published when a country is deleted.
type EventDeleteCountry struct {
	Country *api.Country
}

// EventCreateRegion is published when a region is created.
type EventCreateRegion struct {
	Region *api.Region
}

// EventUpdateRegion is published when a region is updated.
type EventUpdateRegion struct {
	Region *api.Region
}

// EventDeleteRegion is published when a region is deleted.
type EventDeleteRegion struct {
	Region *api.Region
}

// EventCreateHost is published when a host is created.
type EventCreateHost struct {
	Host *api.Host
}

// EventUpdateHost is published when a host is updated.
type EventUpdateHost struct {
	Host *api.Host
}

// EventDeleteHost is published when a host is deleted.
type EventDeleteHost struct {
	Host *api.Host
}

// EventCreateReservation is published when a reservation is created.
type EventCreateReservation struct {
	Reservation *api.Reservation
}

// EventUpdateReservation is published when a reservation changes state.
type EventUpdateReservation struct {
	Reservation *api.Reservation
}

// EventDeleteReservation is published when a reservation is deleted.
type EventDeleteReservation struct {
	Reservation *api.Reservation
}

// EventCreateQuota is published when a quota is created.
type EventCreateQuota struct {
	Quota *api.Quota
}

// EventUpdateQuota is published when a quota is updated.
type EventUpdateQuota struct {
	Quota *api.Quota
}

// EventDeleteQuota is published when a quota is deleted.
type EventDeleteQuota struct {
	Quota *api.Quota
}
