package api

import (
	"fmt"
	"time"
)

// Meta contains record metadata maintained by the store. Timestamps are set
// inside the store transaction that creates or updates the object.
type Meta struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Country owns a contiguous range of X octets in the 10.X.Y.Z space. Each X
// value carries 256 region slots, so total capacity is
// (XEnd-XStart+1) * 256 regions. AllocatedRegions is the authoritative
// counter; utilization and remaining capacity are always recomputed from it.
type Country struct {
	Meta
	Code             string `json:"code"`
	Name             string `json:"name"`
	Continent        string `json:"continent"`
	XStart           uint32 `json:"x_start"`
	XEnd             uint32 `json:"x_end"`
	AllocatedRegions uint32 `json:"allocated_regions"`
	Reserved         bool   `json:"reserved"`
}

// TotalBlocks returns the number of X octets owned by the country.
func (c *Country) TotalBlocks() uint32 {
	return c.XEnd - c.XStart + 1
}

func (c *Country) Copy() *Country {
	if c == nil {
		return nil
	}
	copy := *c
	return &copy
}

// ResourceStatus is the lifecycle state of a region or host row.
type ResourceStatus string

const (
	StatusActive   ResourceStatus = "active"
	StatusReserved ResourceStatus = "reserved"
	StatusReleased ResourceStatus = "released"
)

// Region is an allocated (X,Y) pair. The pair is unique among non-released
// regions. Released rows are retained for history; a released slot becomes a
// candidate for a brand-new row, never a resurrection of the old one.
type Region struct {
	Meta
	ID          string         `json:"id"`
	X           uint32         `json:"x"`
	Y           uint32         `json:"y"`
	CountryCode string         `json:"country_code"`
	OwnerID     string         `json:"owner_id"`
	Tags        []string       `json:"tags,omitempty"`
	Status      ResourceStatus `json:"status"`
	HostCount   uint32         `json:"host_count"`
}

func (r *Region) Copy() *Region {
	if r == nil {
		return nil
	}
	copy := *r
	if r.Tags != nil {
		copy.Tags = make([]string, len(r.Tags))
		for i, t := range r.Tags {
			copy.Tags[i] = t
		}
	}
	return &copy
}

// Host is an allocated (X,Y,Z) triple inside an active region.
type Host struct {
	Meta
	ID       string         `json:"id"`
	RegionID string         `json:"region_id"`
	X        uint32         `json:"x"`
	Y        uint32         `json:"y"`
	Z        uint32         `json:"z"`
	OwnerID  string         `json:"owner_id"`
	Hostname string         `json:"hostname,omitempty"`
	Status   ResourceStatus `json:"status"`
}

func (h *Host) Copy() *Host {
	if h == nil {
		return nil
	}
	copy := *h
	return &copy
}

// Addr renders the host's full 10.X.Y.Z address.
func (h *Host) Addr() string {
	return fmt.Sprintf("10.%d.%d.%d", h.X, h.Y, h.Z)
}

// CIDR renders the region's /24 network.
func (r *Region) CIDR() string {
	return fmt.Sprintf("10.%d.%d.0/24", r.X, r.Y)
}

// ReservationTarget says whether a reservation holds a region slot or a host
// slot.
type ReservationTarget string

const (
	ReserveRegion ReservationTarget = "region"
	ReserveHost   ReservationTarget = "host"
)

// ReservationStatus is the lifecycle state of a reservation. Rows transition
// pending -> {converted, expired, cancelled} and are never reused.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConverted ReservationStatus = "converted"
	ReservationExpired   ReservationStatus = "expired"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation is a time-bounded hold on a slot. While pending and unexpired,
// the slot is invisible to free-slot searches and to new reservations.
type Reservation struct {
	Meta
	ID         string            `json:"id"`
	Target     ReservationTarget `json:"target"`
	X          uint32            `json:"x"`
	Y          uint32            `json:"y"`
	Z          uint32            `json:"z,omitempty"`
	RegionID   string            `json:"region_id,omitempty"`
	ReservedBy string            `json:"reserved_by"`
	ExpiresAt  time.Time         `json:"expires_at"`
	Status     ReservationStatus `json:"status"`
}

func (r *Reservation) Copy() *Reservation {
	if r == nil {
		return nil
	}
	copy := *r
	return &copy
}

// LimitMode distinguishes a bounded quota from an administrative unlimited
// one. An unlimited quota carries no meaningful Max value.
type LimitMode string

const (
	LimitModeLimited   LimitMode = "limited"
	LimitModeUnlimited LimitMode = "unlimited"
)

// Limit is a tagged quota ceiling.
type Limit struct {
	Mode LimitMode `json:"mode"`
	Max  uint32    `json:"max,omitempty"`
}

// Limited returns a bounded limit.
func Limited(max uint32) Limit {
	return Limit{Mode: LimitModeLimited, Max: max}
}

// Unlimited returns an administratively unbounded limit.
func Unlimited() Limit {
	return Limit{Mode: LimitModeUnlimited}
}

// Allows reports whether usage+1 would stay within the limit.
func (l Limit) Allows(current uint32) bool {
	return l.Mode == LimitModeUnlimited || current < l.Max
}

// Quota tracks an owner's allocation ceilings and current usage. Usage
// counters are mutated only inside the same store transaction as the
// corresponding claim or release.
type Quota struct {
	Meta
	OwnerID        string `json:"owner_id"`
	Regions        Limit  `json:"regions"`
	Hosts          Limit  `json:"hosts"`
	CurrentRegions uint32 `json:"current_regions"`
	CurrentHosts   uint32 `json:"current_hosts"`
	UpdatedBy      string `json:"updated_by,omitempty"`
}

func (q *Quota) Copy() *Quota {
	if q == nil {
		return nil
	}
	copy := *q
	return &copy
}

// CountryStats is the capacity accounting view of one country. All derived
// fields are recomputed from AllocatedRegions on every read.
type CountryStats struct {
	Country            *Country `json:"country"`
	TotalBlocks        uint32   `json:"total_blocks"`
	TotalCapacity      uint32   `json:"total_capacity"`
	AllocatedRegions   uint32   `json:"allocated_regions"`
	RemainingCapacity  uint32   `json:"remaining_capacity"`
	UtilizationPercent float64  `json:"utilization_percent"`
}
