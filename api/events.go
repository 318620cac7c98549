package api

// Domain events published on the engine's watch queue. Delivery to external
// sinks (webhooks, metric pipelines) is somebody else's job; the engine only
// emits.

// AllocationSucceeded is emitted after a region or host claim commits.
type AllocationSucceeded struct {
	ResourceType string
	ResourceID   string
	Address      string
	OwnerID      string
}

// AllocationFailed is emitted when an allocation surfaces an error to the
// caller (quota, exhaustion, conflict or invalid coordinates).
type AllocationFailed struct {
	ResourceType string
	OwnerID      string
	Reason       string
}

// CapacityWarning is emitted when a region allocation pushes a country's
// utilization across the configured threshold.
type CapacityWarning struct {
	CountryCode        string
	UtilizationPercent float64
}

// QuotaExceeded is emitted when an owner is refused for being over limit.
type QuotaExceeded struct {
	OwnerID      string
	ResourceType string
}
