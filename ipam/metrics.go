package ipam

import metrics "github.com/docker/go-metrics"

var (
	allocations        metrics.LabeledCounter
	releases           metrics.LabeledCounter
	reservationsSwept  metrics.Counter
	countryUtilization metrics.LabeledGauge
)

func init() {
	ns := metrics.NewNamespace("ipamkit", "engine", nil)
	allocations = ns.NewLabeledCounter("allocations", "Allocation attempts by resource type and outcome", "type", "outcome")
	releases = ns.NewLabeledCounter("releases", "Releases by resource type", "type")
	reservationsSwept = ns.NewCounter("reservations_swept", "Reservations marked expired by sweeps")
	countryUtilization = ns.NewLabeledGauge("country_utilization", "Region slot utilization per country", metrics.Unit("percent"), "country")
	metrics.Register(ns)
}

const (
	outcomeSuccess   = "success"
	outcomeExhausted = "exhausted"
	outcomeConflict  = "conflict"
	outcomeQuota     = "quota"
	outcomeInvalid   = "invalid"
)
