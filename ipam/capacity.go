package ipam

import "github.com/moby/ipamkit/api"

// Capacity accounting is pure computation over the country's authoritative
// AllocatedRegions counter. Derived values are never stored, so a stale
// cache can't leak into statistics reads.

// computeStats derives the capacity view of one country.
func computeStats(c *api.Country) *api.CountryStats {
	total := c.TotalBlocks() * octetSlots
	return &api.CountryStats{
		Country:            c,
		TotalBlocks:        c.TotalBlocks(),
		TotalCapacity:      total,
		AllocatedRegions:   c.AllocatedRegions,
		RemainingCapacity:  total - c.AllocatedRegions,
		UtilizationPercent: utilization(c),
	}
}

// utilization returns allocated capacity as a percentage of total capacity.
func utilization(c *api.Country) float64 {
	total := c.TotalBlocks() * octetSlots
	if total == 0 {
		return 0
	}
	return float64(c.AllocatedRegions) / float64(total) * 100
}
