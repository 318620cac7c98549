package ipam

import "github.com/moby/ipamkit/api"

// DefaultCountries is the continent/country table seeded by Bootstrap when
// the catalog is empty. Ranges partition the 0-255 X space without overlap;
// the tail block is held back for experiments and future expansion.
func DefaultCountries() []*api.Country {
	return []*api.Country{
		{Code: "IN", Name: "India", Continent: "Asia", XStart: 0, XEnd: 29},
		{Code: "CN", Name: "China", Continent: "Asia", XStart: 30, XEnd: 59},
		{Code: "JP", Name: "Japan", Continent: "Asia", XStart: 60, XEnd: 69},
		{Code: "SG", Name: "Singapore", Continent: "Asia", XStart: 70, XEnd: 74},
		{Code: "DE", Name: "Germany", Continent: "Europe", XStart: 75, XEnd: 94},
		{Code: "FR", Name: "France", Continent: "Europe", XStart: 95, XEnd: 109},
		{Code: "NL", Name: "Netherlands", Continent: "Europe", XStart: 110, XEnd: 119},
		{Code: "GB", Name: "United Kingdom", Continent: "Europe", XStart: 120, XEnd: 134},
		{Code: "US", Name: "United States", Continent: "North America", XStart: 135, XEnd: 174},
		{Code: "CA", Name: "Canada", Continent: "North America", XStart: 175, XEnd: 189},
		{Code: "MX", Name: "Mexico", Continent: "North America", XStart: 190, XEnd: 199},
		{Code: "BR", Name: "Brazil", Continent: "South America", XStart: 200, XEnd: 214},
		{Code: "AR", Name: "Argentina", Continent: "South America", XStart: 215, XEnd: 219},
		{Code: "ZA", Name: "South Africa", Continent: "Africa", XStart: 220, XEnd: 229},
		{Code: "NG", Name: "Nigeria", Continent: "Africa", XStart: 230, XEnd: 234},
		{Code: "EG", Name: "Egypt", Continent: "Africa", XStart: 235, XEnd: 239},
		{Code: "AU", Name: "Australia", Continent: "Oceania", XStart: 240, XEnd: 249},
		{Code: "NZ", Name: "New Zealand", Continent: "Oceania", XStart: 250, XEnd: 252},
		{Code: "XR", Name: "Reserved Pool", Continent: "Reserved", XStart: 253, XEnd: 255, Reserved: true},
	}
}
