package collectors

import "strings"

// GeoRiskTable maps identifier prefixes (country/area codes) to a static
// risk weight. Longest matching prefix wins.
type GeoRiskTable struct {
	weights map[string]int
}

// NewGeoRiskTable builds a table from prefix -> weight entries.
func NewGeoRiskTable(weights map[string]int) *GeoRiskTable {
	w := make(map[string]int, len(weights))
	for k, v := range weights {
		w[k] = v
	}
	return &GeoRiskTable{weights: w}
}

// DefaultGeoRiskTable returns the built-in prefix table.
func DefaultGeoRiskTable() *GeoRiskTable {
	return NewGeoRiskTable(map[string]int{
		"+675":  30, // Papua New Guinea
		"+232":  30, // Sierra Leone
		"+370":  25, // Lithuania
		"+371":  25, // Latvia
		"+234":  25, // Nigeria
		"+62":   20, // Indonesia
		"+63":   20, // Philippines
		"+1900": 35, // premium-rate
		"+1876": 30, // Jamaica (809 scam family)
	})
}

// Lookup returns the weight for the longest prefix of key present in the
// table, along with the matched prefix. ok is false when nothing matches.
func (t *GeoRiskTable) Lookup(key string) (weight int, prefix string, ok bool) {
	best := ""
	for p := range t.weights {
		if strings.HasPrefix(key, p) && len(p) > len(best) {
			best = p
		}
	}
	if best == "" {
		return 0, "", false
	}
	return t.weights[best], best, true
}
