// Package origin expands a caller-supplied origin token into departure
// airports. A token is either a single IATA airport code, a country name, or
// a city name. Country and city expansions use a fixed ordering so progress
// numbering stays deterministic across runs.
package origin

import (
	"fmt"
	"strings"
)

// ErrUnresolvable is returned for tokens that match no known airport,
// country, or city. Fatal for the job.
var ErrUnresolvable = fmt.Errorf("origin token is not a known airport, country, or city")

// countryAirports lists departure airports per country, in fixed order.
var countryAirports = map[string][]string{
	"poland":         {"WAW", "KRK", "GDN", "WRO", "KTW", "POZ", "WMI"},
	"germany":        {"FRA", "MUC", "BER", "DUS", "HAM", "CGN", "STR"},
	"spain":          {"MAD", "BCN", "AGP", "ALC", "PMI", "VLC"},
	"italy":          {"FCO", "MXP", "BGY", "VCE", "NAP", "CTA"},
	"france":         {"CDG", "ORY", "NCE", "LYS", "MRS", "BVA"},
	"united kingdom": {"LHR", "LGW", "STN", "LTN", "MAN", "EDI"},
	"portugal":       {"LIS", "OPO", "FAO"},
	"netherlands":    {"AMS", "EIN"},
	"czechia":        {"PRG", "BRQ"},
}

// cityAirports lists airports per multi-airport city. Single-airport cities
// are covered by the airport set below.
var cityAirports = map[string][]string{
	"warsaw":    {"WAW", "WMI"},
	"london":    {"LHR", "LGW", "STN", "LTN", "LCY", "SEN"},
	"milan":     {"MXP", "LIN", "BGY"},
	"paris":     {"CDG", "ORY", "BVA"},
	"rome":      {"FCO", "CIA"},
	"barcelona": {"BCN"},
	"wroclaw":   {"WRO"},
	"krakow":    {"KRK"},
	"gdansk":    {"GDN"},
}

// knownAirports is the set of codes accepted as a direct airport token.
var knownAirports = buildAirportSet()

func buildAirportSet() map[string]bool {
	set := make(map[string]bool)
	for _, codes := range countryAirports {
		for _, c := range codes {
			set[c] = true
		}
	}
	for _, codes := range cityAirports {
		for _, c := range codes {
			set[c] = true
		}
	}
	return set
}

// Resolve expands token into an ordered, deduplicated list of departure
// airport codes (length ≥ 1). Airport codes are matched case-insensitively;
// country and city names likewise.
func Resolve(token string) ([]string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, ErrUnresolvable
	}

	if code := strings.ToUpper(trimmed); len(code) == 3 && knownAirports[code] {
		return []string{code}, nil
	}

	name := strings.ToLower(trimmed)
	if codes, ok := countryAirports[name]; ok {
		return dedup(codes), nil
	}
	if codes, ok := cityAirports[name]; ok {
		return dedup(codes), nil
	}

	return nil, fmt.Errorf("%q: %w", token, ErrUnresolvable)
}

// IsAirport reports whether token names a single known airport. Discovery
// providers can query country tokens directly, so the fallback controller
// uses this to decide whether expansion is required up front.
func IsAirport(token string) bool {
	code := strings.ToUpper(strings.TrimSpace(token))
	return len(code) == 3 && knownAirports[code]
}

func dedup(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
