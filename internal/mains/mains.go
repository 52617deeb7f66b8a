// Package mains infers the local electrical mains frequency so hum
// notch filters land on the right harmonics.
package mains

import (
	"strings"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

const fallbackHz = 50 // more common worldwide

// Frequency returns the local mains frequency in Hz (50 or 60),
// detected from the system timezone. Detection failure falls back to
// 50Hz.
func Frequency() int {
	timezone, err := tzlocal.RuntimeTZ()
	if err != nil {
		return fallbackHz
	}
	return FrequencyForTimezone(timezone)
}

// FrequencyForTimezone returns the mains frequency for an IANA
// timezone. UTC, GMT and Etc/ zones have no country and map to 50Hz.
func FrequencyForTimezone(timezone string) int {
	if timezone == "UTC" || timezone == "GMT" || strings.HasPrefix(timezone, "Etc/") {
		return fallbackHz
	}

	tzMap, err := tz.NewTimezoneCountryMap()
	if err != nil {
		return fallbackHz
	}
	country, err := tzMap.GetCountry(timezone)
	if err != nil {
		return fallbackHz
	}

	// Japan is split 50/60 by region; the Tokyo side is 50Hz and
	// most populous, so it stays out of the 60Hz set
	if hz60Countries[country] {
		return 60
	}
	return fallbackHz
}

// hz60Countries is the set of countries on 60Hz mains. Everyone else
// uses 50Hz.
// Source: https://en.wikipedia.org/wiki/Mains_electricity_by_country
var hz60Countries = map[string]bool{
	// North and Central America
	"United States": true,
	"Canada":        true,
	"Mexico":        true,
	"Belize":        true,
	"Costa Rica":    true,
	"El Salvador":   true,
	"Guatemala":     true,
	"Honduras":      true,
	"Nicaragua":     true,
	"Panama":        true,

	// Caribbean
	"Bahamas":             true,
	"Barbados":            true,
	"Cayman Islands":      true,
	"Cuba":                true,
	"Dominican Republic":  true,
	"Haiti":               true,
	"Jamaica":             true,
	"Puerto Rico":         true,
	"Trinidad and Tobago": true,
	"U.S. Virgin Islands": true,

	// South America (most of the continent is 50Hz)
	"Brazil":    true, // both grids exist; 60Hz predominant
	"Colombia":  true,
	"Ecuador":   true,
	"Guyana":    true,
	"Peru":      true,
	"Suriname":  true,
	"Venezuela": true,

	// Asia
	"South Korea":  true,
	"Taiwan":       true,
	"Philippines":  true,
	"Saudi Arabia": true,

	// Pacific
	"Guam":             true,
	"American Samoa":   true,
	"Marshall Islands": true,
	"Micronesia":       true,
	"Palau":            true,
}
