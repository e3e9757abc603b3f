package resolver

import "strings"

// aliases maps metro nicknames and airport codes to a canonical "City, ST".
// Keys are upper case; lookups are exact, never fuzzy.
var aliases = map[string]string{
	"NYC":    "New York, NY",
	"JFK":    "New York, NY",
	"LGA":    "New York, NY",
	"LA":     "Los Angeles, CA",
	"LAX":    "Los Angeles, CA",
	"SF":     "San Francisco, CA",
	"SFO":    "San Francisco, CA",
	"CHI":    "Chicago, IL",
	"ORD":    "Chicago, IL",
	"DC":     "Washington, DC",
	"DCA":    "Washington, DC",
	"IAD":    "Washington, DC",
	"PHL":    "Philadelphia, PA",
	"PHILLY": "Philadelphia, PA",
	"ATL":    "Atlanta, GA",
	"BOS":    "Boston, MA",
	"SEA":    "Seattle, WA",
	"DFW":    "Dallas, TX",
	"IAH":    "Houston, TX",
	"HOU":    "Houston, TX",
	"MIA":    "Miami, FL",
	"DEN":    "Denver, CO",
	"PDX":    "Portland, OR",
	"SLC":    "Salt Lake City, UT",
	"LV":     "Las Vegas, NV",
	"LAS":    "Las Vegas, NV",
	"VEGAS":  "Las Vegas, NV",
	"NOLA":   "New Orleans, LA",
	"MSY":    "New Orleans, LA",
	"SD":     "San Diego, CA",
	"SAN":    "San Diego, CA",
	"ATX":    "Austin, TX",
	"AUS":    "Austin, TX",
	"PHX":    "Phoenix, AZ",
	"MSP":    "Minneapolis, MN",
	"DTW":    "Detroit, MI",
	"STL":    "St. Louis, MO",
	"SJC":    "San Jose, CA",
	"OAK":    "Oakland, CA",
	"SAC":    "Sacramento, CA",
	"SATX":   "San Antonio, TX",
	"KC":     "Kansas City, MO",
	"MCI":    "Kansas City, MO",
	"BNA":    "Nashville, TN",
	"CLT":    "Charlotte, NC",
	"PIT":    "Pittsburgh, PA",
	"MCO":    "Orlando, FL",
	"TPA":    "Tampa, FL",
	"HNL":    "Honolulu, HI",
}

// Expand returns the canonical "City, ST" for a known short code.
func Expand(input string) (string, bool) {
	v, ok := aliases[strings.ToUpper(strings.TrimSpace(input))]
	return v, ok
}
