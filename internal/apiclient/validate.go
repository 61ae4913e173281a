package apiclient

import "math"

// durationTolerance is the ±2s window spec §4.4 and the §8 concrete
// validation scenario require between a candidate release's track
// durations and the measured durations from the asset's own audio files.
const durationTolerance = 2.0

// DurationsMatch reports whether candidate and measured have the same
// track count and every candidate[i] lies within ±2s of measured[i].
func DurationsMatch(measured, candidate []float64) bool {
	if len(measured) != len(candidate) {
		return false
	}
	for i := range measured {
		if math.Abs(measured[i]-candidate[i]) > durationTolerance {
			return false
		}
	}
	return true
}

// QueryArgs is one progressively broader query variant tried against a
// metadata API (spec §4.4).
type QueryArgs map[string]string

// QueryVariants returns the five query-argument sets tried in order for
// label and year, from narrowest to broadest.
func QueryVariants(label, year string) []QueryArgs {
	return []QueryArgs{
		{"artist": label},
		{"publisher": label},
		{},
		{"artist": label, "year": year},
		{"publisher": label, "year": year},
	}
}

// MaxInspectedResults caps how many results of a single query variant are
// inspected (spec §6's API rate-limit envelope).
const MaxInspectedResults = 20
