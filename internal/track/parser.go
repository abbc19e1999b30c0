package track

import (
	"strconv"
	"strings"
)

const (
	// Delimiter separates the fields of a raw line
	Delimiter = ","

	// FieldCount is the number of leading fields read from a line:
	// latitude, longitude, altitude
	FieldCount = 3
)

// Parse classifies a raw line. present is false when the source has no more
// data, which yields Exhausted. Fields past the third are ignored.
func Parse(line string, present bool) Outcome {
	if !present {
		return Outcome{Kind: Exhausted}
	}

	parts := strings.Split(line, Delimiter)
	if len(parts) < FieldCount {
		return Outcome{Kind: Skip}
	}

	var values [FieldCount]float64
	for i := 0; i < FieldCount; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return Outcome{Kind: Skip}
		}
		values[i] = v
	}

	return Outcome{
		Kind: Valid,
		Record: Record{
			Latitude:  values[0],
			Longitude: values[1],
			Altitude:  values[2],
		},
	}
}
