package domain

import (
	"errors"
	"time"
)

// Sentinel failures for window construction. Callers match with errors.Is;
// both abort the run without touching the store.
var (
	// ErrNoData means no hourly values could be parsed from any document.
	ErrNoData = errors.New("no parsed dst data")

	// ErrNoValue means a specific hour inside the window cannot be resolved.
	ErrNoValue = errors.New("no dst value for hour")
)

// WindowSize is the number of hourly points in a published window.
const WindowSize = 24

// ParsedRow is one calendar day of source data, immutable once parsed.
type ParsedRow struct {
	Year  int
	Month time.Month
	Day   int

	// PreField is the signed integer in the fixed column window before the
	// hourly fields, nil when blank or unparseable. Used only as a synthetic
	// boundary value, never as an hourly observation in its own right.
	PreField *int

	// Hours maps hour-of-day to value for the hours parsed before a stop
	// condition. The parser only produces prefixes of 0..23; gaps can arise
	// from merging documents, never from a single row.
	Hours map[int]int

	// StoppedEarly is set when the scan ended on a blank, filler, packed
	// filler, or garbage token instead of completing all 24 fields normally.
	StoppedEarly bool

	// LastHourPackedFiller is set when the final recorded hour came from a
	// packed filler token rather than a normal 4-column value. It signals
	// the observatory is mid-write, so no synthetic hour is granted.
	LastHourPackedFiller bool
}

// Date returns the row's calendar day as midnight UTC.
func (r ParsedRow) Date() time.Time {
	return time.Date(r.Year, r.Month, r.Day, 0, 0, 0, 0, time.UTC)
}

// MaxHour returns the largest parsed hour-of-day, or -1 when the row holds
// no hours at all.
func (r ParsedRow) MaxHour() int {
	maxHour := -1
	for h := range r.Hours {
		if h > maxHour {
			maxHour = h
		}
	}
	return maxHour
}

// Point is a single hour-aligned UTC timestamp with its index value.
type Point struct {
	Ts    time.Time `json:"ts"`
	Value int       `json:"value"`
}

// Window is the ordered 24-point series ending at the anchor hour.
type Window []Point

// Validate checks the publish invariants: exactly WindowSize points with
// strictly increasing, exactly hourly-spaced timestamps.
func (w Window) Validate() error {
	if len(w) != WindowSize {
		return errors.New("window does not hold exactly 24 points")
	}
	for i := 1; i < len(w); i++ {
		if !w[i].Ts.Equal(w[i-1].Ts.Add(time.Hour)) {
			return errors.New("window timestamps are not hourly and increasing")
		}
	}
	return nil
}

// End returns the window's final point, the one at the anchor hour.
func (w Window) End() Point {
	return w[len(w)-1]
}
