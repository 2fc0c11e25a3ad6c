// Package domain models the Kyoto WDC real-time Dst index product and the
// rolling 24-hour window derived from it.
//
// # Data Source
//
// The World Data Center for Geomagnetism (Kyoto) publishes the provisional
// hourly Dst index as one fixed-width text document per month, updated in
// place as new hours are observed. The upstream fetcher retrieves the
// present-month document (and, around month boundaries, the previous-month
// archive) and hands the raw text to this package.
//
// # Record Format
//
// One physical line per calendar day, ASCII, fixed column offsets (0-based):
//
//	[0:3)    literal record tag "DST"
//	[3:5)    two-digit year (pivoted at 2000)
//	[5:7)    two-digit month
//	[8:10)   two-digit day of month (column 7 is a separator)
//	[16:20)  pre-field: a signed integer preceding the hourly values; the
//	         source uses it as the daily base value, this engine reads it
//	         only as a synthetic boundary value for the hour after the last
//	         written one
//	[20:116) 24 hourly values, 4 columns each, hour 00 first
//	[116:)   trailing daily-mean column, ignored
//
// Hourly fields still unwritten by the observatory carry the filler token
// "9999". A partially written hour shows up as a packed filler: one digit
// (optionally signed) followed by "999", e.g. "2999" meaning "value 2, then
// end of data". Parsing a row stops at the first blank, filler, packed
// filler, or garbage token; everything before the stop is kept.
//
// # Window Semantics
//
// The published window is always exactly 24 hourly points ending at the
// anchor hour: the previous completed UTC hour, clamped to what the source
// has actually written. A row whose pre-field is present and whose last
// parsed hour did not come from a packed filler supports one synthetic hour
// beyond its last parsed one, served from the pre-field. The resolver's
// edge-override rules reproduce the reference backend's output exactly,
// including its tail-lag quirks; see [Series.Resolve].
package domain
