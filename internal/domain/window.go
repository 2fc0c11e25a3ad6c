package domain

import (
	"fmt"
	"time"
)

// Series indexes a merged row collection for anchor and point resolution.
// Build it once per ingestion run; it never mutates its rows.
type Series struct {
	rows   map[time.Time]ParsedRow // keyed by UTC midnight
	points map[time.Time]int       // every parsed (hour timestamp, value)
}

// NewSeries builds the day and timestamp indexes over merged rows. The
// timestamp map is written last-row-wins, which is idempotent: after
// MergeRows no two rows can share a day, so no timestamp repeats.
func NewSeries(rows []ParsedRow) *Series {
	s := &Series{
		rows:   make(map[time.Time]ParsedRow, len(rows)),
		points: make(map[time.Time]int, len(rows)*WindowSize),
	}
	for _, r := range rows {
		s.rows[r.Date()] = r
		for h, v := range r.Hours {
			s.points[r.Date().Add(time.Duration(h)*time.Hour)] = v
		}
	}
	return s
}

// Anchor computes the hour the output window must end at:
// min(previous completed UTC hour, latest hour the source supports).
//
// A row with a pre-field supports one synthetic hour beyond its last parsed
// one, except when that last hour came from a packed filler; a packed
// terminal hour means the observatory is mid-write and its claimed next
// value is not yet trustworthy.
func (s *Series) Anchor() (time.Time, error) {
	if len(s.points) == 0 {
		return time.Time{}, ErrNoData
	}

	desiredEnd := clock.Now().UTC().Truncate(time.Hour).Add(-time.Hour)

	var latest time.Time
	for ts := range s.points {
		if ts.After(latest) {
			latest = ts
		}
	}

	maxSupportedEnd := latest
	if row, ok := s.rows[dayOf(latest)]; ok && row.PreField != nil && !row.LastHourPackedFiller {
		maxSupportedEnd = latest.Add(time.Hour)
	}

	if desiredEnd.Before(maxSupportedEnd) {
		return desiredEnd, nil
	}
	return maxSupportedEnd, nil
}

// Resolve returns the value for one target hour of the window ending at
// anchor.
//
// The edge override comes first and reproduces the reference backend's
// tail-lag behavior verbatim: when the anchor's own row stopped early but
// its parsed hours already extend past the anchor hour, the anchor hour is
// served provisionally from the pre-field while the hour before it is
// served from real parsed data. Treat the rule as a wire-compatibility
// contract, not a policy to improve on.
func (s *Series) Resolve(target, anchor time.Time) (int, error) {
	row, haveRow := s.rows[dayOf(target)]

	if haveRow && row.StoppedEarly && dayOf(target).Equal(dayOf(anchor)) && row.MaxHour() > anchor.Hour() {
		if target.Equal(anchor) && row.PreField != nil {
			return *row.PreField, nil
		}
		if target.Equal(anchor.Add(-time.Hour)) {
			if v, ok := row.Hours[target.Hour()]; ok {
				return v, nil
			}
		}
	}

	if v, ok := s.points[target]; ok {
		return v, nil
	}

	// Boundary synthesis for the hour immediately after a day's last
	// parsed hour.
	if haveRow && row.PreField != nil {
		return *row.PreField, nil
	}

	return 0, fmt.Errorf("%w: %s", ErrNoValue, target.Format(time.RFC3339))
}

// BuildWindow produces the full 24-point window ending at the anchor. It
// fails on the first unresolvable hour; a partial window is never returned.
func (s *Series) BuildWindow() (Window, error) {
	anchor, err := s.Anchor()
	if err != nil {
		return nil, err
	}

	win := make(Window, 0, WindowSize)
	for i := WindowSize - 1; i >= 0; i-- {
		target := anchor.Add(-time.Duration(i) * time.Hour)
		v, err := s.Resolve(target, anchor)
		if err != nil {
			return nil, err
		}
		win = append(win, Point{Ts: target, Value: v})
	}
	return win, nil
}

func dayOf(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}
