package domain

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Fixed column layout of one daily record, 0-based offsets.
const (
	recordTag = "DST"

	yearStart  = 3
	monthStart = 5
	dayStart   = 8

	preFieldStart = 16
	preFieldWidth = 4

	hourFieldStart = 20
	hourFieldWidth = 4

	// Shortest line that can still carry the tag, the date, and at least
	// the first hourly field window.
	minRecordLen = hourFieldStart + hourFieldWidth

	// fillerToken marks an hour the observatory has not written yet.
	fillerToken = "9999"
)

var (
	// packedFillerRe matches a partially written terminal hour: one
	// optionally signed digit carrying the value, then the filler marker,
	// e.g. "0999" -> 0, "2999" -> 2, "-3999" -> -3.
	packedFillerRe = regexp.MustCompile(`^([+-]?\d)999$`)

	intTokenRe = regexp.MustCompile(`^[+-]?\d+$`)
)

// ParseLine decodes one source line. The second return is false when the
// line is not a usable daily record (wrong tag, truncated, non-numeric
// date); that is a skip, not an error.
func ParseLine(line string) (ParsedRow, bool) {
	if !strings.HasPrefix(line, recordTag) || len(line) < minRecordLen {
		return ParsedRow{}, false
	}

	yy := line[yearStart : yearStart+2]
	mm := line[monthStart : monthStart+2]
	dd := line[dayStart : dayStart+2]
	year, errY := strconv.Atoi(yy)
	month, errM := strconv.Atoi(mm)
	day, errD := strconv.Atoi(dd)
	if errY != nil || errM != nil || errD != nil {
		return ParsedRow{}, false
	}

	row := ParsedRow{
		// The realtime product started publishing after 2000, so the
		// two-digit year always pivots forward.
		Year:     2000 + year,
		Month:    time.Month(month),
		Day:      day,
		PreField: parseIntToken(fieldAt(line, preFieldStart, preFieldWidth)),
		Hours:    make(map[int]int, WindowSize),
	}

	for hour := 0; hour < WindowSize; hour++ {
		tok := fieldAt(line, hourFieldStart+hour*hourFieldWidth, hourFieldWidth)

		if tok == "" || tok == fillerToken {
			row.StoppedEarly = true
			break
		}

		if m := packedFillerRe.FindStringSubmatch(tok); m != nil {
			v, _ := strconv.Atoi(m[1])
			row.Hours[hour] = v
			row.StoppedEarly = true
			row.LastHourPackedFiller = true
			break
		}

		v := parseIntToken(tok)
		if v == nil {
			row.StoppedEarly = true
			break
		}
		row.Hours[hour] = *v
	}

	return row, true
}

// ParseDocument decodes every daily record in a monthly document, sorted
// ascending by date. Non-record lines (headers, blanks) are skipped.
func ParseDocument(text string) []ParsedRow {
	var rows []ParsedRow
	for _, line := range strings.Split(text, "\n") {
		if row, ok := ParseLine(strings.TrimRight(line, "\r")); ok {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Date().Before(rows[j].Date())
	})
	return rows
}

// MergeRows combines row collections keyed by calendar day. When the same
// day appears more than once the row from the collection passed later wins
// outright, so callers pass the authoritative document last. Output is
// sorted ascending by date.
func MergeRows(collections ...[]ParsedRow) []ParsedRow {
	byDay := make(map[time.Time]ParsedRow)
	for _, rows := range collections {
		for _, r := range rows {
			byDay[r.Date()] = r
		}
	}

	merged := make([]ParsedRow, 0, len(byDay))
	for _, r := range byDay {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Date().Before(merged[j].Date())
	})
	return merged
}

// fieldAt extracts and trims a fixed-width field, tolerating lines shorter
// than the full record width.
func fieldAt(line string, start, width int) string {
	if start >= len(line) {
		return ""
	}
	end := start + width
	if end > len(line) {
		end = len(line)
	}
	return strings.TrimSpace(line[start:end])
}

// parseIntToken parses a plain signed integer token, nil when blank or not
// an integer.
func parseIntToken(tok string) *int {
	if tok == "" || !intTokenRe.MatchString(tok) {
		return nil
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return nil
	}
	return &v
}
