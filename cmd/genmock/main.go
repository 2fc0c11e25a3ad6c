// Command genmock writes a synthetic Kyoto WDC monthly Dst document for
// fixtures and local runs. It uses the actual domain parser column layout,
// so generated documents exercise the same code paths as real ones:
// complete days, one partial "today" row ending in a filler or packed
// filler, and a pre-field on every row.
//
// Usage:
//
//	go run ./cmd/genmock -date 2026-08-23 -last-hour 14 -packed -out testdata/dst2608.txt
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/geomag-dst-ingest/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dateStr := flag.String("date", "", "document 'today' as YYYY-MM-DD (required)")
	lastHour := flag.Int("last-hour", 14, "first unwritten hour of today's row (0-24)")
	packed := flag.Bool("packed", false, "end today's row with a packed filler instead of a plain one")
	out := flag.String("out", "", "output path (default stdout)")
	flag.Parse()

	if *dateStr == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -date")
	}
	today, err := time.Parse("2006-01-02", *dateStr)
	if err != nil {
		return fmt.Errorf("parse -date: %w", err)
	}
	if *lastHour < 0 || *lastHour > domain.WindowSize {
		return fmt.Errorf("-last-hour must be 0-24, got %d", *lastHour)
	}

	doc := Document(today, *lastHour, *packed)

	if *out == "" {
		fmt.Print(doc)
		return nil
	}
	if err := os.WriteFile(*out, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	log.Printf("wrote %s (%d days, today written through hour %d)",
		*out, today.Day(), *lastHour-1)
	return nil
}

// Document renders a monthly document whose last row is the partial day.
func Document(today time.Time, lastHour int, packed bool) string {
	var sb strings.Builder
	for day := 1; day <= today.Day(); day++ {
		date := time.Date(today.Year(), today.Month(), day, 0, 0, 0, 0, time.UTC)
		if day < today.Day() {
			sb.WriteString(Row(date, domain.WindowSize, false))
		} else {
			sb.WriteString(Row(date, lastHour, packed))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Row renders one fixed-width daily record with hours 0..written-1 filled,
// optionally terminated by a packed filler at hour `written`.
func Row(date time.Time, written int, packed bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DST%02d%02d*%02dRRX020", date.Year()%100, int(date.Month()), date.Day())
	fmt.Fprintf(&sb, "%4d", Value(date.Day(), written))

	sum := 0
	for h := 0; h < domain.WindowSize; h++ {
		switch {
		case h < written:
			v := Value(date.Day(), h)
			sum += v
			fmt.Fprintf(&sb, "%4d", v)
		case h == written && packed:
			// One digit then the filler marker. Digit 9 would read as the
			// plain filler, so the synthetic value stays in 0-8.
			fmt.Fprintf(&sb, "%d999", (date.Day()+h)%9)
		default:
			sb.WriteString("9999")
		}
	}

	// Trailing daily-mean column, ignored by the parser.
	if written > 0 {
		fmt.Fprintf(&sb, "%4d", sum/written)
	} else {
		sb.WriteString("9999")
	}
	return sb.String()
}

// Value is the deterministic synthetic Dst value for a (day, hour) slot,
// a mildly disturbed quiet-day curve in the -45..-5 range.
func Value(day, hour int) int {
	return -(5 + (day*7+hour*3)%41)
}
