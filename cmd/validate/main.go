// Command validate performs offline integrity checks on a published Dst
// window file: every line parses, the line count fits the rolling window,
// and timestamps are strictly increasing at exactly hourly cadence. It
// reports per-phase results and exits non-zero on any failure.
//
// Usage:
//
//	go run ./cmd/validate -store data/dst.txt
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/geomag-dst-ingest/internal/domain"
	"github.com/couchcryptid/geomag-dst-ingest/internal/store"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	storePath := flag.String("store", "", "path to the published window file")
	flag.Parse()

	if *storePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*storePath); code != 0 {
		os.Exit(code)
	}
}

func run(path string) int {
	phases := []*phase{
		checkParse(path),
		checkCadence(path),
	}

	failed := false
	for _, p := range phases {
		if p == nil {
			continue
		}
		if p.passed() {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed = true
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	if failed {
		return 1
	}
	return 0
}

func checkParse(path string) *phase {
	p := &phase{name: "parse"}

	points, err := loadStore(path)
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	if len(points) == 0 {
		p.errorf("store is empty")
	}
	if len(points) > domain.WindowSize {
		p.errorf("store holds %d lines, steady state is at most %d", len(points), domain.WindowSize)
	}
	return p
}

func checkCadence(path string) *phase {
	p := &phase{name: "cadence"}

	points, err := loadStore(path)
	if err != nil {
		// Already reported by the parse phase.
		return nil
	}

	for i := 1; i < len(points); i++ {
		gap := points[i].Ts.Sub(points[i-1].Ts)
		if gap <= 0 {
			p.errorf("line %d: timestamp %s does not increase", i+1, points[i].Ts.Format(time.RFC3339))
		} else if gap != time.Hour {
			p.errorf("line %d: gap %s, want 1h", i+1, gap)
		}
	}
	return p
}

func loadStore(path string) ([]domain.Point, error) {
	return store.New(path, slog.Default()).Load()
}
