// Package store owns the published dst.txt file: an append-only rolling
// window of at most 24 hourly lines, each "<naive UTC timestamp> <value>".
// No other component reads or writes the file; the updater re-derives every
// decision from the on-disk tail, so re-running after a crashed or
// overlapping run can never duplicate or regress published history.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/geomag-dst-ingest/internal/domain"
)

// Preconditions for AppendOnly, matched with errors.Is. Neither is ever
// auto-repaired by guessing: MissingStore tells the caller to Rewrite,
// CorruptStore aborts the run.
var (
	ErrMissingStore = errors.New("store file does not exist")
	ErrCorruptStore = errors.New("store file is corrupt")
)

const lineTimeLayout = "2006-01-02T15:04:05"

// File is the persisted-state updater for one output path.
type File struct {
	path   string
	logger *slog.Logger
}

// New creates an updater for path. The parent directory is created on the
// first write.
func New(path string, logger *slog.Logger) *File {
	return &File{path: path, logger: logger}
}

// Path returns the output file path.
func (f *File) Path() string {
	return f.path
}

// Load reads and parses every line of the store in file order.
func (f *File) Load() ([]domain.Point, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrMissingStore
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}

	var points []domain.Point
	for i, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		p, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptStore, i+1, err)
		}
		points = append(points, p)
	}
	return points, nil
}

// Rewrite replaces the entire store with the given window. Used for the
// first run and forced rebuilds.
func (f *File) Rewrite(win domain.Window) error {
	if err := win.Validate(); err != nil {
		return fmt.Errorf("refusing rewrite: %w", err)
	}
	return f.write([]domain.Point(win))
}

// AppendOnly applies a steady-state mutation for one new point, per the
// decision table on (new timestamp vs. published tail):
//
//	new == last  keep the published value; rewrite only if de-duplication
//	             changed the line set (repair, never a value change)
//	new > last   append, keep the most recent 24 lines
//	new < last   ignore the out-of-order point; repair-only pass as above
//
// The store must already exist (ErrMissingStore otherwise) and parse
// cleanly (ErrCorruptStore otherwise). The bool reports whether the new
// point was actually appended.
func (f *File) AppendOnly(pt domain.Point) (bool, error) {
	raw, err := f.Load()
	if err != nil {
		return false, err
	}
	if len(raw) == 0 {
		return false, fmt.Errorf("%w: no lines", ErrCorruptStore)
	}

	points := normalize(raw)
	lastTs := points[len(points)-1].Ts

	switch {
	case pt.Ts.After(lastTs):
		points = append(points, pt)
		if len(points) > domain.WindowSize {
			points = points[len(points)-domain.WindowSize:]
		}
		return true, f.write(points)

	default:
		// Same hour or older: published values are authoritative. Write
		// only when normalization removed accidental duplicates.
		if samePoints(raw, points) {
			return false, nil
		}
		f.logger.Warn("normalizing store, duplicate lines removed",
			"path", f.path, "lines_before", len(raw), "lines_after", len(points))
		return false, f.write(points)
	}
}

// normalize de-duplicates by timestamp keeping the first occurrence
// (earlier-recorded, potentially provisional values are authoritative) and
// sorts ascending.
func normalize(points []domain.Point) []domain.Point {
	seen := make(map[time.Time]bool, len(points))
	out := make([]domain.Point, 0, len(points))
	for _, p := range points {
		if seen[p.Ts] {
			continue
		}
		seen[p.Ts] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ts.Before(out[j].Ts) })
	return out
}

func samePoints(a, b []domain.Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Ts.Equal(b[i].Ts) || a[i].Value != b[i].Value {
			return false
		}
	}
	return true
}

// write replaces the store atomically: temp file in the destination
// directory, fsync, rename. Readers never observe a partial file.
func (f *File) write(points []domain.Point) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	var sb strings.Builder
	for _, p := range points {
		sb.WriteString(formatLine(p))
		sb.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(dir, ".dst-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.WriteString(sb.String()); err != nil {
		return fmt.Errorf("write temp store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	tmp = nil
	return nil
}

func formatLine(p domain.Point) string {
	return p.Ts.UTC().Format(lineTimeLayout) + " " + strconv.Itoa(p.Value)
}

func parseLine(line string) (domain.Point, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return domain.Point{}, fmt.Errorf("expected \"<timestamp> <value>\", got %q", line)
	}
	ts, err := time.Parse(lineTimeLayout, fields[0])
	if err != nil {
		return domain.Point{}, fmt.Errorf("bad timestamp %q: %v", fields[0], err)
	}
	v, err := strconv.Atoi(fields[1])
	if err != nil {
		return domain.Point{}, fmt.Errorf("bad value %q: %v", fields[1], err)
	}
	return domain.Point{Ts: ts, Value: v}, nil
}
