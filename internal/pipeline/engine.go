// Package pipeline orchestrates one ingestion run: fetch the present-month
// document, parse, fall back to the previous-month archive when the window
// cannot be built, and persist through the append-only store.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/geomag-dst-ingest/internal/adapter/wdc"
	"github.com/couchcryptid/geomag-dst-ingest/internal/domain"
	"github.com/couchcryptid/geomag-dst-ingest/internal/observability"
	"github.com/couchcryptid/geomag-dst-ingest/internal/store"
	"github.com/jonboulle/clockwork"
)

// Fetcher retrieves raw monthly documents. Implemented by wdc.Client.
type Fetcher interface {
	PresentMonth(ctx context.Context, t time.Time) (string, error)
	ArchiveMonth(ctx context.Context, t time.Time) (string, error)
}

// Store persists the rolling window. Implemented by store.File.
type Store interface {
	Rewrite(win domain.Window) error
	AppendOnly(pt domain.Point) (bool, error)
}

// Publisher emits appended points to an external sink. Optional.
type Publisher interface {
	PublishPoint(ctx context.Context, pt domain.Point, mode string) error
}

// Engine runs the fetch-parse-build-persist sequence. One run is fully
// synchronous; the scheduler guarantees at most one run at a time.
type Engine struct {
	fetcher   Fetcher
	store     Store
	publisher Publisher // nil when the Kafka sink is disabled
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock

	// rebuild forces a full rewrite instead of the steady-state append.
	rebuild bool

	ready atomic.Bool
}

// New creates an Engine. publisher may be nil.
func New(f Fetcher, st Store, pub Publisher, logger *slog.Logger, metrics *observability.Metrics, rebuild bool) *Engine {
	return &Engine{
		fetcher:   f,
		store:     st,
		publisher: pub,
		logger:    logger,
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
		rebuild:   rebuild,
	}
}

// SetClock swaps the engine's scheduler clock for tests.
func (e *Engine) SetClock(c clockwork.Clock) {
	e.clock = c
}

// CheckReadiness returns nil once at least one run has succeeded.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("no ingestion run has succeeded yet")
	}
	return nil
}

// RunOnce performs a single ingestion run. Any failure aborts with the
// store exactly as it was; there are no partial writes.
func (e *Engine) RunOnce(ctx context.Context) error {
	start := e.clock.Now()
	now := start.UTC()

	win, err := e.buildWindow(ctx, now)
	if err != nil {
		return e.fail(now, err)
	}
	if err := win.Validate(); err != nil {
		return e.fail(now, err)
	}

	mode, err := e.persist(win)
	if err != nil {
		return e.fail(now, err)
	}

	if mode != "" && e.publisher != nil {
		if err := e.publisher.PublishPoint(ctx, win.End(), mode); err != nil {
			// The file store is the contract; a sink failure never fails the run.
			e.logger.Warn("kafka publish failed", "error", err, "ts", win.End().Ts)
			e.metrics.KafkaPublishErrs.Inc()
		} else {
			e.metrics.KafkaPublished.Inc()
		}
	}

	e.metrics.RunsTotal.WithLabelValues("success").Inc()
	e.metrics.RunDuration.Observe(e.clock.Since(start).Seconds())
	e.metrics.WindowEnd.Set(float64(win.End().Ts.Unix()))
	e.metrics.LastSuccess.Set(float64(now.Unix()))
	e.ready.Store(true)

	e.logger.Info("run complete",
		"window_end", win.End().Ts, "end_value", win.End().Value, "mode", mode)
	return nil
}

// buildWindow attempts the window from the present-month document alone,
// merging in the previous-month archive only when that fails with a
// data-availability error (the month-boundary case).
func (e *Engine) buildWindow(ctx context.Context, now time.Time) (domain.Window, error) {
	currentText, err := e.fetcher.PresentMonth(ctx, now)
	if err != nil {
		return nil, err
	}
	currentRows := domain.ParseDocument(currentText)

	win, err := domain.NewSeries(currentRows).BuildWindow()
	if err == nil {
		return win, nil
	}
	if !errors.Is(err, domain.ErrNoData) && !errors.Is(err, domain.ErrNoValue) {
		return nil, err
	}

	e.logger.Debug("present month insufficient, fetching previous month", "reason", err)
	e.metrics.FallbackFetches.Inc()

	var prevRows []domain.ParsedRow
	prevText, perr := e.fetcher.ArchiveMonth(ctx, wdc.PreviousMonth(now))
	if perr != nil {
		// A failed archive fetch is tolerated; the retry below decides
		// whether current-month rows alone are enough after all.
		e.logger.Warn("previous month fetch failed", "error", perr)
	} else {
		prevRows = domain.ParseDocument(prevText)
	}

	// Current month passed last so it always overrides the archive.
	merged := domain.MergeRows(prevRows, currentRows)
	return domain.NewSeries(merged).BuildWindow()
}

// persist applies the invocation-mode decision table: forced rebuild or
// missing store rewrites the whole window, otherwise the anchor point is
// offered append-only. Returns "rewrite", "append", or "" when the run
// changed nothing.
func (e *Engine) persist(win domain.Window) (string, error) {
	if e.rebuild {
		if err := e.store.Rewrite(win); err != nil {
			return "", err
		}
		e.metrics.StoreRewrites.Inc()
		return "rewrite", nil
	}

	appended, err := e.store.AppendOnly(win.End())
	if errors.Is(err, store.ErrMissingStore) {
		if err := e.store.Rewrite(win); err != nil {
			return "", err
		}
		e.metrics.StoreRewrites.Inc()
		return "rewrite", nil
	}
	if err != nil {
		return "", err
	}
	if !appended {
		return "", nil
	}
	e.metrics.PointsAppended.Inc()
	return "append", nil
}

// fail records and reports a failed run with its timestamp.
func (e *Engine) fail(now time.Time, err error) error {
	e.metrics.RunsTotal.WithLabelValues("failure").Inc()
	e.logger.Error("run failed", "error", err, "run_ts", now)
	return err
}

// Run executes RunOnce immediately and then on every interval tick until
// the context is cancelled. A failed run is counted and logged, never fatal
// to the loop; retry policy beyond the fixed interval belongs to the
// operator.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	e.logger.Info("ingest loop started", "interval", interval)
	e.metrics.DaemonRunning.Set(1)
	defer e.metrics.DaemonRunning.Set(0)

	ticker := e.clock.NewTicker(interval)
	defer ticker.Stop()

	e.RunOnce(ctx) //nolint:errcheck // already counted and logged

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("ingest loop stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			e.RunOnce(ctx) //nolint:errcheck // already counted and logged
		}
	}
}
