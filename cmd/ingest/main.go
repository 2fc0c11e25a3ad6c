// Command ingest maintains the rolling 24-hour Dst window file from the
// Kyoto WDC real-time monthly documents.
//
// By default it performs one ingestion run and exits, which suits a cron or
// systemd timer schedule. With -daemon it runs on a fixed interval and
// serves /healthz, /readyz, and /metrics. With -rebuild the store is fully
// rewritten from the computed window instead of appended to.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/geomag-dst-ingest/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/geomag-dst-ingest/internal/adapter/kafka"
	"github.com/couchcryptid/geomag-dst-ingest/internal/adapter/wdc"
	"github.com/couchcryptid/geomag-dst-ingest/internal/config"
	"github.com/couchcryptid/geomag-dst-ingest/internal/observability"
	"github.com/couchcryptid/geomag-dst-ingest/internal/pipeline"
	"github.com/couchcryptid/geomag-dst-ingest/internal/store"
)

func main() {
	daemon := flag.Bool("daemon", false, "run on RUN_INTERVAL and serve health/metrics endpoints")
	rebuild := flag.Bool("rebuild", false, "force a full store rewrite instead of the append-only update")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	fetcher := wdc.NewClient(cfg.WDCBaseURL, cfg.FetchTimeout, logger)
	outFile := store.New(cfg.OutputPath, logger)

	// Kafka sink is feature-flagged on KAFKA_BROKERS.
	var publisher pipeline.Publisher
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		publisher = kafkaWriter
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic)
	}

	engine := pipeline.New(fetcher, outFile, publisher, logger, metrics, *rebuild)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !*daemon {
		err := engine.RunOnce(ctx)
		closeKafka(kafkaWriter, logger)
		if err != nil {
			os.Exit(1)
		}
		return
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, engine, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := engine.Run(ctx, cfg.RunInterval); err != nil {
			logger.Error("ingest loop error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	closeKafka(kafkaWriter, logger)

	logger.Info("shutdown complete")
}

func closeKafka(w *kafkaadapter.Writer, logger *slog.Logger) {
	if w == nil {
		return
	}
	if err := w.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
}
