// Command ingest is the long-running worker: it takes URL jobs from NATS
// and runs each one through acquisition, chunking, tagging and indexing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/rizz-engine/engine/app"
	"github.com/WessleyAI/rizz-engine/engine/ingest"
	"github.com/WessleyAI/rizz-engine/pkg/config"
)

func main() {
	var (
		configPath  = flag.String("config", "", "YAML configuration file")
		natsURL     = flag.String("nats", "", "NATS server URL (overrides config)")
		queue       = flag.String("queue", "", "queue group (overrides config)")
		metricsAddr = flag.String("metrics", "", "Prometheus listen address (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *natsURL != "" {
		cfg.NATS.URL = *natsURL
	}
	if *queue != "" {
		cfg.NATS.Queue = *queue
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	logger := app.NewLogger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("ingest worker exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, logger)
	defer a.Close()

	m := ingest.NewMetrics(a.Metrics)
	if cfg.Metrics.Addr != "" {
		a.Metrics.ServeAsync(ctx, cfg.Metrics.Addr, logger)
	}

	pipeline, err := a.Pipeline(ctx, m)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	var marker ingest.Marker
	rc, err := a.Redis(ctx)
	switch {
	case err != nil:
		logger.Warn("dedup disabled", "error", err)
	case rc != nil:
		marker = ingest.RedisMarker{Client: rc, TTL: cfg.Redis.DedupTTL}
	}

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name("rizz-ingest"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	w := ingest.NewWorker(pipeline, ingest.NATSBus{Conn: nc}, ingest.WorkerOpts{
		MaxRetries: cfg.NATS.MaxRetries,
		Timeout:    cfg.NATS.JobTimeout,
		Marker:     marker,
		Logger:     logger,
		Metrics:    m,
	})
	sub, err := ingest.StartConsumer(nc, cfg.NATS.Queue, w)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", ingest.RequestSubject, err)
	}
	logger.Info("ingest worker started",
		"subject", ingest.RequestSubject,
		"queue", cfg.NATS.Queue,
		"collection", cfg.Qdrant.Collection,
	)

	<-ctx.Done()
	logger.Info("shutdown signal received")
	if err := sub.Drain(); err != nil {
		logger.Warn("drain subscription", "error", err)
	}
	return nil
}
