package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/report"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	healthPort := flag.Int("health-port", 8082, "port for liveness and readiness probes")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting report sink", "topic", cfg.Kafka.Topics.BenchRuns, "group", cfg.Kafka.ConsumerGroup)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pg.Close()
	store := report.NewStore(pg.DB)

	m := metrics.New()
	counted := countingSink{sink: store, m: m}
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.BenchRuns, report.HandleMessage(counted))
	defer consumer.Close()

	checker := health.NewChecker()
	checker.Register("postgres", health.Ping(store.Ping))
	healthSrv, err := metrics.StartAdminServer(fmt.Sprintf(":%d", *healthPort), metrics.NewAdminMux(nil, checker))
	if err != nil {
		slog.Error("failed to start health server", "error", err)
		os.Exit(1)
	}

	var scrape *metrics.AdminServer
	if cfg.Metrics.Enabled {
		scrape, err = metrics.StartAdminServer(fmt.Sprintf(":%d", cfg.Metrics.Port), metrics.NewAdminMux(prometheus.DefaultGatherer, checker))
		if err != nil {
			slog.Error("failed to start metrics server", "error", err)
			os.Exit(1)
		}
	}

	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	healthSrv.Shutdown(shutdownCtx)
	if scrape != nil {
		scrape.Shutdown(shutdownCtx)
	}
	slog.Info("report sink stopped")
}

// countingSink records into sink and counts outcomes.
type countingSink struct {
	sink report.Sink
	m    *metrics.Metrics
}

func (c countingSink) Record(ctx context.Context, run report.Run) error {
	err := c.sink.Record(ctx, run)
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.m.ReportsRecorded.WithLabelValues("postgres", status).Inc()
	return err
}
