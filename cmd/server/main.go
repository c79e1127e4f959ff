package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/api"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/bench"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/intersect"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/report"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/segment"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/resilience"
)

const recentRunsKept = 500

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting intersection service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	onBreakerChange := func(name string, to resilience.State) {
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	}

	lists := catalog.New()
	if err := loadCatalog(ctx, cfg, lists); err != nil {
		slog.Error("failed to load posting lists", "error", err)
		os.Exit(1)
	}
	m.ListsLoaded.Set(float64(lists.Len()))

	var resultCache *cache.ResultCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, result caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			resultCache = cache.New(redisClient, cache.Options{
				TTL:       cfg.Redis.CacheTTL,
				Namespace: fmt.Sprintf("r%d-o%d", cfg.Lists.NumRepeats, cfg.Lists.Offset),
				Metrics:   m,
				Breaker: resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{
					FailureThreshold: 5,
					ResetTimeout:     10 * time.Second,
					OnStateChange:    onBreakerChange,
				}),
			})
			slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	history := report.NewMemory(recentRunsKept)
	sinks := report.Multi{history, report.LogSink{Logger: slog.Default().With("component", "bench-report")}}
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.BenchRuns)
		defer producer.Close()
		sinks = append(sinks, report.NewPublisher(producer, resilience.NewCircuitBreaker("kafka", resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     30 * time.Second,
			OnStateChange:    onBreakerChange,
		})))
		slog.Info("publishing benchmark runs", "topic", cfg.Kafka.Topics.BenchRuns)
	}

	var store *report.Store
	pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pg, err := postgres.New(pgCtx, cfg.Postgres)
	cancel()
	if err != nil {
		slog.Warn("postgres unavailable, benchmark summary disabled", "error", err)
	} else {
		defer pg.Close()
		store = report.NewStore(pg.DB)
	}

	algorithms, err := intersect.ParseAlgorithms(cfg.Bench.Algorithms)
	if err != nil {
		slog.Error("invalid bench.algorithms", "error", err)
		os.Exit(1)
	}
	runner := &bench.Runner{
		Runs:          cfg.Bench.Runs,
		OrderOperands: cfg.Bench.OrderOperands,
		Concurrency:   cfg.Bench.Concurrency,
		Sink:          sinks,
		SinkTimeout:   5 * time.Second,
		Metrics:       m,
	}

	checker := health.NewChecker()
	checker.Register("catalog", func(ctx context.Context) health.ComponentHealth {
		if n := lists.Len(); n > 0 {
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d lists loaded", n)}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "no lists loaded"}
	})
	if redisClient != nil {
		checker.Register("redis", health.Optional(redisClient.Ping))
	}
	if store != nil {
		checker.Register("postgres", health.Optional(store.Ping))
	}

	opts := api.Options{
		Cache:      resultCache,
		Runner:     runner,
		Algorithms: algorithms,
		History:    history,
		Metrics:    m,
	}
	if store != nil {
		opts.Summarizer = store
	}
	h := api.New(lists, opts)

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	if cfg.Metrics.Enabled {
		admin, err := metrics.StartAdminServer(fmt.Sprintf(":%d", cfg.Metrics.Port), metrics.NewAdminMux(prometheus.DefaultGatherer, checker))
		if err != nil {
			slog.Error("failed to start metrics server", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			admin.Shutdown(shutdownCtx)
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("intersection service listening", "addr", server.Addr, "lists", lists.Len())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("intersection service stopped")
}

// loadCatalog fills lists from, in order of preference, the newest segment in
// the object store, a local segment file, or the text list directory.
func loadCatalog(ctx context.Context, cfg *config.Config, lists *catalog.Catalog) error {
	if cfg.Objects.Enabled {
		remote, err := segment.NewRemote(cfg.Objects)
		if err != nil {
			return err
		}
		key, err := remote.Latest(ctx)
		if err != nil {
			return err
		}
		local, err := remote.Download(ctx, key, filepath.Join(os.TempDir(), "posting-segments"))
		if err != nil {
			return err
		}
		_, err = lists.LoadSegment(local)
		return err
	}
	if cfg.Lists.SegmentPath != "" {
		_, err := lists.LoadSegment(cfg.Lists.SegmentPath)
		return err
	}
	_, err := lists.LoadDir(cfg.Lists.Dir, cfg.Lists.NumRepeats, cfg.Lists.Offset)
	return err
}
