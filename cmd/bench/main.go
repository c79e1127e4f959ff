package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/bench"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/intersect"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/posting"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/report"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "", "optional config file for kafka and postgres sinks")
	listNames := flag.String("lists", "film,comedy", "comma-separated list names; every pair is compared")
	dir := flag.String("dir", "postinglists", "directory holding <name>.txt files")
	repeats := flag.Int("repeats", 100, "number of copies of each list")
	offset := flag.Int("offset", 200*1000, "id shift between copies")
	runs := flag.Int("runs", 3, "timed runs per algorithm")
	algorithms := flag.String("algorithms", "all", "comma-separated algorithms, or all")
	checksum := flag.Bool("checksum", true, "time a plain id scan of each list first")
	store := flag.Bool("store", false, "write runs straight to postgres")
	concurrency := flag.Int("concurrency", 0, "pairs timed at once; 0 takes bench.concurrency from the config")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	algs, err := intersect.ParseAlgorithms(strings.Split(*algorithms, ","))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	names := strings.Split(*listNames, ",")
	loaded := make(map[string]posting.List, len(names))
	for _, name := range names {
		path := filepath.Join(*dir, name+".txt")
		start := time.Now()
		list, err := loader.ReadFile(path, *repeats, *offset)
		if err != nil {
			slog.Error("failed to read list", "path", path, "error", err)
			os.Exit(1)
		}
		loaded[name] = list
		fmt.Printf("loaded %s: %s postings in %s\n", name, humanize.Comma(int64(list.Len())), time.Since(start).Round(time.Millisecond))
		if *checksum {
			res := bench.Checksum(list, *runs)
			fmt.Printf("  checksum %d, scan %s\n", res.Sum, res.Average)
		}
	}

	sinks := report.Multi{report.LogSink{Logger: slog.Default().With("component", "bench-report")}}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.BenchRuns)
		defer producer.Close()
		sinks = append(sinks, report.NewPublisher(producer, resilience.NewCircuitBreaker("kafka", resilience.CircuitBreakerConfig{FailureThreshold: 3})))
	}
	if *store {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		sinks = append(sinks, report.NewStore(pg.DB))
	}

	runner := newRunner(cfg, *runs, *concurrency, sinks)
	var pairs []bench.Pair
	for _, p := range bench.Pairs(names) {
		pairs = append(pairs, bench.Pair{A: p[0], B: p[1], ListA: loaded[p[0]], ListB: loaded[p[1]]})
	}
	if len(pairs) == 0 {
		fmt.Fprintln(os.Stderr, "need at least two lists")
		os.Exit(2)
	}

	comparisons, err := runner.CompareAll(ctx, pairs, algs)
	if err != nil {
		slog.Error("benchmark failed", "error", err)
		os.Exit(1)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	failed := false
	for _, cmp := range comparisons {
		fmt.Fprintf(tw, "\n%s (%s) x %s (%s)\n", cmp.A, humanize.Comma(int64(cmp.SizeA)), cmp.B, humanize.Comma(int64(cmp.SizeB)))
		fmt.Fprintln(tw, "algorithm\tresults\taverage\tfastest\tmatches")
		for _, run := range cmp.Runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n",
				run.Algorithm,
				humanize.Comma(int64(run.Results)),
				run.Average.Round(time.Microsecond),
				fastest(run.Durations).Round(time.Microsecond),
				run.Matches,
			)
		}
		if len(cmp.Mismatches) > 0 {
			failed = true
		}
	}
	tw.Flush()
	if failed {
		fmt.Fprintln(os.Stderr, "some algorithms disagree with the linear merge")
		os.Exit(1)
	}
}

// newRunner builds the harness runner. A positive concurrency overrides the
// configured one.
func newRunner(cfg *config.Config, runs, concurrency int, sink report.Sink) *bench.Runner {
	if concurrency <= 0 {
		concurrency = cfg.Bench.Concurrency
	}
	return &bench.Runner{
		Runs:          runs,
		OrderOperands: true,
		Concurrency:   max(concurrency, 1),
		Sink:          sink,
		SinkTimeout:   5 * time.Second,
	}
}

func fastest(durations []time.Duration) time.Duration {
	var best time.Duration
	for i, d := range durations {
		if i == 0 || d < best {
			best = d
		}
	}
	return best
}
