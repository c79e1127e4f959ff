// Package bench times the intersection algorithms against each other. Every
// algorithm runs the same pair a fixed number of times; its result is checked
// against the linear merge and the per-run timings are handed to a report
// sink.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/intersect"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/posting"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/report"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/resilience"
)

// Pair is two named lists to intersect.
type Pair struct {
	A, B         string
	ListA, ListB posting.List
}

// Comparison holds one report per algorithm for a pair.
type Comparison struct {
	A          string       `json:"a"`
	B          string       `json:"b"`
	SizeA      int          `json:"size_a"`
	SizeB      int          `json:"size_b"`
	Runs       []report.Run `json:"runs"`
	Mismatches []string     `json:"mismatches,omitempty"`
}

type Runner struct {
	// Runs is the number of timed repetitions per algorithm.
	Runs int
	// OrderOperands passes the shorter list first to binary search, which
	// probes its second operand once per element of the first.
	OrderOperands bool
	// Concurrency bounds CompareAll. Values below 1 mean one pair at a time.
	Concurrency int
	Sink        report.Sink
	SinkTimeout time.Duration
	Metrics     *metrics.Metrics

	loggerOnce sync.Once
	logger     *slog.Logger
}

// log is safe to call from the CompareAll goroutines.
func (r *Runner) log() *slog.Logger {
	r.loggerOnce.Do(func() {
		r.logger = slog.Default().With("component", "bench")
	})
	return r.logger
}

// Compare times each algorithm on pair. A result that differs from the
// linear merge is listed in Mismatches; it is not an error.
func (r *Runner) Compare(ctx context.Context, pair Pair, algorithms []intersect.Algorithm) (Comparison, error) {
	runs := max(r.Runs, 1)
	baseline := intersect.Intersect(pair.ListA, pair.ListB)
	cmp := Comparison{
		A:     pair.A,
		B:     pair.B,
		SizeA: pair.ListA.Len(),
		SizeB: pair.ListB.Len(),
	}
	for _, alg := range algorithms {
		impl, err := intersect.For(alg)
		if err != nil {
			return cmp, err
		}
		a, b := pair.ListA, pair.ListB
		if r.OrderOperands && alg == intersect.BinarySearch {
			a, b = intersect.ShorterFirst(a, b)
		}

		run := report.Run{
			ID:        report.NewID(),
			PairA:     pair.A,
			PairB:     pair.B,
			SizeA:     pair.ListA.Len(),
			SizeB:     pair.ListB.Len(),
			Algorithm: alg.String(),
			Runs:      runs,
			Durations: make([]time.Duration, 0, runs),
			Matches:   true,
			StartedAt: time.Now().UTC(),
		}
		var total time.Duration
		for i := 0; i < runs; i++ {
			if err := ctx.Err(); err != nil {
				return cmp, fmt.Errorf("comparing %s with %s: %w", pair.A, pair.B, err)
			}
			start := time.Now()
			result := impl.Intersect(a, b)
			elapsed := time.Since(start)

			total += elapsed
			run.Durations = append(run.Durations, elapsed)
			run.Results = result.Len()
			if !sameList(result, baseline) {
				run.Matches = false
			}
			if r.Metrics != nil {
				r.Metrics.IntersectDuration.WithLabelValues(run.Algorithm).Observe(elapsed.Seconds())
				r.Metrics.IntersectResults.WithLabelValues(run.Algorithm).Observe(float64(result.Len()))
			}
		}
		run.Average = total / time.Duration(runs)
		if !run.Matches {
			cmp.Mismatches = append(cmp.Mismatches, run.Algorithm)
			if r.Metrics != nil {
				r.Metrics.IntersectMismatches.WithLabelValues(run.Algorithm).Inc()
			}
			r.log().Warn("result differs from linear merge", "algorithm", run.Algorithm, "a", pair.A, "b", pair.B)
		}
		r.log().Debug("algorithm timed",
			"algorithm", run.Algorithm,
			"a", pair.A,
			"b", pair.B,
			"average", run.Average,
			"results", run.Results,
		)
		cmp.Runs = append(cmp.Runs, run)
		r.record(ctx, run)
	}
	return cmp, nil
}

// record hands run to the sink. Sink failures are logged and counted; they
// never fail the benchmark.
func (r *Runner) record(ctx context.Context, run report.Run) {
	if r.Sink == nil {
		return
	}
	err := resilience.WithTimeout(ctx, r.SinkTimeout, "report-sink", func(ctx context.Context) error {
		return r.Sink.Record(ctx, run)
	})
	status := "ok"
	if err != nil {
		status = "error"
		r.log().Error("recording benchmark run failed", "run", run.ID, "algorithm", run.Algorithm, "error", err)
	}
	if r.Metrics != nil {
		r.Metrics.ReportsRecorded.WithLabelValues("sink", status).Inc()
	}
}

// CompareAll runs Compare for every pair, at most Concurrency pairs at a time.
// Results keep the order of pairs.
func (r *Runner) CompareAll(ctx context.Context, pairs []Pair, algorithms []intersect.Algorithm) ([]Comparison, error) {
	out := make([]Comparison, len(pairs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Concurrency, 1))
	for i, pair := range pairs {
		g.Go(func() error {
			cmp, err := r.Compare(ctx, pair, algorithms)
			if err != nil {
				return err
			}
			out[i] = cmp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Pairs returns every unordered pair of names, in input order.
func Pairs(names []string) [][2]string {
	var out [][2]string
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			out = append(out, [2]string{names[i], names[j]})
		}
	}
	return out
}

// ChecksumResult is the timing of a plain scan over a list's ids.
type ChecksumResult struct {
	Sum     int64
	Runs    int
	Average time.Duration
}

// Checksum sums the ids of list runs times. The scan touches every id once,
// the floor any intersection over the list has to beat.
func Checksum(list posting.List, runs int) ChecksumResult {
	runs = max(runs, 1)
	res := ChecksumResult{Runs: runs}
	var total time.Duration
	for i := 0; i < runs; i++ {
		start := time.Now()
		res.Sum = list.Checksum()
		total += time.Since(start)
	}
	res.Average = total / time.Duration(runs)
	return res
}

func sameList(a, b posting.List) bool {
	return slices.Equal(a.IDs, b.IDs) && slices.Equal(a.Scores, b.Scores)
}
