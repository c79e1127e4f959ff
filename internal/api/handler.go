// Package api serves the catalog's posting lists over HTTP: intersect two
// lists with a chosen algorithm, list what is loaded, and run the benchmark
// harness on demand.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/bench"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/intersect"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/posting"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/report"
	apperrors "github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/tracing"
)

const maxBenchRuns = 1000

// Lists is the read side of catalog.Catalog.
type Lists interface {
	Get(name string) (posting.List, error)
	Entries() []catalog.Entry
}

// Summarizer aggregates stored benchmark runs per algorithm.
type Summarizer interface {
	AverageByAlgorithm(ctx context.Context) ([]report.AlgorithmSummary, error)
}

// Options wires the optional collaborators. Nil fields disable the endpoints
// or features that need them.
type Options struct {
	Cache      *cache.ResultCache
	Runner     *bench.Runner
	Algorithms []intersect.Algorithm
	History    report.History
	Summarizer Summarizer
	Metrics    *metrics.Metrics
}

type Handler struct {
	lists  Lists
	opts   Options
	logger *slog.Logger
}

func New(lists Lists, opts Options) *Handler {
	if len(opts.Algorithms) == 0 {
		opts.Algorithms = intersect.Algorithms()
	}
	return &Handler{
		lists:  lists,
		opts:   opts,
		logger: slog.Default().With("component", "api"),
	}
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/intersect", h.Intersect)
	mux.HandleFunc("GET /api/v1/lists", h.Lists)
	mux.HandleFunc("POST /api/v1/bench", h.Bench)
	mux.HandleFunc("GET /api/v1/bench/recent", h.RecentRuns)
	mux.HandleFunc("GET /api/v1/bench/summary", h.Summary)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// IntersectResponse is the body of GET /api/v1/intersect. IDs and Scores may
// be truncated by the limit parameter; Count is always the full size.
type IntersectResponse struct {
	Algorithm string `json:"algorithm"`
	A         string `json:"a"`
	B         string `json:"b"`
	Count     int    `json:"count"`
	IDs       []int  `json:"ids"`
	Scores    []int  `json:"scores"`
	CacheHit  bool   `json:"cache_hit"`
	LatencyUS int64  `json:"latency_us"`
}

func (h *Handler) Intersect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	q := r.URL.Query()

	nameA, nameB := q.Get("a"), q.Get("b")
	if nameA == "" || nameB == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameters 'a' and 'b' are required"))
		return
	}
	alg := intersect.Linear
	if name := q.Get("algorithm"); name != "" {
		parsed, err := intersect.ParseAlgorithm(name)
		if err != nil {
			h.writeError(w, err)
			return
		}
		alg = parsed
	}
	limit := -1
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	ctx, span := tracing.Start(ctx, "intersect")
	defer func() {
		span.End()
		span.Log(ctx, h.logger)
	}()

	_, lookup := tracing.Start(ctx, "lookup")
	a, err := h.lists.Get(nameA)
	if err != nil {
		lookup.End()
		h.writeError(w, err)
		return
	}
	b, err := h.lists.Get(nameB)
	lookup.End()
	if err != nil {
		h.writeError(w, err)
		return
	}

	compute := func() (posting.List, error) {
		_, s := tracing.Start(ctx, "compute")
		defer s.End()
		s.SetAttr("algorithm", alg.String())
		return intersect.Run(alg, a, b)
	}
	var result posting.List
	cacheHit := false
	if h.opts.Cache != nil {
		result, cacheHit, err = h.opts.Cache.GetOrCompute(ctx, nameA, nameB, alg.String(), compute)
	} else {
		result, err = compute()
	}
	span.SetAttr("cache_hit", cacheHit)
	if err != nil {
		h.countRequest(alg, "error")
		logger.FromContext(ctx).Error("intersection failed", "a", nameA, "b", nameB, "algorithm", alg.String(), "error", err)
		h.writeError(w, err)
		return
	}
	status := "miss"
	if cacheHit {
		status = "hit"
	}
	h.countRequest(alg, status)

	resp := IntersectResponse{
		Algorithm: alg.String(),
		A:         nameA,
		B:         nameB,
		Count:     result.Len(),
		IDs:       result.IDs,
		Scores:    result.Scores,
		CacheHit:  cacheHit,
	}
	if limit >= 0 && limit < result.Len() {
		resp.IDs = result.IDs[:limit]
		resp.Scores = result.Scores[:limit]
	}
	resp.LatencyUS = time.Since(start).Microseconds()
	logger.FromContext(ctx).Info("intersection served",
		"a", nameA,
		"b", nameB,
		"algorithm", resp.Algorithm,
		"count", resp.Count,
		"cache_hit", cacheHit,
		"latency_us", resp.LatencyUS,
	)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Lists(w http.ResponseWriter, r *http.Request) {
	entries := h.lists.Entries()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count": len(entries),
		"lists": entries,
	})
}

// Bench runs the harness on one pair with every configured algorithm.
func (h *Handler) Bench(w http.ResponseWriter, r *http.Request) {
	if h.opts.Runner == nil {
		h.writeError(w, apperrors.New(apperrors.ErrInternal, http.StatusServiceUnavailable, "benchmarking is disabled"))
		return
	}
	q := r.URL.Query()
	nameA, nameB := q.Get("a"), q.Get("b")
	if nameA == "" || nameB == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameters 'a' and 'b' are required"))
		return
	}
	runner := *h.opts.Runner
	if s := q.Get("runs"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxBenchRuns {
			h.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "runs must be between 1 and %d", maxBenchRuns))
			return
		}
		runner.Runs = n
	}
	algorithms := h.opts.Algorithms
	if s := q.Get("algorithms"); s != "" {
		parsed, err := intersect.ParseAlgorithms(strings.Split(s, ","))
		if err != nil {
			h.writeError(w, err)
			return
		}
		algorithms = parsed
	}

	a, err := h.lists.Get(nameA)
	if err != nil {
		h.writeError(w, err)
		return
	}
	b, err := h.lists.Get(nameB)
	if err != nil {
		h.writeError(w, err)
		return
	}
	cmp, err := runner.Compare(r.Context(), bench.Pair{A: nameA, B: nameB, ListA: a, ListB: b}, algorithms)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = apperrors.New(apperrors.ErrTimeout, http.StatusServiceUnavailable, "benchmark did not finish in time")
		}
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cmp)
}

func (h *Handler) RecentRuns(w http.ResponseWriter, r *http.Request) {
	if h.opts.History == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"runs": []report.Run{}})
		return
	}
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	runs, err := h.opts.History.Recent(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if h.opts.Summarizer == nil {
		h.writeError(w, apperrors.New(apperrors.ErrInternal, http.StatusServiceUnavailable, "report store is not configured"))
		return
	}
	summary, err := h.opts.Summarizer.AverageByAlgorithm(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"algorithms": summary})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.opts.Cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.opts.Cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.opts.Cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrInternal, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	deleted, err := h.opts.Cache.Invalidate(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) countRequest(alg intersect.Algorithm, status string) {
	if h.opts.Metrics != nil {
		h.opts.Metrics.IntersectRequests.WithLabelValues(alg.String(), status).Inc()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to a status code. Internal errors are logged and
// reported without detail.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
		message = "internal error"
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
