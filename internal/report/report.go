// Package report carries benchmark results out of the harness: to logs, to a
// Kafka topic, and from there into PostgreSQL.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/errors"
)

// Run is the outcome of timing one algorithm on one pair of lists.
type Run struct {
	ID        string          `json:"id"`
	PairA     string          `json:"pair_a"`
	PairB     string          `json:"pair_b"`
	SizeA     int             `json:"size_a"`
	SizeB     int             `json:"size_b"`
	Algorithm string          `json:"algorithm"`
	Runs      int             `json:"runs"`
	Durations []time.Duration `json:"durations_ns"`
	Average   time.Duration   `json:"average_ns"`
	Results   int             `json:"results"`
	Matches   bool            `json:"matches"`
	StartedAt time.Time       `json:"started_at"`
}

// NewID returns a fresh run identifier.
func NewID() string {
	return uuid.NewString()
}

// Validate rejects runs that cannot be stored.
func (r Run) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: run has no id", apperrors.ErrInvalidInput)
	case r.Algorithm == "":
		return fmt.Errorf("%w: run %s has no algorithm", apperrors.ErrInvalidInput, r.ID)
	case r.Runs != len(r.Durations):
		return fmt.Errorf("%w: run %s has %d durations for %d runs", apperrors.ErrInvalidInput, r.ID, len(r.Durations), r.Runs)
	}
	return nil
}

// Sink receives finished runs.
type Sink interface {
	Record(ctx context.Context, run Run) error
}

// History lists stored runs, newest first.
type History interface {
	Recent(ctx context.Context, limit int) ([]Run, error)
}

// Multi fans a run out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Record(ctx context.Context, run Run) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes one structured log line per run.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Record(ctx context.Context, run Run) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "benchmark run",
		"algorithm", run.Algorithm,
		"a", run.PairA,
		"b", run.PairB,
		"runs", run.Runs,
		"average", run.Average,
		"results", run.Results,
		"matches", run.Matches,
	)
	return nil
}

// Memory keeps the last Capacity runs in process.
type Memory struct {
	Capacity int

	mu   sync.Mutex
	runs []Run
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 100
	}
	return &Memory{Capacity: capacity}
}

func (m *Memory) Record(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	if over := len(m.runs) - m.Capacity; over > 0 {
		m.runs = append(m.runs[:0], m.runs[over:]...)
	}
	return nil
}

func (m *Memory) Recent(_ context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.runs) {
		limit = len(m.runs)
	}
	out := make([]Run, 0, limit)
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}
