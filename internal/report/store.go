package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store persists runs in the bench_runs table (see migrations/). The full run
// is kept as JSONB; the columns used for filtering and aggregation are
// duplicated next to it.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

// Record inserts run. Replays of the same run id are ignored.
func (s *Store) Record(ctx context.Context, run Run) error {
	if err := run.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshaling run %s: %w", run.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bench_runs (id, algorithm, list_a, list_b, average_ns, results, matches, data, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		run.ID, run.Algorithm, run.PairA, run.PairB, int64(run.Average), run.Results, run.Matches, data, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows [][]byte
	if err := s.db.SelectContext(ctx, &rows, `SELECT data FROM bench_runs ORDER BY started_at DESC LIMIT $1`, limit); err != nil {
		return nil, fmt.Errorf("querying recent runs: %w", err)
	}
	runs := make([]Run, 0, len(rows))
	for _, data := range rows {
		var run Run
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, fmt.Errorf("decoding stored run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// AlgorithmSummary aggregates every stored run of one algorithm.
type AlgorithmSummary struct {
	Algorithm  string        `db:"algorithm" json:"algorithm"`
	Runs       int           `db:"runs" json:"runs"`
	Average    time.Duration `db:"average_ns" json:"average_ns"`
	Mismatches int           `db:"mismatches" json:"mismatches"`
}

func (s *Store) AverageByAlgorithm(ctx context.Context) ([]AlgorithmSummary, error) {
	var out []AlgorithmSummary
	err := s.db.SelectContext(ctx, &out, `
		SELECT algorithm,
		       COUNT(*) AS runs,
		       AVG(average_ns)::BIGINT AS average_ns,
		       COUNT(*) FILTER (WHERE NOT matches) AS mismatches
		FROM bench_runs
		GROUP BY algorithm
		ORDER BY algorithm`)
	if err != nil {
		return nil, fmt.Errorf("aggregating runs: %w", err)
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
