// Package history records run and bench results so later benchmarks can be
// compared with earlier ones on the same input.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no matching record exists.
var ErrNotFound = errors.New("no recorded result")

// Mode values stored with each record.
const (
	ModeRun   = "run"
	ModeBench = "bench"
)

// Record is one measured part.
type Record struct {
	ID          string
	ExecutionID string
	Task        int
	Part        uint32
	Test        uint8
	Mode        string
	InputDigest string
	Answer      string
	Samples     int
	Average     time.Duration
	Median      time.Duration
	CreatedAt   time.Time
}

// Query selects records of one part on one input.
type Query struct {
	Task        int
	Part        uint32
	Mode        string
	InputDigest string
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Add stores r, assigning ID and CreatedAt when unset.
func (s *Store) Add(ctx context.Context, r *Record) error {
	if r.Task <= 0 {
		return fmt.Errorf("record task must be positive, got %d", r.Task)
	}
	if r.Mode != ModeRun && r.Mode != ModeBench {
		return fmt.Errorf("unknown record mode %q", r.Mode)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO results(id, execution_id, task, part, test, mode, input_digest, answer, samples, avg_ns, median_ns, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, r.ID, r.ExecutionID, r.Task, r.Part, r.Test, r.Mode, r.InputDigest, r.Answer,
		r.Samples, int64(r.Average), int64(r.Median), r.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// Latest returns the most recent record matching q.
func (s *Store) Latest(ctx context.Context, q Query) (*Record, error) {
	return s.one(ctx, q, "created_at DESC, rowid DESC")
}

// Best returns the record matching q with the lowest average.
func (s *Store) Best(ctx context.Context, q Query) (*Record, error) {
	return s.one(ctx, q, "avg_ns ASC, created_at DESC")
}

// Execution returns every record written by one pipeline execution, in
// insertion order.
func (s *Store) Execution(ctx context.Context, executionID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
FROM results WHERE execution_id = ? ORDER BY rowid;`, executionID)
	if err != nil {
		return nil, fmt.Errorf("query execution: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution: %w", err)
	}
	return out, nil
}

const selectColumns = `
SELECT id, execution_id, task, part, test, mode, input_digest, answer, samples, avg_ns, median_ns, created_at`

func (s *Store) one(ctx context.Context, q Query, order string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+`
FROM results
WHERE task = ? AND part = ? AND mode = ? AND input_digest = ?
ORDER BY `+order+`
LIMIT 1;`, q.Task, q.Part, q.Mode, q.InputDigest)

	r, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*Record, error) {
	var (
		r       Record
		avg     int64
		median  int64
		created string
	)
	err := row.Scan(&r.ID, &r.ExecutionID, &r.Task, &r.Part, &r.Test, &r.Mode,
		&r.InputDigest, &r.Answer, &r.Samples, &avg, &median, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan result: %w", err)
	}
	r.Average = time.Duration(avg)
	r.Median = time.Duration(median)
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	return &r, nil
}
