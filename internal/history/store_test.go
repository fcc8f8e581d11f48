package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattjoyce/aocrunner/internal/storage"
)

func openStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "history.db")
	db, err := storage.OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func benchRecord(exec string, avg time.Duration) *Record {
	return &Record{
		ExecutionID: exec,
		Task:        3,
		Part:        1,
		Mode:        ModeBench,
		InputDigest: "abc",
		Answer:      "42",
		Samples:     100,
		Average:     avg,
		Median:      avg,
	}
}

func TestLatestMissing(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	_, err := s.Latest(context.Background(), Query{Task: 1, Part: 1, Mode: ModeRun, InputDigest: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddAssignsIDAndTime(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	fixed := time.Date(2025, 12, 3, 5, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	r := benchRecord("e1", time.Millisecond)
	if err := s.Add(context.Background(), r); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if r.ID == "" {
		t.Fatal("expected ID to be assigned")
	}

	got, err := s.Latest(context.Background(), Query{Task: 3, Part: 1, Mode: ModeBench, InputDigest: "abc"})
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.ID != r.ID || !got.CreatedAt.Equal(fixed) || got.Average != time.Millisecond || got.Answer != "42" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestLatestAndBest(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 12, 3, 5, 0, 0, 0, time.UTC)
	step := 0
	s.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	for i, avg := range []time.Duration{3 * time.Millisecond, time.Millisecond, 2 * time.Millisecond} {
		if err := s.Add(ctx, benchRecord("e"+string(rune('0'+i)), avg)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	// Different input: must not be considered.
	other := benchRecord("e9", time.Microsecond)
	other.InputDigest = "def"
	if err := s.Add(ctx, other); err != nil {
		t.Fatalf("Add: %v", err)
	}

	q := Query{Task: 3, Part: 1, Mode: ModeBench, InputDigest: "abc"}
	latest, err := s.Latest(ctx, q)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.Average != 2*time.Millisecond {
		t.Fatalf("latest average = %v, want 2ms", latest.Average)
	}

	best, err := s.Best(ctx, q)
	if err != nil {
		t.Fatalf("Best: %v", err)
	}
	if best.Average != time.Millisecond {
		t.Fatalf("best average = %v, want 1ms", best.Average)
	}
}

func TestExecution(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	for part := uint32(1); part <= 2; part++ {
		r := benchRecord("run-1", time.Millisecond)
		r.Part = part
		r.Mode = ModeRun
		r.Samples = 1
		if err := s.Add(ctx, r); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	recs, err := s.Execution(ctx, "run-1")
	if err != nil {
		t.Fatalf("Execution: %v", err)
	}
	if len(recs) != 2 || recs[0].Part != 1 || recs[1].Part != 2 {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestAddRejectsInvalid(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	r := benchRecord("e", time.Millisecond)
	r.Mode = "save"
	if err := s.Add(context.Background(), r); err == nil {
		t.Fatal("expected error for unknown mode")
	}

	r = benchRecord("e", time.Millisecond)
	r.Task = 0
	if err := s.Add(context.Background(), r); err == nil {
		t.Fatal("expected error for task 0")
	}
}
