package bench

import (
	"context"
	"fmt"
	"log/slog"
	"math/bits"
	"slices"
	"time"

	"github.com/mattjoyce/aocrunner/internal/log"
)

//go:generate mockgen -destination=mocks/mock_bencher.go -package=mocks github.com/mattjoyce/aocrunner/internal/bench Bencher

const (
	// DefaultBudget is how long a timed benchmark tries to run.
	DefaultBudget = time.Second

	// MaxIterations bounds the trial count of a timed benchmark so a part
	// that finishes in nanoseconds does not ask the worker for billions of
	// samples. Explicit counts are passed through unchanged.
	MaxIterations = 10_000_000

	calibrationIters = 10
	calibrationKeep  = 7
)

// Bencher runs iters trials of a part and returns their durations and the
// reference answer.
type Bencher interface {
	Bench(ctx context.Context, part, iters uint32) ([]time.Duration, string, error)
}

// Options selects between a counted and a timed benchmark. A non-zero
// Iterations wins over Budget.
type Options struct {
	Iterations uint32
	Budget     time.Duration
}

// Result summarises one benchmarked part.
type Result struct {
	Part    uint32
	Answer  string
	Total   int             // samples collected
	Kept    []time.Duration // sorted samples left after trimming
	Average time.Duration
	Median  time.Duration
}

// Measure benchmarks part on b.
func Measure(ctx context.Context, b Bencher, part uint32, opts Options) (*Result, error) {
	logger := log.WithComponent("bench").With(slog.Uint64("part", uint64(part)))

	var (
		times  []time.Duration
		answer string
		err    error
	)
	if opts.Iterations > 0 {
		logger.Debug("counted bench", "iters", opts.Iterations)
		times, answer, err = b.Bench(ctx, part, opts.Iterations)
	} else {
		budget := opts.Budget
		if budget <= 0 {
			budget = DefaultBudget
		}
		logger.Debug("timed bench", "budget", budget)
		times, answer, err = timed(ctx, b, part, budget, logger)
	}
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("bench part %d: no samples", part)
	}

	sorted := slices.Clone(times)
	slices.Sort(sorted)
	kept := Trim(sorted)

	res := &Result{
		Part:    part,
		Answer:  answer,
		Total:   len(times),
		Kept:    kept,
		Average: Average(kept),
		Median:  kept[len(kept)/2],
	}
	logger.Debug("bench finished", "samples", res.Total, "kept", len(kept), "avg", res.Average)
	return res, nil
}

func timed(ctx context.Context, b Bencher, part uint32, budget time.Duration, logger *slog.Logger) ([]time.Duration, string, error) {
	first, want, err := b.Bench(ctx, part, 1)
	if err != nil {
		return nil, "", err
	}
	if len(first) == 0 {
		return nil, "", fmt.Errorf("bench part %d: first trial returned no samples", part)
	}
	if first[0] > budget {
		return first, want, nil
	}

	calibration := first
	if first[0] <= budget/10 {
		batch, got, err := b.Bench(ctx, part, calibrationIters)
		if err != nil {
			return nil, "", err
		}
		if got != want {
			return nil, "", &WrongAnswerError{Want: want, Got: got}
		}
		slices.Sort(batch)
		calibration = batch[:min(calibrationKeep, len(batch))]
	}

	iters := Iterations(budget, Average(calibration))
	logger.Debug("calibrated", "first", first[0], "iters", iters)

	times, got, err := b.Bench(ctx, part, iters)
	if err != nil {
		return nil, "", err
	}
	if got != want {
		return nil, "", &WrongAnswerError{Want: want, Got: got}
	}
	return times, want, nil
}

// Iterations returns how many trials of cost per fit into budget, at least one
// and at most MaxIterations.
func Iterations(budget, per time.Duration) uint32 {
	if per <= 0 {
		per = 1
	}
	n := budget.Nanoseconds() / per.Nanoseconds()
	switch {
	case n < 1:
		return 1
	case n > MaxIterations:
		return MaxIterations
	}
	return uint32(n)
}

// TrimCount returns how many of n samples are discarded as outliers:
// 2*(floor(log2 n)-1) when positive, plus one more when n > 1.
func TrimCount(n int) int {
	if n <= 1 {
		return 0
	}
	remove := 2 * (bits.Len(uint(n)) - 2)
	if remove < 0 {
		remove = 0
	}
	remove++
	return min(remove, n-1)
}

// Trim drops the TrimCount(len(sorted)) largest samples of an ascending slice.
func Trim(sorted []time.Duration) []time.Duration {
	return sorted[:len(sorted)-TrimCount(len(sorted))]
}

// Average is the arithmetic mean of times, zero for an empty slice.
func Average(times []time.Duration) time.Duration {
	if len(times) == 0 {
		return 0
	}
	var sum time.Duration
	for _, t := range times {
		sum += t
	}
	return sum / time.Duration(len(times))
}
