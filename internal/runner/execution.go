package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mattjoyce/aocrunner/internal/bench"
	"github.com/mattjoyce/aocrunner/internal/history"
	"github.com/mattjoyce/aocrunner/internal/inputs"
	"github.com/mattjoyce/aocrunner/internal/report"
	"github.com/mattjoyce/aocrunner/internal/supervisor"
	"github.com/mattjoyce/aocrunner/internal/tracing"
)

// execution is one pipeline run.
type execution struct {
	*Runner
	id     string
	logger *slog.Logger
}

// task loads the input of sel.Task, starts a worker and hands both to fn. The
// worker is always torn down; teardown errors are joined with fn's.
func (e *execution) task(ctx context.Context, sel Selection, mode supervisor.BuildMode,
	fn func(ctx context.Context, w *supervisor.Supervisor, input []byte) error,
) (err error) {
	ctx, span := tracing.Start(ctx, "runner.task",
		attribute.Int("task", sel.Task),
		attribute.String("build", mode.String()),
	)
	defer func() { tracing.End(span, err) }()

	input, err := e.deps.Inputs.Get(ctx, sel.Task, e.settings.Test)
	if err != nil {
		return fmt.Errorf("day %d: %w", sel.Task, err)
	}

	w, err := e.deps.Launcher.Start(ctx, sel.Task, input, e.settings.Debug, mode)
	if err != nil {
		return fmt.Errorf("day %d: %w", sel.Task, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("day %d: %w", sel.Task, cerr))
		}
	}()
	return fn(ctx, w, input)
}

func (e *execution) buildMode() supervisor.BuildMode {
	if e.settings.Release {
		return supervisor.Release
	}
	return supervisor.Dev
}

// valid reports whether sel names a known task, printing a notice if not.
func (e *execution) valid(sel Selection) bool {
	if sel.Task < 1 || sel.Task > MaxTask {
		e.printer.Skipped(sel.Task, "not found")
		return false
	}
	return true
}

func (e *execution) record(ctx context.Context, r *history.Record) {
	if e.deps.History == nil {
		return
	}
	r.ExecutionID = e.id
	r.Test = e.settings.Test
	if err := e.deps.History.Add(ctx, r); err != nil {
		e.logger.Warn("failed to record result", "task", r.Task, "part", r.Part, "error", err)
	}
}

func (e *execution) runAll(ctx context.Context) (time.Duration, error) {
	var total time.Duration
	for _, sel := range e.settings.Selections {
		if !e.valid(sel) {
			continue
		}
		e.logger.Info("starting day", "task", sel.Task)

		var taskTime time.Duration
		err := e.task(ctx, sel, e.buildMode(), func(ctx context.Context, w *supervisor.Supervisor, input []byte) error {
			digest := inputs.Digest(input)
			for _, part := range sel.PartsOrDefault() {
				d, answer, err := w.Run(ctx, part)
				if err != nil {
					return fmt.Errorf("%s: %w", report.Label(sel.Task, part), err)
				}
				taskTime += d
				e.printer.Part(sel.Task, part, answer, d)
				e.record(ctx, &history.Record{
					Task: sel.Task, Part: part, Mode: history.ModeRun,
					InputDigest: digest, Answer: answer,
					Samples: 1, Average: d, Median: d,
				})
			}
			return nil
		})
		if err != nil {
			return total, err
		}
		e.printer.TaskTotal(sel.Task, taskTime)
		total += taskTime
	}
	e.printer.Total(total)
	return total, nil
}

func (e *execution) benchAll(ctx context.Context) (time.Duration, error) {
	var total time.Duration
	opts := bench.Options{Iterations: e.settings.BenchCount, Budget: e.settings.BenchTime}

	for _, sel := range e.settings.Selections {
		if !e.valid(sel) {
			continue
		}
		e.logger.Debug("starting bencher", "task", sel.Task)

		err := e.task(ctx, sel, supervisor.Release, func(ctx context.Context, w *supervisor.Supervisor, input []byte) error {
			digest := inputs.Digest(input)
			for _, part := range sel.PartsOrDefault() {
				res, err := bench.Measure(ctx, w, part, opts)
				if err != nil {
					return fmt.Errorf("%s: %w", report.Label(sel.Task, part), err)
				}
				prev, best := e.baseline(ctx, sel.Task, part, digest)
				e.printer.Bench(sel.Task, res, prev, best)
				e.record(ctx, &history.Record{
					Task: sel.Task, Part: part, Mode: history.ModeBench,
					InputDigest: digest, Answer: res.Answer,
					Samples: res.Total, Average: res.Average, Median: res.Median,
				})
				total += res.Average
			}
			return nil
		})
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseline returns the averages of the last and of the fastest benchmark of
// the same part on the same input, zero when there are none.
func (e *execution) baseline(ctx context.Context, task int, part uint32, digest string) (prev, best time.Duration) {
	if e.deps.History == nil {
		return 0, 0
	}
	q := history.Query{Task: task, Part: part, Mode: history.ModeBench, InputDigest: digest}
	rec, err := e.deps.History.Latest(ctx, q)
	if err != nil {
		if !errors.Is(err, history.ErrNotFound) {
			e.logger.Warn("failed to read history", "error", err)
		}
		return 0, 0
	}
	prev = rec.Average
	if rec, err = e.deps.History.Best(ctx, q); err != nil {
		e.logger.Warn("failed to read history", "error", err)
		return prev, 0
	}
	return prev, rec.Average
}

func (e *execution) saveAll(ctx context.Context) (time.Duration, error) {
	var total time.Duration
	for _, sel := range e.settings.Selections {
		if !e.valid(sel) {
			continue
		}
		d, err := e.save(ctx, sel)
		total += d
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (e *execution) save(ctx context.Context, sel Selection) (time.Duration, error) {
	file, err := e.deps.Answers.Open(sel.Task, e.settings.Test)
	if err != nil {
		return 0, err
	}

	var total time.Duration
	err = e.task(ctx, sel, e.buildMode(), func(ctx context.Context, w *supervisor.Supervisor, _ []byte) error {
		for _, part := range sel.PartsOrDefault() {
			d, answer, err := w.Run(ctx, part)
			if err != nil {
				return fmt.Errorf("%s: %w", report.Label(sel.Task, part), err)
			}
			total += d

			old, had := file.Get(part)
			if err := file.Set(part, answer); err != nil {
				return fmt.Errorf("%s: %w", report.Label(sel.Task, part), err)
			}
			switch {
			case !had:
				e.printer.Save(sel.Task, part, e.settings.Test, report.Saved, "", answer)
			case old == answer:
				e.printer.Save(sel.Task, part, e.settings.Test, report.Unchanged, old, answer)
			default:
				e.printer.Save(sel.Task, part, e.settings.Test, report.Replaced, old, answer)
			}
		}
		return nil
	})
	if err != nil {
		return total, err
	}
	return total, file.Save()
}

func (e *execution) validateAll(ctx context.Context) (time.Duration, error) {
	var (
		total     time.Duration
		incorrect int
	)
	for _, sel := range e.settings.Selections {
		if !e.valid(sel) {
			continue
		}
		d, n, err := e.validate(ctx, sel)
		total += d
		incorrect += n
		if err != nil {
			return total, err
		}
	}

	if incorrect > 0 {
		return total, &IncorrectError{Count: incorrect}
	}
	e.printer.AllCorrect()
	return total, nil
}

func (e *execution) validate(ctx context.Context, sel Selection) (time.Duration, int, error) {
	file, err := e.deps.Answers.Open(sel.Task, e.settings.Test)
	if err != nil {
		return 0, 0, err
	}
	if !file.Exists() {
		e.logger.Info("answer file missing, saving current answers", "path", file.Path())
		d, err := e.save(ctx, sel)
		return d, 0, err
	}

	var (
		total     time.Duration
		incorrect int
	)
	err = e.task(ctx, sel, e.buildMode(), func(ctx context.Context, w *supervisor.Supervisor, _ []byte) error {
		for _, part := range sel.PartsOrDefault() {
			d, answer, err := w.Run(ctx, part)
			if err != nil {
				return fmt.Errorf("%s: %w", report.Label(sel.Task, part), err)
			}
			total += d

			saved, ok := file.Get(part)
			if !ok {
				if err := file.Set(part, answer); err != nil {
					return fmt.Errorf("%s: %w", report.Label(sel.Task, part), err)
				}
				e.printer.Save(sel.Task, part, e.settings.Test, report.Saved, "", answer)
				continue
			}
			e.printer.Validate(sel.Task, part, e.settings.Test, answer, saved)
			if answer != saved {
				if e.settings.ExitOnIncorrect {
					return &IncorrectError{Count: 1}
				}
				incorrect++
			}
		}
		return nil
	})
	if err != nil {
		return total, incorrect, err
	}
	return total, incorrect, file.Save()
}

func (e *execution) promptAll(ctx context.Context) error {
	seen := make(map[int]bool)
	for _, sel := range e.settings.Selections {
		if !e.valid(sel) || seen[sel.Task] {
			continue
		}
		seen[sel.Task] = true

		n, err := e.deps.Inputs.FetchPrompt(ctx, sel.Task)
		if err != nil {
			return fmt.Errorf("day %d: %w", sel.Task, err)
		}
		e.printer.Prompt(sel.Task, n)
	}
	return nil
}
