// Package runner executes the selected tasks in one of its modes, once or
// repeatedly under watch mode.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mattjoyce/aocrunner/internal/answers"
	"github.com/mattjoyce/aocrunner/internal/history"
	"github.com/mattjoyce/aocrunner/internal/inputs"
	"github.com/mattjoyce/aocrunner/internal/lock"
	"github.com/mattjoyce/aocrunner/internal/log"
	"github.com/mattjoyce/aocrunner/internal/report"
	"github.com/mattjoyce/aocrunner/internal/supervisor"
	"github.com/mattjoyce/aocrunner/internal/tracing"
	"github.com/mattjoyce/aocrunner/internal/watch"
)

// Settings select what to execute and how.
type Settings struct {
	Selections      []Selection
	Mode            Mode
	Test            uint8 // test input number; 0 is the main input
	Debug           uint8 // passed to tasks
	Release         bool  // build workers in release mode; bench always does
	HideAnswers     bool
	ExitOnIncorrect bool
	BenchTime       time.Duration
	BenchCount      uint32 // exact sample count; 0 means timed by BenchTime

	Watch        bool
	WatchDirs    []string
	PollInterval time.Duration
	LockPath     string // held while watching when set
}

// Deps are the collaborators a Runner uses. History may be nil.
type Deps struct {
	Launcher *supervisor.Launcher
	Inputs   *inputs.Provider
	Answers  *answers.Store
	History  *history.Store
	Out      io.Writer // results
	Operator io.Reader // watch mode commands
}

// Runner executes pipelines.
type Runner struct {
	settings Settings
	deps     Deps
	printer  *report.Printer
	logger   *slog.Logger
}

// New creates a Runner.
func New(settings Settings, deps Deps) *Runner {
	return &Runner{
		settings: settings,
		deps:     deps,
		printer:  report.NewPrinter(deps.Out, settings.HideAnswers),
		logger:   log.WithComponent("runner"),
	}
}

// Mode returns the active mode; watch commands may change it.
func (r *Runner) Mode() Mode { return r.settings.Mode }

// Run executes the pipeline once, or under watch mode until Exit or ctx is
// done. In watch mode a failed execution is reported and watching continues.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()
	defer func() {
		r.logger.Info("runner finished", "elapsed", time.Since(start))
	}()

	if !r.settings.Watch {
		_, err := r.Execute(ctx)
		return err
	}
	return r.watch(ctx)
}

func (r *Runner) watch(ctx context.Context) error {
	if r.settings.LockPath != "" {
		l, err := lock.Acquire(r.settings.LockPath)
		if err != nil {
			return err
		}
		defer func() { _ = l.Release() }()
	}

	w, err := watch.New(watch.Config{
		Dirs:         r.settings.WatchDirs,
		PollInterval: r.settings.PollInterval,
		Input:        r.deps.Operator,
		Modes:        ModeAliases(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	for {
		if _, err := r.Execute(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.printer.Error(err)
		}

		if err := r.await(ctx, w); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			return err
		}
	}
}

var errExit = errors.New("exit requested")

// await blocks until the next execution should start.
func (r *Runner) await(ctx context.Context, w *watch.Supervisor) error {
	for {
		ev, err := w.Next(ctx)
		if err != nil {
			return err
		}
		r.logger.Debug("watch event", "kind", ev.Kind.String(), "mode", ev.Mode)

		switch ev.Kind {
		case watch.EventExit:
			return errExit
		case watch.EventError:
			r.printer.Error(fmt.Errorf("file watcher: %w", ev.Err))
			continue
		case watch.EventSetMode:
			mode, err := ParseMode(ev.Mode)
			if err != nil {
				r.printer.Error(err)
				continue
			}
			r.settings.Mode = mode
		}
		return nil
	}
}

// Execute runs one pipeline in the active mode and returns the time spent in
// task code.
func (r *Runner) Execute(ctx context.Context) (total time.Duration, err error) {
	exec := &execution{
		Runner: r,
		id:     uuid.NewString(),
	}
	ctx, span := tracing.Start(ctx, "runner.execute",
		attribute.String("mode", r.settings.Mode.String()),
		attribute.String("execution_id", exec.id),
	)
	defer func() { tracing.End(span, err) }()

	exec.logger = r.logger.With("execution_id", exec.id, "mode", r.settings.Mode.String())
	exec.logger.Info("starting execution", "selections", len(r.settings.Selections))

	switch r.settings.Mode {
	case ModeRun:
		total, err = exec.runAll(ctx)
	case ModeBench:
		total, err = exec.benchAll(ctx)
	case ModeSave:
		total, err = exec.saveAll(ctx)
	case ModeValidate:
		total, err = exec.validateAll(ctx)
	case ModePrompt:
		err = exec.promptAll(ctx)
	default:
		err = fmt.Errorf("unknown mode %d", r.settings.Mode)
	}
	exec.logger.Info("execution finished", "solver_time", total, "error", err)
	return total, err
}
