package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mattjoyce/aocrunner/internal/log"
	"github.com/mattjoyce/aocrunner/internal/protocol"
	"github.com/mattjoyce/aocrunner/internal/tracing"
)

// DefaultGrace is how long Close waits for the worker to exit after End, and
// again after SIGTERM, before escalating.
const DefaultGrace = 2 * time.Second

// Launcher starts workers.
type Launcher struct {
	Spec   CommandSpec
	Stderr io.Writer // worker stderr; os.Stderr when nil
	Grace  time.Duration
}

// NewLauncher returns a Launcher for spec with default settings.
func NewLauncher(spec CommandSpec) *Launcher {
	return &Launcher{Spec: spec, Grace: DefaultGrace}
}

// Supervisor owns one running worker.
type Supervisor struct {
	task   int
	mode   BuildMode
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	enc    *protocol.Encoder
	dec    *protocol.Decoder
	grace  time.Duration
	logger *slog.Logger

	initialized bool
	closed      bool
}

// Spawn launches the worker for task without initializing it.
func (l *Launcher) Spawn(ctx context.Context, task int, mode BuildMode) (s *Supervisor, err error) {
	_, span := tracing.Start(ctx, "supervisor.spawn",
		attribute.Int("task", task),
		attribute.String("mode", mode.String()),
	)
	defer func() { tracing.End(span, err) }()

	cmd, err := l.Spec.Build(task, mode)
	if err != nil {
		return nil, err
	}
	configureProcess(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = l.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	grace := l.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	cmd.WaitDelay = grace

	logger := log.WithTask(task).With("component", "supervisor", "mode", mode.String())
	logger.Debug("starting worker", "argv", cmd.Args)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker for task %d: %w", task, err)
	}

	return &Supervisor{
		task:   task,
		mode:   mode,
		cmd:    cmd,
		stdin:  stdin,
		enc:    protocol.NewEncoder(stdin),
		dec:    protocol.NewDecoder(stdout),
		grace:  grace,
		logger: logger.With("pid", cmd.Process.Pid),
	}, nil
}

// Start launches and initializes the worker for task.
func (l *Launcher) Start(ctx context.Context, task int, input []byte, debug uint8, mode BuildMode) (*Supervisor, error) {
	s, err := l.Spawn(ctx, task, mode)
	if err != nil {
		return nil, err
	}
	if err := s.Initialize(ctx, input, debug); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return s, nil
}

// Task returns the task id the worker runs.
func (s *Supervisor) Task() int { return s.task }

// Mode returns the build mode the worker was started in.
func (s *Supervisor) Mode() BuildMode { return s.mode }

// Initialize sends the input and debug level. No reply is expected.
func (s *Supervisor) Initialize(_ context.Context, input []byte, debug uint8) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.enc.EncodeRequest(protocol.NewInitialize(input, debug)); err != nil {
		if isBrokenPipe(err) {
			return ErrWorkerQuit
		}
		return fmt.Errorf("send initialize: %w", err)
	}
	s.initialized = true
	s.logger.Debug("worker initialized", "input_bytes", len(input), "debug", debug)
	return nil
}

// Run executes part once and returns the worker's timing and answer.
func (s *Supervisor) Run(ctx context.Context, part uint32) (d time.Duration, answer string, err error) {
	ctx, span := tracing.Start(ctx, "supervisor.run",
		attribute.Int("task", s.task),
		attribute.Int("part", int(part)),
	)
	defer func() { tracing.End(span, err) }()

	resp, err := s.exchange(ctx, protocol.NewRun(part))
	if err != nil {
		return 0, "", err
	}
	if resp.Kind != protocol.KindAnswer {
		return 0, "", &UnexpectedReplyError{Request: protocol.KindRun, Got: resp.Kind}
	}
	return resp.Time, resp.Answer, nil
}

// Bench executes iters timed trials of part. The reply must carry exactly
// iters samples.
func (s *Supervisor) Bench(ctx context.Context, part, iters uint32) (times []time.Duration, answer string, err error) {
	ctx, span := tracing.Start(ctx, "supervisor.bench",
		attribute.Int("task", s.task),
		attribute.Int("part", int(part)),
		attribute.Int64("iters", int64(iters)),
	)
	defer func() { tracing.End(span, err) }()

	resp, err := s.exchange(ctx, protocol.NewBench(part, iters))
	if err != nil {
		return nil, "", err
	}
	if resp.Kind != protocol.KindBenchResult {
		return nil, "", &UnexpectedReplyError{Request: protocol.KindBench, Got: resp.Kind}
	}
	if len(resp.Times) != int(iters) {
		return nil, "", &CountMismatchError{Asked: iters, Received: len(resp.Times)}
	}
	return resp.Times, resp.Answer, nil
}

// PartOne runs part 1.
func (s *Supervisor) PartOne(ctx context.Context) (time.Duration, string, error) {
	return s.Run(ctx, 1)
}

// PartTwo runs part 2.
func (s *Supervisor) PartTwo(ctx context.Context) (time.Duration, string, error) {
	return s.Run(ctx, 2)
}

// exchange writes req and reads exactly one reply. Cancelling ctx kills the
// worker, which unblocks the read.
func (s *Supervisor) exchange(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		s.logger.Warn("context cancelled, killing worker", "request", req.Kind.String())
		killProcess(s.cmd)
	})
	defer stop()

	if !s.initialized {
		s.logger.Warn("sending request before initialize", "request", req.Kind.String())
	}
	if err := s.enc.EncodeRequest(req); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isBrokenPipe(err) {
			return nil, ErrWorkerQuit
		}
		return nil, fmt.Errorf("send %s: %w", req.Kind, err)
	}

	resp, err := s.dec.DecodeResponse()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if protocol.IsEndOfStream(err) {
			return nil, ErrWorkerQuit
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: reply to %s cut short: %w", ErrWorkerQuit, req.Kind, err)
		}
		return nil, fmt.Errorf("receive reply to %s: %w", req.Kind, err)
	}

	s.logger.Debug("worker replied", "request", req.Kind.String(), "reply", resp.Kind.String())
	if resp.Kind == protocol.KindError {
		return nil, newWorkerError(resp.Error)
	}
	return resp, nil
}

// Close sends End, closes the worker's stdin and waits for it to exit,
// escalating to SIGTERM and then SIGKILL. A non-zero exit status is returned.
// Close is idempotent.
func (s *Supervisor) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.enc.EncodeRequest(protocol.NewEnd()); err != nil && !isBrokenPipe(err) {
		errs = append(errs, fmt.Errorf("send end: %w", err))
	}
	if err := s.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		errs = append(errs, fmt.Errorf("close worker stdin: %w", err))
	}
	if err := s.wait(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Supervisor) wait() error {
	done := make(chan error, 1)
	go func() {
		done <- s.cmd.Wait()
	}()

	timer := time.NewTimer(s.grace)
	defer timer.Stop()

	select {
	case err := <-done:
		return s.exitError(err)
	case <-timer.C:
	}

	s.logger.Warn("worker did not exit after end, sending SIGTERM")
	terminateProcess(s.cmd)
	timer.Reset(s.grace)

	select {
	case err := <-done:
		return s.exitError(err)
	case <-timer.C:
	}

	s.logger.Warn("worker did not exit after SIGTERM, sending SIGKILL")
	killProcess(s.cmd)
	return s.exitError(<-done)
}

func (s *Supervisor) exitError(err error) error {
	if err == nil {
		s.logger.Debug("worker exited")
		return nil
	}
	s.logger.Debug("worker exited with error", "error", err)
	return fmt.Errorf("worker for task %d exited: %w", s.task, err)
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed)
}
