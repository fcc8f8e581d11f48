// Package worker runs the message loop inside a worker process: it receives
// requests on stdin, executes the task and replies on stdout.
package worker

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/mattjoyce/aocrunner/internal/bench"
	"github.com/mattjoyce/aocrunner/internal/log"
	"github.com/mattjoyce/aocrunner/internal/protocol"
	"github.com/mattjoyce/aocrunner/internal/solver"
)

// State is the position of a Loop in its lifecycle.
type State int

const (
	AwaitingInit State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "awaiting_init"
}

// PanicError is a task panic recovered at the loop boundary.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Loop is the worker side of the protocol for one task.
type Loop struct {
	solver solver.Solver
	dec    *protocol.Decoder
	enc    *protocol.Encoder
	logger *slog.Logger

	state State
	init  protocol.Initialization
}

// New creates a Loop reading requests from r and writing replies to w.
func New(r io.Reader, w io.Writer, s solver.Solver) *Loop {
	return &Loop{
		solver: s,
		dec:    protocol.NewDecoder(r),
		enc:    protocol.NewEncoder(w),
		logger: log.WithComponent("worker"),
	}
}

// Serve runs a Loop for s until End or a clean end of stream.
func Serve(r io.Reader, w io.Writer, s solver.Solver) error {
	return New(r, w, s).Run()
}

// ErrUnknownTask is returned by ServeTask for an id missing from the registry.
var ErrUnknownTask = errors.New("unknown task")

// ServeTask looks id up in reg and serves it.
func ServeTask(reg *solver.Registry, id int, r io.Reader, w io.Writer) error {
	s, ok := reg.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTask, id)
	}
	return Serve(r, w, s)
}

// State reports the current lifecycle state.
func (l *Loop) State() State {
	return l.state
}

// Run processes requests until End or a clean end of stream, both of which
// return nil. Decode failures, reply write failures and requests received
// before Initialize end the loop with an error.
func (l *Loop) Run() error {
	for {
		req, err := l.dec.DecodeRequest()
		if protocol.IsEndOfStream(err) {
			l.logger.Debug("input closed")
			return nil
		}
		if err != nil {
			return err
		}

		done, err := l.handle(req)
		if err != nil || done {
			return err
		}
	}
}

func (l *Loop) handle(req *protocol.Request) (bool, error) {
	if l.state == AwaitingInit && req.Kind != protocol.KindInitialize {
		l.logger.Error("request before initialization", "kind", req.Kind)
		if req.Kind != protocol.KindEnd {
			reply := protocol.NewError(protocol.CodeNotInitialized, protocol.ErrNotInitialized.Error())
			if err := l.enc.EncodeResponse(reply); err != nil {
				return true, errors.Join(protocol.ErrNotInitialized, err)
			}
		}
		return true, protocol.ErrNotInitialized
	}

	switch req.Kind {
	case protocol.KindInitialize:
		l.init = *req.Init
		l.state = Ready
		l.logger.Debug("initialized", "input_bytes", len(l.init.Input), "debug", l.init.Debug)
		return false, nil

	case protocol.KindEnd:
		l.logger.Debug("end received")
		return true, nil

	case protocol.KindRun:
		start := time.Now()
		answer, err := l.solve(req.Part)
		d := time.Since(start)
		if err != nil {
			return false, l.replyError(err)
		}
		return false, l.enc.EncodeResponse(protocol.NewAnswer(answer, d))

	case protocol.KindBench:
		times, answer, err := bench.Trials(req.Iters, func() (string, error) { return l.solve(req.Part) })
		if err != nil {
			return false, l.replyError(err)
		}
		return false, l.enc.EncodeResponse(protocol.NewBenchResult(times, answer))
	}
	return true, fmt.Errorf("%w: unhandled kind %v", protocol.ErrMalformed, req.Kind)
}

// solve runs one part, converting a panic into a *PanicError.
func (l *Loop) solve(part uint32) (answer string, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return solver.Solve(l.solver, part, l.init.Input, l.init.Debug)
}

func (l *Loop) replyError(err error) error {
	reply := protocol.NewError(protocol.CodeTask, err.Error())

	var (
		panicErr *PanicError
		wrong    *bench.WrongAnswerError
	)
	switch {
	case errors.As(err, &panicErr):
		reply.Error.Code = protocol.CodePanic
		l.logger.Error("task panicked", "panic", fmt.Sprint(panicErr.Value), "stack", string(panicErr.Stack))
	case errors.As(err, &wrong):
		reply.Error.Code = protocol.CodeWrongAnswer
		reply.Error.Message = "wrong answer in bench"
		reply.Error.Want = wrong.Want
		reply.Error.Got = wrong.Got
	case errors.Is(err, solver.ErrPartNotFound):
		reply.Error.Code = protocol.CodePartNotFound
	}
	return l.enc.EncodeResponse(reply)
}
