package supervisor

import (
	"errors"
	"fmt"

	"github.com/mattjoyce/aocrunner/internal/bench"
	"github.com/mattjoyce/aocrunner/internal/protocol"
	"github.com/mattjoyce/aocrunner/internal/solver"
)

var (
	// ErrWorkerQuit is returned when the worker closed its output before replying.
	ErrWorkerQuit = errors.New("worker quit before sending a response")

	// ErrUnexpectedReply matches every *UnexpectedReplyError.
	ErrUnexpectedReply = errors.New("unexpected reply from worker")

	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("supervisor is closed")
)

// WorkerError is an error reply sent by the worker. Its text is the worker's,
// unchanged.
type WorkerError struct {
	Code    protocol.ErrorCode
	Message string
	Want    string
	Got     string
}

func newWorkerError(reply *protocol.ErrorReply) *WorkerError {
	return &WorkerError{
		Code:    reply.Code,
		Message: reply.Message,
		Want:    reply.Want,
		Got:     reply.Got,
	}
}

func (e *WorkerError) Error() string {
	reply := protocol.ErrorReply{Code: e.Code, Message: e.Message, Want: e.Want, Got: e.Got}
	return reply.Error()
}

// Unwrap lets callers match well-known worker failures with errors.Is and
// errors.As.
func (e *WorkerError) Unwrap() error {
	switch e.Code {
	case protocol.CodeNotInitialized:
		return protocol.ErrNotInitialized
	case protocol.CodeWrongAnswer:
		return &bench.WrongAnswerError{Want: e.Want, Got: e.Got}
	case protocol.CodePartNotFound:
		return solver.ErrPartNotFound
	default:
		return nil
	}
}

// UnexpectedReplyError is a well-formed reply of the wrong kind.
type UnexpectedReplyError struct {
	Request protocol.RequestKind
	Got     protocol.ResponseKind
}

func (e *UnexpectedReplyError) Error() string {
	return fmt.Sprintf("unexpected %s reply to %s request", e.Got, e.Request)
}

func (e *UnexpectedReplyError) Is(target error) bool {
	return target == ErrUnexpectedReply
}

// CountMismatchError reports a bench reply whose sample count differs from
// the iterations requested.
type CountMismatchError struct {
	Asked    uint32
	Received int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("asked for %d iterations, received %d", e.Asked, e.Received)
}
