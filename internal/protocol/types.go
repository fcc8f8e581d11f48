package protocol

import (
	"fmt"
	"time"
)

// RequestKind tags a parent-to-worker message.
type RequestKind uint8

const (
	KindInitialize RequestKind = iota + 1
	KindRun
	KindBench
	KindEnd
)

func (k RequestKind) String() string {
	switch k {
	case KindInitialize:
		return "Initialize"
	case KindRun:
		return "Run"
	case KindBench:
		return "Bench"
	case KindEnd:
		return "End"
	default:
		return fmt.Sprintf("RequestKind(%d)", uint8(k))
	}
}

// ResponseKind tags a worker-to-parent message.
type ResponseKind uint8

const (
	KindAnswer ResponseKind = iota + 1
	KindBenchResult
	KindError
)

func (k ResponseKind) String() string {
	switch k {
	case KindAnswer:
		return "Answer"
	case KindBenchResult:
		return "BenchResult"
	case KindError:
		return "Err"
	default:
		return fmt.Sprintf("ResponseKind(%d)", uint8(k))
	}
}

// Initialization is the payload a worker holds between requests.
type Initialization struct {
	Input []byte
	Debug uint8
}

// Request is the envelope written by the parent to the worker's stdin.
type Request struct {
	Kind  RequestKind
	Init  *Initialization // only for Initialize
	Part  uint32          // Run | Bench
	Iters uint32          // only for Bench
}

// Response is the envelope written by the worker to its stdout.
type Response struct {
	Kind   ResponseKind
	Answer string          // Answer | BenchResult
	Time   time.Duration   // only for Answer
	Times  []time.Duration // only for BenchResult
	Error  *ErrorReply     // only for Err
}

// ErrorCode classifies an Err reply.
type ErrorCode string

const (
	CodeTask           ErrorCode = "task"
	CodeNotInitialized ErrorCode = "not_initialized"
	CodePanic          ErrorCode = "panic"
	CodePartNotFound   ErrorCode = "part_not_found"
	CodeWrongAnswer    ErrorCode = "wrong_answer"
)

// ErrorReply carries the detail of an Err reply. Want and Got are only set
// for CodeWrongAnswer.
type ErrorReply struct {
	Code    ErrorCode
	Message string
	Want    string
	Got     string
}

func (e *ErrorReply) Error() string {
	if e.Code == CodeWrongAnswer {
		return fmt.Sprintf("%s: %q != %q", e.Message, e.Want, e.Got)
	}
	return e.Message
}

func NewInitialize(input []byte, debug uint8) *Request {
	return &Request{Kind: KindInitialize, Init: &Initialization{Input: input, Debug: debug}}
}

func NewRun(part uint32) *Request {
	return &Request{Kind: KindRun, Part: part}
}

func NewBench(part, iters uint32) *Request {
	return &Request{Kind: KindBench, Part: part, Iters: iters}
}

func NewEnd() *Request {
	return &Request{Kind: KindEnd}
}

func NewAnswer(answer string, d time.Duration) *Response {
	return &Response{Kind: KindAnswer, Answer: answer, Time: d}
}

func NewBenchResult(times []time.Duration, answer string) *Response {
	return &Response{Kind: KindBenchResult, Answer: answer, Times: times}
}

func NewError(code ErrorCode, msg string) *Response {
	return &Response{Kind: KindError, Error: &ErrorReply{Code: code, Message: msg}}
}

// Validate checks that the envelope is a known, well-formed variant.
func (r *Request) Validate() error {
	switch r.Kind {
	case KindInitialize:
		if r.Init == nil {
			// gob drops an all-zero payload; an empty input is still valid.
			r.Init = &Initialization{}
		}
	case KindRun, KindBench, KindEnd:
	default:
		return fmt.Errorf("unknown request kind %d", uint8(r.Kind))
	}
	return nil
}

// Validate checks that the envelope is a known, well-formed variant.
func (r *Response) Validate() error {
	switch r.Kind {
	case KindAnswer, KindBenchResult:
	case KindError:
		if r.Error == nil {
			return fmt.Errorf("error reply without detail")
		}
	default:
		return fmt.Errorf("unknown response kind %d", uint8(r.Kind))
	}
	for _, t := range r.Times {
		if t < 0 {
			return fmt.Errorf("negative duration sample %v", t)
		}
	}
	if r.Time < 0 {
		return fmt.Errorf("negative duration %v", r.Time)
	}
	return nil
}
