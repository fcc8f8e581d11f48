package supervisor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/aocrunner/internal/bench"
	"github.com/mattjoyce/aocrunner/internal/log"
	"github.com/mattjoyce/aocrunner/internal/protocol"
	"github.com/mattjoyce/aocrunner/internal/solver"
	"github.com/mattjoyce/aocrunner/internal/worker"
)

const helperEnv = "AOCRUNNER_TEST_WORKER"

const (
	taskDoubler  = 1
	taskQuitter  = 2
	taskRaw      = 3
	taskSlow     = 4
	taskStubborn = 5
	taskFlaky    = 6
	taskCutShort = 7
)

// TestMain doubles as the worker binary: when helperEnv is set the test
// executable serves the protocol for that task instead of running tests.
func TestMain(m *testing.M) {
	log.Setup("ERROR", "text") // Suppress logs in tests
	if task := os.Getenv(helperEnv); task != "" {
		os.Exit(helperWorker(task))
	}
	os.Exit(m.Run())
}

type doubler struct{ solver.Base }

func (doubler) PartOne(input []byte, _ uint8) any {
	n, _ := strconv.Atoi(strings.TrimSpace(string(input)))
	return n * 2
}

func (doubler) PartTwo(input []byte, _ uint8) any {
	n, _ := strconv.Atoi(strings.TrimSpace(string(input)))
	return n * n
}

type quitter struct{ solver.Base }

func (quitter) PartOne([]byte, uint8) any {
	os.Exit(0)
	return nil
}

func (quitter) PartTwo([]byte, uint8) any { return 0 }

type slow struct{ solver.Base }

func (slow) PartOne([]byte, uint8) any {
	time.Sleep(time.Minute)
	return 0
}

func (slow) PartTwo([]byte, uint8) any { return 0 }

// flaky answers differently every call.
type flaky struct {
	solver.Base
	calls *int
}

func (f flaky) PartOne([]byte, uint8) any {
	*f.calls++
	return *f.calls
}

func (flaky) PartTwo([]byte, uint8) any { return 0 }

func helperWorker(task string) int {
	var s solver.Solver
	switch task {
	case strconv.Itoa(taskDoubler):
		s = doubler{}
	case strconv.Itoa(taskQuitter):
		s = quitter{}
	case strconv.Itoa(taskSlow):
		s = slow{}
	case strconv.Itoa(taskFlaky):
		s = flaky{calls: new(int)}
	case strconv.Itoa(taskRaw):
		return rawResponder()
	case strconv.Itoa(taskCutShort):
		return cutShortResponder()
	case strconv.Itoa(taskStubborn):
		_, _ = io.Copy(io.Discard, os.Stdin)
		time.Sleep(time.Minute)
		return 0
	default:
		return 2
	}
	if err := worker.Serve(os.Stdin, os.Stdout, s); err != nil {
		return 1
	}
	return 0
}

// rawResponder replies to Bench with one sample too few and to Run with a
// bench result.
func rawResponder() int {
	dec := protocol.NewDecoder(os.Stdin)
	enc := protocol.NewEncoder(os.Stdout)
	for {
		req, err := dec.DecodeRequest()
		if err != nil {
			return 0
		}
		switch req.Kind {
		case protocol.KindBench:
			times := make([]time.Duration, req.Iters-1)
			_ = enc.EncodeResponse(protocol.NewBenchResult(times, "1"))
		case protocol.KindRun:
			_ = enc.EncodeResponse(protocol.NewBenchResult(nil, "1"))
		case protocol.KindEnd:
			return 0
		}
	}
}

// cutShortResponder answers Run with all but the last byte of a valid reply
// and exits.
func cutShortResponder() int {
	dec := protocol.NewDecoder(os.Stdin)
	for {
		req, err := dec.DecodeRequest()
		if err != nil {
			return 0
		}
		if req.Kind != protocol.KindRun {
			continue
		}
		var buf bytes.Buffer
		if err := protocol.NewEncoder(&buf).EncodeResponse(protocol.NewAnswer("42", time.Millisecond)); err != nil {
			return 1
		}
		_, _ = os.Stdout.Write(buf.Bytes()[:buf.Len()-1])
		return 0
	}
}

func testLauncher(t *testing.T) *Launcher {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	return &Launcher{
		Spec: CommandSpec{
			Argv: []string{exe, "-test.run=^$"},
			Env:  []string{helperEnv + "={task}"},
		},
		Stderr: io.Discard,
		Grace:  200 * time.Millisecond,
	}
}

func TestRunBothParts(t *testing.T) {
	ctx := context.Background()
	s, err := testLauncher(t).Start(ctx, taskDoubler, []byte("21\n"), 0, Dev)
	require.NoError(t, err)
	assert.True(t, s.initialized)

	_, answer, err := s.PartOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, "42", answer)

	d, answer, err := s.PartTwo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "441", answer)
	assert.GreaterOrEqual(t, d, time.Duration(0))

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close(), "second close is a no-op")
}

func TestBenchReturnsRequestedSamples(t *testing.T) {
	ctx := context.Background()
	s, err := testLauncher(t).Start(ctx, taskDoubler, []byte("3"), 0, Release)
	require.NoError(t, err)
	defer s.Close()

	times, answer, err := s.Bench(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, "6", answer)
	assert.Len(t, times, 5)
}

func TestMeasureThroughSupervisor(t *testing.T) {
	ctx := context.Background()
	s, err := testLauncher(t).Start(ctx, taskDoubler, []byte("3"), 0, Release)
	require.NoError(t, err)
	defer s.Close()

	res, err := bench.Measure(ctx, s, 2, bench.Options{Iterations: 20})
	require.NoError(t, err)
	assert.Equal(t, "9", res.Answer)
	assert.Equal(t, 20, res.Total)
}

func TestUnknownPart(t *testing.T) {
	ctx := context.Background()
	s, err := testLauncher(t).Start(ctx, taskDoubler, []byte("3"), 0, Dev)
	require.NoError(t, err)
	defer s.Close()

	_, _, err = s.Run(ctx, 9)
	var werr *WorkerError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, protocol.CodePartNotFound, werr.Code)
	assert.ErrorIs(t, err, solver.ErrPartNotFound)
}

func TestBenchWrongAnswer(t *testing.T) {
	ctx := context.Background()
	s, err := testLauncher(t).Start(ctx, taskFlaky, nil, 0, Release)
	require.NoError(t, err)
	defer s.Close()

	_, _, err = s.Bench(ctx, 1, 3)
	require.ErrorIs(t, err, bench.ErrWrongAnswer)
	var wrong *bench.WrongAnswerError
	require.ErrorAs(t, err, &wrong)
	assert.Equal(t, "1", wrong.Want)
	assert.Equal(t, "2", wrong.Got)
	assert.Contains(t, err.Error(), `"1" != "2"`)

	// The worker stays usable after a failed bench.
	_, answer, err := s.PartOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", answer)
}

func TestNotInitialized(t *testing.T) {
	ctx := context.Background()
	s, err := testLauncher(t).Spawn(ctx, taskDoubler, Dev)
	require.NoError(t, err)
	assert.False(t, s.initialized)

	// The request still goes out; the worker is the one that refuses it.
	_, _, err = s.PartOne(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrNotInitialized)
	assert.Equal(t, "worker was not sent an initialization message", err.Error())

	// The worker exits with a failure status after replying.
	assert.Error(t, s.Close())
}

func TestWorkerQuit(t *testing.T) {
	ctx := context.Background()
	s, err := testLauncher(t).Start(ctx, taskQuitter, nil, 0, Dev)
	require.NoError(t, err)

	_, _, err = s.PartOne(ctx)
	assert.ErrorIs(t, err, ErrWorkerQuit)
	assert.Equal(t, "worker quit before sending a response", err.Error())

	assert.NoError(t, s.Close())
}

func TestWorkerQuitMidReply(t *testing.T) {
	ctx := context.Background()
	s, err := testLauncher(t).Start(ctx, taskCutShort, nil, 0, Dev)
	require.NoError(t, err)

	_, _, err = s.PartOne(ctx)
	require.ErrorIs(t, err, ErrWorkerQuit)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "reply to Run cut short")
	assert.Contains(t, err.Error(), "unexpected EOF")

	assert.NoError(t, s.Close())
}

func TestCountMismatch(t *testing.T) {
	ctx := context.Background()
	s, err := testLauncher(t).Start(ctx, taskRaw, nil, 0, Dev)
	require.NoError(t, err)
	defer s.Close()

	_, _, err = s.Bench(ctx, 1, 4)
	var cerr *CountMismatchError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, uint32(4), cerr.Asked)
	assert.Equal(t, 3, cerr.Received)
}

func TestUnexpectedReply(t *testing.T) {
	ctx := context.Background()
	s, err := testLauncher(t).Start(ctx, taskRaw, nil, 0, Dev)
	require.NoError(t, err)
	defer s.Close()

	_, _, err = s.Run(ctx, 1)
	assert.ErrorIs(t, err, ErrUnexpectedReply)
	var uerr *UnexpectedReplyError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, protocol.KindBenchResult, uerr.Got)
}

func TestCancelKillsWorker(t *testing.T) {
	s, err := testLauncher(t).Start(context.Background(), taskSlow, nil, 0, Dev)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err = s.PartOne(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)

	// Killed by signal.
	assert.Error(t, s.Close())

	_, _, err = s.PartOne(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseEscalates(t *testing.T) {
	s, err := testLauncher(t).Start(context.Background(), taskStubborn, nil, 0, Dev)
	require.NoError(t, err)

	start := time.Now()
	err = s.Close()
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)

	var exitErr interface{ ExitCode() int }
	assert.True(t, errors.As(err, &exitErr))
}

func TestStartFailure(t *testing.T) {
	l := &Launcher{Spec: CommandSpec{Argv: []string{"/nonexistent/aocworker"}}}
	_, err := l.Start(context.Background(), 1, nil, 0, Dev)
	assert.Error(t, err)
}
