package bench

import (
	"errors"
	"fmt"
	"time"
)

// ErrWrongAnswer matches every *WrongAnswerError.
var ErrWrongAnswer = errors.New("wrong answer in bench")

// WrongAnswerError reports two executions of the same part that disagree.
type WrongAnswerError struct {
	Want string
	Got  string
}

func (e *WrongAnswerError) Error() string {
	return fmt.Sprintf("wrong answer in bench: %q != %q", e.Want, e.Got)
}

func (e *WrongAnswerError) Is(target error) bool { return target == ErrWrongAnswer }

// Trials runs fn once to capture the reference answer and then iters timed
// trials. Every trial must reproduce the reference answer; the first mismatch
// aborts with a *WrongAnswerError and no samples.
func Trials(iters uint32, fn func() (string, error)) ([]time.Duration, string, error) {
	want, err := fn()
	if err != nil {
		return nil, "", err
	}

	times := make([]time.Duration, 0, iters)
	for range iters {
		start := time.Now()
		got, err := fn()
		d := time.Since(start)
		if err != nil {
			return nil, "", err
		}
		if got != want {
			return nil, "", &WrongAnswerError{Want: want, Got: got}
		}
		times = append(times, d)
	}
	return times, want, nil
}
