package runner

import (
	"errors"
	"fmt"
)

// ErrIncorrect matches every *IncorrectError.
var ErrIncorrect = errors.New("incorrect answer")

// IncorrectError reports answers that did not match the saved ones.
type IncorrectError struct {
	Count int
}

func (e *IncorrectError) Error() string {
	if e.Count == 1 {
		return "1 answer was incorrect"
	}
	return fmt.Sprintf("%d answers were incorrect", e.Count)
}

func (e *IncorrectError) Is(target error) bool { return target == ErrIncorrect }
