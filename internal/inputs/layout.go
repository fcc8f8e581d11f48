package inputs

import (
	"fmt"
	"path/filepath"
)

// Layout resolves per-task file names under a workspace inputs directory:
//
//	<root>/day07/input.txt      main input
//	<root>/day07/input03.txt    test input 3
//	<root>/day07/answer.txt     saved answers for the main input
//	<root>/day07/answer03.txt   saved answers for test input 3
//	<root>/day07/prompt.html    puzzle page
type Layout struct {
	Root string
}

// DayDir returns the directory holding every file of task.
func (l Layout) DayDir(task int) string {
	return filepath.Join(l.Root, fmt.Sprintf("day%02d", task))
}

// InputPath returns the input file for task; test 0 is the main input.
func (l Layout) InputPath(task int, test uint8) string {
	return filepath.Join(l.DayDir(task), numbered("input", test))
}

// AnswerPath returns the answer file for task; test 0 is the main input.
func (l Layout) AnswerPath(task int, test uint8) string {
	return filepath.Join(l.DayDir(task), numbered("answer", test))
}

// PromptPath returns where the puzzle page for task is stored.
func (l Layout) PromptPath(task int) string {
	return filepath.Join(l.DayDir(task), "prompt.html")
}

func numbered(base string, test uint8) string {
	if test == 0 {
		return base + ".txt"
	}
	return fmt.Sprintf("%s%02d.txt", base, test)
}
