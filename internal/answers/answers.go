// Package answers persists the expected answer of every part of a task.
//
// Each task and input has one text file with one line per part: line 1 is
// part 1, line 2 is part 2 and so on. Unknown parts are empty lines.
package answers

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattjoyce/aocrunner/internal/inputs"
)

// ErrInvalidAnswer is returned for answers that cannot be stored as one
// non-empty line.
var ErrInvalidAnswer = errors.New("invalid answer")

// File holds the answers of one task and input in memory.
type File struct {
	path   string
	lines  []string
	exists bool
}

// Store opens answer files under an inputs layout.
type Store struct {
	layout inputs.Layout
}

// NewStore returns a Store rooted at the inputs directory root.
func NewStore(root string) *Store {
	return &Store{layout: inputs.Layout{Root: root}}
}

// Open loads the answers of task for test input test. A missing file yields
// an empty File whose Exists reports false.
func (s *Store) Open(task int, test uint8) (*File, error) {
	path := s.layout.AnswerPath(task, test)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &File{path: path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	var lines []string
	if text != "" {
		lines = strings.Split(text, "\n")
	}
	return &File{path: path, lines: lines, exists: true}, nil
}

// Get returns the saved answer for one part.
func (s *Store) Get(task int, test uint8, part uint32) (string, bool, error) {
	f, err := s.Open(task, test)
	if err != nil {
		return "", false, err
	}
	answer, ok := f.Get(part)
	return answer, ok, nil
}

// Set saves the answer for one part, keeping the others.
func (s *Store) Set(task int, test uint8, part uint32, answer string) error {
	f, err := s.Open(task, test)
	if err != nil {
		return err
	}
	if err := f.Set(part, answer); err != nil {
		return err
	}
	return f.Save()
}

// Path returns the file location.
func (f *File) Path() string { return f.path }

// Exists reports whether the file was present when opened.
func (f *File) Exists() bool { return f.exists }

// Get returns the answer for part. Empty lines count as unsaved.
func (f *File) Get(part uint32) (string, bool) {
	if part == 0 || int(part) > len(f.lines) {
		return "", false
	}
	answer := f.lines[part-1]
	return answer, answer != ""
}

// Set replaces the answer for part, growing the file as needed. Empty and
// multi-line answers would not read back and are rejected with
// ErrInvalidAnswer.
func (f *File) Set(part uint32, answer string) error {
	switch {
	case part == 0:
		return fmt.Errorf("%w: part 0", ErrInvalidAnswer)
	case answer == "":
		return fmt.Errorf("%w: part %d is empty", ErrInvalidAnswer, part)
	case strings.ContainsAny(answer, "\r\n"):
		return fmt.Errorf("%w: part %d spans several lines: %q", ErrInvalidAnswer, part, answer)
	}
	for len(f.lines) < int(part) {
		f.lines = append(f.lines, "")
	}
	f.lines[part-1] = answer
	return nil
}

// Save writes the file, creating its directory.
func (f *File) Save() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create answer directory: %w", err)
	}
	data := strings.Join(f.lines, "\n") + "\n"
	if err := os.WriteFile(f.path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("write answers: %w", err)
	}
	f.exists = true
	return nil
}
