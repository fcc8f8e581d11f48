package runner

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode is what one pipeline execution does with the selected parts.
type Mode int

const (
	ModeRun Mode = iota
	ModeBench
	ModeSave
	ModeValidate
	ModePrompt
)

var modeNames = []struct {
	mode  Mode
	name  string
	alias string
}{
	{ModeRun, "run", "r"},
	{ModeBench, "bench", "b"},
	{ModeSave, "save", "s"},
	{ModeValidate, "validate", "v"},
	{ModePrompt, "prompt", "p"},
}

func (m Mode) String() string {
	for _, n := range modeNames {
		if n.mode == m {
			return n.name
		}
	}
	return "unknown"
}

// ParseMode accepts a mode name or its one-letter alias.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	for _, n := range modeNames {
		if s == n.name || s == n.alias {
			return n.mode, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// ModeAliases maps every accepted mode spelling to its name.
func ModeAliases() map[string]string {
	m := make(map[string]string, 2*len(modeNames))
	for _, n := range modeNames {
		m[n.name] = n.name
		m[n.alias] = n.name
	}
	return m
}

// MaxTask is the highest task id; selector 0 expands to 1..MaxTask.
const MaxTask = 12

// Selection is one task and the parts to execute. No parts means parts one
// and two.
type Selection struct {
	Task  int
	Parts []uint32
}

// PartsOrDefault returns the parts to execute.
func (s Selection) PartsOrDefault() []uint32 {
	if len(s.Parts) == 0 {
		return []uint32{1, 2}
	}
	return s.Parts
}

// ParseSelector parses "N", "N.p" or "N.p.q...". Task 0 selects every task
// with the same parts.
func ParseSelector(word string) ([]Selection, error) {
	if word == "" {
		return nil, fmt.Errorf("empty task selector")
	}
	fields := strings.Split(word, ".")
	if fields[0] == "" {
		return nil, fmt.Errorf("no task specified in %q", word)
	}
	task, err := strconv.Atoi(fields[0])
	if err != nil || task < 0 {
		return nil, fmt.Errorf("could not parse %q in %q", fields[0], word)
	}

	var parts []uint32
	for _, f := range fields[1:] {
		if f == "" {
			return nil, fmt.Errorf("empty part in %q", word)
		}
		p, err := strconv.ParseUint(f, 10, 32)
		if err != nil || p == 0 {
			return nil, fmt.Errorf("could not parse %q in %q", f, word)
		}
		parts = append(parts, uint32(p))
	}

	if task == 0 {
		out := make([]Selection, 0, MaxTask)
		for id := 1; id <= MaxTask; id++ {
			out = append(out, Selection{Task: id, Parts: parts})
		}
		return out, nil
	}
	return []Selection{{Task: task, Parts: parts}}, nil
}

// ParseSelectors parses and concatenates several selectors.
func ParseSelectors(words []string) ([]Selection, error) {
	var out []Selection
	for _, w := range words {
		sel, err := ParseSelector(w)
		if err != nil {
			return nil, err
		}
		out = append(out, sel...)
	}
	return out, nil
}
