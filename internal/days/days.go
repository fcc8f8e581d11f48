// Package days holds the bundled tasks and registers them by id.
package days

import (
	"bytes"
	"fmt"
	"os"

	"github.com/mattjoyce/aocrunner/internal/solver"
)

// Register adds every bundled task to reg.
func Register(reg *solver.Registry) error {
	for id, s := range map[int]solver.Solver{
		1: Day01{},
		2: Day02{},
		3: Day03{},
	} {
		if err := reg.Add(id, s); err != nil {
			return err
		}
	}
	return nil
}

// Registry returns a registry holding the bundled tasks.
func Registry() *solver.Registry {
	reg := solver.NewRegistry()
	if err := Register(reg); err != nil {
		panic(err)
	}
	return reg
}

// debugf prints to stderr when debug is at least level. Stdout belongs to the
// protocol.
func debugf(debug, level uint8, format string, args ...any) {
	if debug >= level {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func lines(input []byte) [][]byte {
	var out [][]byte
	for _, l := range bytes.Split(input, []byte("\n")) {
		l = bytes.TrimSpace(l)
		if len(l) > 0 {
			out = append(out, l)
		}
	}
	return out
}
