// Package solver defines the capability every task implements and the table
// the worker binary uses to look tasks up by id.
package solver

import (
	"errors"
	"fmt"
	"sort"
)

// ErrPartNotFound is returned for a part the task does not implement.
var ErrPartNotFound = errors.New("part not found")

// Solver is one task. Answers may be any value; they are rendered with fmt.
type Solver interface {
	PartOne(input []byte, debug uint8) any
	PartTwo(input []byte, debug uint8) any
	RunPart(part uint32, input []byte, debug uint8) (any, error)
}

// Base can be embedded by tasks that only implement parts one and two.
type Base struct{}

func (Base) RunPart(part uint32, _ []byte, _ uint8) (any, error) {
	return nil, fmt.Errorf("%w: %d", ErrPartNotFound, part)
}

// Solve runs one part of s and renders its answer.
func Solve(s Solver, part uint32, input []byte, debug uint8) (string, error) {
	switch part {
	case 1:
		return fmt.Sprint(s.PartOne(input, debug)), nil
	case 2:
		return fmt.Sprint(s.PartTwo(input, debug)), nil
	default:
		v, err := s.RunPart(part, input, debug)
		if err != nil {
			return "", err
		}
		return fmt.Sprint(v), nil
	}
}

// Registry holds tasks indexed by id.
type Registry struct {
	solvers map[int]Solver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{solvers: make(map[int]Solver)}
}

// Get retrieves a task by id.
func (r *Registry) Get(id int) (Solver, bool) {
	s, ok := r.solvers[id]
	return s, ok
}

// Add registers s under id.
func (r *Registry) Add(id int, s Solver) error {
	if s == nil {
		return fmt.Errorf("task %d: nil solver", id)
	}
	if _, exists := r.solvers[id]; exists {
		return fmt.Errorf("task %d already registered", id)
	}
	r.solvers[id] = s
	return nil
}

// IDs returns the registered ids in ascending order.
func (r *Registry) IDs() []int {
	ids := make([]int, 0, len(r.solvers))
	for id := range r.solvers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
