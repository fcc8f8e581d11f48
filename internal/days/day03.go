package days

import (
	"fmt"

	"github.com/mattjoyce/aocrunner/internal/solver"
)

// Day03 picks digits from each line, in order, to form the largest number.
// Part n picks 2 digits for part one, 12 for part two and n for any other
// part.
type Day03 struct{}

var _ solver.Solver = Day03{}

// maxJoltage returns the largest number formed by keeping k digits of bank in
// order.
func maxJoltage(bank []byte, k int) int {
	total, start := 0, 0
	for picked := range k {
		best := start
		for i := start; i < len(bank)-(k-picked-1); i++ {
			if bank[i] > bank[best] {
				best = i
			}
		}
		total = total*10 + int(bank[best]-'0')
		start = best + 1
	}
	return total
}

func sumJoltage(input []byte, k int, debug uint8) (int, error) {
	sum := 0
	for _, bank := range lines(input) {
		if len(bank) < k {
			return 0, fmt.Errorf("bank %q has fewer than %d batteries", bank, k)
		}
		j := maxJoltage(bank, k)
		debugf(debug, 1, "%s -> %d", bank, j)
		sum += j
	}
	return sum, nil
}

func (Day03) PartOne(input []byte, debug uint8) any {
	sum, err := sumJoltage(input, 2, debug)
	if err != nil {
		panic(err)
	}
	return sum
}

func (Day03) PartTwo(input []byte, debug uint8) any {
	sum, err := sumJoltage(input, 12, debug)
	if err != nil {
		panic(err)
	}
	return sum
}

func (Day03) RunPart(part uint32, input []byte, debug uint8) (any, error) {
	if part == 0 || part > 18 {
		return nil, fmt.Errorf("%w: %d", solver.ErrPartNotFound, part)
	}
	return sumJoltage(input, int(part), debug)
}
