package days

import (
	"strconv"

	"github.com/mattjoyce/aocrunner/internal/solver"
)

// Day01 turns a 100-position dial starting at 50 by lines like "L68" and
// "R48".
type Day01 struct{ solver.Base }

const dialSize = 100

type rotation struct {
	left  bool
	steps int
}

func parseRotations(input []byte) []rotation {
	var out []rotation
	for _, l := range lines(input) {
		n, err := strconv.Atoi(string(l[1:]))
		if err != nil {
			panic("bad rotation " + string(l))
		}
		out = append(out, rotation{left: l[0] == 'L', steps: n})
	}
	return out
}

// PartOne counts rotations that leave the dial at 0.
func (Day01) PartOne(input []byte, debug uint8) any {
	pos, zeros := 50, 0
	for _, r := range parseRotations(input) {
		if r.left {
			pos = ((pos-r.steps)%dialSize + dialSize) % dialSize
		} else {
			pos = (pos + r.steps) % dialSize
		}
		if pos == 0 {
			zeros++
		}
		debugf(debug, 2, "dial at %d", pos)
	}
	return zeros
}

// PartTwo counts every click that lands on 0, including those mid-rotation.
func (Day01) PartTwo(input []byte, debug uint8) any {
	pos, zeros := 50, 0
	for _, r := range parseRotations(input) {
		zeros += r.steps / dialSize
		rest := r.steps % dialSize
		if r.left {
			if pos != 0 && rest >= pos {
				zeros++
			}
			pos = ((pos-rest)%dialSize + dialSize) % dialSize
		} else {
			if pos+rest >= dialSize {
				zeros++
			}
			pos = (pos + rest) % dialSize
		}
		debugf(debug, 2, "dial at %d, %d zeros", pos, zeros)
	}
	return zeros
}
