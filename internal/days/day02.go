package days

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/mattjoyce/aocrunner/internal/solver"
)

// Day02 sums product ids made of a repeated digit sequence within
// comma-separated ranges like "11-22,95-115".
type Day02 struct{ solver.Base }

type idRange struct{ lo, hi int }

func parseRanges(input []byte) []idRange {
	var out []idRange
	for _, field := range strings.Split(string(bytes.TrimSpace(input)), ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		lo, hi, ok := strings.Cut(field, "-")
		if !ok {
			panic("bad range " + field)
		}
		a, err1 := strconv.Atoi(lo)
		b, err2 := strconv.Atoi(hi)
		if err1 != nil || err2 != nil {
			panic("bad range " + field)
		}
		out = append(out, idRange{a, b})
	}
	return out
}

// repeated reports whether s is some prefix repeated exactly times times, or
// at least twice when times is 0.
func repeated(s string, times int) bool {
	for size := 1; size <= len(s)/2; size++ {
		if len(s)%size != 0 {
			continue
		}
		if times > 0 && len(s)/size != times {
			continue
		}
		if strings.Repeat(s[:size], len(s)/size) == s {
			return true
		}
	}
	return false
}

func sumInvalid(input []byte, times int, debug uint8) int {
	total := 0
	for _, r := range parseRanges(input) {
		for id := r.lo; id <= r.hi; id++ {
			if repeated(strconv.Itoa(id), times) {
				debugf(debug, 2, "invalid id %d", id)
				total += id
			}
		}
	}
	return total
}

// PartOne counts ids that are one sequence repeated twice.
func (Day02) PartOne(input []byte, debug uint8) any {
	return sumInvalid(input, 2, debug)
}

// PartTwo counts ids that are one sequence repeated at least twice.
func (Day02) PartTwo(input []byte, debug uint8) any {
	return sumInvalid(input, 0, debug)
}
