package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"
)

// ReadableTime formats d with places decimals in the largest unit that keeps
// it readable: μs below a millisecond, ms below a second, s below two
// minutes, minutes beyond.
func ReadableTime(d time.Duration, places int) string {
	ns := float64(d.Nanoseconds())
	switch ms := d.Milliseconds(); {
	case ms < 1:
		return fmt.Sprintf("%.*fμs", places, ns/1e3)
	case ms < 1_000:
		return fmt.Sprintf("%.*fms", places, ns/1e6)
	case ms < 120_000:
		return fmt.Sprintf("%.*fs", places, ns/1e9)
	default:
		return fmt.Sprintf("%.*f minutes", places, ns/1e9/60)
	}
}

// Label returns the "d07p02" prefix used for one part.
func Label(task int, part uint32) string {
	return fmt.Sprintf("d%02dp%02d", task, part)
}

// Diff renders a unified diff between a saved and a current answer.
func Diff(saved, current string) string {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(ensureNewline(saved)),
		B:        difflib.SplitLines(ensureNewline(current)),
		FromFile: "saved",
		ToFile:   "current",
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return ""
	}
	return out
}

// Change returns the relative change from prev to cur as a signed
// percentage, e.g. "+3.2%".
func Change(prev, cur time.Duration) string {
	if prev <= 0 {
		return ""
	}
	pct := (float64(cur) - float64(prev)) / float64(prev) * 100
	return fmt.Sprintf("%+.1f%%", pct)
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
