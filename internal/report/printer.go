// Package report renders runner results for the operator.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/aocrunner/internal/bench"
)

// SaveOutcome is what happened to one saved answer.
type SaveOutcome int

const (
	Saved SaveOutcome = iota
	Unchanged
	Replaced
)

// Printer writes result lines to one writer.
type Printer struct {
	w           io.Writer
	theme       Theme
	hideAnswers bool
}

// NewPrinter returns a Printer writing to w. hideAnswers blanks answers in
// run and bench lines.
func NewPrinter(w io.Writer, hideAnswers bool) *Printer {
	return &Printer{
		w:           w,
		theme:       NewTheme(lipgloss.NewRenderer(w)),
		hideAnswers: hideAnswers,
	}
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) answer(a string) string {
	if p.hideAnswers {
		return ""
	}
	return p.theme.Answer.Render(a)
}

func (p *Printer) label(task int, part uint32) string {
	return p.theme.Label.Render(Label(task, part) + ":")
}

// Part prints the result of one executed part.
func (p *Printer) Part(task int, part uint32, answer string, d time.Duration) {
	p.printf("%s %s %s\n", p.label(task, part), p.theme.Time.Render("("+d.String()+")"), p.answer(answer))
}

// TaskTotal prints the time spent on one task.
func (p *Printer) TaskTotal(task int, d time.Duration) {
	p.printf("%s %s\n\n", p.theme.Dim.Render(fmt.Sprintf("d%02d total:", task)), d)
}

// Total prints the time spent on every task.
func (p *Printer) Total(d time.Duration) {
	p.printf("%s %s\n", p.theme.Header.Render("All:"), d)
}

// Bench prints a benchmark result. prev, when positive, is the average of the
// last recorded benchmark of the same part and input; best, when positive, is
// the lowest recorded average for them.
func (p *Printer) Bench(task int, res *bench.Result, prev, best time.Duration) {
	line := fmt.Sprintf("%s avg %s, med %s",
		p.label(task, res.Part),
		p.theme.Time.Render(ReadableTime(res.Average, 3)),
		p.theme.Time.Render(ReadableTime(res.Median, 3)),
	)
	if change := Change(prev, res.Average); change != "" {
		style := p.theme.OK
		if res.Average > prev {
			style = p.theme.Failed
		}
		line += " " + style.Render("["+change+"]")
	}
	if best > 0 {
		line += ", best " + p.theme.Dim.Render(ReadableTime(best, 3))
	}
	if !p.hideAnswers {
		line += " " + p.theme.Answer.Render(fmt.Sprintf("(%q)", res.Answer))
	}
	p.printf("%s\n", line)
}

// Save prints the outcome of saving one answer.
func (p *Printer) Save(task int, part uint32, test uint8, outcome SaveOutcome, old, answer string) {
	which := inputName(test)
	var msg string
	switch outcome {
	case Unchanged:
		msg = fmt.Sprintf("%s is still %q", capitalize(which), answer)
	case Replaced:
		msg = p.theme.Changed.Render(fmt.Sprintf("Replacing %s %q with %q", which, old, answer))
	default:
		msg = fmt.Sprintf("Saving %s %q", which, answer)
	}
	p.printf("%s %s\n", p.label(task, part), msg)
}

// Validate prints the outcome of checking one answer. A mismatch includes a
// diff of the saved and current answers.
func (p *Printer) Validate(task int, part uint32, test uint8, answer, saved string) {
	which := inputName(test)
	if answer == saved {
		p.printf("%s %s\n", p.label(task, part),
			p.theme.OK.Render(fmt.Sprintf("%s is correct: %q", capitalize(which), answer)))
		return
	}
	p.printf("%s %s\n", p.label(task, part),
		p.theme.Failed.Render(fmt.Sprintf("%s %q did not match saved answer %q", capitalize(which), answer, saved)))
	for _, line := range strings.Split(strings.TrimSuffix(Diff(saved, answer), "\n"), "\n") {
		p.printf("  %s\n", p.theme.Dim.Render(line))
	}
}

// AllCorrect prints the validation summary when nothing was wrong.
func (p *Printer) AllCorrect() {
	p.printf("%s\n", p.theme.OK.Render("All answers were correct!"))
}

// Prompt prints how many examples were extracted for task.
func (p *Printer) Prompt(task int, cases int) {
	p.printf("%s saved prompt and %d test inputs\n", p.theme.Label.Render(fmt.Sprintf("d%02d:", task)), cases)
}

// Skipped prints why a task was not run.
func (p *Printer) Skipped(task int, reason string) {
	p.printf("%s\n", p.theme.Dim.Render(fmt.Sprintf("Day %d %s, skipping", task, reason)))
}

// Error prints a failed pipeline execution.
func (p *Printer) Error(err error) {
	p.printf("%s %s\n", p.theme.Failed.Render("error:"), err)
}

func inputName(test uint8) string {
	if test > 0 {
		return fmt.Sprintf("test %02d answer", test)
	}
	return "main answer"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
