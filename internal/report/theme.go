package report

import "github.com/charmbracelet/lipgloss"

// Theme centralizes all styling of runner output.
type Theme struct {
	Label   lipgloss.Style
	Time    lipgloss.Style
	Answer  lipgloss.Style
	OK      lipgloss.Style
	Failed  lipgloss.Style
	Changed lipgloss.Style
	Dim     lipgloss.Style
	Header  lipgloss.Style
}

// NewTheme builds the default theme for r. A renderer writing to something
// that is not a terminal produces plain text.
func NewTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Label:   r.NewStyle().Bold(true),
		Time:    r.NewStyle().Foreground(lipgloss.Color("#61AFEF")),
		Answer:  r.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
		OK:      r.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		Failed:  r.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		Changed: r.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		Dim:     r.NewStyle().Foreground(lipgloss.Color("#888888")),
		Header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#874BFD")),
	}
}
