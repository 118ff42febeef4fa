package styles

import "github.com/charmbracelet/lipgloss"

var (
	Title   = lipgloss.NewStyle().Bold(true)
	Header  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	Footer  = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))
	Box     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	Prompt  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7DCE13"))
	Danger  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	Warn    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00"))
	Good    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD7AF"))
	Faint   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C6C6C"))
	Running = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#FFAF00"))
)

// ForCoverage colours a coverage ratio: full is good, partial warns, none
// is an error.
func ForCoverage(ratio float64) lipgloss.Style {
	switch {
	case ratio >= 1:
		return Good
	case ratio > 0:
		return Warn
	default:
		return Danger
	}
}
