package dashboard

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"})

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "1", Dark: "9"})

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "3", Dark: "11"})

	buttonStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 2).
			Foreground(lipgloss.AdaptiveColor{Light: "255", Dark: "0"}).
			Background(lipgloss.AdaptiveColor{Light: "4", Dark: "12"})
)

// ErrorBanner renders an error as a single "Error: ..." line.
func ErrorBanner(err error) string {
	if err == nil {
		return ""
	}
	return errorStyle.Render("Error: " + err.Error())
}

// RefetchButton renders the empty-list affordance.
func RefetchButton() string {
	return buttonStyle.Render("[f] Fetch users again")
}
