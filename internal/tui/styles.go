package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor = lipgloss.Color("#2563EB") // Blue
	readyColor   = lipgloss.Color("#10B981") // Green
	mutedColor   = lipgloss.Color("#6B7280") // Gray
	errorColor   = lipgloss.Color("#EF4444") // Red
	warningColor = lipgloss.Color("#F59E0B") // Amber

	// Header styles
	headerBrandStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(primaryColor).
				Padding(0, 1)

	headerStatsStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#E0E0E0")).
				Background(primaryColor).
				Padding(0, 1)

	headerContainerStyle = lipgloss.NewStyle().
				Background(primaryColor)

	// Launch view styles
	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)

	phaseDetailStyle = lipgloss.NewStyle().
				Foreground(mutedColor)

	readyStyle = lipgloss.NewStyle().
			Foreground(readyColor).
			Bold(true)

	dashboardURLStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Underline(true)

	// Failure panel styles
	failureTitleStyle = lipgloss.NewStyle().
				Foreground(errorColor).
				Bold(true)

	failureBodyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#E0E0E0"))

	failureHintStyle = lipgloss.NewStyle().
				Foreground(mutedColor)

	// Log tail styles
	logTitleStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Bold(true)

	logLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0A0A0"))

	logErrLineStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	logBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor)

	// Status bar style
	statusStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Padding(0, 1)
)
