package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED") // Purple
	accentColor  = lipgloss.Color("#10B981") // Green
	mutedColor   = lipgloss.Color("#6B7280") // Gray
	errorColor   = lipgloss.Color("#EF4444") // Red
	warningColor = lipgloss.Color("#F59E0B") // Amber

	// Tab bar styles
	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0A0A0")).
			Padding(0, 1)

	tabActiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Bold(true).
			Padding(0, 1)

	tabAttentionStyle = lipgloss.NewStyle().
				Foreground(warningColor).
				Bold(true).
				Padding(0, 1)

	tabBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#2D2D2D"))

	// Chat styles
	chatUserStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	chatAssistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	chatToolStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	chatResultStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	chatErrStyle       = lipgloss.NewStyle().Foreground(errorColor)
	chatSystemStyle    = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)

	chatEmptyStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(1, 2)

	// Markdown styles
	mdHeadingStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	mdCodeStyle    = lipgloss.NewStyle().Foreground(accentColor)
	mdEmphStyle    = lipgloss.NewStyle().Italic(true)
	mdStrongStyle  = lipgloss.NewStyle().Bold(true)

	// Permission prompt styles
	permPromptStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#4B3B2B")).
			Padding(0, 1)

	permLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true)

	permToolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)

	// Input line styles
	inputLineStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#2D2D2D")).
			Padding(0, 1)

	inputLineFocusedStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#3B3B3B")).
				Padding(0, 1)

	// Status bar styles
	statusStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	modeStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Padding(0, 1)

	errorBarStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Padding(0, 1)

	// Session picker styles
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(primaryColor).
				Padding(0, 1)

	pickerRowStyle = lipgloss.NewStyle().
			Padding(0, 2)

	pickerSelectedStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#3B3B3B")).
				Padding(0, 2)
)
