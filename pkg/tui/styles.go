package tui

import "github.com/charmbracelet/lipgloss"

// --- Styles ---
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true)
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	boxStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)
	phraseHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#7D56F4")).
				Bold(true).
				Padding(0, 1)
	accountStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			Padding(0, 1)
	activeAccountStyle = accountStyle.
				BorderForeground(lipgloss.Color("#8878F4")).
				Background(lipgloss.Color("#2E2A4F"))
	accountTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA"))
	priceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0"))
	buttonStyle       = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#7D56F4")).
				Padding(0, 3).
				Bold(true)
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)
