package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Start runs the account list until the user quits.
func Start(opts Options, version string) error {
	Version = version
	p := tea.NewProgram(newModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
