package tui

import tea "github.com/charmbracelet/bubbletea"

const (
	RouteAccounts   = "/accounts"
	RouteSeedPhrase = "/seed-phrase"
)

// Route is a named screen plus its parameters.
type Route struct {
	Path   string
	Params map[string]string
}

// Param returns the named parameter, or "".
func (r Route) Param(name string) string {
	return r.Params[name]
}

// Navigator pushes routes. The returned command, if any, is run by the
// program.
type Navigator interface {
	Push(r Route) tea.Cmd
}

type navigateMsg struct {
	route Route
}

// Router is the program's own navigator: it switches the screen shown by
// the model.
type Router struct{}

func (Router) Push(r Route) tea.Cmd {
	return func() tea.Msg {
		return navigateMsg{route: r}
	}
}
