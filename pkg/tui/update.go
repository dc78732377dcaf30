package tui

import (
	"fmt"
	"time"

	"multiwallet/pkg/logger"
	"multiwallet/pkg/models"
	"multiwallet/pkg/utils"
	"multiwallet/pkg/wallet"
	"multiwallet/pkg/watcher"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const maxValueHistory = 2880

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case wallet.Event:
		m.derive()
		cmds = append(cmds, listenForStore(m.opts.StoreEvents))

	case watcher.Event:
		cmds = append(cmds, listenForWatcher(m.balanceEvents))
		if msg.Type == watcher.EventRefreshCompleted {
			m.valueHistory = append(m.valueHistory, m.totalValue())
			if len(m.valueHistory) > maxValueHistory {
				m.valueHistory = m.valueHistory[len(m.valueHistory)-maxValueHistory:]
			}
		}

	case navigateMsg:
		m.route = msg.route
		m.showHelp = false
		m.showGraph = false

	case walletCreatedMsg:
		m.loading = false
		if msg.err != nil {
			logger.TUI.Error().Err(msg.err).Msg("Wallet creation failed")
			m.statusMessage = fmt.Sprintf("Error: %v", msg.err)
			break
		}
		if err := m.opts.Dispatch(msg.account); err != nil {
			logger.TUI.Error().Err(err).Msg("Adding created wallet failed")
			m.statusMessage = fmt.Sprintf("Error: %v", err)
			break
		}
		// the store event re-derives the list; this covers stores without one
		m.derive()
		m.statusMessage = "Wallet created!"
		cmds = append(cmds, clearStatusAfter(2*time.Second))

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case clearStatusMsg:
		m.statusMessage = ""

	case privacyTimeoutMsg:
		if m.opts.Config.PrivacyTimeoutSeconds <= 0 {
			break
		}
		timeoutDuration := time.Duration(m.opts.Config.PrivacyTimeoutSeconds) * time.Second
		if !m.privacyMode {
			if time.Since(m.lastInteraction) >= timeoutDuration {
				m.privacyMode = true
				m.statusMessage = "Privacy Mode enabled due to inactivity"
				cmds = append(cmds, clearStatusAfter(2*time.Second))
			} else {
				remaining := timeoutDuration - time.Since(m.lastInteraction)
				cmds = append(cmds, tea.Tick(remaining, func(t time.Time) tea.Msg {
					return privacyTimeoutMsg{}
				}))
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		m.lastInteraction = time.Now()
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.route.Path == RouteSeedPhrase {
			return m.updateSeedPhrase(msg)
		}
		return m.updateAccounts(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m model) updateSeedPhrase(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "backspace":
		m.route = Route{Path: RouteAccounts}
	case "c":
		if m.route.Param("readOnly") == "true" {
			m.statusMessage = "Recovery phrase is read-only"
			return m, clearStatusAfter(2 * time.Second)
		}
		if err := clipboard.WriteAll(m.opts.RecoveryPhrase); err != nil {
			m.statusMessage = fmt.Sprintf("Error: %v", err)
			return m, nil
		}
		m.statusMessage = "Recovery phrase copied!"
		return m, clearStatusAfter(2 * time.Second)
	}
	return m, nil
}

func (m model) updateAccounts(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "?" {
		m.showHelp = !m.showHelp
		return m, nil
	}
	if m.showHelp {
		if msg.String() == "q" || msg.String() == "esc" {
			m.showHelp = false
		}
		return m, nil
	}
	if m.showGraph {
		if msg.String() == "q" || msg.String() == "esc" || msg.String() == "g" {
			m.showGraph = false
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < m.createRow() {
			m.cursor++
		}
	case "g":
		m.showGraph = true
	case "P":
		m.privacyMode = !m.privacyMode
		if !m.privacyMode && m.opts.Config.PrivacyTimeoutSeconds > 0 {
			return m, tea.Tick(time.Duration(m.opts.Config.PrivacyTimeoutSeconds)*time.Second, func(t time.Time) tea.Msg {
				return privacyTimeoutMsg{}
			})
		}
	case "r":
		if m.opts.Balances != nil {
			m.opts.Balances.Refresh()
			m.statusMessage = "Refreshing balances..."
			return m, clearStatusAfter(2 * time.Second)
		}
	case "c":
		pair, ok := m.selectedPair()
		if !ok {
			break
		}
		addr := pair.WalletDetails.Ethereum.Address
		if addr == "" {
			addr = pair.WalletDetails.Solana.Address
		}
		if err := clipboard.WriteAll(addr); err != nil {
			m.statusMessage = fmt.Sprintf("Error: %v", err)
			return m, nil
		}
		m.statusMessage = fmt.Sprintf("Copied %s", utils.ShortAddress(addr))
		return m, clearStatusAfter(2 * time.Second)
	case "enter", " ":
		return m.activate()
	}
	return m, nil
}

// activate runs the action of the row under the cursor.
func (m model) activate() (tea.Model, tea.Cmd) {
	switch {
	case m.cursor == 0:
		return m, m.nav.Push(Route{
			Path:   RouteSeedPhrase,
			Params: map[string]string{"readOnly": "true"},
		})

	case m.cursor == m.createRow():
		if m.loading {
			return m, nil
		}
		m.loading = true
		cmds := []tea.Cmd{m.spinner.Tick}
		if m.opts.Creator != nil {
			cmds = append(cmds, createWallet(m.opts.Creator))
		}
		return m, tea.Batch(cmds...)

	default:
		pair, ok := m.selectedPair()
		if !ok {
			return m, nil
		}
		return m.selectAccount(pair)
	}
}

func (m model) selectAccount(pair models.WalletPair) (tea.Model, tea.Cmd) {
	err := m.opts.Dispatch(wallet.SetActiveAccount{
		Ethereum: pair.WalletDetails.Ethereum,
		Solana:   pair.WalletDetails.Solana,
	})
	if err != nil {
		logger.TUI.Error().Err(err).Str("account", pair.AccountName).Msg("Set active account failed")
		m.statusMessage = fmt.Sprintf("Error: %v", err)
		return m, nil
	}
	m.derive()
	m.statusMessage = fmt.Sprintf("Switched to %s", pair.AccountName)
	return m, clearStatusAfter(2 * time.Second)
}

func (m model) selectedPair() (models.WalletPair, bool) {
	i := m.cursor - 1
	if i < 0 || i >= len(m.pairs) {
		return models.WalletPair{}, false
	}
	return m.pairs[i], true
}
