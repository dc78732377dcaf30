package tui

import (
	"context"
	"math/big"
	"time"

	"multiwallet/pkg/accounts"
	"multiwallet/pkg/config"
	"multiwallet/pkg/models"
	"multiwallet/pkg/wallet"
	"multiwallet/pkg/watcher"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Version is set by Start()
var Version = "dev"

const walletCreateTimeout = 2 * time.Minute

// Selectors is the read side of the wallet store.
type Selectors interface {
	ActiveEthereumAddress() string
	ActiveSolanaAddress() string
	InactiveEthereumAddresses() []models.AddressState
	InactiveSolanaAddresses() []models.AddressState
}

// Dispatcher sends an action to the wallet store.
type Dispatcher func(wallet.Action) error

// WalletCreator creates a new account pair. Key generation lives behind it.
type WalletCreator interface {
	CreateWallet(ctx context.Context) (wallet.AddAccount, error)
}

// BalanceSource provides fiat values for list rows.
type BalanceSource interface {
	PairValue(pair models.WalletPair) *big.Float
	Subscribe() watcher.Subscriber
	Refresh()
}

// Options are the dependencies of the account list.
type Options struct {
	Selectors Selectors
	Dispatch  Dispatcher
	// StoreEvents delivers wallet state changes; the list is re-derived on
	// each one. May be nil.
	StoreEvents wallet.Subscriber
	// Navigator defaults to Router.
	Navigator Navigator
	// Creator may be nil, in which case "Create Wallet" only shows the
	// loading state.
	Creator        WalletCreator
	Balances       BalanceSource
	RecoveryPhrase string
	Config         config.GlobalConfig
}

// --- Messages ---

type clearStatusMsg struct{}
type privacyTimeoutMsg struct{}

type walletCreatedMsg struct {
	account wallet.AddAccount
	err     error
}

// --- Model ---

type model struct {
	opts          Options
	nav           Navigator
	balanceEvents watcher.Subscriber

	route         Route
	pairs         []models.WalletPair
	cursor        int // 0: recovery phrase header, 1..len(pairs): accounts, len(pairs)+1: create button
	loading       bool
	spinner       spinner.Model
	statusMessage string
	valueHistory  []float64

	showHelp        bool
	showGraph       bool
	privacyMode     bool
	lastInteraction time.Time
	width           int
	height          int
}

func newModel(opts Options) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	nav := opts.Navigator
	if nav == nil {
		nav = Router{}
	}

	m := model{
		opts:            opts,
		nav:             nav,
		route:           Route{Path: RouteAccounts},
		spinner:         s,
		lastInteraction: time.Now(),
	}
	if opts.Balances != nil {
		m.balanceEvents = opts.Balances.Subscribe()
	}
	m.derive()
	if i := accounts.ActiveIndex(m.pairs); i >= 0 {
		m.cursor = i + 1
	}
	return m
}

// derive rebuilds the merged list from the current store values.
func (m *model) derive() {
	sel := m.opts.Selectors
	m.pairs = accounts.CompileInactiveAddresses(
		sel.InactiveEthereumAddresses(),
		sel.InactiveSolanaAddresses(),
		sel.ActiveEthereumAddress(),
		sel.ActiveSolanaAddress(),
	)
	if m.cursor > m.createRow() {
		m.cursor = m.createRow()
	}
}

func (m model) createRow() int {
	return len(m.pairs) + 1
}

func (m model) Init() tea.Cmd {
	var cmds []tea.Cmd

	if m.opts.StoreEvents != nil {
		cmds = append(cmds, listenForStore(m.opts.StoreEvents))
	}
	if m.balanceEvents != nil {
		cmds = append(cmds, listenForWatcher(m.balanceEvents))
	}

	if m.opts.Config.PrivacyTimeoutSeconds > 0 {
		cmds = append(cmds, tea.Tick(time.Duration(m.opts.Config.PrivacyTimeoutSeconds)*time.Second, func(t time.Time) tea.Msg {
			return privacyTimeoutMsg{}
		}))
	}
	return tea.Batch(cmds...)
}

func listenForStore(sub wallet.Subscriber) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return nil
		}
		return ev
	}
}

func listenForWatcher(sub watcher.Subscriber) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return nil
		}
		return ev
	}
}

func createWallet(c WalletCreator) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), walletCreateTimeout)
		defer cancel()
		acc, err := c.CreateWallet(ctx)
		return walletCreatedMsg{account: acc, err: err}
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
