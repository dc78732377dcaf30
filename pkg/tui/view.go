package tui

import (
	"fmt"
	"strings"

	"multiwallet/pkg/utils"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/tyler-smith/go-bip39"
)

const (
	phraseColumns = 3
	maxNameWidth  = 24
)

func (m model) View() string {
	if m.route.Path == RouteSeedPhrase {
		return m.viewSeedPhrase()
	}
	if m.showHelp {
		return m.viewHelp()
	}
	if m.showGraph {
		return m.viewGraph()
	}
	return m.viewAccounts()
}

func (m model) viewAccounts() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Multiwallet %s", Version)))
	b.WriteString("\n\n")

	header := phraseHeaderStyle.Render("Secret Recovery Phrase") + "  " + subtleStyle.Render("view your secret words")
	b.WriteString(m.cursorMark(0) + header)
	b.WriteString("\n\n")

	if len(m.pairs) == 0 {
		b.WriteString(subtleStyle.Render("  No accounts yet."))
		b.WriteString("\n")
	}

	for i, pair := range m.pairs {
		name := pair.AccountName
		if name == "" {
			name = fmt.Sprintf("Account %d", i+1)
		}
		title := accountTitleStyle.Render(utils.TruncateString(name, maxNameWidth))
		if pair.IsActiveAccount {
			title += " " + infoStyle.Render("● active")
		}
		value := priceStyle.Render(m.displayValue(m.pairValue(pair)))

		lines := lipgloss.JoinVertical(lipgloss.Left,
			title+"  "+value,
			subtleStyle.Render("ETH ")+m.maskAddress(pair.WalletDetails.Ethereum.Address),
			subtleStyle.Render("SOL ")+m.maskAddress(pair.WalletDetails.Solana.Address),
		)

		style := accountStyle
		if pair.IsActiveAccount {
			style = activeAccountStyle
		}
		row := lipgloss.JoinHorizontal(lipgloss.Center, m.cursorMark(i+1), style.Render(lines))
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	button := "Create Wallet"
	if m.loading {
		button = m.spinner.View() + " Creating..."
	}
	b.WriteString(m.cursorMark(m.createRow()) + buttonStyle.Render(button))
	b.WriteString("\n\n")

	if m.statusMessage != "" {
		if strings.HasPrefix(m.statusMessage, "Error") {
			b.WriteString(errStyle.Render(m.statusMessage))
		} else {
			b.WriteString(infoStyle.Render(m.statusMessage))
		}
		b.WriteString("\n")
	}

	b.WriteString(subtleStyle.Render("↑/↓: navigate • enter: select • c: copy • r: refresh • g: graph • P: privacy • ?: help • q: quit"))
	return b.String()
}

func (m model) cursorMark(row int) string {
	if m.cursor == row {
		return cursorStyle.Render("> ")
	}
	return "  "
}

func (m model) viewSeedPhrase() string {
	readOnly := m.route.Param("readOnly") == "true"

	header := titleStyle.Render("Recovery Phrase")
	if readOnly {
		header += " " + subtleStyle.Render("[read-only]")
	}

	words := strings.Fields(m.opts.RecoveryPhrase)
	var body string
	if len(words) == 0 {
		body = subtleStyle.Render("No recovery phrase configured.")
	} else if m.privacyMode {
		body = subtleStyle.Render("Hidden while privacy mode is on.")
	} else {
		var rows []string
		for i := 0; i < len(words); i += phraseColumns {
			var cells []string
			for j := i; j < i+phraseColumns && j < len(words); j++ {
				cells = append(cells, fmt.Sprintf("%2d. %-10s", j+1, words[j]))
			}
			rows = append(rows, strings.Join(cells, "  "))
		}
		body = strings.Join(rows, "\n")
		if !bip39.IsMnemonicValid(m.opts.RecoveryPhrase) {
			body += "\n\n" + errStyle.Render("Warning: phrase does not pass the BIP-39 checksum")
		}
	}

	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "\n", body))

	footerText := "c: copy • esc/q: back"
	if readOnly {
		footerText = "esc/q: back"
	}
	parts := []string{content, "\n", subtleStyle.Render(footerText)}
	if m.statusMessage != "" {
		parts = append(parts, infoStyle.Render(m.statusMessage))
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, parts...))
}

func (m model) viewGraph() string {
	header := titleStyle.Render("Portfolio History")
	var graph, stats string
	if len(m.valueHistory) > 0 {
		latest := m.valueHistory[len(m.valueHistory)-1]
		stats = priceStyle.Render(fmt.Sprintf("Latest: $%s", utils.FormatFloat(latest, m.fiatDecimals())))
		if m.privacyMode {
			stats = priceStyle.Render("Latest: ****")
		}
		width := m.width - 10
		if width < 10 {
			width = 10
		}
		height := m.height - 12
		if height < 5 {
			height = 5
		}
		graph = asciigraph.Plot(m.valueHistory,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption("Portfolio Value History (USD)"),
		)
	} else {
		graph = "Not enough data to draw graph."
	}

	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, header, stats, "\n", graph))
	footer := subtleStyle.Render("g/q/esc: back")

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer))
}

func (m model) viewHelp() string {
	shortcuts := []string{
		"↑/k: Up",
		"↓/j: Down",
		"enter: Select Account / Open",
		"c: Copy Address",
		"r: Refresh Balances",
		"g: Value Graph",
		"P: Toggle Privacy",
		"q: Quit",
		"?: Toggle Help",
	}

	header := titleStyle.Render("Help: Accounts")
	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "\n", strings.Join(shortcuts, "\n")))
	footer := subtleStyle.Render("Press '?' or 'esc' to close")

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer),
	)
}
