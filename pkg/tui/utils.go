package tui

import (
	"math/big"

	"multiwallet/pkg/models"
	"multiwallet/pkg/utils"
)

func (m model) fiatDecimals() int {
	if m.opts.Config.FiatDecimals > 0 {
		return m.opts.Config.FiatDecimals
	}
	return 2
}

func (m model) displayValue(f *big.Float) string {
	if m.privacyMode {
		return "****"
	}
	return "$" + utils.FormatBigFloat(f, m.fiatDecimals())
}

func (m model) maskAddress(addr string) string {
	if addr == "" {
		return "-"
	}
	if m.privacyMode {
		return "****...****"
	}
	return utils.ShortAddress(addr)
}

func (m model) pairValue(pair models.WalletPair) *big.Float {
	if m.opts.Balances == nil {
		return new(big.Float)
	}
	if v := m.opts.Balances.PairValue(pair); v != nil {
		return v
	}
	return new(big.Float)
}

func (m model) totalValue() float64 {
	total := new(big.Float)
	for _, p := range m.pairs {
		total.Add(total, m.pairValue(p))
	}
	return utils.BigFloatToFloat64(total)
}
