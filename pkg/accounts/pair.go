// Package accounts merges the per-chain account lists of a wallet into the
// pairs shown by the account list.
package accounts

import (
	"fmt"
	"sort"

	"multiwallet/pkg/models"
)

// CompileInactiveAddresses pairs Ethereum and Solana accounts into display
// entries.
//
// Accounts are joined on AddressState.Index, in ascending index order. Within
// one index the k-th Ethereum account pairs with the k-th Solana account, so
// lists whose indices are unset pair positionally. A side without a
// counterpart is the empty placeholder, which is active only while that
// chain has no active address.
func CompileInactiveAddresses(ethAcc, solAcc []models.AddressState, activeEthAddress, activeSolAddress string) []models.WalletPair {
	ethByIdx := groupByIndex(ethAcc)
	solByIdx := groupByIndex(solAcc)

	keys := make([]int, 0, len(ethByIdx)+len(solByIdx))
	for k := range ethByIdx {
		keys = append(keys, k)
	}
	for k := range solByIdx {
		if _, ok := ethByIdx[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Ints(keys)

	pairs := make([]models.WalletPair, 0, max(len(ethAcc), len(solAcc)))
	for _, k := range keys {
		eths, sols := ethByIdx[k], solByIdx[k]
		for j := 0; j < max(len(eths), len(sols)); j++ {
			var eth, sol models.AddressState
			if j < len(eths) {
				eth = eths[j]
			}
			if j < len(sols) {
				sol = sols[j]
			}
			pairs = append(pairs, newPair(len(pairs), eth, sol, activeEthAddress, activeSolAddress))
		}
	}
	return pairs
}

func newPair(row int, eth, sol models.AddressState, activeEth, activeSol string) models.WalletPair {
	name := eth.AccountName
	if name == "" {
		name = sol.AccountName
	}
	return models.WalletPair{
		ID:              fmt.Sprintf("%d-%s", row, eth.Address),
		AccountName:     name,
		IsActiveAccount: isActive(eth, activeEth) && isActive(sol, activeSol),
		WalletDetails: models.WalletDetails{
			Ethereum: eth,
			Solana:   sol,
		},
	}
}

// A placeholder side matches only a chain with no active address.
func isActive(s models.AddressState, active string) bool {
	if s.IsEmpty() {
		return active == ""
	}
	return models.SameAddress(s.Address, active)
}

func groupByIndex(accs []models.AddressState) map[int][]models.AddressState {
	out := make(map[int][]models.AddressState, len(accs))
	for _, a := range accs {
		out[a.Index] = append(out[a.Index], a)
	}
	return out
}

// ActiveIndex returns the row of the active pair, or -1.
func ActiveIndex(pairs []models.WalletPair) int {
	for i, p := range pairs {
		if p.IsActiveAccount {
			return i
		}
	}
	return -1
}
