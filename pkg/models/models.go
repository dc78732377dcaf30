package models

import (
	"math/big"
	"strings"
)

// Chain identifies one of the two chains a wallet holds accounts on.
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainSolana   Chain = "solana"
)

// AddressState is one account's identity on a given chain.
// The zero value is the placeholder used when a chain has no counterpart.
type AddressState struct {
	Address     string `json:"address"`
	AccountName string `json:"accountName"`
	Index       int    `json:"index"` // Account (derivation) index, the pairing key
}

// IsEmpty reports whether s is the placeholder.
func (s AddressState) IsEmpty() bool {
	return s.Address == ""
}

// AddressKey normalizes an address for comparison. Hex (Ethereum) addresses
// are case-insensitive; base58 (Solana) addresses are not.
func AddressKey(address string) string {
	if strings.HasPrefix(address, "0x") || strings.HasPrefix(address, "0X") {
		return strings.ToLower(address)
	}
	return address
}

// SameAddress reports whether a and b name the same account.
func SameAddress(a, b string) bool {
	return AddressKey(a) == AddressKey(b)
}

// WalletDetails holds both chain sides of a pair.
type WalletDetails struct {
	Ethereum AddressState `json:"ethereum"`
	Solana   AddressState `json:"solana"`
}

// WalletPair is a derived, view-only entry of the account list.
type WalletPair struct {
	ID              string        `json:"id"`
	AccountName     string        `json:"accountName"`
	IsActiveAccount bool          `json:"isActiveAccount"`
	WalletDetails   WalletDetails `json:"walletDetails"`
}

// BalanceData contains the native balance of one address.
type BalanceData struct {
	Chain      Chain
	Address    string
	Balance    *big.Float
	FailedRPCs []string
	Err        error
}

// PriceData contains the current price in USD of a coin.
type PriceData struct {
	CoinID string
	Price  float64
	Err    error
}

// ChainResult holds check results for a specific chain.
type ChainResult struct {
	Chain        Chain       `json:"chain"`
	AccountCount int         `json:"account_count"`
	Active       string      `json:"active_address,omitempty"`
	RPCs         []RPCResult `json:"rpcs"`
}

// RPCResult holds check results for a specific RPC URL.
type RPCResult struct {
	URL    string `json:"url"`
	Status string `json:"status"` // "ok" or "error"
	Error  string `json:"error,omitempty"`
}

// CheckReport holds the results of the configuration check.
type CheckReport struct {
	ConfigPath      string        `json:"config_path"`
	ValidStructure  bool          `json:"valid_structure"`
	StructureErrors []string      `json:"structure_errors,omitempty"`
	PairCount       int           `json:"pair_count"`
	Chains          []ChainResult `json:"chains,omitempty"`
	PhraseSet       bool          `json:"recovery_phrase_set"`
	PhraseValid     bool          `json:"recovery_phrase_valid"`
}
