package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"multiwallet/pkg/models"
	"multiwallet/pkg/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
)

const ConfigFileName = ".multiwallet.json"

// RecoveryPhraseEnv names the environment variable holding the recovery phrase.
const RecoveryPhraseEnv = "MULTIWALLET_RECOVERY_PHRASE"

// AccountConfig holds one account of a chain.
type AccountConfig struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	Index   *int   `json:"index,omitempty"`
}

// ChainConfig holds the accounts and endpoints of one chain.
type ChainConfig struct {
	ActiveAddress string          `json:"active_address,omitempty"`
	Accounts      []AccountConfig `json:"accounts"`
	RPCURLs       []string        `json:"rpc_urls"`
	CoinGeckoID   string          `json:"coingecko_id,omitempty"`
}

// GlobalConfig holds application-wide settings.
type GlobalConfig struct {
	RefreshIntervalSeconds int `json:"refresh_interval_seconds"`
	FiatDecimals           int `json:"fiat_decimals"`
	PrivacyTimeoutSeconds  int `json:"privacy_timeout_seconds"`
}

// Config is the content of the config file.
type Config struct {
	Ethereum ChainConfig `json:"ethereum"`
	Solana   ChainConfig `json:"solana"`
	GlobalConfig
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Ethereum: ChainConfig{
			RPCURLs:     []string{"https://eth.llamarpc.com"},
			CoinGeckoID: "ethereum",
		},
		Solana: ChainConfig{
			RPCURLs:     []string{"https://api.mainnet-beta.solana.com"},
			CoinGeckoID: "solana",
		},
		GlobalConfig: GlobalConfig{
			RefreshIntervalSeconds: 30,
			FiatDecimals:           2,
			PrivacyTimeoutSeconds:  60,
		},
	}
}

func GetConfigPath(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

func LoadConfigFromFile(path string) (Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()
	return LoadConfig(f)
}

// LoadConfig decodes a config, filling unset values with defaults.
func LoadConfig(r io.Reader) (Config, error) {
	var raw struct {
		Ethereum               *ChainConfig `json:"ethereum"`
		Solana                 *ChainConfig `json:"solana"`
		RefreshIntervalSeconds *int         `json:"refresh_interval_seconds"`
		FiatDecimals           *int         `json:"fiat_decimals"`
		PrivacyTimeoutSeconds  *int         `json:"privacy_timeout_seconds"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if raw.Ethereum != nil {
		cfg.Ethereum = mergeChain(cfg.Ethereum, *raw.Ethereum)
	}
	if raw.Solana != nil {
		cfg.Solana = mergeChain(cfg.Solana, *raw.Solana)
	}
	if raw.RefreshIntervalSeconds != nil {
		cfg.RefreshIntervalSeconds = *raw.RefreshIntervalSeconds
	}
	if raw.FiatDecimals != nil {
		cfg.FiatDecimals = *raw.FiatDecimals
	}
	if raw.PrivacyTimeoutSeconds != nil {
		cfg.PrivacyTimeoutSeconds = *raw.PrivacyTimeoutSeconds
	}
	return cfg, nil
}

func mergeChain(def, c ChainConfig) ChainConfig {
	if len(c.RPCURLs) == 0 {
		c.RPCURLs = def.RPCURLs
	}
	if c.CoinGeckoID == "" {
		c.CoinGeckoID = def.CoinGeckoID
	}
	for i := range c.Accounts {
		c.Accounts[i].Address = strings.TrimSpace(c.Accounts[i].Address)
	}
	c.ActiveAddress = strings.TrimSpace(c.ActiveAddress)
	return c
}

// Validate checks addresses and settings.
func (c Config) Validate() error {
	if err := validateChain(models.ChainEthereum, c.Ethereum, IsEthereumAddress); err != nil {
		return err
	}
	if err := validateChain(models.ChainSolana, c.Solana, IsSolanaAddress); err != nil {
		return err
	}
	if c.RefreshIntervalSeconds <= 0 {
		return fmt.Errorf("validation failed: refresh interval must be positive, got %d", c.RefreshIntervalSeconds)
	}
	return nil
}

func validateChain(chain models.Chain, c ChainConfig, valid func(string) bool) error {
	seen := make(map[string]bool)
	for i, a := range c.Accounts {
		if !valid(a.Address) {
			return fmt.Errorf("validation failed: %s account at index %d has invalid address %q", chain, i, a.Address)
		}
		key := models.AddressKey(a.Address)
		if seen[key] {
			return fmt.Errorf("validation failed: %s address %s listed twice", chain, a.Address)
		}
		seen[key] = true
	}
	if c.ActiveAddress != "" && !seen[models.AddressKey(c.ActiveAddress)] {
		return fmt.Errorf("validation failed: %s active address %s is not one of its accounts", chain, c.ActiveAddress)
	}
	return nil
}

// IsEthereumAddress reports whether s is a hex encoded Ethereum address.
func IsEthereumAddress(s string) bool {
	return common.IsHexAddress(s)
}

// IsSolanaAddress reports whether s is a base58 encoded 32 byte public key.
func IsSolanaAddress(s string) bool {
	_, err := solana.PublicKeyFromBase58(s)
	return err == nil
}

// State converts the config into wallet state. Accounts without an explicit
// index take their position in the list.
func (c Config) State() wallet.State {
	return wallet.State{
		Ethereum: chainState(c.Ethereum),
		Solana:   chainState(c.Solana),
	}
}

func chainState(c ChainConfig) wallet.ChainState {
	var cs wallet.ChainState
	for i, a := range c.Accounts {
		idx := i
		if a.Index != nil {
			idx = *a.Index
		}
		acc := models.AddressState{Address: a.Address, AccountName: a.Name, Index: idx}
		cs.InactiveAddresses = append(cs.InactiveAddresses, acc)
		if models.SameAddress(a.Address, c.ActiveAddress) {
			cs.ActiveAddress = acc
		}
	}
	return cs
}

// ApplyState writes the accounts and active addresses of s into c.
func (c *Config) ApplyState(s wallet.State) {
	c.Ethereum = applyChain(c.Ethereum, s.Ethereum)
	c.Solana = applyChain(c.Solana, s.Solana)
}

func applyChain(c ChainConfig, s wallet.ChainState) ChainConfig {
	c.ActiveAddress = s.ActiveAddress.Address
	c.Accounts = make([]AccountConfig, 0, len(s.InactiveAddresses))
	for _, a := range s.InactiveAddresses {
		idx := a.Index
		c.Accounts = append(c.Accounts, AccountConfig{Address: a.Address, Name: a.AccountName, Index: &idx})
	}
	return c
}

// LoadRecoveryPhrase reads the recovery phrase from the environment, after
// loading a .env file from the working directory or next to configPath.
func LoadRecoveryPhrase(configPath string) string {
	_ = godotenv.Load()
	if configPath != "" {
		_ = godotenv.Load(filepath.Join(filepath.Dir(configPath), ".env"))
	}
	return strings.Join(strings.Fields(os.Getenv(RecoveryPhraseEnv)), " ")
}

func SaveConfig(cfg Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return fmt.Errorf("validation failed: encoded configuration is empty")
	}

	// Create a backup of the existing file
	if _, err := os.Stat(path); err == nil {
		backupPath := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405.000"))
		input, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read existing config for backup: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0600); err != nil {
			return fmt.Errorf("failed to write backup config: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func RestoreLastBackup(configPath string) error {
	matches, err := filepath.Glob(configPath + ".*.bak")
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no backup files found")
	}
	sort.Strings(matches)
	lastBackup := matches[len(matches)-1]

	data, err := os.ReadFile(lastBackup)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0600)
}
