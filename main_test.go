package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"multiwallet/pkg/config"
	"multiwallet/pkg/logger"
	"multiwallet/pkg/models"
	"multiwallet/pkg/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ethMain  = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
	ethSaved = "0x1234567890123456789012345678901234567890"
	solMain  = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	solSaved = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

	validPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
)

// nodeServer answers eth_chainId and getHealth.
func nodeServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		var result interface{}
		switch req.Method {
		case "eth_chainId":
			result = "0x1"
		case "getHealth":
			result = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	t.Cleanup(server.Close)
	return server
}

func writeConfig(t *testing.T, cfg config.Config) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func testConfig(rpcURL string) config.Config {
	cfg := config.Default()
	cfg.Ethereum.ActiveAddress = ethMain
	cfg.Ethereum.Accounts = []config.AccountConfig{{Address: ethMain, Name: "Main"}, {Address: ethSaved, Name: "Savings"}}
	cfg.Ethereum.RPCURLs = []string{rpcURL}
	cfg.Solana.ActiveAddress = solMain
	cfg.Solana.Accounts = []config.AccountConfig{{Address: solMain}}
	cfg.Solana.RPCURLs = []string{rpcURL}
	return cfg
}

func TestBuildCheckReport(t *testing.T) {
	node := nodeServer(t)
	path := writeConfig(t, testConfig(node.URL))

	var out bytes.Buffer
	report := buildCheckReport(context.Background(), path, validPhrase, &out)

	assert.True(t, report.ValidStructure)
	assert.Equal(t, 2, report.PairCount)
	assert.True(t, report.PhraseSet)
	assert.True(t, report.PhraseValid)
	require.Len(t, report.Chains, 2)

	eth := report.Chains[0]
	assert.Equal(t, models.ChainEthereum, eth.Chain)
	assert.Equal(t, 2, eth.AccountCount)
	assert.Equal(t, ethMain, eth.Active)
	require.Len(t, eth.RPCs, 1)
	assert.Equal(t, "ok", eth.RPCs[0].Status)

	sol := report.Chains[1]
	require.Len(t, sol.RPCs, 1)
	assert.Equal(t, "ok", sol.RPCs[0].Status)

	assert.Contains(t, out.String(), "OK (ChainID: 1)")
	assert.Contains(t, out.String(), "Recovery phrase: OK")
}

func TestBuildCheckReport_RPCFailure(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer down.Close()
	path := writeConfig(t, testConfig(down.URL))

	report := buildCheckReport(context.Background(), path, "not a phrase", &bytes.Buffer{})

	assert.True(t, report.ValidStructure)
	for _, c := range report.Chains {
		require.Len(t, c.RPCs, 1)
		assert.Equal(t, "error", c.RPCs[0].Status)
		assert.NotEmpty(t, c.RPCs[0].Error)
	}
	assert.True(t, report.PhraseSet)
	assert.False(t, report.PhraseValid)
}

func TestBuildCheckReport_InvalidConfig(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Solana.Accounts = append(cfg.Solana.Accounts, config.AccountConfig{Address: "not-base58-0OIl"})
	path := writeConfig(t, cfg)

	report := buildCheckReport(context.Background(), path, "", &bytes.Buffer{})

	assert.False(t, report.ValidStructure)
	require.Len(t, report.StructureErrors, 1)
	assert.Contains(t, report.StructureErrors[0], "solana")
	assert.Empty(t, report.Chains)
	assert.False(t, report.PhraseSet)
}

func TestBuildCheckReport_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ethereum":`), 0600))

	report := buildCheckReport(context.Background(), path, "", &bytes.Buffer{})
	assert.False(t, report.ValidStructure)
	assert.NotEmpty(t, report.StructureErrors)
}

func TestNewStore_PersistsToConfig(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Solana.Accounts = append(cfg.Solana.Accounts, config.AccountConfig{Address: solSaved})
	path := writeConfig(t, cfg)

	store := newStore(cfg, path)
	require.NoError(t, store.Dispatch(wallet.SetActiveAccount{
		Ethereum: models.AddressState{Address: ethSaved},
		Solana:   models.AddressState{Address: solSaved},
	}))

	saved, err := config.LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ethSaved, saved.Ethereum.ActiveAddress)
	assert.Equal(t, solSaved, saved.Solana.ActiveAddress)
	assert.Len(t, saved.Ethereum.Accounts, 2)
}

func TestStartServices_TUILogsToFileUntilWatcherStops(t *testing.T) {
	t.Cleanup(func() {
		logger.Close()
		logger.Init("info")
	})

	cfg := testConfig("http://127.0.0.1:1")
	cfg.Ethereum.CoinGeckoID = ""
	cfg.Solana.CoinGeckoID = ""
	path := writeConfig(t, cfg)
	logPath := filepath.Join(t.TempDir(), "tui.log")

	svc, err := startServices(context.Background(), cfg, path, false, logPath, "debug")
	require.NoError(t, err)
	assert.Equal(t, logPath, svc.logPath)
	svc.close()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"watcher"`)
	assert.Contains(t, string(data), "Watcher stopped")
}

func TestStartServices_ServerModeKeepsConsole(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Ethereum.CoinGeckoID = ""
	cfg.Solana.CoinGeckoID = ""
	path := writeConfig(t, cfg)

	svc, err := startServices(context.Background(), cfg, path, true, "", "info")
	require.NoError(t, err)
	defer svc.close()

	assert.Empty(t, svc.logPath)
	assert.Len(t, svc.closers, 1)
	assert.Equal(t, ethMain, svc.store.ActiveEthereumAddress())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriteReport(t *testing.T) {
	report := models.CheckReport{ConfigPath: "/tmp/config.json", ValidStructure: true, PairCount: 2}

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, report))
	var decoded models.CheckReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2, decoded.PairCount)

	err := writeReport(failingWriter{}, report)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write check report")
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestConfigArg(t *testing.T) {
	assert.Equal(t, "flag.json", configArg("flag.json", []string{"arg.json"}))
	assert.Equal(t, "arg.json", configArg("", []string{"arg.json"}))
	assert.Equal(t, "", configArg("", nil))
}
