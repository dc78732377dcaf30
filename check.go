package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"multiwallet/pkg/accounts"
	"multiwallet/pkg/config"
	"multiwallet/pkg/models"
	"multiwallet/pkg/rpc"

	"github.com/tyler-smith/go-bip39"
)

// rpcChecker tests one endpoint of a chain.
type rpcChecker func(ctx context.Context, url string) (string, error)

func checkEth(ctx context.Context, url string) (string, error) {
	id, err := rpc.CheckEthRPC(ctx, url)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ChainID: %s", id), nil
}

func checkSol(ctx context.Context, url string) (string, error) {
	if err := rpc.CheckSolRPC(ctx, url); err != nil {
		return "", err
	}
	return "healthy", nil
}

func runCheck(ctx context.Context, cfgInput string, jsonOutput bool) error {
	path, err := config.GetConfigPath(cfgInput)
	if err != nil {
		return fmt.Errorf("error determining config path: %w", err)
	}

	var out io.Writer = os.Stdout
	if jsonOutput {
		out = io.Discard
	}
	fmt.Fprintf(out, "Testing configuration at: %s\n", path)

	report := buildCheckReport(ctx, path, config.LoadRecoveryPhrase(path), out)

	if jsonOutput {
		if err := writeReport(os.Stdout, report); err != nil {
			return err
		}
	}
	if !report.ValidStructure {
		return fmt.Errorf("configuration at %s is invalid", path)
	}
	return nil
}

func writeReport(w io.Writer, report models.CheckReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write check report: %w", err)
	}
	return nil
}

// buildCheckReport validates the config at path, tests every RPC URL and
// writes human readable progress to out.
func buildCheckReport(ctx context.Context, path, phrase string, out io.Writer) models.CheckReport {
	report := models.CheckReport{ConfigPath: path, ValidStructure: true}

	cfg, err := config.LoadConfigFromFile(path)
	if err != nil {
		report.ValidStructure = false
		report.StructureErrors = append(report.StructureErrors, err.Error())
		fmt.Fprintf(out, "Error: %v\n", err)
		return report
	}
	if err := cfg.Validate(); err != nil {
		report.ValidStructure = false
		report.StructureErrors = append(report.StructureErrors, err.Error())
		fmt.Fprintf(out, "Error: %v\n", err)
		return report
	}

	state := cfg.State()
	pairs := accounts.CompileInactiveAddresses(
		state.Ethereum.InactiveAddresses,
		state.Solana.InactiveAddresses,
		state.Ethereum.ActiveAddress.Address,
		state.Solana.ActiveAddress.Address,
	)
	report.PairCount = len(pairs)
	fmt.Fprintf(out, "Found %d Ethereum and %d Solana accounts in %d pairs.\n",
		len(cfg.Ethereum.Accounts), len(cfg.Solana.Accounts), len(pairs))

	report.Chains = append(report.Chains,
		checkChain(ctx, models.ChainEthereum, cfg.Ethereum, checkEth, out),
		checkChain(ctx, models.ChainSolana, cfg.Solana, checkSol, out),
	)

	report.PhraseSet = phrase != ""
	report.PhraseValid = report.PhraseSet && bip39.IsMnemonicValid(phrase)
	switch {
	case !report.PhraseSet:
		fmt.Fprintf(out, "Recovery phrase: not set (%s)\n", config.RecoveryPhraseEnv)
	case report.PhraseValid:
		fmt.Fprintln(out, "Recovery phrase: OK")
	default:
		fmt.Fprintln(out, "Recovery phrase: WARNING, fails the BIP-39 checksum")
	}

	return report
}

func checkChain(ctx context.Context, chain models.Chain, c config.ChainConfig, check rpcChecker, out io.Writer) models.ChainResult {
	res := models.ChainResult{
		Chain:        chain,
		AccountCount: len(c.Accounts),
		Active:       c.ActiveAddress,
	}
	fmt.Fprintf(out, "Testing Chain: %s\n", chain)
	for _, url := range c.RPCURLs {
		r := models.RPCResult{URL: url}
		fmt.Fprintf(out, "  RPC: %s ... ", url)
		info, err := check(ctx, url)
		if err != nil {
			r.Status = "error"
			r.Error = err.Error()
			fmt.Fprintf(out, "Failed: %v\n", err)
		} else {
			r.Status = "ok"
			fmt.Fprintf(out, "OK (%s)\n", info)
		}
		res.RPCs = append(res.RPCs, r)
	}
	return res
}
