package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	neturl "net/url"
	"time"

	"multiwallet/pkg/logger"
	"multiwallet/pkg/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
)

var CoinGeckoBaseURL = "https://api.coingecko.com/api/v3"
var BalanceTimeout = 15 * time.Second

var httpClient = &http.Client{Timeout: 10 * time.Second}

// FetchEthBalance fetches the ETH balance of address, trying each RPC URL in
// turn until one answers.
func FetchEthBalance(ctx context.Context, rpcURLs []string, address string) (models.BalanceData, error) {
	var failed []string
	var lastErr error
	account := common.HexToAddress(address)

	for _, rpcURL := range rpcURLs {
		cctx, cancel := context.WithTimeout(ctx, BalanceTimeout)
		client, err := ethclient.DialContext(cctx, rpcURL)
		if err != nil {
			cancel()
			failed = append(failed, rpcURL)
			lastErr = err
			continue
		}
		balance, err := client.BalanceAt(cctx, account, nil)
		client.Close()
		cancel()
		if err != nil {
			logger.RPC.Debug().Err(err).Str("rpc", rpcURL).Str("address", address).Msg("eth_getBalance failed")
			failed = append(failed, rpcURL)
			lastErr = err
			continue
		}
		fBalance := new(big.Float).SetInt(balance)
		fBalance.Quo(fBalance, big.NewFloat(1e18))
		return models.BalanceData{Chain: models.ChainEthereum, Address: address, Balance: fBalance, FailedRPCs: failed}, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no RPC URLs configured")
	}
	return models.BalanceData{Chain: models.ChainEthereum, Address: address, FailedRPCs: failed, Err: lastErr}, lastErr
}

// FetchSolBalance fetches the SOL balance of address, trying each RPC URL in
// turn until one answers.
func FetchSolBalance(ctx context.Context, rpcURLs []string, address string) (models.BalanceData, error) {
	pub, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		err = fmt.Errorf("invalid solana address %q: %w", address, err)
		return models.BalanceData{Chain: models.ChainSolana, Address: address, Err: err}, err
	}

	var failed []string
	var lastErr error

	for _, rpcURL := range rpcURLs {
		cctx, cancel := context.WithTimeout(ctx, BalanceTimeout)
		out, err := solrpc.New(rpcURL).GetBalance(cctx, pub, solrpc.CommitmentConfirmed)
		cancel()
		if err != nil {
			logger.RPC.Debug().Err(err).Str("rpc", rpcURL).Str("address", address).Msg("getBalance failed")
			failed = append(failed, rpcURL)
			lastErr = err
			continue
		}
		fBalance := new(big.Float).SetUint64(out.Value)
		fBalance.Quo(fBalance, new(big.Float).SetUint64(solana.LAMPORTS_PER_SOL))
		return models.BalanceData{Chain: models.ChainSolana, Address: address, Balance: fBalance, FailedRPCs: failed}, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no RPC URLs configured")
	}
	return models.BalanceData{Chain: models.ChainSolana, Address: address, FailedRPCs: failed, Err: lastErr}, lastErr
}

// FetchPrice fetches the current price in USD of coinID from CoinGecko.
func FetchPrice(coinID string) (models.PriceData, error) {
	if coinID == "" {
		return models.PriceData{CoinID: coinID, Price: 0}, nil
	}
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", CoinGeckoBaseURL, neturl.QueryEscape(coinID))
	resp, err := httpClient.Get(url)
	if err != nil {
		return models.PriceData{CoinID: coinID, Err: err}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("coingecko: unexpected status %s", resp.Status)
		return models.PriceData{CoinID: coinID, Err: err}, err
	}

	var result map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.PriceData{CoinID: coinID, Err: err}, err
	}
	price, ok := result[coinID]["usd"]
	if !ok {
		err := fmt.Errorf("coingecko: no usd price for %s", coinID)
		return models.PriceData{CoinID: coinID, Err: err}, err
	}
	return models.PriceData{CoinID: coinID, Price: price}, nil
}

// CheckEthRPC reports the chain ID served by rpcURL.
func CheckEthRPC(ctx context.Context, rpcURL string) (*big.Int, error) {
	cctx, cancel := context.WithTimeout(ctx, BalanceTimeout)
	defer cancel()
	client, err := ethclient.DialContext(cctx, rpcURL)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.ChainID(cctx)
}

// CheckSolRPC reports an error unless rpcURL answers getHealth with "ok".
func CheckSolRPC(ctx context.Context, rpcURL string) error {
	cctx, cancel := context.WithTimeout(ctx, BalanceTimeout)
	defer cancel()
	health, err := solrpc.New(rpcURL).GetHealth(cctx)
	if err != nil {
		return err
	}
	if health != solrpc.HealthOk {
		return fmt.Errorf("node unhealthy: %s", health)
	}
	return nil
}
