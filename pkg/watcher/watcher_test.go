package watcher

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"multiwallet/pkg/config"
	"multiwallet/pkg/models"
	"multiwallet/pkg/utils"
	"multiwallet/pkg/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) FetchEthBalance(ctx context.Context, rpcURLs []string, address string) (models.BalanceData, error) {
	args := m.Called(rpcURLs, address)
	return args.Get(0).(models.BalanceData), args.Error(1)
}

func (m *MockDataSource) FetchSolBalance(ctx context.Context, rpcURLs []string, address string) (models.BalanceData, error) {
	args := m.Called(rpcURLs, address)
	return args.Get(0).(models.BalanceData), args.Error(1)
}

func (m *MockDataSource) FetchPrice(coinID string) (models.PriceData, error) {
	args := m.Called(coinID)
	return args.Get(0).(models.PriceData), args.Error(1)
}

var (
	eth = models.AddressState{Address: "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B", AccountName: "Main"}
	sol = models.AddressState{Address: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", AccountName: "Main"}
)

func testWatcher(ds DataSource) *Watcher {
	cfg := config.Default()
	cfg.Ethereum.RPCURLs = []string{"http://eth"}
	cfg.Solana.RPCURLs = []string{"http://sol"}
	store := wallet.NewStore(wallet.State{
		Ethereum: wallet.ChainState{ActiveAddress: eth, InactiveAddresses: []models.AddressState{eth}},
		Solana:   wallet.ChainState{ActiveAddress: sol, InactiveAddresses: []models.AddressState{sol}},
	})
	w := NewWatcher(cfg, store)
	w.SetDataSource(ds)
	return w
}

func TestSubscribeUnsubscribe(t *testing.T) {
	w := testWatcher(new(MockDataSource))
	sub := w.Subscribe()
	assert.NotNil(t, sub)

	w.mu.RLock()
	assert.Equal(t, 1, len(w.subscribers))
	w.mu.RUnlock()

	w.Unsubscribe(sub)
	w.mu.RLock()
	assert.Equal(t, 0, len(w.subscribers))
	w.mu.RUnlock()
}

func TestFetchAll(t *testing.T) {
	mockDS := new(MockDataSource)
	w := testWatcher(mockDS)

	mockDS.On("FetchPrice", "ethereum").Return(models.PriceData{CoinID: "ethereum", Price: 2000.0}, nil)
	mockDS.On("FetchPrice", "solana").Return(models.PriceData{CoinID: "solana", Price: 100.0}, nil)
	mockDS.On("FetchEthBalance", []string{"http://eth"}, eth.Address).Return(models.BalanceData{
		Chain: models.ChainEthereum, Address: eth.Address, Balance: big.NewFloat(1.5),
	}, nil)
	mockDS.On("FetchSolBalance", []string{"http://sol"}, sol.Address).Return(models.BalanceData{
		Chain: models.ChainSolana, Address: sol.Address, Balance: big.NewFloat(10),
	}, nil)

	sub := w.Subscribe()

	w.fetchAll(context.Background())

	mockDS.AssertExpectations(t)

	assert.Equal(t, 2000.0, w.GetPrices()["ethereum"])
	assert.Equal(t, 1.5, utils.BigFloatToFloat64(w.Balance(models.ChainEthereum, eth.Address)))
	assert.Equal(t, 10.0, utils.BigFloatToFloat64(w.GetBalances()[models.ChainSolana][sol.Address]))

	pair := models.WalletPair{WalletDetails: models.WalletDetails{Ethereum: eth, Solana: sol}}
	assert.Equal(t, 4000.0, utils.BigFloatToFloat64(w.PairValue(pair)))

	// 2 prices + 2 balances + refresh completed
	timeout := time.After(1 * time.Second)
	var last Event
	for i := 0; i < 5; i++ {
		select {
		case last = <-sub:
		case <-timeout:
			t.Fatalf("Timed out waiting for events, got %d", i)
		}
	}
	assert.Equal(t, EventRefreshCompleted, last.Type)
}

func TestFetchAll_BalanceFailure(t *testing.T) {
	mockDS := new(MockDataSource)
	w := testWatcher(mockDS)

	mockDS.On("FetchPrice", mock.Anything).Return(models.PriceData{}, errors.New("rate limited"))
	mockDS.On("FetchEthBalance", mock.Anything, mock.Anything).Return(models.BalanceData{Err: errors.New("down")}, errors.New("down"))
	mockDS.On("FetchSolBalance", mock.Anything, mock.Anything).Return(models.BalanceData{
		Chain: models.ChainSolana, Address: sol.Address, Balance: big.NewFloat(2),
	}, nil)

	w.fetchAll(context.Background())

	assert.Nil(t, w.Balance(models.ChainEthereum, eth.Address))
	assert.Empty(t, w.GetPrices())

	// Missing prices make the value zero rather than failing.
	pair := models.WalletPair{WalletDetails: models.WalletDetails{Ethereum: eth, Solana: sol}}
	assert.Equal(t, 0.0, utils.BigFloatToFloat64(w.PairValue(pair)))
}

func TestPairValue_Placeholder(t *testing.T) {
	w := testWatcher(new(MockDataSource))
	w.prices["solana"] = 100
	w.balances[models.ChainSolana][sol.Address] = big.NewFloat(3)
	w.balances[models.ChainSolana][""] = big.NewFloat(99)

	pair := models.WalletPair{WalletDetails: models.WalletDetails{Solana: sol}}
	assert.Equal(t, 300.0, utils.BigFloatToFloat64(w.PairValue(pair)))
}

func TestPollingLoop(t *testing.T) {
	mockDS := new(MockDataSource)
	w := testWatcher(mockDS)

	mockDS.On("FetchPrice", mock.Anything).Return(models.PriceData{}, nil).Maybe()
	mockDS.On("FetchEthBalance", mock.Anything, mock.Anything).Return(models.BalanceData{Balance: big.NewFloat(0)}, nil).Maybe()
	mockDS.On("FetchSolBalance", mock.Anything, mock.Anything).Return(models.BalanceData{Balance: big.NewFloat(0)}, nil).Maybe()

	sub := w.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	waitRefresh := func() {
		t.Helper()
		timeout := time.After(time.Second)
		for {
			select {
			case ev := <-sub:
				if ev.Type == EventRefreshCompleted {
					return
				}
			case <-timeout:
				t.Fatal("timed out waiting for refresh")
			}
		}
	}

	waitRefresh()
	w.Refresh()
	waitRefresh()
	w.Stop()
	w.Stop()
}

// blockingDataSource holds every balance fetch until its context ends.
type blockingDataSource struct {
	started chan struct{}
	once    sync.Once
}

func (b *blockingDataSource) wait(ctx context.Context, address string) (models.BalanceData, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return models.BalanceData{Address: address, Err: ctx.Err()}, ctx.Err()
}

func (b *blockingDataSource) FetchEthBalance(ctx context.Context, _ []string, address string) (models.BalanceData, error) {
	return b.wait(ctx, address)
}

func (b *blockingDataSource) FetchSolBalance(ctx context.Context, _ []string, address string) (models.BalanceData, error) {
	return b.wait(ctx, address)
}

func (b *blockingDataSource) FetchPrice(coinID string) (models.PriceData, error) {
	return models.PriceData{CoinID: coinID}, nil
}

func TestStop_CancelsAndWaits(t *testing.T) {
	ds := &blockingDataSource{started: make(chan struct{})}
	w := testWatcher(ds)
	sub := w.Subscribe()

	w.Start(context.Background())
	select {
	case <-ds.started:
	case <-time.After(time.Second):
		t.Fatal("fetch never started")
	}

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not cancel the in-flight fetch")
	}

	// The loop has returned, so the refresh it was running has completed.
	var completed bool
	for len(sub) > 0 {
		if ev := <-sub; ev.Type == EventRefreshCompleted {
			completed = true
		}
	}
	assert.True(t, completed)

	// Stop without a running loop is a no-op.
	w.Stop()
	NewWatcher(config.Default(), wallet.NewStore(wallet.State{})).Stop()
}
