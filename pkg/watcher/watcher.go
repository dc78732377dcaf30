package watcher

import (
	"context"
	"math/big"
	"sync"
	"time"

	"multiwallet/pkg/config"
	"multiwallet/pkg/logger"
	"multiwallet/pkg/models"
	"multiwallet/pkg/rpc"
)

// DataSource defines the interface for fetching data.
type DataSource interface {
	FetchEthBalance(ctx context.Context, rpcURLs []string, address string) (models.BalanceData, error)
	FetchSolBalance(ctx context.Context, rpcURLs []string, address string) (models.BalanceData, error)
	FetchPrice(coinID string) (models.PriceData, error)
}

// RealDataSource implements DataSource using the rpc package.
type RealDataSource struct{}

func (d *RealDataSource) FetchEthBalance(ctx context.Context, rpcURLs []string, address string) (models.BalanceData, error) {
	return rpc.FetchEthBalance(ctx, rpcURLs, address)
}

func (d *RealDataSource) FetchSolBalance(ctx context.Context, rpcURLs []string, address string) (models.BalanceData, error) {
	return rpc.FetchSolBalance(ctx, rpcURLs, address)
}

func (d *RealDataSource) FetchPrice(coinID string) (models.PriceData, error) {
	return rpc.FetchPrice(coinID)
}

// AddressSource lists the accounts to watch. *wallet.Store satisfies it.
type AddressSource interface {
	InactiveEthereumAddresses() []models.AddressState
	InactiveSolanaAddresses() []models.AddressState
}

// Watcher polls balances and prices for every wallet account.
type Watcher struct {
	ethereum config.ChainConfig
	solana   config.ChainConfig
	interval time.Duration
	source   AddressSource

	balances map[models.Chain]map[string]*big.Float
	prices   map[string]float64

	subscribers []Subscriber
	mu          sync.RWMutex
	refreshChan chan struct{}
	cancel      context.CancelFunc
	done        chan struct{}
	dataSource  DataSource
}

// NewWatcher creates a new Watcher instance.
func NewWatcher(cfg config.Config, source AddressSource) *Watcher {
	interval := time.Duration(cfg.RefreshIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watcher{
		ethereum: cfg.Ethereum,
		solana:   cfg.Solana,
		interval: interval,
		source:   source,
		balances: map[models.Chain]map[string]*big.Float{
			models.ChainEthereum: {},
			models.ChainSolana:   {},
		},
		prices:      make(map[string]float64),
		refreshChan: make(chan struct{}, 1),
		dataSource:  &RealDataSource{},
	}
}

// SetDataSource allows overriding the data source (useful for testing).
func (w *Watcher) SetDataSource(ds DataSource) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dataSource = ds
}

// Subscribe adds a new subscriber and returns a channel to receive events.
func (w *Watcher) Subscribe() Subscriber {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(Subscriber, 100)
	w.subscribers = append(w.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber.
func (w *Watcher) Unsubscribe(ch Subscriber) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, sub := range w.subscribers {
		if sub == ch {
			w.subscribers = append(w.subscribers[:i], w.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

func (w *Watcher) notify(event Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, sub := range w.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// Start begins the polling loop. It does nothing if the loop is running.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		w.pollingLoop(ctx)
	}(w.done)
}

// Stop cancels in-flight fetches and waits for the polling loop to return.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	logger.Watcher.Debug().Msg("Watcher stopped")
}

// Refresh asks the polling loop to fetch now. Requests made while one is
// pending are coalesced.
func (w *Watcher) Refresh() {
	select {
	case w.refreshChan <- struct{}{}:
	default:
	}
}

func (w *Watcher) pollingLoop(ctx context.Context) {
	w.fetchAll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.fetchAll(ctx)
		case <-w.refreshChan:
			w.fetchAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) fetchAll(ctx context.Context) {
	w.mu.RLock()
	ds := w.dataSource
	w.mu.RUnlock()

	var wg sync.WaitGroup

	for _, coinID := range uniqueNonEmpty(w.ethereum.CoinGeckoID, w.solana.CoinGeckoID) {
		wg.Add(1)
		go func(coinID string) {
			defer wg.Done()
			data, err := ds.FetchPrice(coinID)
			if err != nil {
				logger.Watcher.Warn().Err(err).Str("coin", coinID).Msg("Price fetch failed")
				return
			}
			w.mu.Lock()
			w.prices[coinID] = data.Price
			w.mu.Unlock()
			w.notify(Event{Type: EventPriceUpdated, Data: data})
		}(coinID)
	}

	fetch := func(chain models.Chain, rpcURLs []string, address string, fn func(context.Context, []string, string) (models.BalanceData, error)) {
		defer wg.Done()
		data, err := fn(ctx, rpcURLs, address)
		if err != nil {
			logger.Watcher.Warn().Err(err).Str("chain", string(chain)).Str("address", address).Msg("Balance fetch failed")
			w.notify(Event{Type: EventBalanceFailed, Data: data})
			return
		}
		w.mu.Lock()
		w.balances[chain][models.AddressKey(address)] = data.Balance
		w.mu.Unlock()
		w.notify(Event{Type: EventBalanceUpdated, Data: data})
	}

	for _, acc := range w.source.InactiveEthereumAddresses() {
		wg.Add(1)
		go fetch(models.ChainEthereum, w.ethereum.RPCURLs, acc.Address, ds.FetchEthBalance)
	}
	for _, acc := range w.source.InactiveSolanaAddresses() {
		wg.Add(1)
		go fetch(models.ChainSolana, w.solana.RPCURLs, acc.Address, ds.FetchSolBalance)
	}

	wg.Wait()
	w.notify(Event{Type: EventRefreshCompleted})
}

func uniqueNonEmpty(ids ...string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Balance returns the last known balance of address on chain, or nil.
func (w *Watcher) Balance(chain models.Chain, address string) *big.Float {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balances[chain][models.AddressKey(address)]
}

// GetBalances returns a copy of the balances, keyed by chain then
// models.AddressKey of the address.
func (w *Watcher) GetBalances() map[models.Chain]map[string]*big.Float {
	w.mu.RLock()
	defer w.mu.RUnlock()
	cp := make(map[models.Chain]map[string]*big.Float, len(w.balances))
	for chain, byAddr := range w.balances {
		cp[chain] = make(map[string]*big.Float, len(byAddr))
		for addr, bal := range byAddr {
			cp[chain][addr] = bal
		}
	}
	return cp
}

// GetPrices returns the current prices.
func (w *Watcher) GetPrices() map[string]float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	cp := make(map[string]float64)
	for k, v := range w.prices {
		cp[k] = v
	}
	return cp
}

// PairValue returns the USD value of both sides of pair. Unknown balances
// and prices count as zero.
func (w *Watcher) PairValue(pair models.WalletPair) *big.Float {
	w.mu.RLock()
	defer w.mu.RUnlock()
	total := new(big.Float)
	add := func(chain models.Chain, coinID string, acc models.AddressState) {
		if acc.IsEmpty() {
			return
		}
		bal := w.balances[chain][models.AddressKey(acc.Address)]
		price, ok := w.prices[coinID]
		if bal == nil || !ok {
			return
		}
		total.Add(total, new(big.Float).Mul(bal, big.NewFloat(price)))
	}
	add(models.ChainEthereum, w.ethereum.CoinGeckoID, pair.WalletDetails.Ethereum)
	add(models.ChainSolana, w.solana.CoinGeckoID, pair.WalletDetails.Solana)
	return total
}
