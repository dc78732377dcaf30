// Package wallet holds the wallet state shared by the account list, the API
// server and the balance watcher. State changes only through Dispatch.
package wallet

import (
	"sync"

	"multiwallet/pkg/logger"
	"multiwallet/pkg/models"
)

// ChainState is the wallet state of one chain. InactiveAddresses holds every
// account known on the chain, the active one included.
type ChainState struct {
	ActiveAddress     models.AddressState   `json:"activeAddress"`
	InactiveAddresses []models.AddressState `json:"inactiveAddresses"`
}

func (c ChainState) find(address string) (models.AddressState, bool) {
	for _, a := range c.InactiveAddresses {
		if models.SameAddress(a.Address, address) {
			return a, true
		}
	}
	return models.AddressState{}, false
}

// resolve returns the stored entry for acc. The placeholder resolves to
// itself.
func (c ChainState) resolve(acc models.AddressState) (models.AddressState, error) {
	if acc.IsEmpty() {
		return models.AddressState{}, nil
	}
	found, ok := c.find(acc.Address)
	if !ok {
		return models.AddressState{}, ErrUnknownAddress
	}
	return found, nil
}

func (c *ChainState) add(acc models.AddressState) error {
	if acc.IsEmpty() {
		return nil
	}
	if _, ok := c.find(acc.Address); ok {
		return ErrDuplicateAddress
	}
	c.InactiveAddresses = append(c.InactiveAddresses, acc)
	return nil
}

// State is the whole wallet state.
type State struct {
	Ethereum ChainState `json:"ethereum"`
	Solana   ChainState `json:"solana"`
}

func (s State) clone() State {
	s.Ethereum.InactiveAddresses = append([]models.AddressState(nil), s.Ethereum.InactiveAddresses...)
	s.Solana.InactiveAddresses = append([]models.AddressState(nil), s.Solana.InactiveAddresses...)
	return s
}

// Persister saves the state after every successful dispatch.
type Persister func(State) error

// Store is the single source of truth for wallet state.
type Store struct {
	state       State
	persister   Persister
	subscribers []Subscriber
	mu          sync.RWMutex
	// dispatchMu orders whole dispatches, so the last state persisted is
	// always the current one.
	dispatchMu sync.Mutex
}

// NewStore creates a store seeded with initial.
func NewStore(initial State) *Store {
	return &Store{state: initial.clone()}
}

// SetPersister installs p. A nil p disables persistence.
func (s *Store) SetPersister(p Persister) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persister = p
}

// GetState returns a copy of the current state.
func (s *Store) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *Store) ActiveEthereumAddress() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Ethereum.ActiveAddress.Address
}

func (s *Store) ActiveSolanaAddress() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Solana.ActiveAddress.Address
}

func (s *Store) InactiveEthereumAddresses() []models.AddressState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AddressState(nil), s.state.Ethereum.InactiveAddresses...)
}

func (s *Store) InactiveSolanaAddresses() []models.AddressState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AddressState(nil), s.state.Solana.InactiveAddresses...)
}

// Dispatch applies a to the state, persists the result and notifies
// subscribers. A rejected action changes nothing. A persist failure is
// returned but the new state stays in effect.
func (s *Store) Dispatch(a Action) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	next, err := Reduce(s.state, a)
	if err != nil {
		s.mu.Unlock()
		logger.Store.Warn().Err(err).Str("action", a.actionName()).Msg("Action rejected")
		return err
	}
	s.state = next
	persist := s.persister
	s.mu.Unlock()

	logger.Store.Debug().Str("action", a.actionName()).Msg("State updated")

	var persistErr error
	if persist != nil {
		if persistErr = persist(next.clone()); persistErr != nil {
			logger.Store.Error().Err(persistErr).Msg("Failed to persist wallet state")
		}
	}

	s.notify(Event{Type: EventStateChanged, Action: a, State: next.clone()})
	return persistErr
}

// Subscribe adds a new subscriber and returns a channel to receive events.
func (s *Store) Subscribe() Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(Subscriber, 16)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Store) Unsubscribe(ch Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

func (s *Store) notify(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subscribers {
		select {
		case sub <- event:
		default:
			logger.Store.Warn().Msg("Subscriber is slow, dropping event")
		}
	}
}
