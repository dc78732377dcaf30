package wallet

import (
	"errors"
	"fmt"

	"multiwallet/pkg/models"
)

var (
	ErrUnknownAddress   = errors.New("address not found in wallet")
	ErrDuplicateAddress = errors.New("address already in wallet")
	ErrUnknownAction    = errors.New("unknown action")
	ErrEmptyPair        = errors.New("account pair has no address")
)

// Action is a state change request handled by Reduce.
type Action interface {
	actionName() string
}

// SetActiveAccount makes the given pair the active account. An empty side
// is a placeholder and clears that chain's active address.
type SetActiveAccount struct {
	Ethereum models.AddressState `json:"ethereum"`
	Solana   models.AddressState `json:"solana"`
}

func (SetActiveAccount) actionName() string { return "setActiveAccount" }

// AddAccount appends a newly created account pair. Empty sides are skipped.
// When no pair was active the new pair becomes the active one.
type AddAccount struct {
	Ethereum models.AddressState `json:"ethereum"`
	Solana   models.AddressState `json:"solana"`
}

func (AddAccount) actionName() string { return "addAccount" }

// Reduce returns the state that results from applying a to s. It never
// modifies s; on error the returned state is s.
func Reduce(s State, a Action) (State, error) {
	switch a := a.(type) {
	case SetActiveAccount:
		return reduceSetActive(s, a)
	case AddAccount:
		return reduceAddAccount(s, a)
	default:
		return s, fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
}

func reduceSetActive(s State, a SetActiveAccount) (State, error) {
	if a.Ethereum.IsEmpty() && a.Solana.IsEmpty() {
		return s, fmt.Errorf("set active account: %w", ErrEmptyPair)
	}
	next := s.clone()
	eth, err := next.Ethereum.resolve(a.Ethereum)
	if err != nil {
		return s, fmt.Errorf("set active ethereum account %s: %w", a.Ethereum.Address, err)
	}
	sol, err := next.Solana.resolve(a.Solana)
	if err != nil {
		return s, fmt.Errorf("set active solana account %s: %w", a.Solana.Address, err)
	}
	next.Ethereum.ActiveAddress = eth
	next.Solana.ActiveAddress = sol
	return next, nil
}

func reduceAddAccount(s State, a AddAccount) (State, error) {
	next := s.clone()
	if err := next.Ethereum.add(a.Ethereum); err != nil {
		return s, fmt.Errorf("add ethereum account: %w", err)
	}
	if err := next.Solana.add(a.Solana); err != nil {
		return s, fmt.Errorf("add solana account: %w", err)
	}
	if s.Ethereum.ActiveAddress.IsEmpty() && s.Solana.ActiveAddress.IsEmpty() {
		next.Ethereum.ActiveAddress = a.Ethereum
		next.Solana.ActiveAddress = a.Solana
	}
	return next, nil
}
