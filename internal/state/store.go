// Package state is the central store shared by the orchestrators and the
// presentation layer. Every transition replaces one slice atomically under the
// store's lock; readers get copies and never observe a half-applied update.
package state

import (
	"context"
	"sync"
)

// Store holds the session and ledger slices. The zero value is not usable;
// construct with New.
type Store struct {
	mu      sync.Mutex
	session SessionState
	ledger  LedgerState
	changed chan struct{}

	sessionInflight int
	ledgerInflight  int

	// Generation whose data currently populates Wallets / Transactions.
	// Results fetched as of an older generation are discarded.
	walletsAsOf uint64
	txAsOf      uint64
}

// New returns an empty store: unauthenticated, nothing cached.
func New() *Store {
	return &Store{changed: make(chan struct{})}
}

// Snapshot is a consistent copy of both slices.
type Snapshot struct {
	Session SessionState
	Ledger  LedgerState
}

// Snapshot copies both slices under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Session: s.session.clone(), Ledger: s.ledger.clone()}
}

// Session returns a copy of the session slice.
func (s *Store) Session() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.clone()
}

// Ledger returns a copy of the ledger slice.
func (s *Store) Ledger() LedgerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.clone()
}

// Changed returns a channel closed at the next state change. Subscribers
// re-read the state and call Changed again.
func (s *Store) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// WaitLedger blocks until cond holds for the ledger slice or ctx ends.
func (s *Store) WaitLedger(ctx context.Context, cond func(LedgerState) bool) (LedgerState, error) {
	for {
		s.mu.Lock()
		current := s.ledger.clone()
		ch := s.changed
		s.mu.Unlock()

		if cond(current) {
			return current, nil
		}
		select {
		case <-ctx.Done():
			return current, ctx.Err()
		case <-ch:
		}
	}
}

// commit must be called with s.mu held after any mutation.
func (s *Store) commit() {
	close(s.changed)
	s.changed = make(chan struct{})
}
