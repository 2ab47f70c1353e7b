// Package credstore persists the access/refresh credential pair so a restart
// does not force re-authentication.
package credstore

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when no credential pair is stored.
var ErrNotFound = errors.New("credentials not found")

// Pair is the credential pair issued by login and refresh.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Store holds the current credential pair. Writes are atomic overwrites and the
// last writer wins; renewal, login and logout are the only writers.
type Store interface {
	Get(ctx context.Context) (Pair, error)
	Set(ctx context.Context, pair Pair) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the pair in process memory. Useful for tests and one-shot sessions.
type MemoryStore struct {
	mu   sync.RWMutex
	pair *Pair
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(_ context.Context) (Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pair == nil {
		return Pair{}, ErrNotFound
	}
	return *s.pair, nil
}

func (s *MemoryStore) Set(_ context.Context, pair Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = &pair
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = nil
	return nil
}
