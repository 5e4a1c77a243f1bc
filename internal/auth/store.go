package auth

import (
	"context"
	"sync"
)

// CredentialStore persists the backend session cookies between runs.
type CredentialStore interface {
	Load(ctx context.Context) ([]Cookie, error)
	Save(ctx context.Context, cookies []Cookie) error
	Clear(ctx context.Context) error
}

type InMemoryCredentialStore struct {
	mu      sync.RWMutex
	cookies []Cookie
}

func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{}
}

func (s *InMemoryCredentialStore) Load(_ context.Context) ([]Cookie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Cookie(nil), s.cookies...), nil
}

func (s *InMemoryCredentialStore) Save(_ context.Context, cookies []Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies = append([]Cookie(nil), cookies...)
	return nil
}

func (s *InMemoryCredentialStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies = nil
	return nil
}
