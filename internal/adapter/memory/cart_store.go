package memory

import (
	"context"
	"sync"

	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/repository"
)

// CartStore keeps carts in process memory. Values do not survive a restart.
type CartStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewCartStore() *CartStore {
	return &CartStore{values: make(map[string]string)}
}

func (s *CartStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

func (s *CartStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

var _ repository.CartStore = (*CartStore)(nil)
