package memory

import (
	"context"
	"sync"

	domain "github.com/shopora/checkout/internal/domain/cart"
)

type CartStore struct {
	mu    sync.RWMutex
	carts map[string][]domain.Item
}

func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string][]domain.Item)}
}

// Put replaces the user's cart; used by wiring and tests.
func (s *CartStore) Put(userID string, items []domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[userID] = append([]domain.Item(nil), items...)
}

func (s *CartStore) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	items, ok := s.carts[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Cart{
		UserID: userID,
		Items:  append([]domain.Item(nil), items...),
	}, nil
}

func (s *CartStore) Clear(ctx context.Context, userID string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, userID)
	return nil
}
