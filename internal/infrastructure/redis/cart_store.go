package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	domain "github.com/shopora/checkout/internal/domain/cart"
)

// CartStore keeps each user's cart as a hash keyed cart:{userID}, with one
// field per product id holding the desired quantity.
type CartStore struct {
	client *redis.Client
}

func NewCartStore(client *redis.Client) *CartStore {
	return &CartStore{client: client}
}

func key(userID string) string { return "cart:" + userID }

func (s *CartStore) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	fields, err := s.client.HGetAll(ctx, key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cart store: get: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}

	items := make([]domain.Item, 0, len(fields))
	for productID, raw := range fields {
		qty, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("cart store: quantity for %s: %w", productID, err)
		}
		items = append(items, domain.Item{ProductID: productID, Quantity: qty})
	}
	return &domain.Cart{UserID: userID, Items: items}, nil
}

func (s *CartStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("cart store: clear: %w", err)
	}
	return nil
}

// Add increments a line in the user's cart; the cart surface proper lives
// outside the core, this is the minimal write path for tooling and seeds.
func (s *CartStore) Add(ctx context.Context, userID, productID string, qty int) error {
	if err := s.client.HIncrBy(ctx, key(userID), productID, int64(qty)).Err(); err != nil {
		return fmt.Errorf("cart store: add: %w", err)
	}
	return nil
}
