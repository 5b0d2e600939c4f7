package cart

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("cart: not found")

type Item struct {
	ProductID string
	Quantity  int
}

type Cart struct {
	UserID string
	Items  []Item
}

// Store holds the user's pending line items. A cart is consumed (read then
// cleared) exactly once per successful order creation.
type Store interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Clear(ctx context.Context, userID string) error
}
