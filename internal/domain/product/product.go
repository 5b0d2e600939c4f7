package product

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("product: not found")
	ErrInvalidQuantity   = errors.New("product: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("product: insufficient stock")
)

// Product is the stock view of a catalog entry: the only fields the checkout
// core touches are Stock and SalePrice.
type Product struct {
	ID        string
	Name      string
	Stock     int
	SalePrice int64
	UpdatedAt time.Time
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
