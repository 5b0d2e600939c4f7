package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/shopora/checkout/internal/domain/product"
)

// InventoryLedger keeps per-product stock counters. TryDecrement checks and
// mutates under one lock: the stock >= qty guard and the subtraction are a
// single atomic step.
type InventoryLedger struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewInventoryLedger() *InventoryLedger {
	return &InventoryLedger{products: make(map[string]*domain.Product)}
}

// Seed installs a product; used by wiring and tests.
func (l *InventoryLedger) Seed(p *domain.Product) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.products[p.ID] = p.Clone()
}

func (l *InventoryLedger) Get(ctx context.Context, id string) (*domain.Product, error) {
	_ = ctx

	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (l *InventoryLedger) TryDecrement(ctx context.Context, id string, qty int) error {
	_ = ctx
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Stock < qty {
		return domain.ErrInsufficientStock
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (l *InventoryLedger) Increment(ctx context.Context, id string, qty int) error {
	_ = ctx
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Stock += qty
	p.UpdatedAt = time.Now().UTC()
	return nil
}
