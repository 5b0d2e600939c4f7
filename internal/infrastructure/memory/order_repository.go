package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/shopora/checkout/internal/domain/order"
)

// OrderRepository keeps orders in process memory. Every status transition is
// checked and applied under one lock, so it honors the same conditional
// update contract as the SQL implementation.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	codes  map[string]string
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*domain.Order),
		codes:  make(map[string]string),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; exists {
		return domain.ErrConflict
	}
	if _, exists := r.codes[o.Code]; o.Code != "" && exists {
		return domain.ErrConflict
	}

	r.orders[o.ID] = o.Clone()
	if o.Code != "" {
		r.codes[o.Code] = o.ID
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) FindByCode(ctx context.Context, code string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.codes[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) SetPaymentIntent(ctx context.Context, id, intentRef string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok || o.Status != domain.StatusPending {
		return domain.ErrNotFound
	}
	o.PaymentIntentID = intentRef
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *OrderRepository) ConfirmPayment(ctx context.Context, id string, paidAt time.Time) (*domain.Order, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok || o.Status != domain.StatusPending || o.Payment != domain.PaymentCard {
		return nil, domain.ErrNotFound
	}
	o.Status = domain.StatusPlaced
	o.PaidAt = &paidAt
	o.UpdatedAt = time.Now().UTC()
	return o.Clone(), nil
}

func (r *OrderRepository) Cancel(ctx context.Context, id, reason, actor string) (*domain.Order, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !o.Status.Cancelable() {
		return nil, domain.ErrInvalidTransition
	}
	o.Status = domain.StatusCanceled
	o.CancelReason = reason
	o.UpdatedBy = actor
	o.UpdatedAt = time.Now().UTC()
	return o.Clone(), nil
}

func (r *OrderRepository) Advance(ctx context.Context, id string, from, to domain.Status, actor string) (*domain.Order, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if o.Status != from {
		return nil, domain.ErrInvalidTransition
	}
	o.Status = to
	o.UpdatedBy = actor
	o.UpdatedAt = time.Now().UTC()
	return o.Clone(), nil
}

func (r *OrderRepository) Freeze(ctx context.Context, id, actor string) (*domain.Order, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	now := time.Now().UTC()
	o.FreezedAt = &now
	o.RestoredAt = nil
	o.UpdatedBy = actor
	o.UpdatedAt = now
	return o.Clone(), nil
}

func (r *OrderRepository) Restore(ctx context.Context, id, actor string) (*domain.Order, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	now := time.Now().UTC()
	o.FreezedAt = nil
	o.RestoredAt = &now
	o.UpdatedBy = actor
	o.UpdatedAt = now
	return o.Clone(), nil
}
