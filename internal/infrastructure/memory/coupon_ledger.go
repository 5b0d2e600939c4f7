package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/shopora/checkout/internal/domain/coupon"
)

// CouponLedger tracks redemptions in memory. TryRedeem checks the validity
// window and the per-user cap and appends the usage entry under one lock.
type CouponLedger struct {
	mu      sync.RWMutex
	coupons map[string]*domain.Coupon
	now     func() time.Time
}

func NewCouponLedger() *CouponLedger {
	return &CouponLedger{
		coupons: make(map[string]*domain.Coupon),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Seed installs a coupon; used by wiring and tests.
func (l *CouponLedger) Seed(c *domain.Coupon) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.coupons[c.ID] = c.Clone()
}

func (l *CouponLedger) Get(ctx context.Context, id string) (*domain.Coupon, error) {
	_ = ctx

	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.coupons[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (l *CouponLedger) TryRedeem(ctx context.Context, couponID, userID string) error {
	_ = ctx

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.coupons[couponID]
	if !ok {
		return domain.ErrNotFound
	}
	if !c.Usable(l.now()) {
		return domain.ErrExpired
	}
	if c.RedemptionsBy(userID) >= c.Duration {
		return domain.ErrExhausted
	}
	c.UsedBy = append(c.UsedBy, userID)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (l *CouponLedger) Release(ctx context.Context, couponID, userID string) error {
	_ = ctx

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.coupons[couponID]
	if !ok {
		return domain.ErrNotFound
	}
	for i, id := range c.UsedBy {
		if id == userID {
			c.UsedBy = append(c.UsedBy[:i], c.UsedBy[i+1:]...)
			c.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	// Releasing a slot the user does not hold is a no-op.
	return nil
}
