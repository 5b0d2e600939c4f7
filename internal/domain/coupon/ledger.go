package coupon

import "context"

// Ledger guards the per-user redemption cap. TryRedeem must be a single
// atomic conditional operation against the backing store: append a UsedBy
// entry only when the validity window holds and the user's count is still
// under Duration.
type Ledger interface {
	Get(ctx context.Context, id string) (*Coupon, error)

	// TryRedeem consumes one redemption slot. ErrNotFound, ErrExpired or
	// ErrExhausted when the conditions fail.
	TryRedeem(ctx context.Context, couponID, userID string) error

	// Release frees one redemption slot. Releasing a slot the user does not
	// hold is a no-op.
	Release(ctx context.Context, couponID, userID string) error
}
