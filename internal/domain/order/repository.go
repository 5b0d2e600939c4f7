package order

import (
	"context"
	"time"
)

// Repository is the order ledger: the single authority for persisting the
// aggregate and for its status transitions. Every transition method is a
// conditional update applied atomically by the backing store, so concurrent
// callers and replayed gateway callbacks race safely.
type Repository interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	FindByCode(ctx context.Context, code string) (*Order, error)

	// SetPaymentIntent overwrites the stored gateway intent reference while
	// the order is still pending (latest session wins). ErrNotFound when the
	// order is missing or no longer pending.
	SetPaymentIntent(ctx context.Context, id, intentRef string) error

	// ConfirmPayment transitions pending -> placed and sets PaidAt, only when
	// the order is a pending card order. ErrNotFound when no order matches,
	// which makes replayed callbacks no-ops.
	ConfirmPayment(ctx context.Context, id string, paidAt time.Time) (*Order, error)

	// Cancel transitions to canceled, conditioned on the current status still
	// being cancelable. ErrNotFound when the order is missing,
	// ErrInvalidTransition when it is already terminal.
	Cancel(ctx context.Context, id, reason, actor string) (*Order, error)

	// Advance moves the order from exactly `from` to `to`.
	// ErrInvalidTransition when the stored status differs from `from`.
	Advance(ctx context.Context, id string, from, to Status, actor string) (*Order, error)

	// Freeze and Restore flip the soft-delete markers. Orders are never hard
	// deleted once paid.
	Freeze(ctx context.Context, id, actor string) (*Order, error)
	Restore(ctx context.Context, id, actor string) (*Order, error)
}
