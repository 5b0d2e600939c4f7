package product

import "context"

// Ledger exposes the per-product stock counter. TryDecrement must be a single
// atomic conditional operation (stock >= qty) so concurrent checkouts cannot
// oversell; Increment is the unconditional compensating credit and must never
// re-check availability.
type Ledger interface {
	Get(ctx context.Context, id string) (*Product, error)
	TryDecrement(ctx context.Context, id string, qty int) error
	Increment(ctx context.Context, id string, qty int) error
}
