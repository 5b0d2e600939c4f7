package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/shopora/checkout/internal/domain/coupon"
)

// CouponLedger tracks redemptions in a used_by text array. TryRedeem appends
// the entry with the window and cap checks folded into the WHERE clause, so
// the limit can never be exceeded by racing requests.
type CouponLedger struct {
	pool *pgxpool.Pool
}

func NewCouponLedger(pool *pgxpool.Pool) *CouponLedger {
	return &CouponLedger{pool: pool}
}

func (l *CouponLedger) Get(ctx context.Context, id string) (*domain.Coupon, error) {
	var c domain.Coupon
	var kind string
	err := l.pool.QueryRow(ctx,
		`SELECT id, name, slug, type, discount, duration, start_date, end_date, used_by, created_at, updated_at
		   FROM coupons WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Slug, &kind, &c.Discount, &c.Duration, &c.StartDate, &c.EndDate, &c.UsedBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("coupon ledger: get: %w", err)
	}
	c.Type = domain.Type(kind)
	return &c, nil
}

func (l *CouponLedger) TryRedeem(ctx context.Context, couponID, userID string) error {
	tag, err := l.pool.Exec(ctx,
		`UPDATE coupons
		    SET used_by = array_append(used_by, $2), updated_at = now()
		  WHERE id = $1
		    AND start_date <= now() AND end_date >= now()
		    AND (SELECT count(*) FROM unnest(used_by) u WHERE u = $2) < duration`,
		couponID, userID,
	)
	if err != nil {
		return fmt.Errorf("coupon ledger: redeem: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return l.classifyRedeemFailure(ctx, couponID, userID)
	}
	return nil
}

// classifyRedeemFailure re-reads the coupon to turn a zero-row update into
// the right sentinel. The re-read is diagnostic only; the atomic update above
// already made the decision.
func (l *CouponLedger) classifyRedeemFailure(ctx context.Context, couponID, userID string) error {
	c, err := l.Get(ctx, couponID)
	if err != nil {
		return err
	}
	if c.RedemptionsBy(userID) >= c.Duration {
		return domain.ErrExhausted
	}
	return domain.ErrExpired
}

func (l *CouponLedger) Release(ctx context.Context, couponID, userID string) error {
	// Removes exactly one used_by entry for the user; a no-op when absent.
	_, err := l.pool.Exec(ctx,
		`UPDATE coupons c
		    SET used_by = c.used_by[:idx-1] || c.used_by[idx+1:], updated_at = now()
		   FROM (SELECT array_position(used_by, $2) AS idx FROM coupons WHERE id = $1) pos
		  WHERE c.id = $1 AND pos.idx IS NOT NULL`,
		couponID, userID,
	)
	if err != nil {
		return fmt.Errorf("coupon ledger: release: %w", err)
	}
	return nil
}
