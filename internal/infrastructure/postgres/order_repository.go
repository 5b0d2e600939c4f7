package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domain "github.com/shopora/checkout/internal/domain/order"
)

// OrderRepository persists the order aggregate with its line snapshot as
// JSONB. Status transitions are filtered UPDATEs returning the new row, so a
// replayed webhook or a racing cancel resolves at the database.
type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, code, user_id, address, phone, note, cancel_reason, coupon_id,
	discount_percent, total, subtotal, payment, payment_intent_id, status, items,
	paid_at, freezed_at, restored_at, created_by, updated_by, created_at, updated_at`

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("order repository: marshal items: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		o.ID, o.Code, o.UserID, o.Address, o.Phone, nullable(o.Note), nullable(o.CancelReason), nullable(o.CouponID),
		o.DiscountPercent.String(), o.Total, o.Subtotal, string(o.Payment), nullable(o.PaymentIntentID), int(o.Status), items,
		o.PaidAt, o.FreezedAt, o.RestoredAt, o.CreatedBy, nullable(o.UpdatedBy), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("order repository: insert: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND freezed_at IS NULL`, id))
}

func (r *OrderRepository) FindByCode(ctx context.Context, code string) (*domain.Order, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE code = $1 AND freezed_at IS NULL`, code))
}

func (r *OrderRepository) SetPaymentIntent(ctx context.Context, id, intentRef string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET payment_intent_id = $2, updated_at = now()
		  WHERE id = $1 AND status = $3`,
		id, intentRef, int(domain.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("order repository: set payment intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) ConfirmPayment(ctx context.Context, id string, paidAt time.Time) (*domain.Order, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`UPDATE orders SET status = $2, paid_at = $3, updated_at = now()
		  WHERE id = $1 AND status = $4 AND payment = $5
		 RETURNING `+orderColumns,
		id, int(domain.StatusPlaced), paidAt, int(domain.StatusPending), string(domain.PaymentCard),
	))
}

func (r *OrderRepository) Cancel(ctx context.Context, id, reason, actor string) (*domain.Order, error) {
	o, err := r.scanOne(r.pool.QueryRow(ctx,
		`UPDATE orders SET status = $2, cancel_reason = $3, updated_by = $4, updated_at = now()
		  WHERE id = $1 AND status < $5 AND status <> $6
		 RETURNING `+orderColumns,
		id, int(domain.StatusCanceled), nullable(reason), actor,
		int(domain.StatusCanceled), int(domain.StatusDelivered),
	))
	if errors.Is(err, domain.ErrNotFound) {
		// Distinguish a missing order from a terminal one.
		if _, getErr := r.Get(ctx, id); getErr == nil {
			return nil, domain.ErrInvalidTransition
		}
		return nil, domain.ErrNotFound
	}
	return o, err
}

func (r *OrderRepository) Advance(ctx context.Context, id string, from, to domain.Status, actor string) (*domain.Order, error) {
	o, err := r.scanOne(r.pool.QueryRow(ctx,
		`UPDATE orders SET status = $2, updated_by = $3, updated_at = now()
		  WHERE id = $1 AND status = $4
		 RETURNING `+orderColumns,
		id, int(to), actor, int(from),
	))
	if errors.Is(err, domain.ErrNotFound) {
		if _, getErr := r.Get(ctx, id); getErr == nil {
			return nil, domain.ErrInvalidTransition
		}
		return nil, domain.ErrNotFound
	}
	return o, err
}

func (r *OrderRepository) Freeze(ctx context.Context, id, actor string) (*domain.Order, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`UPDATE orders SET freezed_at = now(), restored_at = NULL, updated_by = $2, updated_at = now()
		  WHERE id = $1
		 RETURNING `+orderColumns,
		id, actor,
	))
}

func (r *OrderRepository) Restore(ctx context.Context, id, actor string) (*domain.Order, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`UPDATE orders SET freezed_at = NULL, restored_at = now(), updated_by = $2, updated_at = now()
		  WHERE id = $1
		 RETURNING `+orderColumns,
		id, actor,
	))
}

func (r *OrderRepository) scanOne(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var note, cancelReason, couponID, intentID, updatedBy *string
	var discount, payment string
	var status int
	var items []byte
	err := row.Scan(
		&o.ID, &o.Code, &o.UserID, &o.Address, &o.Phone, &note, &cancelReason, &couponID,
		&discount, &o.Total, &o.Subtotal, &payment, &intentID, &status, &items,
		&o.PaidAt, &o.FreezedAt, &o.RestoredAt, &o.CreatedBy, &updatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("order repository: scan: %w", err)
	}

	o.Note = deref(note)
	o.CancelReason = deref(cancelReason)
	o.CouponID = deref(couponID)
	o.PaymentIntentID = deref(intentID)
	o.UpdatedBy = deref(updatedBy)
	o.Payment = domain.PaymentMethod(payment)
	o.Status = domain.Status(status)
	if o.DiscountPercent, err = decimal.NewFromString(discount); err != nil {
		return nil, fmt.Errorf("order repository: parse discount: %w", err)
	}
	if err = json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("order repository: unmarshal items: %w", err)
	}
	return &o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
