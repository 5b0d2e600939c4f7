package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/shopora/checkout/internal/domain/product"
)

// InventoryLedger implements the stock counter on Postgres. The guard and the
// mutation travel in one statement, so concurrent checkouts can never drive
// stock negative.
type InventoryLedger struct {
	pool *pgxpool.Pool
}

func NewInventoryLedger(pool *pgxpool.Pool) *InventoryLedger {
	return &InventoryLedger{pool: pool}
}

func (l *InventoryLedger) Get(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := l.pool.QueryRow(ctx,
		`SELECT id, name, stock, sale_price, updated_at FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Stock, &p.SalePrice, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("inventory ledger: get: %w", err)
	}
	return &p, nil
}

func (l *InventoryLedger) TryDecrement(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	tag, err := l.pool.Exec(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1 AND stock >= $2`,
		id, qty,
	)
	if err != nil {
		return fmt.Errorf("inventory ledger: decrement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

func (l *InventoryLedger) Increment(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	tag, err := l.pool.Exec(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`,
		id, qty,
	)
	if err != nil {
		return fmt.Errorf("inventory ledger: increment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
