package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"club-payment-service/internal/domain"
	"club-payment-service/internal/domain/model"
	"club-payment-service/internal/domain/ports/repository"
)

var (
	_ repository.ProductRepository = (*productRepo)(nil)
	_ repository.OrderRepository   = (*orderRepo)(nil)
)

type productRepo struct{ pool *pgxpool.Pool }

func NewProductRepo(pool *pgxpool.Pool) *productRepo {
	return &productRepo{pool: pool}
}

const productCols = `id, name, price_cents, currency, stock, active, created_at`

func (r *productRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	const q = `SELECT ` + productCols + ` FROM products WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanProduct(row)
}

func (r *productRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Product, error) {
	const q = `SELECT ` + productCols + ` FROM products WHERE active ORDER BY name ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

// DecrementStock clamps at zero rather than failing: fulfilment reconciles
// oversold lines, the counter just never goes negative.
func (r *productRepo) DecrementStock(ctx context.Context, tx repository.Tx, id string, qty int) error {
	const q = `UPDATE products SET stock = GREATEST(stock - $2, 0) WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, qty)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	p := &model.Product{}
	if err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Currency, &p.Stock, &p.Active, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderCols = `id, identity_id, lines, subtotal_cents, shipping_cents, total_cents, currency, status, created_at`

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO orders (id, identity_id, lines, subtotal_cents, shipping_cents, total_cents, currency, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET status=$8;`
	if _, err := execSQL(ctx, r.pool, tx, q, o.ID, o.IdentityID, lines, o.SubtotalCents, o.ShippingCents, o.TotalCents, o.Currency, o.Status, o.CreatedAt); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	const q = `SELECT ` + orderCols + ` FROM orders WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	o := &model.Order{}
	var lines []byte
	if err := row.Scan(&o.ID, &o.IdentityID, &lines, &o.SubtotalCents, &o.ShippingCents, &o.TotalCents, &o.Currency, &o.Status, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if err := json.Unmarshal(lines, &o.Lines); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return o, nil
}

func (r *orderRepo) CompleteIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE orders SET status='completed' WHERE id=$1 AND status='pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) CancelOrphanedPending(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) (int, error) {
	const q = `
UPDATE orders SET status='cancelled'
 WHERE id IN (
   SELECT o.id FROM orders o
    WHERE o.status='pending'
      AND o.created_at < $1
      AND NOT EXISTS (
        SELECT 1 FROM transactions t
         WHERE t.resource_kind='order' AND t.resource_id=o.id
      )
    LIMIT $2
 );`
	cmd, err := execSQL(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return int(cmd.RowsAffected()), nil
}
