package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"club-payment-service/internal/domain"
	"club-payment-service/internal/domain/model"
	"club-payment-service/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

const transactionCols = `id, type, resource_kind, resource_id, identity_id, order_ref, checkout_ref, payment_ref, amount_cents, currency, status, idempotency_key, description, created_at, updated_at, paid_at`

func (r *transactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	const q = `
INSERT INTO transactions (
  id, type, resource_kind, resource_id, identity_id, order_ref, checkout_ref, payment_ref,
  amount_cents, currency, status, idempotency_key, description, created_at, updated_at, paid_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16);`

	_, err := execSQL(ctx, r.pool, tx, q,
		t.ID, t.Type, t.ResourceKind, t.ResourceID, t.IdentityID, t.OrderRef, t.CheckoutRef, t.PaymentRef,
		t.AmountCents, t.Currency, t.Status, t.IdempotencyKey, t.Description, t.CreatedAt, t.UpdatedAt, t.PaidAt)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return err
		default:
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return domain.ErrAlreadyExists
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *transactionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Transaction, error) {
	const q = `SELECT ` + transactionCols + ` FROM transactions WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *transactionRepo) FindByOrderRef(ctx context.Context, tx repository.Tx, orderRef string) (*model.Transaction, error) {
	const q = `SELECT ` + transactionCols + ` FROM transactions WHERE order_ref=$1;`
	return r.queryOne(ctx, tx, q, orderRef)
}

func (r *transactionRepo) FindByCheckoutRef(ctx context.Context, tx repository.Tx, checkoutRef string) (*model.Transaction, error) {
	const q = `SELECT ` + transactionCols + ` FROM transactions WHERE checkout_ref=$1;`
	return r.queryOne(ctx, tx, q, checkoutRef)
}

func (r *transactionRepo) FindByIdempotencyKey(ctx context.Context, tx repository.Tx, identityID, key string) (*model.Transaction, error) {
	const q = `
SELECT ` + transactionCols + ` FROM transactions
 WHERE identity_id=$1 AND idempotency_key=$2
 ORDER BY created_at DESC LIMIT 1;`
	return r.queryOne(ctx, tx, q, identityID, key)
}

// MarkPaidIfPending is the ledger side of confirmation serialization: the
// status flips only from 'pending', so the second of two racing confirmers
// observes zero affected rows.
func (r *transactionRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, id string, paymentRef string, paidAt time.Time) (bool, error) {
	const q = `
UPDATE transactions
   SET status='paid', payment_ref=$2, paid_at=$3, updated_at=NOW()
 WHERE id=$1 AND status='pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, paymentRef, paidAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *transactionRepo) MarkFailed(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE transactions SET status='failed', updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *transactionRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	const q = `
SELECT ` + transactionCols + ` FROM transactions
 WHERE status='pending' AND created_at < $1
 ORDER BY created_at ASC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *transactionRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Transaction, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	t := &model.Transaction{}
	if err := row.Scan(&t.ID, &t.Type, &t.ResourceKind, &t.ResourceID, &t.IdentityID, &t.OrderRef, &t.CheckoutRef, &t.PaymentRef,
		&t.AmountCents, &t.Currency, &t.Status, &t.IdempotencyKey, &t.Description, &t.CreatedAt, &t.UpdatedAt, &t.PaidAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}
