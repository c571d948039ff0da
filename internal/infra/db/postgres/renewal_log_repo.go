package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4/pgxpool"

	"club-payment-service/internal/domain"
	"club-payment-service/internal/domain/model"
	"club-payment-service/internal/domain/ports/repository"
)

var _ repository.RenewalLogRepository = (*renewalLogRepo)(nil)

type renewalLogRepo struct{ pool *pgxpool.Pool }

func NewRenewalLogRepo(pool *pgxpool.Pool) *renewalLogRepo {
	return &renewalLogRepo{pool: pool}
}

func (r *renewalLogRepo) Append(ctx context.Context, tx repository.Tx, a *model.RenewalAttempt) error {
	const q = `
INSERT INTO renewal_attempts (id, membership_id, outcome, payment_ref, error_detail, amount_cents, currency, attempted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.MembershipID, a.Outcome, a.PaymentRef, a.ErrorDetail, a.AmountCents, a.Currency, a.AttemptedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *renewalLogRepo) ListByMembership(ctx context.Context, tx repository.Tx, membershipID string, limit int) ([]*model.RenewalAttempt, error) {
	const q = `
SELECT id, membership_id, outcome, payment_ref, error_detail, amount_cents, currency, attempted_at
  FROM renewal_attempts
 WHERE membership_id=$1
 ORDER BY attempted_at DESC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, membershipID, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.RenewalAttempt
	for rows.Next() {
		a := &model.RenewalAttempt{}
		if err := rows.Scan(&a.ID, &a.MembershipID, &a.Outcome, &a.PaymentRef, &a.ErrorDetail, &a.AmountCents, &a.Currency, &a.AttemptedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
