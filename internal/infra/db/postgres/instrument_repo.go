package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"club-payment-service/internal/domain"
	"club-payment-service/internal/domain/model"
	"club-payment-service/internal/domain/ports/repository"
)

var _ repository.InstrumentRepository = (*instrumentRepo)(nil)

type instrumentRepo struct{ pool *pgxpool.Pool }

func NewInstrumentRepo(pool *pgxpool.Pool) *instrumentRepo {
	return &instrumentRepo{pool: pool}
}

const instrumentCols = `id, identity_id, token, card_type, last4, expiry_month, expiry_year, active, created_at`

// ReplaceActive deactivates every prior instrument of the identity and
// inserts the new one, in one transaction. When the caller already holds a
// tx both statements join it; otherwise a local tx is opened so a crash
// between the two steps can never leave two active rows.
func (r *instrumentRepo) ReplaceActive(ctx context.Context, tx repository.Tx, inst *model.PaymentInstrument) error {
	if inst == nil || inst.ID == "" || inst.IdentityID == "" || inst.Token == "" {
		return domain.ErrInvalidArgument
	}
	if tx == nil {
		return (&TxManager{pool: r.pool}).WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			return r.replaceActive(ctx, tx, inst)
		})
	}
	return r.replaceActive(ctx, tx, inst)
}

func (r *instrumentRepo) replaceActive(ctx context.Context, tx repository.Tx, inst *model.PaymentInstrument) error {
	const deactivate = `UPDATE payment_instruments SET active=false WHERE identity_id=$1 AND active;`
	if _, err := execSQL(ctx, r.pool, tx, deactivate, inst.IdentityID); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}

	const insert = `
INSERT INTO payment_instruments (id, identity_id, token, card_type, last4, expiry_month, expiry_year, active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,true,$8);`
	if _, err := execSQL(ctx, r.pool, tx, insert, inst.ID, inst.IdentityID, inst.Token, inst.CardType, inst.Last4, inst.ExpiryMonth, inst.ExpiryYear, inst.CreatedAt); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *instrumentRepo) FindActiveByIdentity(ctx context.Context, tx repository.Tx, identityID string) (*model.PaymentInstrument, error) {
	const q = `SELECT ` + instrumentCols + ` FROM payment_instruments WHERE identity_id=$1 AND active LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, identityID)
	if err != nil {
		return nil, err
	}
	return scanInstrument(row)
}

func (r *instrumentRepo) ListByIdentity(ctx context.Context, tx repository.Tx, identityID string) ([]*model.PaymentInstrument, error) {
	const q = `SELECT ` + instrumentCols + ` FROM payment_instruments WHERE identity_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, identityID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.PaymentInstrument
	for rows.Next() {
		p, err := scanInstrument(rows)
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

func scanInstrument(row pgx.Row) (*model.PaymentInstrument, error) {
	p := &model.PaymentInstrument{}
	if err := row.Scan(&p.ID, &p.IdentityID, &p.Token, &p.CardType, &p.Last4, &p.ExpiryMonth, &p.ExpiryYear, &p.Active, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
