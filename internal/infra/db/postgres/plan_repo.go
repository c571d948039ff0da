package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"club-payment-service/internal/domain"
	"club-payment-service/internal/domain/model"
	"club-payment-service/internal/domain/ports/repository"
)

var _ repository.PlanRepository = (*planRepo)(nil)

type planRepo struct{ pool *pgxpool.Pool }

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

const planCols = `id, code, name, period_months, price_cents, currency, active, created_at`

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, p *model.MembershipPlan) error {
	const q = `
INSERT INTO plans (id, code, name, period_months, price_cents, currency, active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  code=$2, name=$3, period_months=$4, price_cents=$5, currency=$6, active=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Code, p.Name, p.PeriodMonths, p.PriceCents, p.Currency, p.Active, p.CreatedAt)
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

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MembershipPlan, error) {
	const q = `SELECT ` + planCols + ` FROM plans WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *planRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.MembershipPlan, error) {
	const q = `SELECT ` + planCols + ` FROM plans WHERE code=$1 AND active LIMIT 1;`
	return r.queryOne(ctx, tx, q, code)
}

func (r *planRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.MembershipPlan, error) {
	const q = `SELECT ` + planCols + ` FROM plans WHERE active ORDER BY price_cents ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.MembershipPlan
	for rows.Next() {
		p := &model.MembershipPlan{}
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.PeriodMonths, &p.PriceCents, &p.Currency, &p.Active, &p.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *planRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE plans SET active=false WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *planRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.MembershipPlan, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	p := &model.MembershipPlan{}
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.PeriodMonths, &p.PriceCents, &p.Currency, &p.Active, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
