package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"club-payment-service/internal/domain"
	"club-payment-service/internal/domain/model"
	"club-payment-service/internal/domain/ports/repository"

	"github.com/google/uuid"
)

var _ repository.IdentityRepository = (*identityRepo)(nil)

type identityRepo struct{ pool *pgxpool.Pool }

func NewIdentityRepo(pool *pgxpool.Pool) *identityRepo {
	return &identityRepo{pool: pool}
}

func (r *identityRepo) GetOrCreate(ctx context.Context, tx repository.Tx, email, name string) (*model.Identity, error) {
	// Upsert keyed by email; a non-empty name fills a blank one but never
	// clears an existing value.
	const q = `
INSERT INTO identities (id, email, name, created_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (email) DO UPDATE SET
  name = CASE WHEN identities.name = '' THEN EXCLUDED.name ELSE identities.name END
RETURNING id, email, name, created_at;`

	row, err := pickRow(ctx, r.pool, tx, q, uuid.NewString(), email, name)
	if err != nil {
		return nil, err
	}
	i := &model.Identity{}
	if err := row.Scan(&i.ID, &i.Email, &i.Name, &i.CreatedAt); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return i, nil
}

func (r *identityRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Identity, error) {
	const q = `SELECT id, email, name, created_at FROM identities WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *identityRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Identity, error) {
	const q = `SELECT id, email, name, created_at FROM identities WHERE email=$1;`
	return r.queryOne(ctx, tx, q, email)
}

func (r *identityRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Identity, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	i := &model.Identity{}
	if err := row.Scan(&i.ID, &i.Email, &i.Name, &i.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return i, nil
}
