package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"club-payment-service/internal/domain"
	"club-payment-service/internal/domain/model"
	"club-payment-service/internal/domain/ports/repository"
)

var (
	_ repository.EventRepository  = (*eventRepo)(nil)
	_ repository.TicketRepository = (*ticketRepo)(nil)
)

type eventRepo struct{ pool *pgxpool.Pool }

func NewEventRepo(pool *pgxpool.Pool) *eventRepo {
	return &eventRepo{pool: pool}
}

const eventCols = `id, name, starts_at, capacity, sold, price_cents, currency, active, created_at`

func (r *eventRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Event, error) {
	const q = `SELECT ` + eventCols + ` FROM events WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanEvent(row)
}

func (r *eventRepo) ListUpcoming(ctx context.Context, tx repository.Tx) ([]*model.Event, error) {
	const q = `SELECT ` + eventCols + ` FROM events WHERE active AND starts_at > NOW() ORDER BY starts_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

// IncrementSoldIfAvailable is the capacity guard: the increment only lands
// while sold is still below capacity, so N+1 racing confirmations yield
// exactly N sold tickets.
func (r *eventRepo) IncrementSoldIfAvailable(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE events SET sold = sold + 1 WHERE id=$1 AND sold < capacity;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	e := &model.Event{}
	if err := row.Scan(&e.ID, &e.Name, &e.StartsAt, &e.Capacity, &e.Sold, &e.PriceCents, &e.Currency, &e.Active, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return e, nil
}

type ticketRepo struct{ pool *pgxpool.Pool }

func NewTicketRepo(pool *pgxpool.Pool) *ticketRepo {
	return &ticketRepo{pool: pool}
}

func (r *ticketRepo) Save(ctx context.Context, tx repository.Tx, t *model.Ticket) error {
	const q = `
INSERT INTO tickets (id, event_id, identity_id, status, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET status=$4;`
	if _, err := execSQL(ctx, r.pool, tx, q, t.ID, t.EventID, t.IdentityID, t.Status, t.CreatedAt); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *ticketRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Ticket, error) {
	const q = `SELECT id, event_id, identity_id, status, created_at FROM tickets WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	t := &model.Ticket{}
	if err := row.Scan(&t.ID, &t.EventID, &t.IdentityID, &t.Status, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}

func (r *ticketRepo) ActivateIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE tickets SET status='active' WHERE id=$1 AND status='pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *ticketRepo) CancelOrphanedPending(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) (int, error) {
	const q = `
UPDATE tickets SET status='cancelled'
 WHERE id IN (
   SELECT tk.id FROM tickets tk
    WHERE tk.status='pending'
      AND tk.created_at < $1
      AND NOT EXISTS (
        SELECT 1 FROM transactions t
         WHERE t.resource_kind='ticket' AND t.resource_id=tk.id
      )
    LIMIT $2
 );`
	cmd, err := execSQL(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return int(cmd.RowsAffected()), nil
}
