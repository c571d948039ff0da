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

var _ repository.MembershipRepository = (*membershipRepo)(nil)

type membershipRepo struct{ pool *pgxpool.Pool }

func NewMembershipRepo(pool *pgxpool.Pool) *membershipRepo {
	return &membershipRepo{pool: pool}
}

const membershipCols = `id, identity_id, plan_id, status, start_date, end_date, auto_renew, renewal_attempts, renewal_warning_sent, instrument_id, created_at`

func (r *membershipRepo) Save(ctx context.Context, tx repository.Tx, m *model.Membership) error {
	const q = `
INSERT INTO memberships (
  id, identity_id, plan_id, status, start_date, end_date, auto_renew, renewal_attempts, renewal_warning_sent, instrument_id, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  status=$4, start_date=$5, end_date=$6, auto_renew=$7, renewal_attempts=$8, renewal_warning_sent=$9, instrument_id=$10;`

	_, err := execSQL(ctx, r.pool, tx, q, m.ID, m.IdentityID, m.PlanID, m.Status, m.StartDate, m.EndDate, m.AutoRenew, m.RenewalAttempts, m.RenewalWarningSent, m.InstrumentID, m.CreatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *membershipRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Membership, error) {
	const q = `SELECT ` + membershipCols + ` FROM memberships WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanMembership(row)
}

// ActivateIfPending is the conditional write that serializes racing
// confirmations: only one caller observes an affected row.
func (r *membershipRepo) ActivateIfPending(ctx context.Context, tx repository.Tx, id string, start, end time.Time, instrumentID *string) (bool, error) {
	const q = `
UPDATE memberships
   SET status='active',
       start_date=$2,
       end_date=$3,
       instrument_id=COALESCE($4, instrument_id)
 WHERE id=$1
   AND status='pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, start, end, instrumentID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *membershipRepo) LatestActiveEndDate(ctx context.Context, tx repository.Tx, identityID string) (time.Time, error) {
	const q = `
SELECT MAX(end_date) FROM memberships
 WHERE identity_id=$1 AND status='active' AND end_date IS NOT NULL;`
	row, err := pickRow(ctx, r.pool, tx, q, identityID)
	if err != nil {
		return time.Time{}, err
	}
	var end *time.Time
	if err := row.Scan(&end); err != nil {
		return time.Time{}, domain.ErrReadDatabaseRow
	}
	if end == nil {
		return time.Time{}, domain.ErrNotFound
	}
	return *end, nil
}

func (r *membershipRepo) FindDueForRenewal(ctx context.Context, tx repository.Tx, window time.Duration, attemptCap, limit int) ([]*model.Membership, error) {
	const q = `
SELECT ` + membershipCols + `
  FROM memberships
 WHERE status='active'
   AND auto_renew
   AND renewal_attempts < $2
   AND end_date > NOW()
   AND end_date <= NOW() + ($1::bigint * INTERVAL '1 second')
 ORDER BY end_date ASC
 LIMIT $3;`
	return r.queryMany(ctx, tx, q, int64(window.Seconds()), attemptCap, limit)
}

func (r *membershipRepo) FindDueForWarning(ctx context.Context, tx repository.Tx, window time.Duration, limit int) ([]*model.Membership, error) {
	const q = `
SELECT ` + membershipCols + `
  FROM memberships
 WHERE status='active'
   AND auto_renew
   AND NOT renewal_warning_sent
   AND end_date > NOW()
   AND end_date <= NOW() + ($1::bigint * INTERVAL '1 second')
 ORDER BY end_date ASC
 LIMIT $2;`
	return r.queryMany(ctx, tx, q, int64(window.Seconds()), limit)
}

func (r *membershipRepo) RecordRenewalSuccess(ctx context.Context, tx repository.Tx, id string, newEnd time.Time) error {
	const q = `
UPDATE memberships
   SET end_date=$2, renewal_attempts=0, renewal_warning_sent=false
 WHERE id=$1 AND status='active';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, newEnd)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *membershipRepo) RecordRenewalFailure(ctx context.Context, tx repository.Tx, id string, attempts int, disableAutoRenew bool) error {
	const q = `
UPDATE memberships
   SET renewal_attempts=$2,
       auto_renew = CASE WHEN $3 THEN false ELSE auto_renew END
 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, attempts, disableAutoRenew)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *membershipRepo) MarkWarningSent(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE memberships SET renewal_warning_sent=true WHERE id=$1;`
	if _, err := execSQL(ctx, r.pool, tx, q, id); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *membershipRepo) CancelOrphanedPending(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) (int, error) {
	const q = `
UPDATE memberships SET status='cancelled'
 WHERE id IN (
   SELECT m.id FROM memberships m
    WHERE m.status='pending'
      AND m.created_at < $1
      AND NOT EXISTS (
        SELECT 1 FROM transactions t
         WHERE t.resource_kind='membership' AND t.resource_id=m.id
      )
    LIMIT $2
 );`
	cmd, err := execSQL(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return int(cmd.RowsAffected()), nil
}

func (r *membershipRepo) queryMany(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Membership, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanMembership(row pgx.Row) (*model.Membership, error) {
	m := &model.Membership{}
	if err := row.Scan(&m.ID, &m.IdentityID, &m.PlanID, &m.Status, &m.StartDate, &m.EndDate, &m.AutoRenew, &m.RenewalAttempts, &m.RenewalWarningSent, &m.InstrumentID, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return m, nil
}
