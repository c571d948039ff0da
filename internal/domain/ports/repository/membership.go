package repository

import (
	"context"
	"time"

	"club-payment-service/internal/domain/model"
)

// -----------------------------
// Memberships
// -----------------------------

type MembershipRepository interface {
	Save(ctx context.Context, tx Tx, m *model.Membership) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Membership, error)

	// ActivateIfPending atomically moves a pending membership to active with
	// the given dates (compare-and-swap on the status column). Returns false
	// without error when the row was not pending anymore, which makes the
	// loser of a confirmation race a no-op.
	ActivateIfPending(ctx context.Context, tx Tx, id string, start, end time.Time, instrumentID *string) (bool, error)

	// LatestActiveEndDate returns the furthest end date among the identity's
	// active memberships, or ErrNotFound when there is none. A renewal stacks
	// on top of this rather than resetting it.
	LatestActiveEndDate(ctx context.Context, tx Tx, identityID string) (time.Time, error)

	// FindDueForRenewal returns active auto-renew memberships whose end date
	// lies inside the lookahead window, is not already past, and whose
	// attempt counter is below the cap. Ordered by end date.
	FindDueForRenewal(ctx context.Context, tx Tx, window time.Duration, attemptCap, limit int) ([]*model.Membership, error)

	// FindDueForWarning returns active auto-renew memberships inside the
	// warning window that have not had a warning sent yet.
	FindDueForWarning(ctx context.Context, tx Tx, window time.Duration, limit int) ([]*model.Membership, error)

	// RecordRenewalSuccess sets the new end date, resets the attempt counter
	// and the warning flag.
	RecordRenewalSuccess(ctx context.Context, tx Tx, id string, newEnd time.Time) error

	// RecordRenewalFailure stores the incremented attempt counter and, when
	// the cap is reached, permanently disables auto-renew.
	RecordRenewalFailure(ctx context.Context, tx Tx, id string, attempts int, disableAutoRenew bool) error

	MarkWarningSent(ctx context.Context, tx Tx, id string) error

	// CancelOrphanedPending cancels pending memberships older than the cutoff
	// that have no transaction row (checkout failed before the ledger write).
	CancelOrphanedPending(ctx context.Context, tx Tx, olderThan time.Time, limit int) (int, error)
}
