package repository

import (
	"context"
	"time"

	"club-payment-service/internal/domain/model"
)

// -----------------------------
// Transaction ledger
// -----------------------------

type TransactionRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Transaction) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Transaction, error)
	FindByOrderRef(ctx context.Context, tx Tx, orderRef string) (*model.Transaction, error)
	FindByCheckoutRef(ctx context.Context, tx Tx, checkoutRef string) (*model.Transaction, error)

	// FindByIdempotencyKey resolves a prior checkout creation for replay.
	FindByIdempotencyKey(ctx context.Context, tx Tx, identityID, key string) (*model.Transaction, error)

	// MarkPaidIfPending atomically updates status only while the current
	// status is 'pending'. Returns false when another confirmation won.
	MarkPaidIfPending(ctx context.Context, tx Tx, id string, paymentRef string, paidAt time.Time) (bool, error)

	MarkFailed(ctx context.Context, tx Tx, id string) error

	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Transaction, error)
}
