package repository

import (
	"context"

	"club-payment-service/internal/domain/model"
)

// -----------------------------
// Renewal attempt log
// -----------------------------

type RenewalLogRepository interface {
	// Append inserts one audit row; rows are never updated afterwards.
	Append(ctx context.Context, tx Tx, a *model.RenewalAttempt) error
	ListByMembership(ctx context.Context, tx Tx, membershipID string, limit int) ([]*model.RenewalAttempt, error)
}
