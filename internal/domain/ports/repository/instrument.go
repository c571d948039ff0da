package repository

import (
	"context"

	"club-payment-service/internal/domain/model"
)

// -----------------------------
// Payment instruments
// -----------------------------

type InstrumentRepository interface {
	// ReplaceActive deactivates all prior instruments of the identity and
	// inserts the new one as active, as one atomic step. A partial failure
	// must never leave two active rows (zero is the safe outcome).
	ReplaceActive(ctx context.Context, tx Tx, inst *model.PaymentInstrument) error

	FindActiveByIdentity(ctx context.Context, tx Tx, identityID string) (*model.PaymentInstrument, error)
	ListByIdentity(ctx context.Context, tx Tx, identityID string) ([]*model.PaymentInstrument, error)
}
