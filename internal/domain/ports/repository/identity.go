package repository

import (
	"context"

	"club-payment-service/internal/domain/model"
)

// -----------------------------
// Identities
// -----------------------------

type IdentityRepository interface {
	// GetOrCreate returns the identity for the given (normalized) email,
	// creating it on first reference. A non-empty name updates a previously
	// empty one but never blanks an existing name.
	GetOrCreate(ctx context.Context, tx Tx, email, name string) (*model.Identity, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.Identity, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Identity, error)
}
