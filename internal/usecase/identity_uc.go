package usecase

import (
	"context"

	"club-payment-service/internal/domain"
	"club-payment-service/internal/domain/model"
	"club-payment-service/internal/domain/ports/repository"
)

// Compile-time check
var _ IdentityUseCase = (*identityUC)(nil)

type IdentityUseCase interface {
	// Resolve returns the identity for an email, creating it on first use.
	Resolve(ctx context.Context, email, name string) (*model.Identity, error)
	FindByID(ctx context.Context, id string) (*model.Identity, error)
}

type identityUC struct {
	identities repository.IdentityRepository
}

func NewIdentityUseCase(identities repository.IdentityRepository) *identityUC {
	return &identityUC{identities: identities}
}

func (u *identityUC) Resolve(ctx context.Context, email, name string) (*model.Identity, error) {
	email = model.NormalizeEmail(email)
	if !model.ValidEmail(email) {
		return nil, domain.ErrInvalidArgument
	}
	return u.identities.GetOrCreate(ctx, repository.NoTX, email, name)
}

func (u *identityUC) FindByID(ctx context.Context, id string) (*model.Identity, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.identities.FindByID(ctx, repository.NoTX, id)
}
