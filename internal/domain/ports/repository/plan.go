package repository

import (
	"context"

	"club-payment-service/internal/domain/model"
)

// -----------------------------
// Membership plans
// -----------------------------

type PlanRepository interface {
	Save(ctx context.Context, tx Tx, p *model.MembershipPlan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.MembershipPlan, error)
	// FindByCode resolves the checkout selector; only active plans match.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.MembershipPlan, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.MembershipPlan, error)
	Deactivate(ctx context.Context, tx Tx, id string) error
}
