package usecase

import (
	"context"

	"github.com/google/uuid"

	"club-payment-service/internal/domain/model"
	"club-payment-service/internal/domain/ports/repository"
)

// PlanUseCase manages membership plans for the admin surface.
type PlanUseCase struct {
	repo repository.PlanRepository
}

func NewPlanUseCase(repo repository.PlanRepository) *PlanUseCase {
	return &PlanUseCase{repo: repo}
}

func (uc *PlanUseCase) Create(ctx context.Context, code, name string, periodMonths int, priceCents int64, currency string) (*model.MembershipPlan, error) {
	plan, err := model.NewMembershipPlan(uuid.NewString(), code, name, periodMonths, priceCents, currency)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Save(ctx, repository.NoTX, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (uc *PlanUseCase) Update(ctx context.Context, plan *model.MembershipPlan) error {
	return uc.repo.Save(ctx, repository.NoTX, plan)
}

func (uc *PlanUseCase) Get(ctx context.Context, id string) (*model.MembershipPlan, error) {
	return uc.repo.FindByID(ctx, repository.NoTX, id)
}

func (uc *PlanUseCase) List(ctx context.Context) ([]*model.MembershipPlan, error) {
	return uc.repo.ListActive(ctx, repository.NoTX)
}

func (uc *PlanUseCase) Deactivate(ctx context.Context, id string) error {
	return uc.repo.Deactivate(ctx, repository.NoTX, id)
}
