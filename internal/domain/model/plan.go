package model

import (
	"time"

	"club-payment-service/internal/domain"
)

// MembershipPlan is a purchasable membership definition. Price is stored in
// minor units (cents) to avoid float errors.
type MembershipPlan struct {
	ID           string
	Code         string // stable selector used at checkout, e.g. "monthly"
	Name         string
	PeriodMonths int
	PriceCents   int64
	Currency     string
	Active       bool
	CreatedAt    time.Time
}

func (p *MembershipPlan) IsZero() bool { return p == nil || p.ID == "" }

// NewMembershipPlan validates and constructs a plan.
func NewMembershipPlan(id, code, name string, periodMonths int, priceCents int64, currency string) (*MembershipPlan, error) {
	if id == "" || code == "" || name == "" || periodMonths <= 0 || priceCents <= 0 || len(currency) != 3 {
		return nil, domain.ErrInvalidArgument
	}
	return &MembershipPlan{
		ID:           id,
		Code:         code,
		Name:         name,
		PeriodMonths: periodMonths,
		PriceCents:   priceCents,
		Currency:     currency,
		Active:       true,
		CreatedAt:    time.Now(),
	}, nil
}
