package model

import (
	"time"

	"club-payment-service/internal/domain"
)

type MembershipStatus string

const (
	MembershipStatusPending   MembershipStatus = "pending"
	MembershipStatusActive    MembershipStatus = "active"
	MembershipStatusCancelled MembershipStatus = "cancelled"
)

// RenewalAttemptCap is the fixed number of consecutive failed recurring
// charges after which auto-renew is disabled until a human re-enables it.
const RenewalAttemptCap = 3

// Membership is a plan entitlement for one identity. Created pending at
// checkout time; activated exactly once by the confirmation flow and
// afterwards only extended by the renewal charge flow.
type Membership struct {
	ID                 string
	IdentityID         string
	PlanID             string
	Status             MembershipStatus
	StartDate          *time.Time // nil until active
	EndDate            *time.Time // nil until active
	AutoRenew          bool
	RenewalAttempts    int
	RenewalWarningSent bool
	InstrumentID       *string // stored payment instrument, if tokenized
	CreatedAt          time.Time
}

func NewPendingMembership(id, identityID, planID string, autoRenew bool) (*Membership, error) {
	if id == "" || identityID == "" || planID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Membership{
		ID:         id,
		IdentityID: identityID,
		PlanID:     planID,
		Status:     MembershipStatusPending,
		AutoRenew:  autoRenew,
		CreatedAt:  time.Now(),
	}, nil
}

func (m *Membership) IsZero() bool { return m == nil || m.ID == "" }

// AddMonthsClamped adds months to t, clamping the day-of-month to the length
// of the target month instead of letting time.AddDate overflow into the next
// one (Jan 31 + 1 month = Feb 29 in a leap year, Feb 28 otherwise).
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, mo, d := t.Date()
	hh, mm, ss := t.Clock()
	first := time.Date(y, mo+time.Month(months), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}
