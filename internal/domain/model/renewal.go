package model

import "time"

type RenewalOutcome string

const (
	RenewalOutcomeSuccess RenewalOutcome = "success"
	RenewalOutcomeFailed  RenewalOutcome = "failed"
)

// RenewalAttempt is one row in the append-only audit trail of recurring
// charges. Never mutated after insertion.
type RenewalAttempt struct {
	ID           string
	MembershipID string
	Outcome      RenewalOutcome
	PaymentRef   *string
	ErrorDetail  string
	AmountCents  int64
	Currency     string
	AttemptedAt  time.Time
}
