package model

import (
	"time"

	"club-payment-service/internal/domain"
)

// PaymentInstrument is a tokenized card suitable for off-session recurring
// charges. At most one instrument per identity is active at any time; the
// repository swaps instruments as a single atomic step.
type PaymentInstrument struct {
	ID          string
	IdentityID  string
	Token       string // opaque provider token, never the PAN
	CardType    string
	Last4       string
	ExpiryMonth int
	ExpiryYear  int
	Active      bool
	CreatedAt   time.Time
}

func NewPaymentInstrument(id, identityID, token, cardType, last4 string, expMonth, expYear int) (*PaymentInstrument, error) {
	if id == "" || identityID == "" || token == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &PaymentInstrument{
		ID:          id,
		IdentityID:  identityID,
		Token:       token,
		CardType:    cardType,
		Last4:       last4,
		ExpiryMonth: expMonth,
		ExpiryYear:  expYear,
		Active:      true,
		CreatedAt:   time.Now(),
	}, nil
}

func (p *PaymentInstrument) IsZero() bool { return p == nil || p.ID == "" }
