package model

import (
	"time"

	"club-payment-service/internal/domain"
)

type ResourceKind string

const (
	ResourceKindMembership ResourceKind = "membership"
	ResourceKindTicket     ResourceKind = "ticket"
	ResourceKindOrder      ResourceKind = "order"
)

type TransactionType string

const (
	TransactionTypeCheckout TransactionType = "checkout"
	TransactionTypeRenewal  TransactionType = "renewal"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusPaid      TransactionStatus = "paid"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// Transaction records one payment attempt against a resource. OrderRef is the
// idempotency boundary for a checkout; (IdentityID, IdempotencyKey) is the
// idempotency boundary for checkout creation.
type Transaction struct {
	ID             string
	Type           TransactionType
	ResourceKind   ResourceKind
	ResourceID     string
	IdentityID     string
	OrderRef       string  // globally unique, caller-generated
	CheckoutRef    string  // provider checkout/session id
	PaymentRef     *string // provider payment id, set once paid
	AmountCents    int64
	Currency       string
	Status         TransactionStatus
	IdempotencyKey *string
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PaidAt         *time.Time
}

func NewPendingTransaction(id string, typ TransactionType, kind ResourceKind, resourceID, identityID, orderRef, checkoutRef string, amountCents int64, currency, description string) (*Transaction, error) {
	if id == "" || resourceID == "" || identityID == "" || orderRef == "" || amountCents <= 0 || len(currency) != 3 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Transaction{
		ID:           id,
		Type:         typ,
		ResourceKind: kind,
		ResourceID:   resourceID,
		IdentityID:   identityID,
		OrderRef:     orderRef,
		CheckoutRef:  checkoutRef,
		AmountCents:  amountCents,
		Currency:     currency,
		Status:       TransactionStatusPending,
		Description:  description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (t *Transaction) IsZero() bool { return t == nil || t.ID == "" }
