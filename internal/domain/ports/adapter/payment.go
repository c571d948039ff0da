package adapter

import "context"

type CheckoutStatus string

const (
	CheckoutStatusPaid       CheckoutStatus = "PAID"
	CheckoutStatusSuccessful CheckoutStatus = "SUCCESSFUL"
	CheckoutStatusPending    CheckoutStatus = "PENDING"
	CheckoutStatusFailed     CheckoutStatus = "FAILED"
)

// Settled reports whether the provider considers the payment captured.
func (s CheckoutStatus) Settled() bool {
	return s == CheckoutStatusPaid || s == CheckoutStatusSuccessful
}

// Card is the tokenized card the provider reports on a settled checkout when
// the payer opted into storing it.
type Card struct {
	Token       string
	Type        string
	Last4       string
	ExpiryMonth int
	ExpiryYear  int
}

// Checkout is the provider-side payment session.
type Checkout struct {
	ID          string
	Status      CheckoutStatus
	AmountCents int64
	Currency    string
	PaymentRef  string // provider transaction id, set once settled
	Card        *Card  // nil unless tokenization happened
}

type CreateCheckoutRequest struct {
	AmountCents int64
	Currency    string
	Reference   string // our order reference
	Description string
	CustomerRef string // required for off-session (recurring) charges
	// InstrumentToken charges a stored card immediately instead of opening a
	// hosted session.
	InstrumentToken string
	// Tokenize asks the provider to store the card for later off-session use.
	Tokenize bool
}

// PaymentGateway is the hex port for the payment provider.
type PaymentGateway interface {
	Name() string
	CreateCheckout(ctx context.Context, req CreateCheckoutRequest) (*Checkout, error)
	// GetCheckout fetches the authoritative current state by provider id.
	// Confirmation never trusts caller-supplied status fields.
	GetCheckout(ctx context.Context, id string) (*Checkout, error)
	CustomerExists(ctx context.Context, customerRef string) (bool, error)
	CreateCustomer(ctx context.Context, customerRef, email, name string) error
}
