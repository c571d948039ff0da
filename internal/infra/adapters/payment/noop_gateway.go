package payment

import (
	"context"
	"fmt"
	"sync"

	"club-payment-service/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway is an in-memory gateway for dev mode: every checkout settles
// immediately at the requested amount.
type NoopGateway struct {
	mu        sync.Mutex
	seq       int64
	checkouts map[string]*adapter.Checkout
	customers map[string]bool
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{
		checkouts: make(map[string]*adapter.Checkout),
		customers: make(map[string]bool),
	}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) CreateCheckout(ctx context.Context, req adapter.CreateCheckoutRequest) (*adapter.Checkout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	co := &adapter.Checkout{
		ID:          fmt.Sprintf("noop-co-%d", g.seq),
		Status:      adapter.CheckoutStatusPaid,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		PaymentRef:  fmt.Sprintf("noop-pay-%d", g.seq),
	}
	if req.Tokenize {
		co.Card = &adapter.Card{Token: fmt.Sprintf("noop-tok-%d", g.seq), Type: "VISA", Last4: "4242", ExpiryMonth: 12, ExpiryYear: 2030}
	}
	g.checkouts[co.ID] = co
	return co, nil
}

func (g *NoopGateway) GetCheckout(ctx context.Context, id string) (*adapter.Checkout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	co, ok := g.checkouts[id]
	if !ok {
		return nil, fmt.Errorf("noop: checkout %s not found", id)
	}
	return co, nil
}

func (g *NoopGateway) CustomerExists(ctx context.Context, customerRef string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.customers[customerRef], nil
}

func (g *NoopGateway) CreateCustomer(ctx context.Context, customerRef, email, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.customers[customerRef] = true
	return nil
}
