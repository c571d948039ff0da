package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"club-payment-service/internal/domain"
	"club-payment-service/internal/domain/model"
	"club-payment-service/internal/domain/ports/adapter"
	"club-payment-service/internal/domain/ports/repository"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutUseCase creates a pending resource plus a provider checkout session
// and records the pending ledger row. Repeated requests carrying the same
// idempotency key replay the original result verbatim.
type CheckoutUseCase interface {
	CheckoutMembership(ctx context.Context, in MembershipCheckoutInput) (*CheckoutResult, error)
	CheckoutTicket(ctx context.Context, in TicketCheckoutInput) (*CheckoutResult, error)
	CheckoutOrder(ctx context.Context, in OrderCheckoutInput) (*CheckoutResult, error)
}

type CustomerInput struct {
	Email          string
	Name           string
	Consent        bool
	CaptchaToken   string
	ClientIP       string
	IdempotencyKey string
}

type MembershipCheckoutInput struct {
	Customer  CustomerInput
	PlanCode  string
	AutoRenew bool
}

type TicketCheckoutInput struct {
	Customer CustomerInput
	EventID  string
}

type OrderItemInput struct {
	ProductID string
	Quantity  int
}

type OrderCheckoutInput struct {
	Customer CustomerInput
	Items    []OrderItemInput
}

type CheckoutResult struct {
	OrderRef   string
	CheckoutID string
	Reused     bool
}

type checkoutUC struct {
	identities  repository.IdentityRepository
	plans       repository.PlanRepository
	memberships repository.MembershipRepository
	events      repository.EventRepository
	tickets     repository.TicketRepository
	products    repository.ProductRepository
	orders      repository.OrderRepository
	txns        repository.TransactionRepository
	gateway     adapter.PaymentGateway
	captcha     adapter.CaptchaVerifier

	shippingCents int64
	currency      string
	log           *zerolog.Logger
}

func NewCheckoutUseCase(
	identities repository.IdentityRepository,
	plans repository.PlanRepository,
	memberships repository.MembershipRepository,
	events repository.EventRepository,
	tickets repository.TicketRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	txns repository.TransactionRepository,
	gateway adapter.PaymentGateway,
	captcha adapter.CaptchaVerifier,
	shippingCents int64,
	currency string,
	logger *zerolog.Logger,
) *checkoutUC {
	l := logger.With().Str("component", "CheckoutUC").Logger()
	return &checkoutUC{
		identities:    identities,
		plans:         plans,
		memberships:   memberships,
		events:        events,
		tickets:       tickets,
		products:      products,
		orders:        orders,
		txns:          txns,
		gateway:       gateway,
		captcha:       captcha,
		shippingCents: shippingCents,
		currency:      currency,
		log:           &l,
	}
}

// NewOrderRef generates a globally unique, sortable order reference.
func NewOrderRef() string {
	return "ord_" + ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// begin validates the shared customer fields, resolves the identity and, when
// an idempotency key is present, checks for a prior checkout to replay.
func (u *checkoutUC) begin(ctx context.Context, c CustomerInput) (*model.Identity, *CheckoutResult, error) {
	if !c.Consent {
		return nil, nil, fmt.Errorf("consent: %w", domain.ErrInvalidArgument)
	}
	email := model.NormalizeEmail(c.Email)
	if !model.ValidEmail(email) {
		return nil, nil, fmt.Errorf("email: %w", domain.ErrInvalidArgument)
	}
	if u.captcha != nil && c.CaptchaToken != "" {
		ok, err := u.captcha.Verify(ctx, c.CaptchaToken, c.ClientIP)
		if err != nil {
			return nil, nil, fmt.Errorf("captcha verify: %w", err)
		}
		if !ok {
			return nil, nil, domain.ErrCaptchaFailed
		}
	}

	identity, err := u.identities.GetOrCreate(ctx, repository.NoTX, email, c.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve identity: %w", err)
	}

	if c.IdempotencyKey != "" {
		prior, err := u.txns.FindByIdempotencyKey(ctx, repository.NoTX, identity.ID, c.IdempotencyKey)
		switch {
		case err == nil && prior.CheckoutRef != "":
			// Pure replay: no new resource, no provider call.
			return identity, &CheckoutResult{OrderRef: prior.OrderRef, CheckoutID: prior.CheckoutRef, Reused: true}, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, nil, fmt.Errorf("idempotency lookup: %w", err)
		}
	}
	return identity, nil, nil
}

// finish opens the provider checkout and writes the pending ledger row. On a
// provider rejection no transaction row is written, so nothing confirmable
// exists for this attempt.
func (u *checkoutUC) finish(ctx context.Context, identity *model.Identity, kind model.ResourceKind, resourceID string, amountCents int64, currency, description, idemKey string, tokenize bool) (*CheckoutResult, error) {
	orderRef := NewOrderRef()

	co, err := u.gateway.CreateCheckout(ctx, adapter.CreateCheckoutRequest{
		AmountCents: amountCents,
		Currency:    currency,
		Reference:   orderRef,
		Description: description,
		Tokenize:    tokenize,
	})
	if err != nil {
		u.log.Warn().Err(err).Str("kind", string(kind)).Str("order_ref", orderRef).Msg("provider rejected checkout")
		return nil, fmt.Errorf("%w: %v", domain.ErrCheckoutFailed, err)
	}

	txn, err := model.NewPendingTransaction(uuid.NewString(), model.TransactionTypeCheckout, kind, resourceID, identity.ID, orderRef, co.ID, amountCents, currency, description)
	if err != nil {
		return nil, err
	}
	if idemKey != "" {
		txn.IdempotencyKey = &idemKey
	}
	if err := u.txns.Save(ctx, repository.NoTX, txn); err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}

	u.log.Info().Str("kind", string(kind)).Str("order_ref", orderRef).Str("checkout_id", co.ID).Int64("amount_cents", amountCents).Msg("checkout created")
	return &CheckoutResult{OrderRef: orderRef, CheckoutID: co.ID}, nil
}

func (u *checkoutUC) CheckoutMembership(ctx context.Context, in MembershipCheckoutInput) (*CheckoutResult, error) {
	identity, replay, err := u.begin(ctx, in.Customer)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		return replay, nil
	}

	plan, err := u.plans.FindByCode(ctx, repository.NoTX, in.PlanCode)
	if err != nil {
		return nil, fmt.Errorf("plan %q: %w", in.PlanCode, err)
	}
	if plan.PriceCents <= 0 {
		return nil, domain.ErrInvalidArgument
	}

	m, err := model.NewPendingMembership(uuid.NewString(), identity.ID, plan.ID, in.AutoRenew)
	if err != nil {
		return nil, err
	}
	if err := u.memberships.Save(ctx, repository.NoTX, m); err != nil {
		return nil, fmt.Errorf("save membership: %w", err)
	}

	desc := fmt.Sprintf("%s membership", plan.Name)
	return u.finish(ctx, identity, model.ResourceKindMembership, m.ID, plan.PriceCents, plan.Currency, desc, in.Customer.IdempotencyKey, in.AutoRenew)
}

func (u *checkoutUC) CheckoutTicket(ctx context.Context, in TicketCheckoutInput) (*CheckoutResult, error) {
	identity, replay, err := u.begin(ctx, in.Customer)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		return replay, nil
	}

	ev, err := u.events.FindByID(ctx, repository.NoTX, in.EventID)
	if err != nil {
		return nil, fmt.Errorf("event %q: %w", in.EventID, err)
	}
	if !ev.Active || ev.PriceCents <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	// Cheap gate only; confirmation re-checks capacity atomically.
	if !ev.HasCapacity() {
		return nil, domain.ErrSoldOut
	}

	t, err := model.NewPendingTicket(uuid.NewString(), ev.ID, identity.ID)
	if err != nil {
		return nil, err
	}
	if err := u.tickets.Save(ctx, repository.NoTX, t); err != nil {
		return nil, fmt.Errorf("save ticket: %w", err)
	}

	desc := fmt.Sprintf("ticket: %s", ev.Name)
	return u.finish(ctx, identity, model.ResourceKindTicket, t.ID, ev.PriceCents, ev.Currency, desc, in.Customer.IdempotencyKey, false)
}

func (u *checkoutUC) CheckoutOrder(ctx context.Context, in OrderCheckoutInput) (*CheckoutResult, error) {
	identity, replay, err := u.begin(ctx, in.Customer)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		return replay, nil
	}

	if len(in.Items) == 0 {
		return nil, fmt.Errorf("items: %w", domain.ErrInvalidArgument)
	}
	lines := make([]model.OrderLine, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("quantity: %w", domain.ErrInvalidArgument)
		}
		p, err := u.products.FindByID(ctx, repository.NoTX, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %q: %w", it.ProductID, err)
		}
		if !p.Active {
			return nil, fmt.Errorf("product %q inactive: %w", it.ProductID, domain.ErrInvalidArgument)
		}
		lines = append(lines, model.OrderLine{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  it.Quantity,
			UnitCents: p.PriceCents,
		})
	}

	o, err := model.NewPendingOrder(uuid.NewString(), identity.ID, lines, u.shippingCents, u.currency)
	if err != nil {
		return nil, err
	}
	if o.TotalCents <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if err := u.orders.Save(ctx, repository.NoTX, o); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	desc := fmt.Sprintf("shop order (%d items)", len(lines))
	return u.finish(ctx, identity, model.ResourceKindOrder, o.ID, o.TotalCents, o.Currency, desc, in.Customer.IdempotencyKey, false)
}
