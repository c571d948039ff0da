//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"club-payment-service/internal/domain"
	"club-payment-service/internal/domain/model"
	"club-payment-service/internal/domain/ports/adapter"
	"club-payment-service/internal/domain/ports/repository"
	"club-payment-service/internal/usecase"
)

// svcDeps holds the full set of mocks plus the wired use cases; shared by the
// checkout, confirm and renewal tests.
type svcDeps struct {
	identities  *MockIdentityRepo
	plans       *MockPlanRepo
	memberships *MockMembershipRepo
	events      *MockEventRepo
	tickets     *MockTicketRepo
	products    *MockProductRepo
	orders      *MockOrderRepo
	instruments *MockInstrumentRepo
	txns        *MockTransactionRepo
	renewals    *MockRenewalLogRepo
	gateway     *MockPaymentGateway
	sender      *MockEmailSender
	captcha     *MockCaptcha
	tm          *MockTxManager

	checkoutUC usecase.CheckoutUseCase
	confirmUC  usecase.ConfirmUseCase
	renewUC    usecase.RenewalUseCase
}

func newSvcDeps() *svcDeps {
	d := &svcDeps{
		identities:  NewMockIdentityRepo(),
		plans:       NewMockPlanRepo(),
		memberships: NewMockMembershipRepo(),
		events:      NewMockEventRepo(),
		tickets:     NewMockTicketRepo(),
		products:    NewMockProductRepo(),
		orders:      NewMockOrderRepo(),
		instruments: NewMockInstrumentRepo(),
		txns:        NewMockTransactionRepo(),
		renewals:    NewMockRenewalLogRepo(),
		gateway:     NewMockPaymentGateway(),
		sender:      &MockEmailSender{},
		captcha:     &MockCaptcha{},
		tm:          NewMockTxManager(),
	}
	logger := newTestLogger()
	mailer := usecase.NewMailer(d.sender, logger)
	d.checkoutUC = usecase.NewCheckoutUseCase(
		d.identities, d.plans, d.memberships, d.events, d.tickets,
		d.products, d.orders, d.txns, d.gateway, d.captcha,
		500, "EUR", logger,
	)
	d.confirmUC = usecase.NewConfirmUseCase(
		d.identities, d.plans, d.memberships, d.events, d.tickets,
		d.products, d.orders, d.instruments, d.txns, d.tm, d.gateway, mailer, logger,
	)
	d.renewUC = usecase.NewRenewalUseCase(
		d.identities, d.plans, d.memberships, d.instruments,
		d.txns, d.renewals, d.tm, d.gateway, mailer, logger,
	)
	return d
}

func (d *svcDeps) addPlan(ctx context.Context, code string, months int, priceCents int64) *model.MembershipPlan {
	p := &model.MembershipPlan{
		ID:           "plan-" + code,
		Code:         code,
		Name:         code,
		PeriodMonths: months,
		PriceCents:   priceCents,
		Currency:     "EUR",
		Active:       true,
		CreatedAt:    time.Now(),
	}
	_ = d.plans.Save(ctx, repository.NoTX, p)
	return p
}

func customer(email string) usecase.CustomerInput {
	return usecase.CustomerInput{Email: email, Name: "Jo Test", Consent: true}
}

func TestCheckoutMembership(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending membership, checkout session and ledger row", func(t *testing.T) {
		d := newSvcDeps()
		d.addPlan(ctx, "annual", 12, 9000)

		res, err := d.checkoutUC.CheckoutMembership(ctx, usecase.MembershipCheckoutInput{
			Customer: customer("jo@example.org"),
			PlanCode: "annual",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.OrderRef == "" || res.CheckoutID == "" {
			t.Fatalf("empty refs in result: %+v", res)
		}
		if res.Reused {
			t.Fatal("fresh checkout flagged as reused")
		}

		txn, err := d.txns.FindByOrderRef(ctx, repository.NoTX, res.OrderRef)
		if err != nil {
			t.Fatalf("ledger row missing: %v", err)
		}
		if txn.Status != model.TransactionStatusPending {
			t.Fatalf("want pending ledger row, got %s", txn.Status)
		}
		if txn.AmountCents != 9000 || txn.Currency != "EUR" {
			t.Fatalf("wrong amount on ledger row: %d %s", txn.AmountCents, txn.Currency)
		}

		m, err := d.memberships.FindByID(ctx, repository.NoTX, txn.ResourceID)
		if err != nil {
			t.Fatalf("membership missing: %v", err)
		}
		if m.Status != model.MembershipStatusPending {
			t.Fatalf("want pending membership, got %s", m.Status)
		}
	})

	t.Run("replays prior result for the same idempotency key", func(t *testing.T) {
		d := newSvcDeps()
		d.addPlan(ctx, "annual", 12, 9000)

		in := usecase.MembershipCheckoutInput{Customer: customer("jo@example.org"), PlanCode: "annual"}
		in.Customer.IdempotencyKey = "idem-1"

		first, err := d.checkoutUC.CheckoutMembership(ctx, in)
		if err != nil {
			t.Fatalf("first checkout: %v", err)
		}
		second, err := d.checkoutUC.CheckoutMembership(ctx, in)
		if err != nil {
			t.Fatalf("second checkout: %v", err)
		}
		if !second.Reused {
			t.Fatal("replay not flagged as reused")
		}
		if second.OrderRef != first.OrderRef || second.CheckoutID != first.CheckoutID {
			t.Fatalf("replay returned different refs: %+v vs %+v", first, second)
		}
		if got := len(d.gateway.Created); got != 1 {
			t.Fatalf("provider called %d times, want 1", got)
		}
		if got := d.txns.Count(); got != 1 {
			t.Fatalf("%d ledger rows, want 1", got)
		}
	})

	t.Run("rejects missing consent and invalid email", func(t *testing.T) {
		d := newSvcDeps()
		d.addPlan(ctx, "annual", 12, 9000)

		in := usecase.MembershipCheckoutInput{Customer: customer("jo@example.org"), PlanCode: "annual"}
		in.Customer.Consent = false
		if _, err := d.checkoutUC.CheckoutMembership(ctx, in); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument for missing consent, got %v", err)
		}

		in = usecase.MembershipCheckoutInput{Customer: customer("not-an-email"), PlanCode: "annual"}
		if _, err := d.checkoutUC.CheckoutMembership(ctx, in); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument for bad email, got %v", err)
		}
	})

	t.Run("provider rejection writes no ledger row", func(t *testing.T) {
		d := newSvcDeps()
		d.addPlan(ctx, "annual", 12, 9000)
		d.gateway.CreateCheckoutFunc = func(ctx context.Context, req adapter.CreateCheckoutRequest) (*adapter.Checkout, error) {
			return nil, errors.New("provider down")
		}

		_, err := d.checkoutUC.CheckoutMembership(ctx, usecase.MembershipCheckoutInput{
			Customer: customer("jo@example.org"),
			PlanCode: "annual",
		})
		if !errors.Is(err, domain.ErrCheckoutFailed) {
			t.Fatalf("want ErrCheckoutFailed, got %v", err)
		}
		if got := d.txns.Count(); got != 0 {
			t.Fatalf("%d ledger rows after provider rejection, want 0", got)
		}
	})

	t.Run("unknown plan code fails", func(t *testing.T) {
		d := newSvcDeps()
		_, err := d.checkoutUC.CheckoutMembership(ctx, usecase.MembershipCheckoutInput{
			Customer: customer("jo@example.org"),
			PlanCode: "nope",
		})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	})
}

func TestCheckoutTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("sold-out event is rejected at checkout", func(t *testing.T) {
		d := newSvcDeps()
		d.events.Put(&model.Event{ID: "ev-1", Name: "Spring Fest", Capacity: 2, Sold: 2, PriceCents: 1500, Currency: "EUR", Active: true, StartsAt: time.Now().Add(48 * time.Hour)})

		_, err := d.checkoutUC.CheckoutTicket(ctx, usecase.TicketCheckoutInput{
			Customer: customer("jo@example.org"),
			EventID:  "ev-1",
		})
		if !errors.Is(err, domain.ErrSoldOut) {
			t.Fatalf("want ErrSoldOut, got %v", err)
		}
	})

	t.Run("creates pending ticket", func(t *testing.T) {
		d := newSvcDeps()
		d.events.Put(&model.Event{ID: "ev-1", Name: "Spring Fest", Capacity: 10, PriceCents: 1500, Currency: "EUR", Active: true, StartsAt: time.Now().Add(48 * time.Hour)})

		res, err := d.checkoutUC.CheckoutTicket(ctx, usecase.TicketCheckoutInput{
			Customer: customer("jo@example.org"),
			EventID:  "ev-1",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		txn, err := d.txns.FindByOrderRef(ctx, repository.NoTX, res.OrderRef)
		if err != nil {
			t.Fatalf("ledger row missing: %v", err)
		}
		tk, err := d.tickets.FindByID(ctx, repository.NoTX, txn.ResourceID)
		if err != nil {
			t.Fatalf("ticket missing: %v", err)
		}
		if tk.Status != model.TicketStatusPending {
			t.Fatalf("want pending ticket, got %s", tk.Status)
		}
	})
}

func TestCheckoutOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("totals include shipping and frozen unit prices", func(t *testing.T) {
		d := newSvcDeps()
		d.products.Put(&model.Product{ID: "p-1", Name: "Club Shirt", PriceCents: 2500, Currency: "EUR", Stock: 10, Active: true})
		d.products.Put(&model.Product{ID: "p-2", Name: "Mug", PriceCents: 800, Currency: "EUR", Stock: 10, Active: true})

		res, err := d.checkoutUC.CheckoutOrder(ctx, usecase.OrderCheckoutInput{
			Customer: customer("jo@example.org"),
			Items: []usecase.OrderItemInput{
				{ProductID: "p-1", Quantity: 2},
				{ProductID: "p-2", Quantity: 1},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		txn, err := d.txns.FindByOrderRef(ctx, repository.NoTX, res.OrderRef)
		if err != nil {
			t.Fatalf("ledger row missing: %v", err)
		}
		// 2*2500 + 800 + 500 shipping
		if txn.AmountCents != 6300 {
			t.Fatalf("want 6300 cents, got %d", txn.AmountCents)
		}
		o, err := d.orders.FindByID(ctx, repository.NoTX, txn.ResourceID)
		if err != nil {
			t.Fatalf("order missing: %v", err)
		}
		if o.SubtotalCents != 5800 || o.ShippingCents != 500 {
			t.Fatalf("wrong totals: %+v", o)
		}
	})

	t.Run("empty cart and zero quantities are rejected", func(t *testing.T) {
		d := newSvcDeps()
		d.products.Put(&model.Product{ID: "p-1", Name: "Club Shirt", PriceCents: 2500, Currency: "EUR", Stock: 10, Active: true})

		if _, err := d.checkoutUC.CheckoutOrder(ctx, usecase.OrderCheckoutInput{
			Customer: customer("jo@example.org"),
		}); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument for empty cart, got %v", err)
		}

		if _, err := d.checkoutUC.CheckoutOrder(ctx, usecase.OrderCheckoutInput{
			Customer: customer("jo@example.org"),
			Items:    []usecase.OrderItemInput{{ProductID: "p-1", Quantity: 0}},
		}); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument for zero quantity, got %v", err)
		}
	})

	t.Run("failed captcha blocks checkout", func(t *testing.T) {
		d := newSvcDeps()
		d.products.Put(&model.Product{ID: "p-1", Name: "Club Shirt", PriceCents: 2500, Currency: "EUR", Stock: 10, Active: true})
		d.captcha.VerifyFunc = func(ctx context.Context, token, clientIP string) (bool, error) { return false, nil }

		in := usecase.OrderCheckoutInput{
			Customer: customer("jo@example.org"),
			Items:    []usecase.OrderItemInput{{ProductID: "p-1", Quantity: 1}},
		}
		in.Customer.CaptchaToken = "tok"
		if _, err := d.checkoutUC.CheckoutOrder(ctx, in); !errors.Is(err, domain.ErrCaptchaFailed) {
			t.Fatalf("want ErrCaptchaFailed, got %v", err)
		}
	})
}
