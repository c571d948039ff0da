package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"club-payment-service/internal/domain"
	"club-payment-service/internal/domain/model"
	"club-payment-service/internal/domain/ports/adapter"
	"club-payment-service/internal/domain/ports/repository"
	"club-payment-service/internal/infra/metrics"
)

// Compile-time check
var _ ConfirmUseCase = (*confirmUC)(nil)

type ConfirmStatus string

const (
	ConfirmStatusActive          ConfirmStatus = "active"
	ConfirmStatusAlreadyActive   ConfirmStatus = "already_active"
	ConfirmStatusPending         ConfirmStatus = "pending"
	ConfirmStatusPaymentMismatch ConfirmStatus = "payment_mismatch"
	ConfirmStatusSoldOut         ConfirmStatus = "sold_out"
	ConfirmStatusNotFound        ConfirmStatus = "order_not_found"
)

// Terminal reports whether polling again can change the outcome.
func (s ConfirmStatus) Terminal() bool { return s != ConfirmStatusPending }

// ConfirmResult carries the outcome plus the current resource snapshot.
// Exactly one of Membership/Ticket/Order is set when the resource was found.
type ConfirmResult struct {
	Status     ConfirmStatus
	Kind       model.ResourceKind
	Membership *model.Membership
	Ticket     *model.Ticket
	Order      *model.Order
}

// ConfirmUseCase is the single state-transition path that moves a paid
// resource from pending to active. Both delivery paths (client poll and
// provider webhook) end up here, so every step has to tolerate duplicate and
// out-of-order invocation. An error return means a transient failure the
// caller may retry; every business outcome is a ConfirmResult.
type ConfirmUseCase interface {
	ConfirmByOrderRef(ctx context.Context, orderRef string) (*ConfirmResult, error)
	// ConfirmByCheckoutRef serves the webhook path, which only knows the
	// provider's checkout reference.
	ConfirmByCheckoutRef(ctx context.Context, checkoutRef string) (*ConfirmResult, error)
}

type confirmUC struct {
	identities  repository.IdentityRepository
	plans       repository.PlanRepository
	memberships repository.MembershipRepository
	events      repository.EventRepository
	tickets     repository.TicketRepository
	products    repository.ProductRepository
	orders      repository.OrderRepository
	instruments repository.InstrumentRepository
	txns        repository.TransactionRepository
	tm          repository.TransactionManager
	gateway     adapter.PaymentGateway
	mailer      *Mailer
	log         *zerolog.Logger
}

func NewConfirmUseCase(
	identities repository.IdentityRepository,
	plans repository.PlanRepository,
	memberships repository.MembershipRepository,
	events repository.EventRepository,
	tickets repository.TicketRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	instruments repository.InstrumentRepository,
	txns repository.TransactionRepository,
	tm repository.TransactionManager,
	gateway adapter.PaymentGateway,
	mailer *Mailer,
	logger *zerolog.Logger,
) *confirmUC {
	l := logger.With().Str("component", "ConfirmUC").Logger()
	return &confirmUC{
		identities:  identities,
		plans:       plans,
		memberships: memberships,
		events:      events,
		tickets:     tickets,
		products:    products,
		orders:      orders,
		instruments: instruments,
		txns:        txns,
		tm:          tm,
		gateway:     gateway,
		mailer:      mailer,
		log:         &l,
	}
}

// Sentinels used to abort the activation transaction with a specific outcome.
var (
	errRaceLost = errors.New("resource no longer pending")
	errSoldOut  = errors.New("capacity exhausted at activation")
)

func (u *confirmUC) ConfirmByOrderRef(ctx context.Context, orderRef string) (*ConfirmResult, error) {
	if orderRef == "" {
		return &ConfirmResult{Status: ConfirmStatusNotFound}, nil
	}
	txn, err := u.txns.FindByOrderRef(ctx, repository.NoTX, orderRef)
	if errors.Is(err, domain.ErrNotFound) {
		return &ConfirmResult{Status: ConfirmStatusNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup order %q: %w", orderRef, err)
	}
	return u.confirm(ctx, txn)
}

func (u *confirmUC) ConfirmByCheckoutRef(ctx context.Context, checkoutRef string) (*ConfirmResult, error) {
	if checkoutRef == "" {
		return &ConfirmResult{Status: ConfirmStatusNotFound}, nil
	}
	txn, err := u.txns.FindByCheckoutRef(ctx, repository.NoTX, checkoutRef)
	if errors.Is(err, domain.ErrNotFound) {
		return &ConfirmResult{Status: ConfirmStatusNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup checkout %q: %w", checkoutRef, err)
	}
	return u.confirm(ctx, txn)
}

// confirm runs the ordered transition: already-active check, authoritative
// provider fetch, amount/currency equality, then the per-kind side effects
// behind a conditional status update inside one database transaction.
func (u *confirmUC) confirm(ctx context.Context, txn *model.Transaction) (*ConfirmResult, error) {
	// Already-active check runs before any provider call or write.
	snapshot, active, err := u.loadSnapshot(ctx, txn)
	if err != nil {
		return nil, err
	}
	if active {
		snapshot.Status = ConfirmStatusAlreadyActive
		metrics.IncConfirmation(string(txn.ResourceKind), string(ConfirmStatusAlreadyActive))
		return snapshot, nil
	}

	co, err := u.gateway.GetCheckout(ctx, txn.CheckoutRef)
	if err != nil {
		return nil, fmt.Errorf("fetch checkout %q: %w", txn.CheckoutRef, err)
	}
	if !co.Status.Settled() {
		snapshot.Status = ConfirmStatusPending
		metrics.IncConfirmation(string(txn.ResourceKind), string(ConfirmStatusPending))
		return snapshot, nil
	}
	if co.AmountCents != txn.AmountCents || co.Currency != txn.Currency {
		u.log.Warn().
			Str("order_ref", txn.OrderRef).
			Int64("expected_cents", txn.AmountCents).Str("expected_currency", txn.Currency).
			Int64("reported_cents", co.AmountCents).Str("reported_currency", co.Currency).
			Msg("provider amount/currency mismatch, refusing activation")
		snapshot.Status = ConfirmStatusPaymentMismatch
		metrics.IncConfirmation(string(txn.ResourceKind), string(ConfirmStatusPaymentMismatch))
		return snapshot, nil
	}

	var storedInstrument bool
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		storedInstrument, err = u.activate(ctx, tx, txn, co)
		if err != nil {
			return err
		}
		claimed, err := u.txns.MarkPaidIfPending(ctx, tx, txn.ID, co.PaymentRef, time.Now())
		if err != nil {
			return fmt.Errorf("mark transaction paid: %w", err)
		}
		if !claimed {
			return errRaceLost
		}
		return nil
	})
	switch {
	case errors.Is(err, errRaceLost):
		snapshot, _, serr := u.loadSnapshot(ctx, txn)
		if serr != nil {
			return nil, serr
		}
		snapshot.Status = ConfirmStatusAlreadyActive
		metrics.IncConfirmation(string(txn.ResourceKind), string(ConfirmStatusAlreadyActive))
		return snapshot, nil
	case errors.Is(err, errSoldOut):
		snapshot.Status = ConfirmStatusSoldOut
		metrics.IncConfirmation(string(txn.ResourceKind), string(ConfirmStatusSoldOut))
		return snapshot, nil
	case err != nil:
		return nil, err
	}

	// Post-commit, best-effort: provider customer registration for recurring
	// charges and the confirmation email. Neither can undo the activation.
	identity, err := u.identities.FindByID(ctx, repository.NoTX, txn.IdentityID)
	if err == nil {
		if storedInstrument {
			u.ensureProviderCustomer(ctx, identity)
		}
		u.mailer.SendConfirmation(ctx, identity.Email, txn.ResourceKind, txn.Description, txn.AmountCents, txn.Currency)
	} else {
		u.log.Error().Err(err).Str("identity_id", txn.IdentityID).Msg("identity lookup for confirmation email failed")
	}

	result, _, err := u.loadSnapshot(ctx, txn)
	if err != nil {
		return nil, err
	}
	result.Status = ConfirmStatusActive
	metrics.IncConfirmation(string(txn.ResourceKind), string(ConfirmStatusActive))
	metrics.AddPaymentRevenue(txn.Currency, txn.AmountCents)
	u.log.Info().Str("order_ref", txn.OrderRef).Str("kind", string(txn.ResourceKind)).Msg("resource activated")
	return result, nil
}

// loadSnapshot fetches the resource behind a transaction and reports whether
// it is already in its terminal activated state.
func (u *confirmUC) loadSnapshot(ctx context.Context, txn *model.Transaction) (*ConfirmResult, bool, error) {
	res := &ConfirmResult{Kind: txn.ResourceKind}
	switch txn.ResourceKind {
	case model.ResourceKindMembership:
		m, err := u.memberships.FindByID(ctx, repository.NoTX, txn.ResourceID)
		if err != nil {
			return nil, false, fmt.Errorf("load membership: %w", err)
		}
		res.Membership = m
		return res, m.Status == model.MembershipStatusActive, nil
	case model.ResourceKindTicket:
		t, err := u.tickets.FindByID(ctx, repository.NoTX, txn.ResourceID)
		if err != nil {
			return nil, false, fmt.Errorf("load ticket: %w", err)
		}
		res.Ticket = t
		return res, t.Status == model.TicketStatusActive, nil
	case model.ResourceKindOrder:
		o, err := u.orders.FindByID(ctx, repository.NoTX, txn.ResourceID)
		if err != nil {
			return nil, false, fmt.Errorf("load order: %w", err)
		}
		res.Order = o
		return res, o.Status == model.OrderStatusCompleted, nil
	default:
		return nil, false, fmt.Errorf("resource kind %q: %w", txn.ResourceKind, domain.ErrInvalidArgument)
	}
}

// activate applies the resource-specific side effects inside the transaction.
// The conditional status update claims the resource first; the loser of a
// race observes zero affected rows and the whole transaction rolls back, so
// capacity, stock and the ledger are touched at most once per resource.
func (u *confirmUC) activate(ctx context.Context, tx repository.Tx, txn *model.Transaction, co *adapter.Checkout) (storedInstrument bool, err error) {
	now := time.Now()
	switch txn.ResourceKind {
	case model.ResourceKindMembership:
		m, err := u.memberships.FindByID(ctx, tx, txn.ResourceID)
		if err != nil {
			return false, fmt.Errorf("load membership: %w", err)
		}
		plan, err := u.plans.FindByID(ctx, tx, m.PlanID)
		if err != nil {
			return false, fmt.Errorf("load plan: %w", err)
		}

		// A renewal stacks on top of any unexpired period instead of
		// resetting it.
		base := now
		if end, err := u.memberships.LatestActiveEndDate(ctx, tx, m.IdentityID); err == nil && end.After(base) {
			base = end
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return false, fmt.Errorf("latest end date: %w", err)
		}
		newEnd := model.AddMonthsClamped(base, plan.PeriodMonths)

		var instrumentID *string
		if m.AutoRenew && co.Card != nil && co.Card.Token != "" {
			inst, err := model.NewPaymentInstrument(uuid.NewString(), m.IdentityID, co.Card.Token, co.Card.Type, co.Card.Last4, co.Card.ExpiryMonth, co.Card.ExpiryYear)
			if err != nil {
				return false, err
			}
			if err := u.instruments.ReplaceActive(ctx, tx, inst); err != nil {
				return false, fmt.Errorf("store instrument: %w", err)
			}
			instrumentID = &inst.ID
			storedInstrument = true
		}

		claimed, err := u.memberships.ActivateIfPending(ctx, tx, m.ID, now, newEnd, instrumentID)
		if err != nil {
			return false, fmt.Errorf("activate membership: %w", err)
		}
		if !claimed {
			return false, errRaceLost
		}
		return storedInstrument, nil

	case model.ResourceKindTicket:
		claimed, err := u.tickets.ActivateIfPending(ctx, tx, txn.ResourceID)
		if err != nil {
			return false, fmt.Errorf("activate ticket: %w", err)
		}
		if !claimed {
			return false, errRaceLost
		}
		t, err := u.tickets.FindByID(ctx, tx, txn.ResourceID)
		if err != nil {
			return false, fmt.Errorf("load ticket: %w", err)
		}
		// Capacity is re-checked at this moment, not only at checkout time.
		ok, err := u.events.IncrementSoldIfAvailable(ctx, tx, t.EventID)
		if err != nil {
			return false, fmt.Errorf("increment sold: %w", err)
		}
		if !ok {
			return false, errSoldOut
		}
		return false, nil

	case model.ResourceKindOrder:
		claimed, err := u.orders.CompleteIfPending(ctx, tx, txn.ResourceID)
		if err != nil {
			return false, fmt.Errorf("complete order: %w", err)
		}
		if !claimed {
			return false, errRaceLost
		}
		o, err := u.orders.FindByID(ctx, tx, txn.ResourceID)
		if err != nil {
			return false, fmt.Errorf("load order: %w", err)
		}
		for _, line := range o.Lines {
			if err := u.products.DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return false, fmt.Errorf("decrement stock %q: %w", line.ProductID, err)
			}
		}
		return false, nil

	default:
		return false, fmt.Errorf("resource kind %q: %w", txn.ResourceKind, domain.ErrInvalidArgument)
	}
}

// ensureProviderCustomer registers the identity at the provider so later
// off-session renewal charges can reference it. Best-effort: the charge
// executor re-checks before every recurring charge.
func (u *confirmUC) ensureProviderCustomer(ctx context.Context, identity *model.Identity) {
	ref := identity.CustomerRef()
	exists, err := u.gateway.CustomerExists(ctx, ref)
	if err != nil {
		u.log.Warn().Err(err).Str("customer_ref", ref).Msg("customer existence check failed")
		return
	}
	if exists {
		return
	}
	if err := u.gateway.CreateCustomer(ctx, ref, identity.Email, identity.Name); err != nil {
		u.log.Warn().Err(err).Str("customer_ref", ref).Msg("customer registration failed")
	}
}
