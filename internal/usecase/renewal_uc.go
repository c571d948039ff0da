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
var _ RenewalUseCase = (*renewalUC)(nil)

// RenewalUseCase is the charge executor plus the two candidate scans the
// scheduler runs each cycle. The scheduler iterates candidates strictly
// sequentially; nothing here assumes concurrent callers for the same
// membership.
type RenewalUseCase interface {
	DueRenewals(ctx context.Context, window time.Duration, limit int) ([]*model.Membership, error)
	// ChargeRenewal attempts one recurring charge against the membership's
	// stored instrument, applying the attempt-count/cap policy. The returned
	// error reports the charge outcome for logging; bookkeeping and
	// notifications have already happened when it returns.
	ChargeRenewal(ctx context.Context, m *model.Membership) error
	// SendDueWarnings sends exactly one pre-renewal notice per membership
	// inside the warning window and returns how many were sent.
	SendDueWarnings(ctx context.Context, window time.Duration, limit int) (int, error)
}

type renewalUC struct {
	identities  repository.IdentityRepository
	plans       repository.PlanRepository
	memberships repository.MembershipRepository
	instruments repository.InstrumentRepository
	txns        repository.TransactionRepository
	renewals    repository.RenewalLogRepository
	tm          repository.TransactionManager
	gateway     adapter.PaymentGateway
	mailer      *Mailer
	log         *zerolog.Logger
}

func NewRenewalUseCase(
	identities repository.IdentityRepository,
	plans repository.PlanRepository,
	memberships repository.MembershipRepository,
	instruments repository.InstrumentRepository,
	txns repository.TransactionRepository,
	renewals repository.RenewalLogRepository,
	tm repository.TransactionManager,
	gateway adapter.PaymentGateway,
	mailer *Mailer,
	logger *zerolog.Logger,
) *renewalUC {
	l := logger.With().Str("component", "RenewalUC").Logger()
	return &renewalUC{
		identities:  identities,
		plans:       plans,
		memberships: memberships,
		instruments: instruments,
		txns:        txns,
		renewals:    renewals,
		tm:          tm,
		gateway:     gateway,
		mailer:      mailer,
		log:         &l,
	}
}

func (u *renewalUC) DueRenewals(ctx context.Context, window time.Duration, limit int) ([]*model.Membership, error) {
	return u.memberships.FindDueForRenewal(ctx, repository.NoTX, window, model.RenewalAttemptCap, limit)
}

func (u *renewalUC) ChargeRenewal(ctx context.Context, m *model.Membership) error {
	if m == nil || m.EndDate == nil {
		return domain.ErrInvalidArgument
	}
	identity, err := u.identities.FindByID(ctx, repository.NoTX, m.IdentityID)
	if err != nil {
		return fmt.Errorf("identity for membership %s: %w", m.ID, err)
	}

	inst, err := u.instruments.FindActiveByIdentity(ctx, repository.NoTX, m.IdentityID)
	if errors.Is(err, domain.ErrNotFound) {
		// No provider call is made without an instrument.
		return u.recordFailure(ctx, m, identity, "no_instrument", 0, "")
	}
	if err != nil {
		return fmt.Errorf("instrument for membership %s: %w", m.ID, err)
	}

	// Price is the plan's current one, not the price frozen at the original
	// purchase.
	plan, err := u.plans.FindByID(ctx, repository.NoTX, m.PlanID)
	if err != nil {
		return fmt.Errorf("plan for membership %s: %w", m.ID, err)
	}

	exists, err := u.gateway.CustomerExists(ctx, identity.CustomerRef())
	if err != nil {
		return u.recordFailure(ctx, m, identity, fmt.Sprintf("customer lookup: %v", err), plan.PriceCents, plan.Currency)
	}
	if !exists {
		return u.recordFailure(ctx, m, identity, "customer_missing", plan.PriceCents, plan.Currency)
	}

	orderRef := NewOrderRef()
	co, err := u.gateway.CreateCheckout(ctx, adapter.CreateCheckoutRequest{
		AmountCents:     plan.PriceCents,
		Currency:        plan.Currency,
		Reference:       orderRef,
		Description:     fmt.Sprintf("%s membership renewal", plan.Name),
		CustomerRef:     identity.CustomerRef(),
		InstrumentToken: inst.Token,
	})
	if err != nil {
		return u.recordFailure(ctx, m, identity, fmt.Sprintf("checkout: %v", err), plan.PriceCents, plan.Currency)
	}

	settled, err := u.gateway.GetCheckout(ctx, co.ID)
	if err != nil {
		return u.recordFailure(ctx, m, identity, fmt.Sprintf("checkout status: %v", err), plan.PriceCents, plan.Currency)
	}
	if !settled.Status.Settled() {
		return u.recordFailure(ctx, m, identity, "charge_declined", plan.PriceCents, plan.Currency)
	}

	return u.recordSuccess(ctx, m, identity, plan, orderRef, settled)
}

func (u *renewalUC) recordSuccess(ctx context.Context, m *model.Membership, identity *model.Identity, plan *model.MembershipPlan, orderRef string, co *adapter.Checkout) error {
	// Extension stacks on the current end date, not on now.
	newEnd := model.AddMonthsClamped(*m.EndDate, plan.PeriodMonths)
	now := time.Now()

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.memberships.RecordRenewalSuccess(ctx, tx, m.ID, newEnd); err != nil {
			return fmt.Errorf("record renewal success: %w", err)
		}
		txn, err := model.NewPendingTransaction(uuid.NewString(), model.TransactionTypeRenewal, model.ResourceKindMembership, m.ID, m.IdentityID, orderRef, co.ID, plan.PriceCents, plan.Currency, fmt.Sprintf("%s membership renewal", plan.Name))
		if err != nil {
			return err
		}
		txn.Status = model.TransactionStatusPaid
		txn.PaymentRef = &co.PaymentRef
		txn.PaidAt = &now
		if err := u.txns.Save(ctx, tx, txn); err != nil {
			return fmt.Errorf("save renewal transaction: %w", err)
		}
		return u.renewals.Append(ctx, tx, &model.RenewalAttempt{
			ID:           uuid.NewString(),
			MembershipID: m.ID,
			Outcome:      model.RenewalOutcomeSuccess,
			PaymentRef:   &co.PaymentRef,
			AmountCents:  plan.PriceCents,
			Currency:     plan.Currency,
			AttemptedAt:  now,
		})
	})
	if err != nil {
		return err
	}

	metrics.IncRenewalCharge("success")
	metrics.AddPaymentRevenue(plan.Currency, plan.PriceCents)
	u.mailer.SendRenewalSuccess(ctx, identity.Email, newEnd, plan.PriceCents, plan.Currency)
	u.log.Info().Str("membership_id", m.ID).Time("new_end", newEnd).Msg("membership renewed")
	return nil
}

// recordFailure applies the attempt-count policy: increment, append the audit
// row, notify, and on reaching the cap disable auto-renew with a distinct
// final-failure mail sent exactly once.
func (u *renewalUC) recordFailure(ctx context.Context, m *model.Membership, identity *model.Identity, detail string, amountCents int64, currency string) error {
	attempts := m.RenewalAttempts + 1
	capped := attempts >= model.RenewalAttemptCap

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.memberships.RecordRenewalFailure(ctx, tx, m.ID, attempts, capped); err != nil {
			return fmt.Errorf("record renewal failure: %w", err)
		}
		return u.renewals.Append(ctx, tx, &model.RenewalAttempt{
			ID:           uuid.NewString(),
			MembershipID: m.ID,
			Outcome:      model.RenewalOutcomeFailed,
			ErrorDetail:  detail,
			AmountCents:  amountCents,
			Currency:     currency,
			AttemptedAt:  time.Now(),
		})
	})
	if err != nil {
		return err
	}

	metrics.IncRenewalCharge("failed")
	if capped {
		metrics.IncAutoRenewDisabled()
		u.mailer.SendRenewalFinalFailure(ctx, identity.Email)
	} else {
		u.mailer.SendRenewalFailure(ctx, identity.Email, attempts, model.RenewalAttemptCap)
	}
	u.log.Warn().Str("membership_id", m.ID).Int("attempt", attempts).Bool("auto_renew_disabled", capped).Str("detail", detail).Msg("renewal charge failed")
	return fmt.Errorf("renewal charge for membership %s failed: %s", m.ID, detail)
}

func (u *renewalUC) SendDueWarnings(ctx context.Context, window time.Duration, limit int) (int, error) {
	due, err := u.memberships.FindDueForWarning(ctx, repository.NoTX, window, limit)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, m := range due {
		if m.EndDate == nil {
			continue
		}
		identity, err := u.identities.FindByID(ctx, repository.NoTX, m.IdentityID)
		if err != nil {
			u.log.Error().Err(err).Str("membership_id", m.ID).Msg("identity lookup for warning failed")
			continue
		}
		u.mailer.SendRenewalWarning(ctx, identity.Email, *m.EndDate)
		// Flag is set immediately after sending so the next cycle skips it.
		if err := u.memberships.MarkWarningSent(ctx, repository.NoTX, m.ID); err != nil {
			u.log.Error().Err(err).Str("membership_id", m.ID).Msg("marking warning sent failed")
			continue
		}
		metrics.IncRenewalWarning()
		sent++
	}
	return sent, nil
}
