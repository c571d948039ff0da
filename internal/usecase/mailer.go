package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"club-payment-service/internal/domain/model"
	"club-payment-service/internal/domain/ports/adapter"
	"club-payment-service/internal/infra/metrics"
)

// Mailer composes and sends the transactional mails of the activation and
// renewal flows. Every send is best-effort: failures are logged and counted,
// never returned, so a broken mail provider cannot fail a confirmation.
type Mailer struct {
	sender adapter.EmailSender
	log    *zerolog.Logger
}

func NewMailer(sender adapter.EmailSender, logger *zerolog.Logger) *Mailer {
	l := logger.With().Str("component", "Mailer").Logger()
	return &Mailer{sender: sender, log: &l}
}

func (m *Mailer) send(ctx context.Context, kind string, e adapter.Email) {
	if m == nil || m.sender == nil {
		return
	}
	if err := m.sender.Send(ctx, e); err != nil {
		metrics.IncEmail(kind, false)
		m.log.Error().Err(err).Str("kind", kind).Str("to", e.To).Msg("email send failed")
		return
	}
	metrics.IncEmail(kind, true)
}

func (m *Mailer) SendConfirmation(ctx context.Context, to string, kind model.ResourceKind, description string, amountCents int64, currency string) {
	subject := "Payment received"
	body := fmt.Sprintf("Thanks! We received your payment of %s for %s.", formatAmount(amountCents, currency), description)
	m.send(ctx, "confirmation", adapter.Email{
		To:      to,
		Subject: subject,
		HTML:    "<p>" + body + "</p>",
		Text:    body,
	})
}

func (m *Mailer) SendRenewalWarning(ctx context.Context, to string, endDate time.Time) {
	body := fmt.Sprintf("Your membership renews automatically on %s. No action is needed.", endDate.Format("2 January 2006"))
	m.send(ctx, "renewal_warning", adapter.Email{
		To:      to,
		Subject: "Your membership renews soon",
		HTML:    "<p>" + body + "</p>",
		Text:    body,
	})
}

func (m *Mailer) SendRenewalSuccess(ctx context.Context, to string, newEnd time.Time, amountCents int64, currency string) {
	body := fmt.Sprintf("Your membership was renewed for %s and now runs until %s.", formatAmount(amountCents, currency), newEnd.Format("2 January 2006"))
	m.send(ctx, "renewal_success", adapter.Email{
		To:      to,
		Subject: "Membership renewed",
		HTML:    "<p>" + body + "</p>",
		Text:    body,
	})
}

func (m *Mailer) SendRenewalFailure(ctx context.Context, to string, attempt, cap int) {
	body := fmt.Sprintf("We could not charge your stored card (attempt %d of %d). We will retry automatically.", attempt, cap)
	m.send(ctx, "renewal_failure", adapter.Email{
		To:      to,
		Subject: fmt.Sprintf("Membership renewal failed (attempt %d of %d)", attempt, cap),
		HTML:    "<p>" + body + "</p>",
		Text:    body,
	})
}

func (m *Mailer) SendRenewalFinalFailure(ctx context.Context, to string) {
	body := "Automatic renewal has been switched off after repeated failed charges. Please renew manually to keep your membership."
	m.send(ctx, "renewal_final_failure", adapter.Email{
		To:      to,
		Subject: "Action required: automatic renewal disabled",
		HTML:    "<p>" + body + "</p>",
		Text:    body,
	})
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}
