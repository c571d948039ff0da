package email

import (
	"context"

	"github.com/rs/zerolog"

	"club-payment-service/internal/domain/ports/adapter"
)

var _ adapter.EmailSender = (*NoopSender)(nil)

// NoopSender logs instead of delivering; dev mode only.
type NoopSender struct {
	log *zerolog.Logger
}

func NewNoopSender(logger *zerolog.Logger) *NoopSender {
	l := logger.With().Str("component", "NoopSender").Logger()
	return &NoopSender{log: &l}
}

func (s *NoopSender) Send(ctx context.Context, e adapter.Email) error {
	s.log.Info().Str("to", e.To).Str("subject", e.Subject).Msg("email suppressed")
	return nil
}
