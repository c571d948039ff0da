package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"club-payment-service/internal/domain/ports/repository"
	"club-payment-service/internal/infra/metrics"
)

// PendingSweeper cancels pending resources that aged past the sweep window
// without ever getting a ledger row: the provider checkout was never created,
// so nothing can confirm them.
type PendingSweeper struct {
	interval time.Duration
	age      time.Duration
	batch    int

	memberships repository.MembershipRepository
	tickets     repository.TicketRepository
	orders      repository.OrderRepository
	log         *zerolog.Logger
}

func NewPendingSweeper(
	interval, age time.Duration,
	batch int,
	memberships repository.MembershipRepository,
	tickets repository.TicketRepository,
	orders repository.OrderRepository,
	logger *zerolog.Logger,
) *PendingSweeper {
	compLog := logger.With().Str("component", "PendingSweeper").Logger()
	return &PendingSweeper{
		interval:    interval,
		age:         age,
		batch:       batch,
		memberships: memberships,
		tickets:     tickets,
		orders:      orders,
		log:         &compLog,
	}
}

func (w *PendingSweeper) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting pending sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping pending sweeper")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *PendingSweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.age)

	sweepers := []struct {
		kind string
		fn   func(context.Context, repository.Tx, time.Time, int) (int, error)
	}{
		{"membership", w.memberships.CancelOrphanedPending},
		{"ticket", w.tickets.CancelOrphanedPending},
		{"order", w.orders.CancelOrphanedPending},
	}
	for _, s := range sweepers {
		n, err := s.fn(ctx, repository.NoTX, cutoff, w.batch)
		if err != nil {
			w.log.Error().Err(err).Str("kind", s.kind).Msg("pending sweep failed")
			continue
		}
		if n > 0 {
			metrics.AddPendingSwept(s.kind, n)
			w.log.Info().Str("kind", s.kind).Int("count", n).Msg("orphaned pending cancelled")
		}
	}
}
