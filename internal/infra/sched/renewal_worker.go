package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"club-payment-service/internal/domain"
	"club-payment-service/internal/infra/redis"
	"club-payment-service/internal/usecase"
)

const renewalLockKey = "sched:renewal"

// RenewalWorker periodically sends renewal warnings and charges memberships
// whose period is about to end. A redis lock keeps the pass singleton across
// replicas; items are charged sequentially with a delay between them so the
// provider never sees a burst.
type RenewalWorker struct {
	interval  time.Duration
	itemDelay time.Duration
	lookahead time.Duration
	warning   time.Duration
	batch     int

	renewUC usecase.RenewalUseCase
	locker  redis.Locker
	log     *zerolog.Logger
}

func NewRenewalWorker(
	interval, itemDelay, lookahead, warning time.Duration,
	batch int,
	renewUC usecase.RenewalUseCase,
	locker redis.Locker,
	logger *zerolog.Logger,
) *RenewalWorker {
	compLog := logger.With().Str("component", "RenewalWorker").Logger()
	return &RenewalWorker{
		interval:  interval,
		itemDelay: itemDelay,
		lookahead: lookahead,
		warning:   warning,
		batch:     batch,
		renewUC:   renewUC,
		locker:    locker,
		log:       &compLog,
	}
}

func (w *RenewalWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting renewal worker")
	// Run once on startup, then on every tick
	w.runPass(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping renewal worker")
			return ctx.Err()
		case <-ticker.C:
			w.runPass(ctx)
		}
	}
}

func (w *RenewalWorker) runPass(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, renewalLockKey, w.interval)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			w.log.Debug().Msg("renewal pass already running elsewhere")
		} else {
			w.log.Error().Err(err).Msg("renewal lock failed")
		}
		return
	}
	defer func() {
		if err := w.locker.Unlock(ctx, renewalLockKey, token); err != nil {
			w.log.Warn().Err(err).Msg("renewal lock release failed")
		}
	}()

	if n, err := w.renewUC.SendDueWarnings(ctx, w.warning, w.batch); err != nil {
		w.log.Error().Err(err).Msg("sending renewal warnings failed")
	} else if n > 0 {
		w.log.Info().Int("count", n).Msg("renewal warnings sent")
	}

	due, err := w.renewUC.DueRenewals(ctx, w.lookahead, w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("listing due renewals failed")
		return
	}
	if len(due) == 0 {
		return
	}
	w.log.Info().Int("count", len(due)).Msg("charging due renewals")

	for i, m := range due {
		if ctx.Err() != nil {
			return
		}
		// One failed charge never stops the rest of the batch.
		if err := w.renewUC.ChargeRenewal(ctx, m); err != nil {
			w.log.Warn().Err(err).Str("membership_id", m.ID).Msg("renewal charge failed")
		}
		if i < len(due)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.itemDelay):
			}
		}
	}
}
