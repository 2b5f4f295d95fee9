package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	ucport "telegram-resume-board/internal/domain/ports/usecase"
	"telegram-resume-board/internal/infra/metrics"
)

// ExpiryWorker runs the expiry sweep once at start and then on every interval.
// A failed pass is retried after backoff instead. Errors and panics never stop the loop.
type ExpiryWorker struct {
	sweeper  ucport.ExpirySweeper
	interval time.Duration
	backoff  time.Duration
	clock    Clock
	log      *zerolog.Logger
}

func NewExpiryWorker(sweeper ucport.ExpirySweeper, interval, backoff time.Duration, clock Clock, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = 12 * time.Hour
	}
	if backoff <= 0 {
		backoff = 5 * time.Minute
	}
	if clock == nil {
		clock = RealClock
	}
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		sweeper:  sweeper,
		interval: interval,
		backoff:  backoff,
		clock:    clock,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry worker")
	for {
		wait := w.interval
		if err := w.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				w.log.Info().Msg("Stopping expiry worker")
				return ctx.Err()
			}
			w.log.Error().Err(err).Dur("retry_in", w.backoff).Msg("expiry sweep failed")
			wait = w.backoff
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-w.clock.After(wait):
		}
	}
}

func (w *ExpiryWorker) runOnce(ctx context.Context) (err error) {
	start := w.clock.Now()
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			err = fmt.Errorf("expiry sweep panic: %v", r)
		}
		metrics.ObserveSweep(status, w.clock.Now().Sub(start).Seconds())
	}()

	n, err := w.sweeper.ExpireStale(ctx)
	if err != nil {
		status = "error"
		return err
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("expired posts demoted to drafts")
	}
	return nil
}
