package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-p2p-trading/internal/infra/metrics"
)

// OrderExpirer is the slice of the order use case the worker drives.
type OrderExpirer interface {
	ExpireStale(ctx context.Context, window time.Duration, limit int) (int, error)
}

// OrderExpiryWorker expires orders whose buyer did not send an invoice within
// the window. The add-invoice wizard notices on its next reply.
type OrderExpiryWorker struct {
	interval time.Duration
	window   time.Duration
	batch    int
	orders   OrderExpirer
	log      *zerolog.Logger
}

func NewOrderExpiryWorker(interval, window time.Duration, batch int, orders OrderExpirer, logger *zerolog.Logger) *OrderExpiryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	exprLog := logger.With().Str("component", "OrderExpiryWorker").Logger()
	return &OrderExpiryWorker{
		interval: interval,
		window:   window,
		batch:    batch,
		orders:   orders,
		log:      &exprLog,
	}
}

func (w *OrderExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("window", w.window).Msg("Starting order expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping order expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *OrderExpiryWorker) tick(ctx context.Context) {
	n, err := w.orders.ExpireStale(ctx, w.window, w.batch)
	if err != nil {
		metrics.IncExpiryRun("error")
		w.log.Error().Err(err).Msg("order expiry run failed")
	} else {
		metrics.IncExpiryRun("ok")
	}
	if n > 0 {
		metrics.AddOrdersExpired(n)
		w.log.Info().Int("count", n).Msg("stale orders expired")
	}
}
