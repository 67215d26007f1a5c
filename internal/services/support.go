package services

import (
	"context"
	"time"

	"campus-energy/internal/models"
	"campus-energy/pkg/logging"
	"campus-energy/pkg/metrics"
)

// RetryPolicy retries transient store failures with exponential backoff
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryPolicy is used when a service is configured without one
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, BaseDelay: 200 * time.Millisecond}

// Do calls fn until it succeeds, fails permanently, or the attempts run out.
// Only errors classified by models.IsTransient are retried.
func (p RetryPolicy) Do(ctx context.Context, m *metrics.Collector, op string, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil || attempt >= attempts || !models.IsTransient(err) {
			return err
		}

		m.RecordStoreRetry(op)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		delay *= 2
	}
}

// BestEffort runs a side effect whose failure must never fail the caller.
// Failures are logged and counted under effect.
func BestEffort(ctx context.Context, logger *logging.StructuredLogger, m *metrics.Collector, effect string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		m.RecordSideEffectFailure(effect)
		logger.Warn(ctx, "[SIDE_EFFECT_FAILED] Best-effort operation failed", logging.Fields{
			"effect": effect,
			"error":  err.Error(),
		})
	}
}
