package workers

import (
	"context"
	"log/slog"

	application "herald/contexts/delivery-core/webhook-service/application"
	"herald/contexts/delivery-core/webhook-service/application/commands"
)

// RetrySweep periodically re-attempts failed webhook deliveries whose
// backoff window has elapsed.
type RetrySweep struct {
	Commands  commands.UseCase
	BatchSize int
	Logger    *slog.Logger
}

func (s RetrySweep) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(s.Logger)
	limit := s.BatchSize
	if limit <= 0 {
		limit = 100
	}
	retried, err := s.Commands.RetryDueDeliveries(ctx, limit)
	if err != nil {
		logger.Error("webhook retry sweep cycle failed",
			"event", "webhook_retry_sweep_cycle_failed",
			"module", "delivery-core/webhook-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if retried > 0 {
		logger.Info("webhook retry sweep cycle completed",
			"event", "webhook_retry_sweep_cycle_completed",
			"module", "delivery-core/webhook-service",
			"layer", "worker",
			"retried_count", retried,
		)
	}
	return nil
}
