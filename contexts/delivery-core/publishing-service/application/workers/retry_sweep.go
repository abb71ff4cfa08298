package workers

import (
	"context"
	"log/slog"

	application "herald/contexts/delivery-core/publishing-service/application"
	"herald/contexts/delivery-core/publishing-service/application/commands"
)

// RetrySweep periodically re-enqueues failed publishing jobs with remaining
// retry budget.
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
	requeued, err := s.Commands.RetryFailedJobs(ctx, limit)
	if err != nil {
		logger.Error("publishing retry sweep cycle failed",
			"event", "publishing_retry_sweep_cycle_failed",
			"module", "delivery-core/publishing-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if requeued > 0 {
		logger.Info("publishing retry sweep cycle completed",
			"event", "publishing_retry_sweep_cycle_completed",
			"module", "delivery-core/publishing-service",
			"layer", "worker",
			"requeued_count", requeued,
		)
	}
	return nil
}
