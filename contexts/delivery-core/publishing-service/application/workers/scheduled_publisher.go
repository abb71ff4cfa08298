package workers

import (
	"context"
	"log/slog"

	application "herald/contexts/delivery-core/publishing-service/application"
	"herald/contexts/delivery-core/publishing-service/application/commands"
)

// ScheduledPublisher dispatches publishing jobs whose scheduled time has
// elapsed.
type ScheduledPublisher struct {
	Commands  commands.UseCase
	BatchSize int
	Logger    *slog.Logger
}

func (p ScheduledPublisher) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(p.Logger)
	limit := p.BatchSize
	if limit <= 0 {
		limit = 100
	}
	if err := p.Commands.ProcessDueScheduled(ctx, limit); err != nil {
		logger.Error("scheduled publisher cycle failed",
			"event", "scheduled_publisher_cycle_failed",
			"module", "delivery-core/publishing-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	return nil
}
