package commands

import (
	"context"
	"strings"
	"time"

	application "herald/contexts/delivery-core/publishing-service/application"
	"herald/contexts/delivery-core/publishing-service/domain/entities"
	domainerrors "herald/contexts/delivery-core/publishing-service/domain/errors"
)

type SchedulePublishingCommand struct {
	PackID      string
	UserID      string
	Platforms   []string
	Content     Content
	ScheduledAt time.Time
}

// SchedulePublishing creates pending jobs with a future ScheduledAt. The
// scheduled publisher worker picks them up once due; nothing is dispatched
// here.
func (uc UseCase) SchedulePublishing(ctx context.Context, cmd SchedulePublishingCommand) ([]entities.PublishingJob, error) {
	logger := application.ResolveLogger(uc.Logger)
	packID := strings.TrimSpace(cmd.PackID)
	userID := strings.TrimSpace(cmd.UserID)
	if packID == "" || userID == "" {
		return nil, domainerrors.ErrInvalidPublishInput
	}
	platforms, err := normalizePlatforms(cmd.Platforms)
	if err != nil {
		logger.Warn("schedule publishing platform validation failed",
			"event", "schedule_publishing_platform_validation_failed",
			"module", "delivery-core/publishing-service",
			"layer", "application",
			"pack_id", packID,
			"error", err.Error(),
		)
		return nil, err
	}
	if !cmd.ScheduledAt.After(uc.now()) {
		logger.Warn("schedule publishing time in past",
			"event", "schedule_publishing_time_in_past",
			"module", "delivery-core/publishing-service",
			"layer", "application",
			"pack_id", packID,
			"scheduled_at", cmd.ScheduledAt.UTC().Format(time.RFC3339),
		)
		return nil, domainerrors.ErrScheduleInPast
	}

	scheduledAt := cmd.ScheduledAt.UTC()
	jobs, err := uc.createJobs(ctx, packID, userID, platforms, cmd.Content, &scheduledAt)
	if err != nil {
		return nil, err
	}
	logger.Info("publishing scheduled",
		"event", "publishing_scheduled",
		"module", "delivery-core/publishing-service",
		"layer", "application",
		"pack_id", packID,
		"scheduled_at", scheduledAt.Format(time.RFC3339),
		"platform_count", len(jobs),
	)
	return jobs, nil
}

// ProcessDueScheduled dispatches jobs whose ScheduledAt has elapsed, grouped
// by pack so each pack settles with an aggregate status and completion event.
func (uc UseCase) ProcessDueScheduled(ctx context.Context, limit int) error {
	logger := application.ResolveLogger(uc.Logger)
	if limit <= 0 {
		limit = 100
	}
	due, err := uc.Jobs.ListDueScheduledJobs(ctx, uc.now(), limit)
	if err != nil {
		logger.Error("scheduled publisher due list failed",
			"event", "scheduled_publisher_due_list_failed",
			"module", "delivery-core/publishing-service",
			"layer", "application",
			"limit", limit,
			"error", err.Error(),
		)
		return err
	}
	if len(due) == 0 {
		return nil
	}

	byPack := make(map[string][]entities.PublishingJob)
	packOrder := make([]string, 0)
	for _, job := range due {
		if _, seen := byPack[job.PackID]; !seen {
			packOrder = append(packOrder, job.PackID)
		}
		byPack[job.PackID] = append(byPack[job.PackID], job)
	}
	for _, packID := range packOrder {
		report := uc.settleJobs(ctx, packID, byPack[packID])
		logger.Info("scheduled pack settled",
			"event", "scheduled_pack_settled",
			"module", "delivery-core/publishing-service",
			"layer", "application",
			"pack_id", packID,
			"aggregate_status", string(report.Aggregate),
			"job_count", len(byPack[packID]),
		)
	}
	return nil
}
