package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "herald/contexts/delivery-core/publishing-service/application"
	"herald/contexts/delivery-core/publishing-service/application/commands"
	"herald/contexts/delivery-core/publishing-service/application/queries"
	domainerrors "herald/contexts/delivery-core/publishing-service/domain/errors"
	httptransport "herald/contexts/delivery-core/publishing-service/transport/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Handler struct {
	Commands commands.UseCase
	Queries  queries.UseCase
	Logger   *slog.Logger
}

func (h Handler) PublishPackHandler(
	ctx context.Context,
	packID string,
	req httptransport.PublishPackRequest,
) (httptransport.PublishPackResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	if err := validate.Struct(req); err != nil {
		logger.Warn("publishing http publish request invalid",
			"event", "publishing_http_publish_request_invalid",
			"module", "delivery-core/publishing-service",
			"layer", "adapter",
			"pack_id", strings.TrimSpace(packID),
			"error", err.Error(),
		)
		return httptransport.PublishPackResponse{}, domainerrors.ErrInvalidPublishInput
	}
	report, err := h.Commands.PublishPack(ctx, commands.PublishPackCommand{
		PackID:    packID,
		UserID:    req.UserID,
		Platforms: req.Platforms,
		Content:   contentFromBody(req.Content),
	})
	if err != nil {
		logger.Warn("publishing http publish failed",
			"event", "publishing_http_publish_failed",
			"module", "delivery-core/publishing-service",
			"layer", "adapter",
			"pack_id", strings.TrimSpace(packID),
			"error", err.Error(),
		)
		return httptransport.PublishPackResponse{}, err
	}

	resp := httptransport.PublishPackResponse{
		PackID: report.PackID,
		Status: string(report.Aggregate),
	}
	for _, outcome := range report.Outcomes {
		resp.Outcomes = append(resp.Outcomes, httptransport.PlatformOutcomeDTO{
			QueueID:     outcome.QueueID,
			Platform:    string(outcome.Platform),
			Status:      string(outcome.Status),
			ExternalURL: outcome.ExternalURL,
			Error:       outcome.Error,
		})
	}
	logger.Info("publishing http publish completed",
		"event", "publishing_http_publish_completed",
		"module", "delivery-core/publishing-service",
		"layer", "adapter",
		"pack_id", report.PackID,
		"aggregate_status", resp.Status,
	)
	return resp, nil
}

func (h Handler) SchedulePublishingHandler(
	ctx context.Context,
	packID string,
	req httptransport.SchedulePublishingRequest,
) (httptransport.SchedulePublishingResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	if err := validate.Struct(req); err != nil {
		logger.Warn("publishing http schedule request invalid",
			"event", "publishing_http_schedule_request_invalid",
			"module", "delivery-core/publishing-service",
			"layer", "adapter",
			"pack_id", strings.TrimSpace(packID),
			"error", err.Error(),
		)
		return httptransport.SchedulePublishingResponse{}, domainerrors.ErrInvalidPublishInput
	}
	scheduledAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ScheduledAt))
	if err != nil {
		logger.Warn("publishing http schedule parse failed",
			"event", "publishing_http_schedule_parse_failed",
			"module", "delivery-core/publishing-service",
			"layer", "adapter",
			"pack_id", strings.TrimSpace(packID),
			"scheduled_at", req.ScheduledAt,
			"error", err.Error(),
		)
		return httptransport.SchedulePublishingResponse{}, domainerrors.ErrInvalidPublishInput
	}

	jobs, err := h.Commands.SchedulePublishing(ctx, commands.SchedulePublishingCommand{
		PackID:      packID,
		UserID:      req.UserID,
		Platforms:   req.Platforms,
		Content:     contentFromBody(req.Content),
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		logger.Warn("publishing http schedule failed",
			"event", "publishing_http_schedule_failed",
			"module", "delivery-core/publishing-service",
			"layer", "adapter",
			"pack_id", strings.TrimSpace(packID),
			"error", err.Error(),
		)
		return httptransport.SchedulePublishingResponse{}, err
	}

	resp := httptransport.SchedulePublishingResponse{PackID: strings.TrimSpace(packID)}
	for _, job := range jobs {
		dto := httptransport.ScheduledJobDTO{
			QueueID:  job.QueueID,
			Platform: string(job.Platform),
			Status:   string(job.Status),
		}
		if job.ScheduledAt != nil {
			dto.ScheduledAt = job.ScheduledAt.UTC().Format(time.RFC3339)
		}
		resp.Jobs = append(resp.Jobs, dto)
	}
	return resp, nil
}

func (h Handler) PublishingStatusHandler(
	ctx context.Context,
	packID string,
) (httptransport.PublishingStatusResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	report, err := h.Queries.GetPublishingStatus(ctx, packID)
	if err != nil {
		logger.Warn("publishing http status failed",
			"event", "publishing_http_status_failed",
			"module", "delivery-core/publishing-service",
			"layer", "adapter",
			"pack_id", strings.TrimSpace(packID),
			"error", err.Error(),
		)
		return httptransport.PublishingStatusResponse{}, err
	}

	resp := httptransport.PublishingStatusResponse{
		PackID: report.PackID,
		Status: string(report.Aggregate),
	}
	for _, entry := range report.Jobs {
		dto := httptransport.JobReportDTO{
			QueueID:      entry.Job.QueueID,
			Platform:     string(entry.Job.Platform),
			Status:       string(entry.Job.Status),
			RetryCount:   entry.Job.RetryCount,
			MaxRetries:   entry.Job.MaxRetries,
			ErrorMessage: entry.Job.ErrorMessage,
		}
		if entry.Job.ScheduledAt != nil {
			dto.ScheduledAt = entry.Job.ScheduledAt.UTC().Format(time.RFC3339)
		}
		if entry.Result != nil {
			dto.ExternalID = entry.Result.ExternalID
			dto.ExternalURL = entry.Result.ExternalURL
			dto.PublishedAt = entry.Result.PublishedAt.UTC().Format(time.RFC3339)
			dto.Metrics = entry.Metrics
		}
		resp.Jobs = append(resp.Jobs, dto)
	}
	return resp, nil
}

func contentFromBody(body httptransport.ContentBody) commands.Content {
	return commands.Content{
		Title:    body.Title,
		Body:     body.Body,
		Summary:  body.Summary,
		HTML:     body.HTML,
		Subject:  body.Subject,
		Tags:     body.Tags,
		ImageURL: body.ImageURL,
		LinkURL:  body.LinkURL,
	}
}
