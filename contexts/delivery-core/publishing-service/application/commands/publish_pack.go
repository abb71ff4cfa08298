package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	application "herald/contexts/delivery-core/publishing-service/application"
	"herald/contexts/delivery-core/publishing-service/domain/entities"
	domainerrors "herald/contexts/delivery-core/publishing-service/domain/errors"
	"herald/contexts/delivery-core/publishing-service/ports"
	"herald/internal/platform/observability"
	"herald/internal/shared/events"
)

type PublishPackCommand struct {
	PackID    string
	UserID    string
	Platforms []string
	Content   Content
}

type PlatformOutcome struct {
	QueueID     string
	Platform    entities.Platform
	Status      entities.JobStatus
	ExternalURL string
	Error       string
}

type PublishPackReport struct {
	PackID    string
	Aggregate entities.PackStatus
	Outcomes  []PlatformOutcome
}

type UseCase struct {
	Jobs        ports.JobStore
	Credentials ports.CredentialProvider
	Adapters    ports.AdapterRegistry
	Events      ports.EventTrigger
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

// PublishPack fans one pack out to every requested platform. Jobs are
// dispatched concurrently and settled independently; once all jobs are
// terminal the pack aggregate is computed and exactly one completion event
// fires. Job-level failures are reported as data, never as an error.
func (uc UseCase) PublishPack(ctx context.Context, cmd PublishPackCommand) (PublishPackReport, error) {
	logger := application.ResolveLogger(uc.Logger)
	packID := strings.TrimSpace(cmd.PackID)
	userID := strings.TrimSpace(cmd.UserID)
	if packID == "" || userID == "" {
		return PublishPackReport{}, domainerrors.ErrInvalidPublishInput
	}
	platforms, err := normalizePlatforms(cmd.Platforms)
	if err != nil {
		logger.Warn("publish pack platform validation failed",
			"event", "publish_pack_platform_validation_failed",
			"module", "delivery-core/publishing-service",
			"layer", "application",
			"pack_id", packID,
			"error", err.Error(),
		)
		return PublishPackReport{}, err
	}

	uc.trigger(ctx, events.PublishingStarted, map[string]any{
		"pack_id":   packID,
		"platforms": platformStrings(platforms),
	})

	jobs, err := uc.createJobs(ctx, packID, userID, platforms, cmd.Content, nil)
	if err != nil {
		return PublishPackReport{}, err
	}

	report := uc.settleJobs(ctx, packID, jobs)
	logger.Info("publish pack settled",
		"event", "publish_pack_settled",
		"module", "delivery-core/publishing-service",
		"layer", "application",
		"pack_id", packID,
		"aggregate_status", string(report.Aggregate),
		"platform_count", len(jobs),
	)
	return report, nil
}

// settleJobs processes jobs concurrently, waits for every outcome, persists
// the aggregate, and fires the completion event. One platform's failure never
// cancels another's publish in flight.
func (uc UseCase) settleJobs(ctx context.Context, packID string, jobs []entities.PublishingJob) PublishPackReport {
	logger := application.ResolveLogger(uc.Logger)
	outcomes := make([]PlatformOutcome, len(jobs))

	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(idx int, job entities.PublishingJob) {
			defer wg.Done()
			outcomes[idx] = uc.ProcessJob(ctx, job)
		}(i, jobs[i])
	}
	wg.Wait()

	statuses := make([]entities.JobStatus, 0, len(outcomes))
	failures := make([]string, 0)
	outcomePayload := make([]map[string]any, 0, len(outcomes))
	for _, outcome := range outcomes {
		statuses = append(statuses, outcome.Status)
		entry := map[string]any{
			"queue_id": outcome.QueueID,
			"platform": string(outcome.Platform),
			"status":   string(outcome.Status),
		}
		if outcome.ExternalURL != "" {
			entry["external_url"] = outcome.ExternalURL
		}
		if outcome.Error != "" {
			entry["error"] = outcome.Error
			failures = append(failures, string(outcome.Platform)+": "+outcome.Error)
		}
		outcomePayload = append(outcomePayload, entry)
	}

	aggregate := entities.AggregateStatus(statuses)
	if err := uc.Jobs.UpdatePackStatus(ctx, packID, aggregate); err != nil {
		logger.Error("publish pack aggregate update failed",
			"event", "publish_pack_aggregate_update_failed",
			"module", "delivery-core/publishing-service",
			"layer", "application",
			"pack_id", packID,
			"aggregate_status", string(aggregate),
			"error", err.Error(),
		)
	}

	completionEvent := events.PublishingCompleted
	payload := map[string]any{
		"pack_id":  packID,
		"status":   string(aggregate),
		"outcomes": outcomePayload,
	}
	if aggregate == entities.PackStatusFailed {
		completionEvent = events.PublishingFailed
		payload["errors"] = failures
	}
	uc.trigger(ctx, completionEvent, payload)

	return PublishPackReport{PackID: packID, Aggregate: aggregate, Outcomes: outcomes}
}

func (uc UseCase) createJobs(
	ctx context.Context,
	packID string,
	userID string,
	platforms []entities.Platform,
	content Content,
	scheduledAt *time.Time,
) ([]entities.PublishingJob, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.now()
	jobs := make([]entities.PublishingJob, 0, len(platforms))
	for _, platform := range platforms {
		queueID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			logger.Error("publish job id generation failed",
				"event", "publish_job_id_generation_failed",
				"module", "delivery-core/publishing-service",
				"layer", "application",
				"pack_id", packID,
				"platform", string(platform),
				"error", err.Error(),
			)
			return nil, err
		}
		contentType, contentData := FormatContent(platform, content)
		job := entities.PublishingJob{
			QueueID:     queueID,
			PackID:      packID,
			UserID:      userID,
			Platform:    platform,
			ContentType: contentType,
			ContentData: contentData,
			Status:      entities.JobStatusPending,
			ScheduledAt: scheduledAt,
			MaxRetries:  entities.DefaultMaxRetries,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := uc.Jobs.CreateJob(ctx, job); err != nil {
			logger.Error("publish job create failed",
				"event", "publish_job_create_failed",
				"module", "delivery-core/publishing-service",
				"layer", "application",
				"pack_id", packID,
				"queue_id", queueID,
				"platform", string(platform),
				"error", err.Error(),
			)
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// ProcessJob runs one job through its full lifecycle: processing -> validate
// -> publish -> published|failed. Adapter and credential errors are converted
// into persisted job failures; nothing escapes to the caller but the outcome.
func (uc UseCase) ProcessJob(ctx context.Context, job entities.PublishingJob) PlatformOutcome {
	logger := application.ResolveLogger(uc.Logger)

	job.Status = entities.JobStatusProcessing
	job.UpdatedAt = uc.now()
	if err := uc.Jobs.UpdateJob(ctx, job); err != nil {
		logger.Error("publish job processing mark failed",
			"event", "publish_job_processing_mark_failed",
			"module", "delivery-core/publishing-service",
			"layer", "application",
			"queue_id", job.QueueID,
			"platform", string(job.Platform),
			"error", err.Error(),
		)
		return uc.failJob(ctx, job, err, true)
	}

	adapter, err := uc.Adapters.Resolve(job.Platform)
	if err != nil {
		return uc.failJob(ctx, job, err, false)
	}

	creds, err := uc.Credentials.GetCredentials(ctx, job.UserID, job.Platform)
	if err != nil {
		// Missing or expired credentials need a re-auth, not a retry.
		retryable := !errors.Is(err, domainerrors.ErrCredentialsNotFound) &&
			!errors.Is(err, domainerrors.ErrCredentialsExpired)
		return uc.failJob(ctx, job, err, retryable)
	}

	if !adapter.Authenticate(ctx, creds) {
		logger.Warn("publish job authentication failed",
			"event", "publish_job_authentication_failed",
			"module", "delivery-core/publishing-service",
			"layer", "application",
			"queue_id", job.QueueID,
			"platform", string(job.Platform),
		)
		return uc.failJob(ctx, job, domainerrors.ErrCredentialsRejected, false)
	}

	if result := adapter.ValidateContent(job.ContentData); !result.Valid {
		message := domainerrors.ErrInvalidContent.Error()
		if len(result.Errors) > 0 {
			message = strings.Join(result.Errors, "; ")
		}
		logger.Warn("publish job content validation failed",
			"event", "publish_job_content_validation_failed",
			"module", "delivery-core/publishing-service",
			"layer", "application",
			"queue_id", job.QueueID,
			"platform", string(job.Platform),
			"errors", message,
		)
		return uc.failJob(ctx, job, errors.New(message), false)
	}

	started := time.Now()
	result, err := adapter.Publish(ctx, job, creds)
	observability.PublishDuration.WithLabelValues(string(job.Platform)).Observe(time.Since(started).Seconds())
	if err != nil {
		logger.Warn("publish job external publish failed",
			"event", "publish_job_external_publish_failed",
			"module", "delivery-core/publishing-service",
			"layer", "application",
			"queue_id", job.QueueID,
			"platform", string(job.Platform),
			"error", err.Error(),
		)
		return uc.failJob(ctx, job, err, true)
	}

	resultID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return uc.failJob(ctx, job, err, true)
	}
	result.ResultID = resultID
	result.QueueID = job.QueueID
	result.Platform = job.Platform
	if result.PublishedAt.IsZero() {
		result.PublishedAt = uc.now()
	}
	if err := uc.Jobs.CreateResult(ctx, result); err != nil {
		logger.Error("publish job result persistence failed",
			"event", "publish_job_result_persistence_failed",
			"module", "delivery-core/publishing-service",
			"layer", "application",
			"queue_id", job.QueueID,
			"platform", string(job.Platform),
			"error", err.Error(),
		)
		return uc.failJob(ctx, job, err, true)
	}

	job.Status = entities.JobStatusPublished
	job.ErrorMessage = ""
	job.UpdatedAt = uc.now()
	if err := uc.Jobs.UpdateJob(ctx, job); err != nil {
		logger.Error("publish job published mark failed",
			"event", "publish_job_published_mark_failed",
			"module", "delivery-core/publishing-service",
			"layer", "application",
			"queue_id", job.QueueID,
			"platform", string(job.Platform),
			"error", err.Error(),
		)
	}
	observability.PublishingJobs.WithLabelValues(string(job.Platform), string(entities.JobStatusPublished)).Inc()
	logger.Info("publish job published",
		"event", "publish_job_published",
		"module", "delivery-core/publishing-service",
		"layer", "application",
		"queue_id", job.QueueID,
		"pack_id", job.PackID,
		"platform", string(job.Platform),
		"external_id", result.ExternalID,
	)
	return PlatformOutcome{
		QueueID:     job.QueueID,
		Platform:    job.Platform,
		Status:      entities.JobStatusPublished,
		ExternalURL: result.ExternalURL,
	}
}

// failJob persists a terminal failure. Non-retryable failures burn the whole
// retry budget so the sweep never picks them up.
func (uc UseCase) failJob(
	ctx context.Context,
	job entities.PublishingJob,
	cause error,
	retryable bool,
) PlatformOutcome {
	logger := application.ResolveLogger(uc.Logger)
	job.Status = entities.JobStatusFailed
	job.ErrorMessage = strings.TrimSpace(cause.Error())
	if !retryable {
		job.RetryCount = job.MaxRetries
	}
	job.UpdatedAt = uc.now()
	if err := uc.Jobs.UpdateJob(ctx, job); err != nil {
		logger.Error("publish job failure mark failed",
			"event", "publish_job_failure_mark_failed",
			"module", "delivery-core/publishing-service",
			"layer", "application",
			"queue_id", job.QueueID,
			"platform", string(job.Platform),
			"error", err.Error(),
		)
	}
	observability.PublishingJobs.WithLabelValues(string(job.Platform), string(entities.JobStatusFailed)).Inc()
	if job.RetryCount >= job.MaxRetries {
		observability.RetriesExhausted.WithLabelValues("publishing_job").Inc()
	}
	return PlatformOutcome{
		QueueID:  job.QueueID,
		Platform: job.Platform,
		Status:   entities.JobStatusFailed,
		Error:    job.ErrorMessage,
	}
}

func (uc UseCase) trigger(ctx context.Context, eventType string, payload map[string]any) {
	logger := application.ResolveLogger(uc.Logger)
	if uc.Events == nil {
		return
	}
	if err := uc.Events.Trigger(ctx, eventType, payload); err != nil {
		logger.Error("publishing lifecycle event trigger failed",
			"event", "publishing_lifecycle_trigger_failed",
			"module", "delivery-core/publishing-service",
			"layer", "application",
			"event_type", eventType,
			"error", err.Error(),
		)
	}
}

func (uc UseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func platformStrings(platforms []entities.Platform) []string {
	values := make([]string, 0, len(platforms))
	for _, platform := range platforms {
		values = append(values, string(platform))
	}
	return values
}
