package queries

import (
	"context"
	"log/slog"
	"strings"

	application "herald/contexts/delivery-core/publishing-service/application"
	"herald/contexts/delivery-core/publishing-service/domain/entities"
	"herald/contexts/delivery-core/publishing-service/ports"
)

type UseCase struct {
	Jobs        ports.JobStore
	Credentials ports.CredentialProvider
	Adapters    ports.AdapterRegistry
	Logger      *slog.Logger
}

// JobReport joins one job with its result when one exists. Jobs still pending
// or processing carry no result. Metrics are the platform's post-publish
// engagement numbers, fetched best-effort at read time.
type JobReport struct {
	Job     entities.PublishingJob
	Result  *entities.PublishingResult
	Metrics map[string]any
}

type PackReport struct {
	PackID    string
	Aggregate entities.PackStatus
	Jobs      []JobReport
}

// GetPublishingStatus aggregates a pack's jobs and results for reporting.
func (uc UseCase) GetPublishingStatus(ctx context.Context, packID string) (PackReport, error) {
	logger := application.ResolveLogger(uc.Logger)
	normalizedPackID := strings.TrimSpace(packID)

	jobs, err := uc.Jobs.ListJobsByPack(ctx, normalizedPackID)
	if err != nil {
		logger.Warn("publishing status job list failed",
			"event", "publishing_status_job_list_failed",
			"module", "delivery-core/publishing-service",
			"layer", "application",
			"pack_id", normalizedPackID,
			"error", err.Error(),
		)
		return PackReport{}, err
	}
	results, err := uc.Jobs.ListResultsByPack(ctx, normalizedPackID)
	if err != nil {
		logger.Warn("publishing status result list failed",
			"event", "publishing_status_result_list_failed",
			"module", "delivery-core/publishing-service",
			"layer", "application",
			"pack_id", normalizedPackID,
			"error", err.Error(),
		)
		return PackReport{}, err
	}

	byQueue := make(map[string]entities.PublishingResult, len(results))
	for _, result := range results {
		byQueue[result.QueueID] = result
	}

	report := PackReport{PackID: normalizedPackID, Jobs: make([]JobReport, 0, len(jobs))}
	statuses := make([]entities.JobStatus, 0, len(jobs))
	for _, job := range jobs {
		entry := JobReport{Job: job}
		if result, ok := byQueue[job.QueueID]; ok {
			entry.Result = &result
			entry.Metrics = uc.platformMetrics(ctx, job, result)
		}
		report.Jobs = append(report.Jobs, entry)
		statuses = append(statuses, job.Status)
	}
	report.Aggregate = entities.AggregateStatus(statuses)
	return report, nil
}

// platformMetrics asks the platform adapter for engagement numbers on a
// published result. Any resolution or credential failure yields no metrics;
// the report never fails on enrichment.
func (uc UseCase) platformMetrics(
	ctx context.Context,
	job entities.PublishingJob,
	result entities.PublishingResult,
) map[string]any {
	if uc.Adapters == nil || uc.Credentials == nil {
		return nil
	}
	adapter, err := uc.Adapters.Resolve(job.Platform)
	if err != nil {
		return nil
	}
	creds, err := uc.Credentials.GetCredentials(ctx, job.UserID, job.Platform)
	if err != nil {
		return nil
	}
	metrics := adapter.Metrics(ctx, result, creds)
	if len(metrics) == 0 {
		return nil
	}
	return metrics
}
