package commands

import (
	"context"
	"sync"

	application "herald/contexts/delivery-core/publishing-service/application"
	"herald/contexts/delivery-core/publishing-service/domain/entities"
)

// RetryFailedJobs sweeps failed jobs that still have retry budget, resets each
// to pending with RetryCount+1, and reprocesses them concurrently. Job-level
// failures are logged and counted, never returned; only a store error reading
// the sweep set surfaces to the caller.
func (uc UseCase) RetryFailedJobs(ctx context.Context, limit int) (int, error) {
	logger := application.ResolveLogger(uc.Logger)
	if limit <= 0 {
		limit = 100
	}
	retryable, err := uc.Jobs.ListRetryableJobs(ctx, limit)
	if err != nil {
		logger.Error("retry sweep list failed",
			"event", "retry_sweep_list_failed",
			"module", "delivery-core/publishing-service",
			"layer", "application",
			"limit", limit,
			"error", err.Error(),
		)
		return 0, err
	}
	if len(retryable) == 0 {
		return 0, nil
	}

	var wg sync.WaitGroup
	requeued := 0
	for i := range retryable {
		job := retryable[i]
		job.Status = entities.JobStatusPending
		job.RetryCount++
		job.ErrorMessage = ""
		job.UpdatedAt = uc.now()
		if err := uc.Jobs.UpdateJob(ctx, job); err != nil {
			logger.Error("retry sweep requeue failed",
				"event", "retry_sweep_requeue_failed",
				"module", "delivery-core/publishing-service",
				"layer", "application",
				"queue_id", job.QueueID,
				"platform", string(job.Platform),
				"error", err.Error(),
			)
			continue
		}
		requeued++
		wg.Add(1)
		go func(job entities.PublishingJob) {
			defer wg.Done()
			outcome := uc.ProcessJob(ctx, job)
			if outcome.Status == entities.JobStatusFailed {
				logger.Warn("retried job failed again",
					"event", "retry_sweep_job_failed",
					"module", "delivery-core/publishing-service",
					"layer", "application",
					"queue_id", job.QueueID,
					"platform", string(job.Platform),
					"retry_count", job.RetryCount,
					"error", outcome.Error,
				)
			}
		}(job)
	}
	wg.Wait()

	logger.Info("retry sweep cycle completed",
		"event", "retry_sweep_completed",
		"module", "delivery-core/publishing-service",
		"layer", "application",
		"requeued_count", requeued,
	)
	return requeued, nil
}
