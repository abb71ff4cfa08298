package commands

import (
	"context"
	"sync"

	application "herald/contexts/delivery-core/webhook-service/application"
	"herald/contexts/delivery-core/webhook-service/domain/entities"
)

// RetryDueDeliveries re-attempts failed deliveries whose backoff window has
// elapsed. The store bounds selection to rows with attempts remaining, so a
// row that keeps failing is touched at most MaxAttempts times in total.
func (uc UseCase) RetryDueDeliveries(ctx context.Context, limit int) (int, error) {
	logger := application.ResolveLogger(uc.Logger)

	due, err := uc.Deliveries.ListDueRetries(ctx, uc.now(), limit)
	if err != nil {
		logger.Error("webhook retry sweep listing failed",
			"event", "webhook_retry_sweep_listing_failed",
			"module", "delivery-core/webhook-service",
			"layer", "application",
			"error", err.Error(),
		)
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	var wg sync.WaitGroup
	for _, delivery := range due {
		wg.Add(1)
		go func(d entities.WebhookDelivery) {
			defer wg.Done()
			uc.Deliver(ctx, d)
		}(delivery)
	}
	wg.Wait()

	logger.Info("webhook retry sweep completed",
		"event", "webhook_retry_sweep_completed",
		"module", "delivery-core/webhook-service",
		"layer", "application",
		"retried_count", len(due),
	)
	return len(due), nil
}
