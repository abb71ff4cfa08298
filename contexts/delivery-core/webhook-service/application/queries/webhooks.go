package queries

import (
	"context"
	"log/slog"

	application "herald/contexts/delivery-core/webhook-service/application"
	"herald/contexts/delivery-core/webhook-service/domain/entities"
	"herald/contexts/delivery-core/webhook-service/ports"
)

const defaultDeliveryPageSize = 50

type UseCase struct {
	Registry   ports.Registry
	Deliveries ports.DeliveryStore
	Logger     *slog.Logger
}

// ListWebhooks returns every configuration a user owns, active or not.
func (uc UseCase) ListWebhooks(ctx context.Context, userID string) ([]entities.WebhookConfiguration, error) {
	logger := application.ResolveLogger(uc.Logger)
	configs, err := uc.Registry.ListConfigsByUser(ctx, userID)
	if err != nil {
		logger.Error("webhook listing failed",
			"event", "webhook_listing_failed",
			"module", "delivery-core/webhook-service",
			"layer", "application",
			"user_id", userID,
			"error", err.Error(),
		)
		return nil, err
	}
	return configs, nil
}

// GetWebhook returns one configuration by id.
func (uc UseCase) GetWebhook(ctx context.Context, webhookID string) (entities.WebhookConfiguration, error) {
	return uc.Registry.GetConfig(ctx, webhookID)
}

// ListDeliveries returns a webhook's most recent delivery attempts.
func (uc UseCase) ListDeliveries(ctx context.Context, webhookID string, limit int) ([]entities.WebhookDelivery, error) {
	logger := application.ResolveLogger(uc.Logger)
	if limit <= 0 {
		limit = defaultDeliveryPageSize
	}
	if _, err := uc.Registry.GetConfig(ctx, webhookID); err != nil {
		return nil, err
	}
	deliveries, err := uc.Deliveries.ListDeliveriesByWebhook(ctx, webhookID, limit)
	if err != nil {
		logger.Error("webhook delivery history listing failed",
			"event", "webhook_delivery_history_failed",
			"module", "delivery-core/webhook-service",
			"layer", "application",
			"webhook_id", webhookID,
			"error", err.Error(),
		)
		return nil, err
	}
	return deliveries, nil
}
