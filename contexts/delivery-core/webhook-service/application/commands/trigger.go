package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	application "herald/contexts/delivery-core/webhook-service/application"
	"herald/contexts/delivery-core/webhook-service/domain/entities"
	domainerrors "herald/contexts/delivery-core/webhook-service/domain/errors"
	"herald/contexts/delivery-core/webhook-service/ports"
	"herald/internal/platform/observability"
	"herald/internal/shared/signing"
)

const (
	// DeliveryTimeout bounds one delivery attempt end to end.
	DeliveryTimeout = 30 * time.Second

	maxStoredResponseBytes = 4 * 1024
)

type UseCase struct {
	Registry   ports.Registry
	Deliveries ports.DeliveryStore
	Sender     ports.Sender
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

// Trigger fans an event out to every active subscription listening for it.
// Delivery rows are created first, then each one gets its initial attempt;
// attempts run independently and one slow endpoint never blocks another.
func (uc UseCase) Trigger(ctx context.Context, eventType string, payload map[string]any) ([]entities.WebhookDelivery, error) {
	logger := application.ResolveLogger(uc.Logger)
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return nil, domainerrors.ErrInvalidWebhookInput
	}

	configs, err := uc.Registry.ListActiveByEvent(ctx, eventType)
	if err != nil {
		logger.Error("webhook trigger subscription lookup failed",
			"event", "webhook_trigger_lookup_failed",
			"module", "delivery-core/webhook-service",
			"layer", "application",
			"event_type", eventType,
			"error", err.Error(),
		)
		return nil, err
	}
	if len(configs) == 0 {
		return nil, nil
	}

	now := uc.now()
	deliveries := make([]entities.WebhookDelivery, 0, len(configs))
	for _, config := range configs {
		deliveryID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			logger.Error("webhook delivery id generation failed",
				"event", "webhook_delivery_id_generation_failed",
				"module", "delivery-core/webhook-service",
				"layer", "application",
				"webhook_id", config.WebhookID,
				"event_type", eventType,
				"error", err.Error(),
			)
			return deliveries, err
		}
		delivery := entities.WebhookDelivery{
			DeliveryID:  deliveryID,
			WebhookID:   config.WebhookID,
			EventType:   eventType,
			Payload:     payload,
			Status:      entities.DeliveryStatusPending,
			MaxAttempts: entities.DefaultMaxAttempts,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := uc.Deliveries.CreateDelivery(ctx, delivery); err != nil {
			logger.Error("webhook delivery create failed",
				"event", "webhook_delivery_create_failed",
				"module", "delivery-core/webhook-service",
				"layer", "application",
				"delivery_id", deliveryID,
				"webhook_id", config.WebhookID,
				"event_type", eventType,
				"error", err.Error(),
			)
			continue
		}
		deliveries = append(deliveries, delivery)
	}

	settled := make([]entities.WebhookDelivery, len(deliveries))
	var wg sync.WaitGroup
	for i := range deliveries {
		wg.Add(1)
		go func(idx int, delivery entities.WebhookDelivery) {
			defer wg.Done()
			settled[idx] = uc.Deliver(ctx, delivery)
		}(i, deliveries[i])
	}
	wg.Wait()

	logger.Info("webhook event fanned out",
		"event", "webhook_event_fanned_out",
		"module", "delivery-core/webhook-service",
		"layer", "application",
		"event_type", eventType,
		"delivery_count", len(settled),
	)
	return settled, nil
}

// Deliver performs one signed delivery attempt and persists its outcome.
// 2xx marks the row delivered and terminal; anything else marks it failed
// with the next retry scheduled by the backoff table.
func (uc UseCase) Deliver(ctx context.Context, delivery entities.WebhookDelivery) entities.WebhookDelivery {
	logger := application.ResolveLogger(uc.Logger)

	config, err := uc.Registry.GetConfig(ctx, delivery.WebhookID)
	if err != nil {
		return uc.failDelivery(ctx, delivery, 0, "webhook configuration lookup failed: "+err.Error())
	}
	if !config.IsActive {
		// Deactivated between fan-out and attempt; burn the budget so the
		// sweep leaves the row alone.
		delivery.Attempts = delivery.MaxAttempts
		return uc.failDelivery(ctx, delivery, 0, domainerrors.ErrWebhookInactive.Error())
	}

	body, err := json.Marshal(map[string]any{
		"event":       delivery.EventType,
		"data":        delivery.Payload,
		"timestamp":   uc.now().Format(time.RFC3339),
		"delivery_id": delivery.DeliveryID,
	})
	if err != nil {
		delivery.Attempts = delivery.MaxAttempts
		return uc.failDelivery(ctx, delivery, 0, "payload serialization failed: "+err.Error())
	}

	headers := map[string]string{
		"Content-Type":        "application/json",
		"X-Webhook-Signature": signing.Sign(config.Secret, body),
		"X-Webhook-Event":     delivery.EventType,
		"X-Webhook-Delivery":  delivery.DeliveryID,
	}
	for key, value := range config.Headers {
		headers[key] = value
	}

	delivery.Attempts++

	attemptCtx, cancel := context.WithTimeout(ctx, DeliveryTimeout)
	defer cancel()

	started := time.Now()
	result, err := uc.Sender.Send(attemptCtx, ports.SendRequest{
		URL:     config.URL,
		Headers: headers,
		Body:    body,
	})
	observability.WebhookDeliveryDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		return uc.failDelivery(ctx, delivery, 0, "delivery request failed: "+err.Error())
	}
	if result.StatusCode < 200 || result.StatusCode >= 300 {
		return uc.failDelivery(ctx, delivery, result.StatusCode, truncate(result.Body))
	}

	delivery.Status = entities.DeliveryStatusDelivered
	delivery.ResponseCode = result.StatusCode
	delivery.ResponseBody = truncate(result.Body)
	delivery.NextRetryAt = nil
	delivery.UpdatedAt = uc.now()
	if err := uc.Deliveries.UpdateDelivery(ctx, delivery); err != nil {
		logger.Error("webhook delivery success persistence failed",
			"event", "webhook_delivery_success_persistence_failed",
			"module", "delivery-core/webhook-service",
			"layer", "application",
			"delivery_id", delivery.DeliveryID,
			"error", err.Error(),
		)
	}
	observability.WebhookDeliveries.WithLabelValues(string(entities.DeliveryStatusDelivered)).Inc()
	logger.Info("webhook delivered",
		"event", "webhook_delivered",
		"module", "delivery-core/webhook-service",
		"layer", "application",
		"delivery_id", delivery.DeliveryID,
		"webhook_id", delivery.WebhookID,
		"event_type", delivery.EventType,
		"attempts", delivery.Attempts,
		"response_code", result.StatusCode,
	)
	return delivery
}

func (uc UseCase) failDelivery(
	ctx context.Context,
	delivery entities.WebhookDelivery,
	responseCode int,
	diagnostic string,
) entities.WebhookDelivery {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.now()
	delivery.Status = entities.DeliveryStatusFailed
	delivery.ResponseCode = responseCode
	delivery.ResponseBody = truncate(diagnostic)
	delivery.UpdatedAt = now
	if delivery.Attempts < delivery.MaxAttempts {
		retryAt := now.Add(entities.Backoff(delivery.Attempts))
		delivery.NextRetryAt = &retryAt
	} else {
		delivery.NextRetryAt = nil
		observability.RetriesExhausted.WithLabelValues("webhook_delivery").Inc()
		logger.Warn("webhook delivery retry budget exhausted",
			"event", "webhook_delivery_exhausted",
			"module", "delivery-core/webhook-service",
			"layer", "application",
			"delivery_id", delivery.DeliveryID,
			"webhook_id", delivery.WebhookID,
			"event_type", delivery.EventType,
			"attempts", delivery.Attempts,
		)
	}
	if err := uc.Deliveries.UpdateDelivery(ctx, delivery); err != nil {
		logger.Error("webhook delivery failure persistence failed",
			"event", "webhook_delivery_failure_persistence_failed",
			"module", "delivery-core/webhook-service",
			"layer", "application",
			"delivery_id", delivery.DeliveryID,
			"error", err.Error(),
		)
	}
	observability.WebhookDeliveries.WithLabelValues(string(entities.DeliveryStatusFailed)).Inc()
	logger.Warn("webhook delivery failed",
		"event", "webhook_delivery_failed",
		"module", "delivery-core/webhook-service",
		"layer", "application",
		"delivery_id", delivery.DeliveryID,
		"webhook_id", delivery.WebhookID,
		"event_type", delivery.EventType,
		"attempts", delivery.Attempts,
		"response_code", responseCode,
	)
	return delivery
}

func truncate(value string) string {
	if len(value) > maxStoredResponseBytes {
		return value[:maxStoredResponseBytes]
	}
	return value
}

func (uc UseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
