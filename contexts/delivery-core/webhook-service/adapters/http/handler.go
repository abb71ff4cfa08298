package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "herald/contexts/delivery-core/webhook-service/application"
	"herald/contexts/delivery-core/webhook-service/application/commands"
	"herald/contexts/delivery-core/webhook-service/application/queries"
	"herald/contexts/delivery-core/webhook-service/domain/entities"
	domainerrors "herald/contexts/delivery-core/webhook-service/domain/errors"
	httptransport "herald/contexts/delivery-core/webhook-service/transport/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Handler struct {
	Commands commands.UseCase
	Queries  queries.UseCase
	Logger   *slog.Logger
}

func (h Handler) RegisterWebhookHandler(
	ctx context.Context,
	req httptransport.RegisterWebhookRequest,
) (httptransport.WebhookDTO, error) {
	logger := application.ResolveLogger(h.Logger)
	if err := validate.Struct(req); err != nil {
		logger.Warn("webhook http register request invalid",
			"event", "webhook_http_register_request_invalid",
			"module", "delivery-core/webhook-service",
			"layer", "adapter",
			"user_id", strings.TrimSpace(req.UserID),
			"error", err.Error(),
		)
		return httptransport.WebhookDTO{}, domainerrors.ErrInvalidWebhookInput
	}
	config, err := h.Commands.Register(ctx, commands.RegisterInput{
		UserID:  req.UserID,
		Name:    req.Name,
		URL:     req.URL,
		Secret:  req.Secret,
		Events:  req.Events,
		Headers: req.Headers,
	})
	if err != nil {
		return httptransport.WebhookDTO{}, err
	}
	return webhookToDTO(config), nil
}

func (h Handler) UpdateWebhookHandler(
	ctx context.Context,
	webhookID string,
	req httptransport.UpdateWebhookRequest,
) (httptransport.WebhookDTO, error) {
	config, err := h.Commands.Update(ctx, webhookID, commands.UpdateInput{
		URL:      req.URL,
		Secret:   req.Secret,
		Events:   req.Events,
		Headers:  req.Headers,
		IsActive: req.IsActive,
	})
	if err != nil {
		return httptransport.WebhookDTO{}, err
	}
	return webhookToDTO(config), nil
}

func (h Handler) DeactivateWebhookHandler(ctx context.Context, webhookID string) error {
	return h.Commands.Deactivate(ctx, webhookID)
}

func (h Handler) ListWebhooksHandler(
	ctx context.Context,
	userID string,
) (httptransport.WebhookListResponse, error) {
	configs, err := h.Queries.ListWebhooks(ctx, userID)
	if err != nil {
		return httptransport.WebhookListResponse{}, err
	}
	resp := httptransport.WebhookListResponse{Webhooks: make([]httptransport.WebhookDTO, 0, len(configs))}
	for _, config := range configs {
		resp.Webhooks = append(resp.Webhooks, webhookToDTO(config))
	}
	return resp, nil
}

func (h Handler) GetWebhookHandler(
	ctx context.Context,
	webhookID string,
) (httptransport.WebhookDTO, error) {
	config, err := h.Queries.GetWebhook(ctx, webhookID)
	if err != nil {
		return httptransport.WebhookDTO{}, err
	}
	return webhookToDTO(config), nil
}

func (h Handler) ListDeliveriesHandler(
	ctx context.Context,
	webhookID string,
	limit int,
) (httptransport.DeliveryListResponse, error) {
	deliveries, err := h.Queries.ListDeliveries(ctx, webhookID, limit)
	if err != nil {
		return httptransport.DeliveryListResponse{}, err
	}
	resp := httptransport.DeliveryListResponse{Deliveries: make([]httptransport.DeliveryDTO, 0, len(deliveries))}
	for _, delivery := range deliveries {
		resp.Deliveries = append(resp.Deliveries, deliveryToDTO(delivery))
	}
	return resp, nil
}

// TestWebhookHandler triggers a synthetic event so subscribers can verify
// their endpoint and signature handling end to end.
func (h Handler) TestWebhookHandler(
	ctx context.Context,
	req httptransport.TestWebhookRequest,
) (httptransport.TriggerResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	if err := validate.Struct(req); err != nil {
		logger.Warn("webhook http test request invalid",
			"event", "webhook_http_test_request_invalid",
			"module", "delivery-core/webhook-service",
			"layer", "adapter",
			"error", err.Error(),
		)
		return httptransport.TriggerResponse{}, domainerrors.ErrInvalidWebhookInput
	}
	payload := req.Payload
	if payload == nil {
		payload = map[string]any{"test": true}
	}
	deliveries, err := h.Commands.Trigger(ctx, req.EventType, payload)
	if err != nil {
		return httptransport.TriggerResponse{}, err
	}
	resp := httptransport.TriggerResponse{
		EventType:  req.EventType,
		Deliveries: make([]httptransport.DeliveryDTO, 0, len(deliveries)),
	}
	for _, delivery := range deliveries {
		resp.Deliveries = append(resp.Deliveries, deliveryToDTO(delivery))
	}
	return resp, nil
}

func webhookToDTO(config entities.WebhookConfiguration) httptransport.WebhookDTO {
	return httptransport.WebhookDTO{
		WebhookID: config.WebhookID,
		UserID:    config.UserID,
		Name:      config.Name,
		URL:       config.URL,
		Events:    config.Events,
		Headers:   config.Headers,
		IsActive:  config.IsActive,
		CreatedAt: config.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: config.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func deliveryToDTO(delivery entities.WebhookDelivery) httptransport.DeliveryDTO {
	dto := httptransport.DeliveryDTO{
		DeliveryID:   delivery.DeliveryID,
		WebhookID:    delivery.WebhookID,
		EventType:    delivery.EventType,
		Status:       string(delivery.Status),
		Attempts:     delivery.Attempts,
		MaxAttempts:  delivery.MaxAttempts,
		ResponseCode: delivery.ResponseCode,
		CreatedAt:    delivery.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    delivery.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if delivery.NextRetryAt != nil {
		dto.NextRetryAt = delivery.NextRetryAt.UTC().Format(time.RFC3339)
	}
	return dto
}
