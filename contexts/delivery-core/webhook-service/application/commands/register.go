package commands

import (
	"context"
	"net/url"
	"strings"

	application "herald/contexts/delivery-core/webhook-service/application"
	"herald/contexts/delivery-core/webhook-service/domain/entities"
	domainerrors "herald/contexts/delivery-core/webhook-service/domain/errors"
	"herald/internal/shared/events"
)

type RegisterInput struct {
	UserID  string
	Name    string
	URL     string
	Secret  string
	Events  []string
	Headers map[string]string
}

type UpdateInput struct {
	URL      *string
	Secret   *string
	Events   []string
	Headers  map[string]string
	IsActive *bool
}

// Register stores a new webhook configuration. The secret is provided by the
// caller and never returned by read paths.
func (uc UseCase) Register(ctx context.Context, input RegisterInput) (entities.WebhookConfiguration, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := validateRegistration(input.UserID, input.URL, input.Secret, input.Events); err != nil {
		return entities.WebhookConfiguration{}, err
	}

	webhookID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		logger.Error("webhook id generation failed",
			"event", "webhook_id_generation_failed",
			"module", "delivery-core/webhook-service",
			"layer", "application",
			"user_id", input.UserID,
			"error", err.Error(),
		)
		return entities.WebhookConfiguration{}, err
	}

	now := uc.now()
	config := entities.WebhookConfiguration{
		WebhookID: webhookID,
		UserID:    input.UserID,
		Name:      strings.TrimSpace(input.Name),
		URL:       strings.TrimSpace(input.URL),
		Secret:    input.Secret,
		Events:    normalizeEvents(input.Events),
		Headers:   input.Headers,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.Registry.CreateConfig(ctx, config); err != nil {
		logger.Error("webhook registration failed",
			"event", "webhook_registration_failed",
			"module", "delivery-core/webhook-service",
			"layer", "application",
			"webhook_id", webhookID,
			"user_id", input.UserID,
			"error", err.Error(),
		)
		return entities.WebhookConfiguration{}, err
	}

	logger.Info("webhook registered",
		"event", "webhook_registered",
		"module", "delivery-core/webhook-service",
		"layer", "application",
		"webhook_id", webhookID,
		"user_id", input.UserID,
		"event_types", config.Events,
	)
	return config, nil
}

// Update applies a partial change to an existing configuration. Nil fields
// keep their current value.
func (uc UseCase) Update(ctx context.Context, webhookID string, input UpdateInput) (entities.WebhookConfiguration, error) {
	logger := application.ResolveLogger(uc.Logger)
	config, err := uc.Registry.GetConfig(ctx, webhookID)
	if err != nil {
		return entities.WebhookConfiguration{}, err
	}

	if input.URL != nil {
		candidate := strings.TrimSpace(*input.URL)
		if !validEndpoint(candidate) {
			return entities.WebhookConfiguration{}, domainerrors.ErrInvalidWebhookInput
		}
		config.URL = candidate
	}
	if input.Secret != nil {
		if *input.Secret == "" {
			return entities.WebhookConfiguration{}, domainerrors.ErrInvalidWebhookInput
		}
		config.Secret = *input.Secret
	}
	if input.Events != nil {
		normalized := normalizeEvents(input.Events)
		if len(normalized) == 0 {
			return entities.WebhookConfiguration{}, domainerrors.ErrInvalidWebhookInput
		}
		config.Events = normalized
	}
	if input.Headers != nil {
		config.Headers = input.Headers
	}
	if input.IsActive != nil {
		config.IsActive = *input.IsActive
	}
	config.UpdatedAt = uc.now()

	if err := uc.Registry.UpdateConfig(ctx, config); err != nil {
		logger.Error("webhook update failed",
			"event", "webhook_update_failed",
			"module", "delivery-core/webhook-service",
			"layer", "application",
			"webhook_id", webhookID,
			"error", err.Error(),
		)
		return entities.WebhookConfiguration{}, err
	}

	logger.Info("webhook updated",
		"event", "webhook_updated",
		"module", "delivery-core/webhook-service",
		"layer", "application",
		"webhook_id", webhookID,
		"is_active", config.IsActive,
	)
	return config, nil
}

// Deactivate soft-deletes a configuration. Pending deliveries for it fail on
// their next attempt instead of being swept up retroactively.
func (uc UseCase) Deactivate(ctx context.Context, webhookID string) error {
	inactive := false
	_, err := uc.Update(ctx, webhookID, UpdateInput{IsActive: &inactive})
	return err
}

func validateRegistration(userID, endpoint, secret string, eventTypes []string) error {
	if strings.TrimSpace(userID) == "" || secret == "" {
		return domainerrors.ErrInvalidWebhookInput
	}
	if !validEndpoint(strings.TrimSpace(endpoint)) {
		return domainerrors.ErrInvalidWebhookInput
	}
	if len(normalizeEvents(eventTypes)) == 0 {
		return domainerrors.ErrInvalidWebhookInput
	}
	return nil
}

func validEndpoint(endpoint string) bool {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

func normalizeEvents(eventTypes []string) []string {
	known := make(map[string]struct{})
	for _, eventType := range events.Known() {
		known[eventType] = struct{}{}
	}
	seen := make(map[string]struct{}, len(eventTypes))
	normalized := make([]string, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		eventType = strings.TrimSpace(eventType)
		if eventType == "" {
			continue
		}
		if _, ok := known[eventType]; !ok {
			continue
		}
		if _, ok := seen[eventType]; ok {
			continue
		}
		seen[eventType] = struct{}{}
		normalized = append(normalized, eventType)
	}
	return normalized
}
