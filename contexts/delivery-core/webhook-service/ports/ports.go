package ports

import (
	"context"
	"time"

	"herald/contexts/delivery-core/webhook-service/domain/entities"
)

// Registry persists webhook configurations.
type Registry interface {
	CreateConfig(ctx context.Context, config entities.WebhookConfiguration) error
	UpdateConfig(ctx context.Context, config entities.WebhookConfiguration) error
	GetConfig(ctx context.Context, webhookID string) (entities.WebhookConfiguration, error)
	ListConfigsByUser(ctx context.Context, userID string) ([]entities.WebhookConfiguration, error)
	ListActiveByEvent(ctx context.Context, eventType string) ([]entities.WebhookConfiguration, error)
}

// DeliveryStore persists attempt-tracked deliveries, mutated only by key.
type DeliveryStore interface {
	CreateDelivery(ctx context.Context, delivery entities.WebhookDelivery) error
	UpdateDelivery(ctx context.Context, delivery entities.WebhookDelivery) error
	GetDelivery(ctx context.Context, deliveryID string) (entities.WebhookDelivery, error)
	ListDeliveriesByWebhook(ctx context.Context, webhookID string, limit int) ([]entities.WebhookDelivery, error)
	ListDueRetries(ctx context.Context, threshold time.Time, limit int) ([]entities.WebhookDelivery, error)
}

// SendRequest is one outbound webhook POST, already signed and serialized.
type SendRequest struct {
	URL     string
	Headers map[string]string
	Body    []byte
}

type SendResult struct {
	StatusCode int
	Body       string
}

// Sender performs the HTTP POST. The caller bounds each attempt with a
// cancellation deadline; a context error is a failed attempt.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
