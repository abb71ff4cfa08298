package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RegisterWebhookRequest struct {
	UserID  string            `json:"user_id" validate:"required"`
	Name    string            `json:"name"`
	URL     string            `json:"url" validate:"required,url"`
	Secret  string            `json:"secret" validate:"required"`
	Events  []string          `json:"events" validate:"required,min=1"`
	Headers map[string]string `json:"headers,omitempty"`
}

type UpdateWebhookRequest struct {
	URL      *string           `json:"url,omitempty"`
	Secret   *string           `json:"secret,omitempty"`
	Events   []string          `json:"events,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	IsActive *bool             `json:"is_active,omitempty"`
}

type TestWebhookRequest struct {
	EventType string         `json:"event_type" validate:"required"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// WebhookDTO never carries the secret; read paths must not leak it.
type WebhookDTO struct {
	WebhookID string            `json:"webhook_id"`
	UserID    string            `json:"user_id"`
	Name      string            `json:"name,omitempty"`
	URL       string            `json:"url"`
	Events    []string          `json:"events"`
	Headers   map[string]string `json:"headers,omitempty"`
	IsActive  bool              `json:"is_active"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}

type WebhookListResponse struct {
	Webhooks []WebhookDTO `json:"webhooks"`
}

type DeliveryDTO struct {
	DeliveryID   string `json:"delivery_id"`
	WebhookID    string `json:"webhook_id"`
	EventType    string `json:"event_type"`
	Status       string `json:"status"`
	Attempts     int    `json:"attempts"`
	MaxAttempts  int    `json:"max_attempts"`
	NextRetryAt  string `json:"next_retry_at,omitempty"`
	ResponseCode int    `json:"response_code,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type DeliveryListResponse struct {
	Deliveries []DeliveryDTO `json:"deliveries"`
}

type TriggerResponse struct {
	EventType  string        `json:"event_type"`
	Deliveries []DeliveryDTO `json:"deliveries"`
}
