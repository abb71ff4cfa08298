package entities

import "time"

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

const DefaultMaxAttempts = 3

// WebhookConfiguration is one subscriber's registration. Deactivation is a
// soft delete; rows are never removed so delivery history stays intact.
type WebhookConfiguration struct {
	WebhookID string
	UserID    string
	Name      string
	URL       string
	Secret    string
	Events    []string
	Headers   map[string]string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subscribed reports whether the configuration listens for an event type.
func (c WebhookConfiguration) Subscribed(eventType string) bool {
	for _, event := range c.Events {
		if event == eventType {
			return true
		}
	}
	return false
}

// WebhookDelivery tracks one event's transmission to one subscriber.
// Attempts never exceeds MaxAttempts; a delivered row is terminal.
type WebhookDelivery struct {
	DeliveryID   string
	WebhookID    string
	EventType    string
	Payload      map[string]any
	Status       DeliveryStatus
	Attempts     int
	MaxAttempts  int
	NextRetryAt  *time.Time
	ResponseCode int
	ResponseBody string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	backoffBase = time.Second
	backoffCap  = 5 * time.Minute
)

// Backoff returns the delay before retrying after the given attempt number
// (1-based): 1s, 4s, 16s, 64s, then the five-minute cap from the fifth
// attempt on. Fast early retries absorb transient blips; the cap turns
// steady failure into slow polling instead of unbounded growth.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 4 {
		return backoffCap
	}
	delay := backoffBase
	for i := 1; i < attempt; i++ {
		delay *= 4
	}
	return delay
}
