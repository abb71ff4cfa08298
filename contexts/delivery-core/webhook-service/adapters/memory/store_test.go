package memory

import (
	"context"
	"testing"
	"time"

	"herald/contexts/delivery-core/webhook-service/domain/entities"
)

func seedDelivery(
	t *testing.T,
	store *Store,
	id string,
	status entities.DeliveryStatus,
	attempts int,
	nextRetry *time.Time,
) {
	t.Helper()
	err := store.CreateDelivery(context.Background(), entities.WebhookDelivery{
		DeliveryID:  id,
		WebhookID:   "wh-1",
		EventType:   "pack.published",
		Status:      status,
		Attempts:    attempts,
		MaxAttempts: entities.DefaultMaxAttempts,
		NextRetryAt: nextRetry,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed delivery %s: %v", id, err)
	}
}

func TestListDueRetriesSelection(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	seedDelivery(t, store, "due", entities.DeliveryStatusFailed, 1, &past)
	seedDelivery(t, store, "not-yet", entities.DeliveryStatusFailed, 1, &future)
	seedDelivery(t, store, "exhausted", entities.DeliveryStatusFailed, entities.DefaultMaxAttempts, &past)
	seedDelivery(t, store, "delivered", entities.DeliveryStatusDelivered, 1, nil)
	seedDelivery(t, store, "unscheduled", entities.DeliveryStatusFailed, 1, nil)

	due, err := store.ListDueRetries(context.Background(), now, 10)
	if err != nil {
		t.Fatalf("list due retries failed: %v", err)
	}
	if len(due) != 1 || due[0].DeliveryID != "due" {
		t.Fatalf("expected only the due delivery, got %+v", due)
	}
}

func TestListActiveByEventFiltersSubscriptions(t *testing.T) {
	store := NewStore()
	base := entities.WebhookConfiguration{
		UserID:    "user-1",
		URL:       "https://example.com",
		Secret:    "s",
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}

	subscribed := base
	subscribed.WebhookID = "wh-subscribed"
	subscribed.Events = []string{"pack.published"}
	other := base
	other.WebhookID = "wh-other"
	other.Events = []string{"idea.selected"}
	inactive := base
	inactive.WebhookID = "wh-inactive"
	inactive.Events = []string{"pack.published"}
	inactive.IsActive = false

	for _, config := range []entities.WebhookConfiguration{subscribed, other, inactive} {
		if err := store.CreateConfig(context.Background(), config); err != nil {
			t.Fatalf("seed config %s: %v", config.WebhookID, err)
		}
	}

	configs, err := store.ListActiveByEvent(context.Background(), "pack.published")
	if err != nil {
		t.Fatalf("list active by event failed: %v", err)
	}
	if len(configs) != 1 || configs[0].WebhookID != "wh-subscribed" {
		t.Fatalf("expected only the active subscribed config, got %+v", configs)
	}
}
