package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"herald/contexts/delivery-core/webhook-service/domain/entities"
	domainerrors "herald/contexts/delivery-core/webhook-service/domain/errors"
)

// Store is an in-memory Registry and DeliveryStore for tests and local runs.
type Store struct {
	mu         sync.RWMutex
	configs    map[string]entities.WebhookConfiguration
	deliveries map[string]entities.WebhookDelivery
}

func NewStore() *Store {
	return &Store{
		configs:    make(map[string]entities.WebhookConfiguration),
		deliveries: make(map[string]entities.WebhookDelivery),
	}
}

func (s *Store) CreateConfig(_ context.Context, config entities.WebhookConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[config.WebhookID]; ok {
		return domainerrors.ErrWebhookExists
	}
	s.configs[config.WebhookID] = config
	return nil
}

func (s *Store) UpdateConfig(_ context.Context, config entities.WebhookConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[config.WebhookID]; !ok {
		return domainerrors.ErrWebhookNotFound
	}
	s.configs[config.WebhookID] = config
	return nil
}

func (s *Store) GetConfig(_ context.Context, webhookID string) (entities.WebhookConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	config, ok := s.configs[webhookID]
	if !ok {
		return entities.WebhookConfiguration{}, domainerrors.ErrWebhookNotFound
	}
	return config, nil
}

func (s *Store) ListConfigsByUser(_ context.Context, userID string) ([]entities.WebhookConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	configs := make([]entities.WebhookConfiguration, 0)
	for _, config := range s.configs {
		if config.UserID == userID {
			configs = append(configs, config)
		}
	}
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].CreatedAt.Before(configs[j].CreatedAt)
	})
	return configs, nil
}

func (s *Store) ListActiveByEvent(_ context.Context, eventType string) ([]entities.WebhookConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	configs := make([]entities.WebhookConfiguration, 0)
	for _, config := range s.configs {
		if config.IsActive && config.Subscribed(eventType) {
			configs = append(configs, config)
		}
	}
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].CreatedAt.Before(configs[j].CreatedAt)
	})
	return configs, nil
}

func (s *Store) CreateDelivery(_ context.Context, delivery entities.WebhookDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries[delivery.DeliveryID] = delivery
	return nil
}

func (s *Store) UpdateDelivery(_ context.Context, delivery entities.WebhookDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deliveries[delivery.DeliveryID]; !ok {
		return domainerrors.ErrDeliveryNotFound
	}
	s.deliveries[delivery.DeliveryID] = delivery
	return nil
}

func (s *Store) GetDelivery(_ context.Context, deliveryID string) (entities.WebhookDelivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	delivery, ok := s.deliveries[deliveryID]
	if !ok {
		return entities.WebhookDelivery{}, domainerrors.ErrDeliveryNotFound
	}
	return delivery, nil
}

func (s *Store) ListDeliveriesByWebhook(_ context.Context, webhookID string, limit int) ([]entities.WebhookDelivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deliveries := make([]entities.WebhookDelivery, 0)
	for _, delivery := range s.deliveries {
		if delivery.WebhookID == webhookID {
			deliveries = append(deliveries, delivery)
		}
	}
	sort.Slice(deliveries, func(i, j int) bool {
		return deliveries[i].CreatedAt.After(deliveries[j].CreatedAt)
	})
	if limit > 0 && len(deliveries) > limit {
		deliveries = deliveries[:limit]
	}
	return deliveries, nil
}

func (s *Store) ListDueRetries(_ context.Context, threshold time.Time, limit int) ([]entities.WebhookDelivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deliveries := make([]entities.WebhookDelivery, 0)
	for _, delivery := range s.deliveries {
		if delivery.Status != entities.DeliveryStatusFailed {
			continue
		}
		if delivery.Attempts >= delivery.MaxAttempts {
			continue
		}
		if delivery.NextRetryAt == nil || delivery.NextRetryAt.After(threshold) {
			continue
		}
		deliveries = append(deliveries, delivery)
	}
	sort.Slice(deliveries, func(i, j int) bool {
		return deliveries[i].NextRetryAt.Before(*deliveries[j].NextRetryAt)
	})
	if limit > 0 && len(deliveries) > limit {
		deliveries = deliveries[:limit]
	}
	return deliveries, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
