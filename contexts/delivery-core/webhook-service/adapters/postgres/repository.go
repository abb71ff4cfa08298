package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"herald/contexts/delivery-core/webhook-service/domain/entities"
	domainerrors "herald/contexts/delivery-core/webhook-service/domain/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateConfig(ctx context.Context, config entities.WebhookConfiguration) error {
	row, err := configModelFromEntity(config)
	if err != nil {
		return r.logError("webhook_repo_create_config_encode_failed", err,
			"webhook_id", config.WebhookID,
		)
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			r.logWarn("webhook_repo_create_config_unique_conflict",
				"webhook_id", config.WebhookID,
				"user_id", config.UserID,
			)
			return domainerrors.ErrWebhookExists
		}
		return r.logError("webhook_repo_create_config_failed", err,
			"webhook_id", config.WebhookID,
			"user_id", config.UserID,
		)
	}
	return nil
}

func (r *Repository) UpdateConfig(ctx context.Context, config entities.WebhookConfiguration) error {
	updates, err := configUpdatesFromEntity(config)
	if err != nil {
		return r.logError("webhook_repo_update_config_encode_failed", err,
			"webhook_id", config.WebhookID,
		)
	}
	result := r.db.WithContext(ctx).
		Model(&webhookConfigModel{}).
		Where("webhook_id = ?", strings.TrimSpace(config.WebhookID)).
		Updates(updates)
	if result.Error != nil {
		return r.logError("webhook_repo_update_config_failed", result.Error,
			"webhook_id", strings.TrimSpace(config.WebhookID),
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("webhook_repo_update_config_not_found",
			"webhook_id", strings.TrimSpace(config.WebhookID),
		)
		return domainerrors.ErrWebhookNotFound
	}
	return nil
}

func (r *Repository) GetConfig(ctx context.Context, webhookID string) (entities.WebhookConfiguration, error) {
	var row webhookConfigModel
	err := r.db.WithContext(ctx).
		Where("webhook_id = ?", strings.TrimSpace(webhookID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.WebhookConfiguration{}, domainerrors.ErrWebhookNotFound
		}
		return entities.WebhookConfiguration{}, r.logError("webhook_repo_get_config_failed", err,
			"webhook_id", strings.TrimSpace(webhookID),
		)
	}
	return row.toEntity()
}

func (r *Repository) ListConfigsByUser(ctx context.Context, userID string) ([]entities.WebhookConfiguration, error) {
	var rows []webhookConfigModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("webhook_repo_list_configs_by_user_failed", err,
			"user_id", strings.TrimSpace(userID),
		)
	}
	return configRowsToEntities(rows)
}

func (r *Repository) ListActiveByEvent(ctx context.Context, eventType string) ([]entities.WebhookConfiguration, error) {
	var rows []webhookConfigModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("events @> ?::jsonb", string(mustJSON([]string{strings.TrimSpace(eventType)}))).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("webhook_repo_list_active_by_event_failed", err,
			"event_type", strings.TrimSpace(eventType),
		)
	}
	return configRowsToEntities(rows)
}

func (r *Repository) CreateDelivery(ctx context.Context, delivery entities.WebhookDelivery) error {
	row, err := deliveryModelFromEntity(delivery)
	if err != nil {
		return r.logError("webhook_repo_create_delivery_encode_failed", err,
			"delivery_id", delivery.DeliveryID,
		)
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("webhook_repo_create_delivery_failed", err,
			"delivery_id", delivery.DeliveryID,
			"webhook_id", delivery.WebhookID,
		)
	}
	return nil
}

func (r *Repository) UpdateDelivery(ctx context.Context, delivery entities.WebhookDelivery) error {
	result := r.db.WithContext(ctx).
		Model(&webhookDeliveryModel{}).
		Where("delivery_id = ?", strings.TrimSpace(delivery.DeliveryID)).
		Updates(deliveryUpdatesFromEntity(delivery))
	if result.Error != nil {
		return r.logError("webhook_repo_update_delivery_failed", result.Error,
			"delivery_id", strings.TrimSpace(delivery.DeliveryID),
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("webhook_repo_update_delivery_not_found",
			"delivery_id", strings.TrimSpace(delivery.DeliveryID),
		)
		return domainerrors.ErrDeliveryNotFound
	}
	return nil
}

func (r *Repository) GetDelivery(ctx context.Context, deliveryID string) (entities.WebhookDelivery, error) {
	var row webhookDeliveryModel
	err := r.db.WithContext(ctx).
		Where("delivery_id = ?", strings.TrimSpace(deliveryID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.WebhookDelivery{}, domainerrors.ErrDeliveryNotFound
		}
		return entities.WebhookDelivery{}, r.logError("webhook_repo_get_delivery_failed", err,
			"delivery_id", strings.TrimSpace(deliveryID),
		)
	}
	return row.toEntity()
}

func (r *Repository) ListDeliveriesByWebhook(
	ctx context.Context,
	webhookID string,
	limit int,
) ([]entities.WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []webhookDeliveryModel
	if err := r.db.WithContext(ctx).
		Where("webhook_id = ?", strings.TrimSpace(webhookID)).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("webhook_repo_list_deliveries_failed", err,
			"webhook_id", strings.TrimSpace(webhookID),
		)
	}
	return deliveryRowsToEntities(rows)
}

func (r *Repository) ListDueRetries(
	ctx context.Context,
	threshold time.Time,
	limit int,
) ([]entities.WebhookDelivery, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []webhookDeliveryModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.DeliveryStatusFailed)).
		Where("attempts < max_attempts").
		Where("next_retry_at IS NOT NULL").
		Where("next_retry_at <= ?", threshold.UTC()).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("webhook_repo_list_due_retries_failed", err,
			"threshold_utc", threshold.UTC().Format(time.RFC3339),
			"limit", limit,
		)
	}
	return deliveryRowsToEntities(rows)
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "delivery-core/webhook-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("webhook repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+5)
	fields = append(fields,
		"event", event,
		"module", "delivery-core/webhook-service",
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("webhook repository warning", fields...)
}

type webhookConfigModel struct {
	WebhookID string    `gorm:"column:webhook_id;primaryKey"`
	UserID    string    `gorm:"column:user_id"`
	Name      string    `gorm:"column:name"`
	URL       string    `gorm:"column:url"`
	Secret    string    `gorm:"column:secret"`
	Events    []byte    `gorm:"column:events;type:jsonb"`
	Headers   []byte    `gorm:"column:headers;type:jsonb"`
	IsActive  bool      `gorm:"column:is_active"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (webhookConfigModel) TableName() string {
	return "webhook_configurations"
}

func configModelFromEntity(config entities.WebhookConfiguration) (webhookConfigModel, error) {
	eventsJSON, err := json.Marshal(config.Events)
	if err != nil {
		return webhookConfigModel{}, err
	}
	headersJSON, err := json.Marshal(config.Headers)
	if err != nil {
		return webhookConfigModel{}, err
	}
	return webhookConfigModel{
		WebhookID: strings.TrimSpace(config.WebhookID),
		UserID:    strings.TrimSpace(config.UserID),
		Name:      strings.TrimSpace(config.Name),
		URL:       strings.TrimSpace(config.URL),
		Secret:    config.Secret,
		Events:    eventsJSON,
		Headers:   headersJSON,
		IsActive:  config.IsActive,
		CreatedAt: config.CreatedAt.UTC(),
		UpdatedAt: config.UpdatedAt.UTC(),
	}, nil
}

func configUpdatesFromEntity(config entities.WebhookConfiguration) (map[string]any, error) {
	row, err := configModelFromEntity(config)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"name":       row.Name,
		"url":        row.URL,
		"secret":     row.Secret,
		"events":     row.Events,
		"headers":    row.Headers,
		"is_active":  row.IsActive,
		"updated_at": row.UpdatedAt,
	}, nil
}

func (m webhookConfigModel) toEntity() (entities.WebhookConfiguration, error) {
	var eventTypes []string
	if len(m.Events) > 0 {
		if err := json.Unmarshal(m.Events, &eventTypes); err != nil {
			return entities.WebhookConfiguration{}, err
		}
	}
	var headers map[string]string
	if len(m.Headers) > 0 {
		if err := json.Unmarshal(m.Headers, &headers); err != nil {
			return entities.WebhookConfiguration{}, err
		}
	}
	return entities.WebhookConfiguration{
		WebhookID: m.WebhookID,
		UserID:    m.UserID,
		Name:      m.Name,
		URL:       m.URL,
		Secret:    m.Secret,
		Events:    eventTypes,
		Headers:   headers,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}, nil
}

func configRowsToEntities(rows []webhookConfigModel) ([]entities.WebhookConfiguration, error) {
	configs := make([]entities.WebhookConfiguration, 0, len(rows))
	for _, row := range rows {
		config, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		configs = append(configs, config)
	}
	return configs, nil
}

type webhookDeliveryModel struct {
	DeliveryID   string     `gorm:"column:delivery_id;primaryKey"`
	WebhookID    string     `gorm:"column:webhook_id"`
	EventType    string     `gorm:"column:event_type"`
	Payload      []byte     `gorm:"column:payload;type:jsonb"`
	Status       string     `gorm:"column:status"`
	Attempts     int        `gorm:"column:attempts"`
	MaxAttempts  int        `gorm:"column:max_attempts"`
	NextRetryAt  *time.Time `gorm:"column:next_retry_at"`
	ResponseCode int        `gorm:"column:response_code"`
	ResponseBody string     `gorm:"column:response_body"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (webhookDeliveryModel) TableName() string {
	return "webhook_deliveries"
}

func deliveryModelFromEntity(delivery entities.WebhookDelivery) (webhookDeliveryModel, error) {
	payloadJSON, err := json.Marshal(delivery.Payload)
	if err != nil {
		return webhookDeliveryModel{}, err
	}
	return webhookDeliveryModel{
		DeliveryID:   strings.TrimSpace(delivery.DeliveryID),
		WebhookID:    strings.TrimSpace(delivery.WebhookID),
		EventType:    delivery.EventType,
		Payload:      payloadJSON,
		Status:       string(delivery.Status),
		Attempts:     delivery.Attempts,
		MaxAttempts:  delivery.MaxAttempts,
		NextRetryAt:  normalizeOptionalTime(delivery.NextRetryAt),
		ResponseCode: delivery.ResponseCode,
		ResponseBody: delivery.ResponseBody,
		CreatedAt:    delivery.CreatedAt.UTC(),
		UpdatedAt:    delivery.UpdatedAt.UTC(),
	}, nil
}

func deliveryUpdatesFromEntity(delivery entities.WebhookDelivery) map[string]any {
	return map[string]any{
		"status":        string(delivery.Status),
		"attempts":      delivery.Attempts,
		"next_retry_at": normalizeOptionalTime(delivery.NextRetryAt),
		"response_code": delivery.ResponseCode,
		"response_body": delivery.ResponseBody,
		"updated_at":    delivery.UpdatedAt.UTC(),
	}
}

func (m webhookDeliveryModel) toEntity() (entities.WebhookDelivery, error) {
	payload := map[string]any{}
	if len(m.Payload) > 0 {
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			return entities.WebhookDelivery{}, err
		}
	}
	return entities.WebhookDelivery{
		DeliveryID:   m.DeliveryID,
		WebhookID:    m.WebhookID,
		EventType:    m.EventType,
		Payload:      payload,
		Status:       entities.DeliveryStatus(m.Status),
		Attempts:     m.Attempts,
		MaxAttempts:  m.MaxAttempts,
		NextRetryAt:  normalizeOptionalTime(m.NextRetryAt),
		ResponseCode: m.ResponseCode,
		ResponseBody: m.ResponseBody,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}, nil
}

func deliveryRowsToEntities(rows []webhookDeliveryModel) ([]entities.WebhookDelivery, error) {
	deliveries := make([]entities.WebhookDelivery, 0, len(rows))
	for _, row := range rows {
		delivery, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, delivery)
	}
	return deliveries, nil
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	normalized := value.UTC()
	return &normalized
}

func mustJSON(value any) []byte {
	encoded, _ := json.Marshal(value)
	return encoded
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
