package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"herald/contexts/delivery-core/publishing-service/domain/entities"
	domainerrors "herald/contexts/delivery-core/publishing-service/domain/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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

func (r *Repository) CreateJob(ctx context.Context, job entities.PublishingJob) error {
	if strings.TrimSpace(job.QueueID) == "" ||
		strings.TrimSpace(job.PackID) == "" ||
		strings.TrimSpace(string(job.Platform)) == "" {
		r.logWarn("publishing_repo_create_job_invalid_input",
			"queue_id", strings.TrimSpace(job.QueueID),
			"pack_id", strings.TrimSpace(job.PackID),
			"platform", string(job.Platform),
		)
		return domainerrors.ErrInvalidPublishInput
	}

	row, err := jobModelFromEntity(job)
	if err != nil {
		return r.logError("publishing_repo_create_job_encode_failed", err,
			"queue_id", job.QueueID,
		)
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			r.logWarn("publishing_repo_create_job_unique_conflict",
				"queue_id", job.QueueID,
				"pack_id", job.PackID,
				"platform", string(job.Platform),
			)
			return domainerrors.ErrJobExists
		}
		return r.logError("publishing_repo_create_job_failed", err,
			"queue_id", job.QueueID,
			"pack_id", job.PackID,
			"platform", string(job.Platform),
		)
	}
	return nil
}

func (r *Repository) UpdateJob(ctx context.Context, job entities.PublishingJob) error {
	updates, err := jobUpdatesFromEntity(job)
	if err != nil {
		return r.logError("publishing_repo_update_job_encode_failed", err,
			"queue_id", job.QueueID,
		)
	}
	result := r.db.WithContext(ctx).
		Model(&publishingJobModel{}).
		Where("queue_id = ?", strings.TrimSpace(job.QueueID)).
		Updates(updates)
	if result.Error != nil {
		return r.logError("publishing_repo_update_job_failed", result.Error,
			"queue_id", strings.TrimSpace(job.QueueID),
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("publishing_repo_update_job_not_found",
			"queue_id", strings.TrimSpace(job.QueueID),
		)
		return domainerrors.ErrJobNotFound
	}
	return nil
}

func (r *Repository) GetJob(ctx context.Context, queueID string) (entities.PublishingJob, error) {
	var row publishingJobModel
	err := r.db.WithContext(ctx).
		Where("queue_id = ?", strings.TrimSpace(queueID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.PublishingJob{}, domainerrors.ErrJobNotFound
		}
		return entities.PublishingJob{}, r.logError("publishing_repo_get_job_failed", err,
			"queue_id", strings.TrimSpace(queueID),
		)
	}
	return row.toEntity()
}

func (r *Repository) ListJobsByPack(ctx context.Context, packID string) ([]entities.PublishingJob, error) {
	var rows []publishingJobModel
	if err := r.db.WithContext(ctx).
		Where("pack_id = ?", strings.TrimSpace(packID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("publishing_repo_list_jobs_by_pack_failed", err,
			"pack_id", strings.TrimSpace(packID),
		)
	}
	return rowsToEntities(rows)
}

func (r *Repository) ListRetryableJobs(ctx context.Context, limit int) ([]entities.PublishingJob, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []publishingJobModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.JobStatusFailed)).
		Where("retry_count < max_retries").
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("publishing_repo_list_retryable_failed", err,
			"limit", limit,
		)
	}
	return rowsToEntities(rows)
}

func (r *Repository) ListDueScheduledJobs(
	ctx context.Context,
	threshold time.Time,
	limit int,
) ([]entities.PublishingJob, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []publishingJobModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.JobStatusPending)).
		Where("scheduled_at IS NOT NULL").
		Where("scheduled_at <= ?", threshold.UTC()).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("publishing_repo_list_due_scheduled_failed", err,
			"threshold_utc", threshold.UTC().Format(time.RFC3339),
			"limit", limit,
		)
	}
	return rowsToEntities(rows)
}

func (r *Repository) CreateResult(ctx context.Context, result entities.PublishingResult) error {
	row := resultModelFromEntity(result)
	// Conflict on queue_id keeps "exactly one result per published job".
	createResult := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "queue_id"}},
		DoNothing: true,
	}).Create(&row)
	if createResult.Error != nil {
		return r.logError("publishing_repo_create_result_failed", createResult.Error,
			"result_id", result.ResultID,
			"queue_id", result.QueueID,
		)
	}
	return nil
}

func (r *Repository) ListResultsByPack(ctx context.Context, packID string) ([]entities.PublishingResult, error) {
	var rows []publishingResultModel
	if err := r.db.WithContext(ctx).
		Joins("JOIN publishing_jobs ON publishing_jobs.queue_id = publishing_results.queue_id").
		Where("publishing_jobs.pack_id = ?", strings.TrimSpace(packID)).
		Order("publishing_results.published_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("publishing_repo_list_results_by_pack_failed", err,
			"pack_id", strings.TrimSpace(packID),
		)
	}
	results := make([]entities.PublishingResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.toEntity())
	}
	return results, nil
}

func (r *Repository) UpdatePackStatus(ctx context.Context, packID string, status entities.PackStatus) error {
	row := packStatusModel{
		PackID:    strings.TrimSpace(packID),
		Status:    string(status),
		UpdatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pack_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return r.logError("publishing_repo_update_pack_status_failed", err,
			"pack_id", strings.TrimSpace(packID),
			"status", string(status),
		)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "delivery-core/publishing-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("publishing repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+5)
	fields = append(fields,
		"event", event,
		"module", "delivery-core/publishing-service",
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("publishing repository warning", fields...)
}

type publishingJobModel struct {
	QueueID      string     `gorm:"column:queue_id;primaryKey"`
	PackID       string     `gorm:"column:pack_id"`
	UserID       string     `gorm:"column:user_id"`
	Platform     string     `gorm:"column:platform"`
	ContentType  string     `gorm:"column:content_type"`
	ContentData  []byte     `gorm:"column:content_data;type:jsonb"`
	Status       string     `gorm:"column:status"`
	ErrorMessage string     `gorm:"column:error_message"`
	ScheduledAt  *time.Time `gorm:"column:scheduled_at"`
	RetryCount   int        `gorm:"column:retry_count"`
	MaxRetries   int        `gorm:"column:max_retries"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (publishingJobModel) TableName() string {
	return "publishing_jobs"
}

func jobModelFromEntity(job entities.PublishingJob) (publishingJobModel, error) {
	contentData, err := json.Marshal(job.ContentData)
	if err != nil {
		return publishingJobModel{}, err
	}
	return publishingJobModel{
		QueueID:      strings.TrimSpace(job.QueueID),
		PackID:       strings.TrimSpace(job.PackID),
		UserID:       strings.TrimSpace(job.UserID),
		Platform:     string(job.Platform),
		ContentType:  job.ContentType,
		ContentData:  contentData,
		Status:       string(job.Status),
		ErrorMessage: strings.TrimSpace(job.ErrorMessage),
		ScheduledAt:  normalizeOptionalTime(job.ScheduledAt),
		RetryCount:   job.RetryCount,
		MaxRetries:   job.MaxRetries,
		CreatedAt:    job.CreatedAt.UTC(),
		UpdatedAt:    job.UpdatedAt.UTC(),
	}, nil
}

func jobUpdatesFromEntity(job entities.PublishingJob) (map[string]any, error) {
	row, err := jobModelFromEntity(job)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":        row.Status,
		"error_message": row.ErrorMessage,
		"scheduled_at":  row.ScheduledAt,
		"retry_count":   row.RetryCount,
		"max_retries":   row.MaxRetries,
		"updated_at":    row.UpdatedAt,
	}, nil
}

func (m publishingJobModel) toEntity() (entities.PublishingJob, error) {
	contentData := map[string]any{}
	if len(m.ContentData) > 0 {
		if err := json.Unmarshal(m.ContentData, &contentData); err != nil {
			return entities.PublishingJob{}, err
		}
	}
	return entities.PublishingJob{
		QueueID:      m.QueueID,
		PackID:       m.PackID,
		UserID:       m.UserID,
		Platform:     entities.Platform(m.Platform),
		ContentType:  m.ContentType,
		ContentData:  contentData,
		Status:       entities.JobStatus(m.Status),
		ErrorMessage: m.ErrorMessage,
		ScheduledAt:  normalizeOptionalTime(m.ScheduledAt),
		RetryCount:   m.RetryCount,
		MaxRetries:   m.MaxRetries,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}, nil
}

func rowsToEntities(rows []publishingJobModel) ([]entities.PublishingJob, error) {
	jobs := make([]entities.PublishingJob, 0, len(rows))
	for _, row := range rows {
		job, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

type publishingResultModel struct {
	ResultID    string    `gorm:"column:result_id;primaryKey"`
	QueueID     string    `gorm:"column:queue_id"`
	Platform    string    `gorm:"column:platform"`
	ExternalID  string    `gorm:"column:external_id"`
	ExternalURL string    `gorm:"column:external_url"`
	PublishedAt time.Time `gorm:"column:published_at"`
}

func (publishingResultModel) TableName() string {
	return "publishing_results"
}

func resultModelFromEntity(result entities.PublishingResult) publishingResultModel {
	return publishingResultModel{
		ResultID:    strings.TrimSpace(result.ResultID),
		QueueID:     strings.TrimSpace(result.QueueID),
		Platform:    string(result.Platform),
		ExternalID:  strings.TrimSpace(result.ExternalID),
		ExternalURL: strings.TrimSpace(result.ExternalURL),
		PublishedAt: result.PublishedAt.UTC(),
	}
}

func (m publishingResultModel) toEntity() entities.PublishingResult {
	return entities.PublishingResult{
		ResultID:    m.ResultID,
		QueueID:     m.QueueID,
		Platform:    entities.Platform(m.Platform),
		ExternalID:  m.ExternalID,
		ExternalURL: m.ExternalURL,
		PublishedAt: m.PublishedAt.UTC(),
	}
}

type packStatusModel struct {
	PackID    string    `gorm:"column:pack_id;primaryKey"`
	Status    string    `gorm:"column:status"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (packStatusModel) TableName() string {
	return "pack_publishing_status"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	normalized := value.UTC()
	return &normalized
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
