package ports

import (
	"context"
	"time"

	"herald/contexts/delivery-core/publishing-service/domain/entities"
)

// JobStore is the durable table of publishing jobs, their results, and the
// pack-level aggregate status. All mutation is keyed by queue or pack ID.
type JobStore interface {
	CreateJob(ctx context.Context, job entities.PublishingJob) error
	UpdateJob(ctx context.Context, job entities.PublishingJob) error
	GetJob(ctx context.Context, queueID string) (entities.PublishingJob, error)
	ListJobsByPack(ctx context.Context, packID string) ([]entities.PublishingJob, error)
	ListRetryableJobs(ctx context.Context, limit int) ([]entities.PublishingJob, error)
	ListDueScheduledJobs(ctx context.Context, threshold time.Time, limit int) ([]entities.PublishingJob, error)
	CreateResult(ctx context.Context, result entities.PublishingResult) error
	ListResultsByPack(ctx context.Context, packID string) ([]entities.PublishingResult, error)
	UpdatePackStatus(ctx context.Context, packID string, status entities.PackStatus) error
}

// Credentials is the opaque secret bag an adapter needs to call its platform.
type Credentials map[string]string

// CredentialProvider resolves per-user, per-platform secrets. Lookups fail with
// the domain credential errors; the orchestrator converts those into job
// failures and never retries them automatically.
type CredentialProvider interface {
	GetCredentials(ctx context.Context, userID string, platform entities.Platform) (Credentials, error)
}

// ValidationResult reports platform-limit validation of formatted content.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// PlatformAdapter is the uniform capability contract implemented once per
// external platform. Authenticate and Metrics are best-effort; Publish either
// fully commits or fails with no result.
type PlatformAdapter interface {
	Authenticate(ctx context.Context, creds Credentials) bool
	ValidateContent(content map[string]any) ValidationResult
	Publish(ctx context.Context, job entities.PublishingJob, creds Credentials) (entities.PublishingResult, error)
	Metrics(ctx context.Context, result entities.PublishingResult, creds Credentials) map[string]any
}

// AdapterRegistry resolves the adapter for a platform out of the closed enum.
type AdapterRegistry interface {
	Resolve(platform entities.Platform) (PlatformAdapter, error)
}

// EventTrigger fans publishing lifecycle events out through the webhook
// delivery engine. Trigger failures never fail the publishing work itself.
type EventTrigger interface {
	Trigger(ctx context.Context, eventType string, payload map[string]any) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
