package queries

import (
	"context"
	"testing"
	"time"

	"herald/contexts/delivery-core/publishing-service/adapters/memory"
	"herald/contexts/delivery-core/publishing-service/domain/entities"
	"herald/contexts/delivery-core/publishing-service/ports"
)

type metricsAdapter struct {
	metrics map[string]any
}

func (a metricsAdapter) Authenticate(_ context.Context, _ ports.Credentials) bool { return true }

func (a metricsAdapter) ValidateContent(_ map[string]any) ports.ValidationResult {
	return ports.ValidationResult{Valid: true}
}

func (a metricsAdapter) Publish(
	_ context.Context,
	_ entities.PublishingJob,
	_ ports.Credentials,
) (entities.PublishingResult, error) {
	return entities.PublishingResult{}, nil
}

func (a metricsAdapter) Metrics(
	_ context.Context,
	_ entities.PublishingResult,
	_ ports.Credentials,
) map[string]any {
	return a.metrics
}

type singleRegistry struct {
	adapter ports.PlatformAdapter
}

func (r singleRegistry) Resolve(_ entities.Platform) (ports.PlatformAdapter, error) {
	return r.adapter, nil
}

func seedPublishedPack(t *testing.T, store *memory.Store) {
	t.Helper()
	now := time.Now().UTC()
	job := entities.PublishingJob{
		QueueID:   "queue-1",
		PackID:    "pack-1",
		UserID:    "user-1",
		Platform:  entities.PlatformTwitter,
		Status:    entities.JobStatusPublished,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("seed job failed: %v", err)
	}
	result := entities.PublishingResult{
		ResultID:    "result-1",
		QueueID:     "queue-1",
		Platform:    entities.PlatformTwitter,
		ExternalID:  "ext-1",
		ExternalURL: "https://example.com/ext-1",
		PublishedAt: now,
	}
	if err := store.CreateResult(context.Background(), result); err != nil {
		t.Fatalf("seed result failed: %v", err)
	}
}

func TestGetPublishingStatusEnrichesResultsWithPlatformMetrics(t *testing.T) {
	store := memory.NewStore(nil)
	seedPublishedPack(t, store)
	creds := memory.NewCredentials()
	creds.Set("user-1", entities.PlatformTwitter, ports.Credentials{"access_token": "token"})

	uc := UseCase{
		Jobs:        store,
		Credentials: creds,
		Adapters:    singleRegistry{adapter: metricsAdapter{metrics: map[string]any{"like_count": 7}}},
	}

	report, err := uc.GetPublishingStatus(context.Background(), "pack-1")
	if err != nil {
		t.Fatalf("status query failed: %v", err)
	}
	if len(report.Jobs) != 1 {
		t.Fatalf("expected one job report, got %d", len(report.Jobs))
	}
	entry := report.Jobs[0]
	if entry.Result == nil {
		t.Fatal("expected result to be joined")
	}
	if got, ok := entry.Metrics["like_count"]; !ok || got != 7 {
		t.Fatalf("expected like_count metric, got %v", entry.Metrics)
	}
}

func TestGetPublishingStatusMetricsAreBestEffort(t *testing.T) {
	store := memory.NewStore(nil)
	seedPublishedPack(t, store)

	// No credentials on file: the report must still come back, without metrics.
	uc := UseCase{
		Jobs:        store,
		Credentials: memory.NewCredentials(),
		Adapters:    singleRegistry{adapter: metricsAdapter{metrics: map[string]any{"like_count": 7}}},
	}

	report, err := uc.GetPublishingStatus(context.Background(), "pack-1")
	if err != nil {
		t.Fatalf("status query failed: %v", err)
	}
	if len(report.Jobs) != 1 {
		t.Fatalf("expected one job report, got %d", len(report.Jobs))
	}
	if report.Jobs[0].Metrics != nil {
		t.Fatalf("expected no metrics without credentials, got %v", report.Jobs[0].Metrics)
	}
}
