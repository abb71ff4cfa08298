package commands

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"herald/contexts/delivery-core/publishing-service/adapters/memory"
	"herald/contexts/delivery-core/publishing-service/domain/entities"
	domainerrors "herald/contexts/delivery-core/publishing-service/domain/errors"
	"herald/contexts/delivery-core/publishing-service/ports"
	"herald/internal/shared/events"
)

type fakeAdapter struct {
	validationErrors []string
	rejectAuth       bool
	failuresLeft     int32
	publishCalls     int32
}

func (a *fakeAdapter) Authenticate(_ context.Context, _ ports.Credentials) bool {
	return !a.rejectAuth
}

func (a *fakeAdapter) ValidateContent(_ map[string]any) ports.ValidationResult {
	if len(a.validationErrors) > 0 {
		return ports.ValidationResult{Valid: false, Errors: a.validationErrors}
	}
	return ports.ValidationResult{Valid: true}
}

func (a *fakeAdapter) Publish(
	_ context.Context,
	job entities.PublishingJob,
	_ ports.Credentials,
) (entities.PublishingResult, error) {
	atomic.AddInt32(&a.publishCalls, 1)
	if atomic.AddInt32(&a.failuresLeft, -1) >= 0 {
		return entities.PublishingResult{}, domainerrors.ErrExternalPublish
	}
	return entities.PublishingResult{
		ExternalID:  "ext-" + string(job.Platform),
		ExternalURL: "https://example.com/" + string(job.Platform),
	}, nil
}

func (a *fakeAdapter) Metrics(_ context.Context, _ entities.PublishingResult, _ ports.Credentials) map[string]any {
	return nil
}

type fakeRegistry struct {
	adapters map[entities.Platform]ports.PlatformAdapter
}

func (r fakeRegistry) Resolve(platform entities.Platform) (ports.PlatformAdapter, error) {
	adapter, ok := r.adapters[platform]
	if !ok {
		return nil, domainerrors.ErrUnsupportedPlatform
	}
	return adapter, nil
}

type eventRecorder struct {
	mu       sync.Mutex
	triggers []string
}

func (r *eventRecorder) Trigger(_ context.Context, eventType string, _ map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = append(r.triggers, eventType)
	return nil
}

func (r *eventRecorder) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, name := range r.triggers {
		if name == eventType {
			n++
		}
	}
	return n
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestUseCase(
	registry fakeRegistry,
	recorder *eventRecorder,
	clock ports.Clock,
) (UseCase, *memory.Store) {
	store := memory.NewStore(nil)
	creds := memory.NewCredentials()
	for _, platform := range entities.AllPlatforms() {
		creds.Set("user-1", platform, ports.Credentials{"access_token": "token"})
	}
	return UseCase{
		Jobs:        store,
		Credentials: creds,
		Adapters:    registry,
		Events:      recorder,
		Clock:       clock,
		IDGen:       store,
	}, store
}

func TestPublishPackPartialIndependence(t *testing.T) {
	twitter := &fakeAdapter{failuresLeft: 1}
	linkedin := &fakeAdapter{}
	recorder := &eventRecorder{}
	uc, store := newTestUseCase(fakeRegistry{adapters: map[entities.Platform]ports.PlatformAdapter{
		entities.PlatformTwitter:  twitter,
		entities.PlatformLinkedIn: linkedin,
	}}, recorder, nil)

	report, err := uc.PublishPack(context.Background(), PublishPackCommand{
		PackID:    "pack-1",
		UserID:    "user-1",
		Platforms: []string{"twitter", "linkedin"},
		Content:   Content{Title: "launch", Body: "we shipped"},
	})
	if err != nil {
		t.Fatalf("publish pack failed: %v", err)
	}

	if report.Aggregate != entities.PackStatusPartiallyPublished {
		t.Fatalf("expected partially_published aggregate, got %q", report.Aggregate)
	}
	byPlatform := map[entities.Platform]PlatformOutcome{}
	for _, outcome := range report.Outcomes {
		byPlatform[outcome.Platform] = outcome
	}
	if byPlatform[entities.PlatformTwitter].Status != entities.JobStatusFailed {
		t.Fatalf("expected twitter job failed, got %q", byPlatform[entities.PlatformTwitter].Status)
	}
	if byPlatform[entities.PlatformLinkedIn].Status != entities.JobStatusPublished {
		t.Fatalf("expected linkedin job published, got %q", byPlatform[entities.PlatformLinkedIn].Status)
	}

	status, ok := store.PackStatus("pack-1")
	if !ok || status != entities.PackStatusPartiallyPublished {
		t.Fatalf("expected stored pack status partially_published, got %q (ok=%v)", status, ok)
	}
	if got := recorder.count(events.PublishingStarted); got != 1 {
		t.Fatalf("expected one started event, got %d", got)
	}
	if got := recorder.count(events.PublishingCompleted); got != 1 {
		t.Fatalf("expected exactly one completed event, got %d", got)
	}
}

func TestPublishPackValidationFailureBurnsRetryBudget(t *testing.T) {
	twitter := &fakeAdapter{validationErrors: []string{"text exceeds limit"}}
	recorder := &eventRecorder{}
	uc, _ := newTestUseCase(fakeRegistry{adapters: map[entities.Platform]ports.PlatformAdapter{
		entities.PlatformTwitter: twitter,
	}}, recorder, nil)

	report, err := uc.PublishPack(context.Background(), PublishPackCommand{
		PackID:    "pack-2",
		UserID:    "user-1",
		Platforms: []string{"twitter"},
		Content:   Content{Body: "way too long"},
	})
	if err != nil {
		t.Fatalf("publish pack failed: %v", err)
	}
	if report.Aggregate != entities.PackStatusFailed {
		t.Fatalf("expected failed aggregate, got %q", report.Aggregate)
	}
	if calls := atomic.LoadInt32(&twitter.publishCalls); calls != 0 {
		t.Fatalf("expected publish to be skipped after validation failure, got %d calls", calls)
	}

	// Validation failures are terminal; the sweep must not pick them up.
	requeued, err := uc.RetryFailedJobs(context.Background(), 10)
	if err != nil {
		t.Fatalf("retry sweep failed: %v", err)
	}
	if requeued != 0 {
		t.Fatalf("expected no retryable jobs, requeued %d", requeued)
	}
	if got := recorder.count(events.PublishingFailed); got != 1 {
		t.Fatalf("expected one failed event, got %d", got)
	}
}

func TestPublishPackAuthenticationFailureBurnsRetryBudget(t *testing.T) {
	twitter := &fakeAdapter{rejectAuth: true}
	recorder := &eventRecorder{}
	uc, store := newTestUseCase(fakeRegistry{adapters: map[entities.Platform]ports.PlatformAdapter{
		entities.PlatformTwitter: twitter,
	}}, recorder, nil)

	report, err := uc.PublishPack(context.Background(), PublishPackCommand{
		PackID:    "pack-auth",
		UserID:    "user-1",
		Platforms: []string{"twitter"},
		Content:   Content{Body: "hello"},
	})
	if err != nil {
		t.Fatalf("publish pack failed: %v", err)
	}
	if report.Aggregate != entities.PackStatusFailed {
		t.Fatalf("expected failed aggregate, got %q", report.Aggregate)
	}
	if calls := atomic.LoadInt32(&twitter.publishCalls); calls != 0 {
		t.Fatalf("expected publish to be skipped after rejected credentials, got %d calls", calls)
	}

	jobs, err := store.ListJobsByPack(context.Background(), "pack-auth")
	if err != nil {
		t.Fatalf("list jobs failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(jobs))
	}
	if jobs[0].ErrorMessage != domainerrors.ErrCredentialsRejected.Error() {
		t.Fatalf("expected rejected-credentials error message, got %q", jobs[0].ErrorMessage)
	}

	// Rejected credentials need a re-auth; the sweep must not pick them up.
	requeued, err := uc.RetryFailedJobs(context.Background(), 10)
	if err != nil {
		t.Fatalf("retry sweep failed: %v", err)
	}
	if requeued != 0 {
		t.Fatalf("expected no retryable jobs, requeued %d", requeued)
	}
}

func TestRetryFailedJobsRecovers(t *testing.T) {
	twitter := &fakeAdapter{failuresLeft: 1}
	uc, store := newTestUseCase(fakeRegistry{adapters: map[entities.Platform]ports.PlatformAdapter{
		entities.PlatformTwitter: twitter,
	}}, &eventRecorder{}, nil)

	report, err := uc.PublishPack(context.Background(), PublishPackCommand{
		PackID:    "pack-3",
		UserID:    "user-1",
		Platforms: []string{"twitter"},
		Content:   Content{Body: "take two"},
	})
	if err != nil {
		t.Fatalf("publish pack failed: %v", err)
	}
	if report.Aggregate != entities.PackStatusFailed {
		t.Fatalf("expected failed aggregate, got %q", report.Aggregate)
	}

	requeued, err := uc.RetryFailedJobs(context.Background(), 10)
	if err != nil {
		t.Fatalf("retry sweep failed: %v", err)
	}
	if requeued != 1 {
		t.Fatalf("expected one requeued job, got %d", requeued)
	}

	jobs, err := store.ListJobsByPack(context.Background(), "pack-3")
	if err != nil {
		t.Fatalf("list jobs failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Status != entities.JobStatusPublished {
		t.Fatalf("expected job published after retry, got %+v", jobs)
	}
	if jobs[0].RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", jobs[0].RetryCount)
	}
}

func TestRetryFailedJobsBounded(t *testing.T) {
	twitter := &fakeAdapter{failuresLeft: 1 << 30}
	uc, store := newTestUseCase(fakeRegistry{adapters: map[entities.Platform]ports.PlatformAdapter{
		entities.PlatformTwitter: twitter,
	}}, &eventRecorder{}, nil)

	if _, err := uc.PublishPack(context.Background(), PublishPackCommand{
		PackID:    "pack-4",
		UserID:    "user-1",
		Platforms: []string{"twitter"},
		Content:   Content{Body: "doomed"},
	}); err != nil {
		t.Fatalf("publish pack failed: %v", err)
	}

	total := 0
	for i := 0; i < entities.DefaultMaxRetries+3; i++ {
		requeued, err := uc.RetryFailedJobs(context.Background(), 10)
		if err != nil {
			t.Fatalf("retry sweep failed: %v", err)
		}
		if requeued == 0 {
			break
		}
		total += requeued
	}
	if total != entities.DefaultMaxRetries {
		t.Fatalf("expected exactly %d retries, got %d", entities.DefaultMaxRetries, total)
	}
	if calls := atomic.LoadInt32(&twitter.publishCalls); calls != int32(entities.DefaultMaxRetries+1) {
		t.Fatalf("expected %d publish attempts total, got %d", entities.DefaultMaxRetries+1, calls)
	}

	jobs, err := store.ListJobsByPack(context.Background(), "pack-4")
	if err != nil {
		t.Fatalf("list jobs failed: %v", err)
	}
	if jobs[0].Status != entities.JobStatusFailed || jobs[0].RetryCount != jobs[0].MaxRetries {
		t.Fatalf("expected exhausted failed job, got status=%q retry_count=%d", jobs[0].Status, jobs[0].RetryCount)
	}
}

func TestSchedulePublishingRejectsPast(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	uc, _ := newTestUseCase(fakeRegistry{}, &eventRecorder{}, clock)

	_, err := uc.SchedulePublishing(context.Background(), SchedulePublishingCommand{
		PackID:      "pack-5",
		UserID:      "user-1",
		Platforms:   []string{"twitter"},
		Content:     Content{Body: "late"},
		ScheduledAt: clock.Now().Add(-time.Minute),
	})
	if !errors.Is(err, domainerrors.ErrScheduleInPast) {
		t.Fatalf("expected schedule-in-past error, got %v", err)
	}
}

func TestProcessDueScheduledDispatchesOnlyDueJobs(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	twitter := &fakeAdapter{}
	uc, store := newTestUseCase(fakeRegistry{adapters: map[entities.Platform]ports.PlatformAdapter{
		entities.PlatformTwitter: twitter,
	}}, &eventRecorder{}, clock)

	if _, err := uc.SchedulePublishing(context.Background(), SchedulePublishingCommand{
		PackID:      "pack-6",
		UserID:      "user-1",
		Platforms:   []string{"twitter"},
		Content:     Content{Body: "soon"},
		ScheduledAt: clock.Now().Add(10 * time.Minute),
	}); err != nil {
		t.Fatalf("schedule publishing failed: %v", err)
	}

	if err := uc.ProcessDueScheduled(context.Background(), 10); err != nil {
		t.Fatalf("process due scheduled failed: %v", err)
	}
	if calls := atomic.LoadInt32(&twitter.publishCalls); calls != 0 {
		t.Fatalf("expected no publish before scheduled time, got %d calls", calls)
	}

	clock.advance(15 * time.Minute)
	if err := uc.ProcessDueScheduled(context.Background(), 10); err != nil {
		t.Fatalf("process due scheduled failed: %v", err)
	}
	if calls := atomic.LoadInt32(&twitter.publishCalls); calls != 1 {
		t.Fatalf("expected one publish after scheduled time, got %d calls", calls)
	}

	status, ok := store.PackStatus("pack-6")
	if !ok || status != entities.PackStatusPublished {
		t.Fatalf("expected pack published, got %q (ok=%v)", status, ok)
	}
}

func TestPublishPackUnsupportedPlatformRejected(t *testing.T) {
	uc, _ := newTestUseCase(fakeRegistry{}, &eventRecorder{}, nil)
	_, err := uc.PublishPack(context.Background(), PublishPackCommand{
		PackID:    "pack-7",
		UserID:    "user-1",
		Platforms: []string{"myspace"},
		Content:   Content{Body: "hello"},
	})
	if !errors.Is(err, domainerrors.ErrUnsupportedPlatform) {
		t.Fatalf("expected unsupported platform error, got %v", err)
	}
}
