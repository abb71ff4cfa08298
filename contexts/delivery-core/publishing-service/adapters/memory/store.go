package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"herald/contexts/delivery-core/publishing-service/domain/entities"
	domainerrors "herald/contexts/delivery-core/publishing-service/domain/errors"
	"herald/contexts/delivery-core/publishing-service/ports"

	"github.com/google/uuid"
)

// Store is the in-memory JobStore used by tests and the in-memory module
// constructor. It also provides Clock and IDGenerator.
type Store struct {
	mu sync.RWMutex

	jobs       map[string]entities.PublishingJob
	results    map[string]entities.PublishingResult
	packStatus map[string]entities.PackStatus
}

func NewStore(seed []entities.PublishingJob) *Store {
	jobs := make(map[string]entities.PublishingJob, len(seed))
	for _, job := range seed {
		jobs[job.QueueID] = job
	}
	return &Store{
		jobs:       jobs,
		results:    make(map[string]entities.PublishingResult),
		packStatus: make(map[string]entities.PackStatus),
	}
}

func (s *Store) CreateJob(_ context.Context, job entities.PublishingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.QueueID]; exists {
		return domainerrors.ErrJobExists
	}
	s.jobs[job.QueueID] = job
	return nil
}

func (s *Store) UpdateJob(_ context.Context, job entities.PublishingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.QueueID]; !exists {
		return domainerrors.ErrJobNotFound
	}
	s.jobs[job.QueueID] = job
	return nil
}

func (s *Store) GetJob(_ context.Context, queueID string) (entities.PublishingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[strings.TrimSpace(queueID)]
	if !exists {
		return entities.PublishingJob{}, domainerrors.ErrJobNotFound
	}
	return job, nil
}

func (s *Store) ListJobsByPack(_ context.Context, packID string) ([]entities.PublishingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]entities.PublishingJob, 0)
	for _, job := range s.jobs {
		if job.PackID == strings.TrimSpace(packID) {
			jobs = append(jobs, job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].Platform < jobs[j].Platform
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs, nil
}

func (s *Store) ListRetryableJobs(_ context.Context, limit int) ([]entities.PublishingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	jobs := make([]entities.PublishingJob, 0, limit)
	for _, job := range s.jobs {
		if job.Status != entities.JobStatusFailed || job.RetryCount >= job.MaxRetries {
			continue
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].UpdatedAt.Before(jobs[j].UpdatedAt)
	})
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (s *Store) ListDueScheduledJobs(
	_ context.Context,
	threshold time.Time,
	limit int,
) ([]entities.PublishingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	jobs := make([]entities.PublishingJob, 0, limit)
	for _, job := range s.jobs {
		if job.Status != entities.JobStatusPending || job.ScheduledAt == nil {
			continue
		}
		if job.ScheduledAt.UTC().After(threshold.UTC()) {
			continue
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].ScheduledAt.Before(*jobs[j].ScheduledAt)
	})
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (s *Store) CreateResult(_ context.Context, result entities.PublishingResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[result.QueueID]; !exists {
		return domainerrors.ErrJobNotFound
	}
	s.results[result.ResultID] = result
	return nil
}

func (s *Store) ListResultsByPack(_ context.Context, packID string) ([]entities.PublishingResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]entities.PublishingResult, 0)
	for _, result := range s.results {
		job, exists := s.jobs[result.QueueID]
		if !exists || job.PackID != strings.TrimSpace(packID) {
			continue
		}
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].PublishedAt.Before(results[j].PublishedAt)
	})
	return results, nil
}

func (s *Store) UpdatePackStatus(_ context.Context, packID string, status entities.PackStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.packStatus[strings.TrimSpace(packID)] = status
	return nil
}

// PackStatus reads the last aggregate written for a pack.
func (s *Store) PackStatus(packID string) (entities.PackStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.packStatus[strings.TrimSpace(packID)]
	return status, ok
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// Credentials is an in-memory CredentialProvider keyed by user and platform.
type Credentials struct {
	mu      sync.RWMutex
	entries map[string]ports.Credentials
	expired map[string]bool
}

func NewCredentials() *Credentials {
	return &Credentials{
		entries: make(map[string]ports.Credentials),
		expired: make(map[string]bool),
	}
}

func credentialKey(userID string, platform entities.Platform) string {
	return strings.TrimSpace(userID) + "|" + string(platform)
}

func (c *Credentials) Set(userID string, platform entities.Platform, creds ports.Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[credentialKey(userID, platform)] = creds
}

func (c *Credentials) MarkExpired(userID string, platform entities.Platform) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expired[credentialKey(userID, platform)] = true
}

func (c *Credentials) GetCredentials(
	_ context.Context,
	userID string,
	platform entities.Platform,
) (ports.Credentials, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := credentialKey(userID, platform)
	if c.expired[key] {
		return nil, domainerrors.ErrCredentialsExpired
	}
	creds, exists := c.entries[key]
	if !exists {
		return nil, domainerrors.ErrCredentialsNotFound
	}
	return creds, nil
}
