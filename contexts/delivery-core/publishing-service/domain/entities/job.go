package entities

import "time"

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusPublished  JobStatus = "published"
	JobStatusFailed     JobStatus = "failed"
)

type PackStatus string

const (
	PackStatusPublishing         PackStatus = "publishing"
	PackStatusPublished          PackStatus = "published"
	PackStatusPartiallyPublished PackStatus = "partially_published"
	PackStatusFailed             PackStatus = "failed"
)

type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformSendGrid  Platform = "sendgrid"
	PlatformMailchimp Platform = "mailchimp"
	PlatformWordPress Platform = "wordpress"
	PlatformMedium    Platform = "medium"
)

// AllPlatforms is the closed set the adapter registry resolves over.
func AllPlatforms() []Platform {
	return []Platform{
		PlatformTwitter,
		PlatformLinkedIn,
		PlatformFacebook,
		PlatformInstagram,
		PlatformSendGrid,
		PlatformMailchimp,
		PlatformWordPress,
		PlatformMedium,
	}
}

const DefaultMaxRetries = 3

// PublishingJob is one platform-specific unit of publishing work.
// Lifecycle: pending -> processing -> published|failed, with failed -> pending
// via the retry sweep while RetryCount < MaxRetries.
type PublishingJob struct {
	QueueID      string
	PackID       string
	UserID       string
	Platform     Platform
	ContentType  string
	ContentData  map[string]any
	Status       JobStatus
	ErrorMessage string
	ScheduledAt  *time.Time
	RetryCount   int
	MaxRetries   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublishingResult records a successful external publish. Created exactly once
// per published job and never mutated afterwards.
type PublishingResult struct {
	ResultID    string
	QueueID     string
	Platform    Platform
	ExternalID  string
	ExternalURL string
	PublishedAt time.Time
}

// AggregateStatus derives the pack-level status from settled job statuses.
// Pure: the same multiset of statuses always yields the same answer. Jobs still
// pending or processing keep the pack in publishing.
func AggregateStatus(statuses []JobStatus) PackStatus {
	if len(statuses) == 0 {
		return PackStatusFailed
	}
	published := 0
	failed := 0
	for _, status := range statuses {
		switch status {
		case JobStatusPublished:
			published++
		case JobStatusFailed:
			failed++
		default:
			return PackStatusPublishing
		}
	}
	switch {
	case failed == 0:
		return PackStatusPublished
	case published == 0:
		return PackStatusFailed
	default:
		return PackStatusPartiallyPublished
	}
}
