package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ContentBody struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Summary  string   `json:"summary,omitempty"`
	HTML     string   `json:"html,omitempty"`
	Subject  string   `json:"subject,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	LinkURL  string   `json:"link_url,omitempty"`
}

type PublishPackRequest struct {
	UserID    string      `json:"user_id" validate:"required"`
	Platforms []string    `json:"platforms" validate:"required,min=1"`
	Content   ContentBody `json:"content"`
}

type SchedulePublishingRequest struct {
	UserID      string      `json:"user_id" validate:"required"`
	Platforms   []string    `json:"platforms" validate:"required,min=1"`
	Content     ContentBody `json:"content"`
	ScheduledAt string      `json:"scheduled_at" validate:"required"`
}

type PlatformOutcomeDTO struct {
	QueueID     string `json:"queue_id"`
	Platform    string `json:"platform"`
	Status      string `json:"status"`
	ExternalURL string `json:"external_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

type PublishPackResponse struct {
	PackID   string               `json:"pack_id"`
	Status   string               `json:"status"`
	Outcomes []PlatformOutcomeDTO `json:"outcomes"`
}

type ScheduledJobDTO struct {
	QueueID     string `json:"queue_id"`
	Platform    string `json:"platform"`
	Status      string `json:"status"`
	ScheduledAt string `json:"scheduled_at"`
}

type SchedulePublishingResponse struct {
	PackID string            `json:"pack_id"`
	Jobs   []ScheduledJobDTO `json:"jobs"`
}

type JobReportDTO struct {
	QueueID      string         `json:"queue_id"`
	Platform     string         `json:"platform"`
	Status       string         `json:"status"`
	RetryCount   int            `json:"retry_count"`
	MaxRetries   int            `json:"max_retries"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ScheduledAt  string         `json:"scheduled_at,omitempty"`
	ExternalID   string         `json:"external_id,omitempty"`
	ExternalURL  string         `json:"external_url,omitempty"`
	PublishedAt  string         `json:"published_at,omitempty"`
	Metrics      map[string]any `json:"metrics,omitempty"`
}

type PublishingStatusResponse struct {
	PackID string         `json:"pack_id"`
	Status string         `json:"status"`
	Jobs   []JobReportDTO `json:"jobs"`
}
