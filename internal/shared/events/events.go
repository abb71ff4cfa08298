package events

// Canonical lifecycle event types fanned out through the webhook delivery
// engine. Keep names aligned with the published webhook contract.
const (
	PublishingStarted   = "publishing.started"
	PublishingCompleted = "publishing.completed"
	PublishingFailed    = "publishing.failed"

	PackPublished          = "pack.published"
	PackDraftCreated       = "pack.draft_created"
	PackDerivativesCreated = "pack.derivatives_created"
	IdeaSelected           = "idea.selected"
	BriefApproved          = "brief.approved"
)

// Known lists every event type subscribers may register for.
func Known() []string {
	return []string{
		PublishingStarted,
		PublishingCompleted,
		PublishingFailed,
		PackPublished,
		PackDraftCreated,
		PackDerivativesCreated,
		IdeaSelected,
		BriefApproved,
	}
}
