package commands

import (
	"strings"

	"herald/contexts/delivery-core/publishing-service/domain/entities"
	domainerrors "herald/contexts/delivery-core/publishing-service/domain/errors"
)

// Content is the generic pack payload a caller hands to the orchestrator.
// Platform-shaped payloads are derived from it by FormatContent.
type Content struct {
	Title    string
	Body     string
	Summary  string
	HTML     string
	Subject  string
	Tags     []string
	ImageURL string
	LinkURL  string
}

// FormatContent maps generic pack content onto the field shape one platform
// expects. Pure function of (platform, content).
func FormatContent(platform entities.Platform, content Content) (string, map[string]any) {
	switch platform {
	case entities.PlatformTwitter:
		text := firstNonEmpty(content.Summary, content.Body)
		if content.LinkURL != "" {
			text = strings.TrimSpace(text) + " " + content.LinkURL
		}
		return "social_post", map[string]any{
			"text": strings.TrimSpace(text),
		}
	case entities.PlatformLinkedIn:
		return "social_post", map[string]any{
			"text":  strings.TrimSpace(firstNonEmpty(content.Body, content.Summary)),
			"title": strings.TrimSpace(content.Title),
			"link":  content.LinkURL,
		}
	case entities.PlatformFacebook:
		return "social_post", map[string]any{
			"message": strings.TrimSpace(firstNonEmpty(content.Body, content.Summary)),
			"link":    content.LinkURL,
		}
	case entities.PlatformInstagram:
		return "social_post", map[string]any{
			"caption":   strings.TrimSpace(firstNonEmpty(content.Summary, content.Body)),
			"image_url": content.ImageURL,
		}
	case entities.PlatformSendGrid, entities.PlatformMailchimp:
		return "email", map[string]any{
			"subject": strings.TrimSpace(firstNonEmpty(content.Subject, content.Title)),
			"html":    content.HTML,
			"text":    content.Body,
		}
	case entities.PlatformWordPress, entities.PlatformMedium:
		return "article", map[string]any{
			"title":   strings.TrimSpace(content.Title),
			"content": firstNonEmpty(content.HTML, content.Body),
			"tags":    append([]string(nil), content.Tags...),
		}
	default:
		return "social_post", map[string]any{
			"text": strings.TrimSpace(content.Body),
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func normalizePlatforms(platforms []string) ([]entities.Platform, error) {
	normalized := make([]entities.Platform, 0, len(platforms))
	seen := map[entities.Platform]struct{}{}
	for _, platform := range platforms {
		value, err := normalizePlatform(platform)
		if err != nil {
			return nil, err
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		normalized = append(normalized, value)
	}
	if len(normalized) == 0 {
		return nil, domainerrors.ErrInvalidPublishInput
	}
	return normalized, nil
}

func normalizePlatform(value string) (entities.Platform, error) {
	platform := entities.Platform(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range entities.AllPlatforms() {
		if platform == known {
			return platform, nil
		}
	}
	return "", domainerrors.ErrUnsupportedPlatform
}
