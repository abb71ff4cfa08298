package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"herald/contexts/delivery-core/publishing-service/domain/entities"
	"herald/contexts/delivery-core/publishing-service/ports"
)

const instagramMaxCaptionLength = 2200

// InstagramAdapter publishes through the Graph API two-step protocol: create
// a media container, then publish it. Either step failing aborts the whole
// operation with nothing recorded.
type InstagramAdapter struct {
	BaseURL string
	Client  *http.Client
}

func (a *InstagramAdapter) baseURL() string {
	if strings.TrimSpace(a.BaseURL) == "" {
		return "https://graph.facebook.com"
	}
	return strings.TrimRight(a.BaseURL, "/")
}

func (a *InstagramAdapter) Authenticate(ctx context.Context, creds ports.Credentials) bool {
	status, _, err := postJSON(ctx, a.Client, "GET", a.baseURL()+"/me", bearerHeader(creds), nil)
	return err == nil && is2xx(status)
}

func (a *InstagramAdapter) ValidateContent(content map[string]any) ports.ValidationResult {
	var errs []string
	caption := strings.TrimSpace(stringField(content, "caption"))
	if len([]rune(caption)) > instagramMaxCaptionLength {
		errs = append(errs, fmt.Sprintf("caption exceeds %d characters", instagramMaxCaptionLength))
	}
	if strings.TrimSpace(stringField(content, "image_url")) == "" {
		errs = append(errs, "image_url is required")
	}
	return ports.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func (a *InstagramAdapter) Publish(
	ctx context.Context,
	job entities.PublishingJob,
	creds ports.Credentials,
) (entities.PublishingResult, error) {
	accountID := strings.TrimSpace(creds["account_id"])
	if accountID == "" {
		return entities.PublishingResult{}, fmt.Errorf("instagram publish: account_id credential missing")
	}

	status, body, err := postJSON(ctx, a.Client, "POST", a.baseURL()+"/"+accountID+"/media", bearerHeader(creds), map[string]any{
		"image_url": stringField(job.ContentData, "image_url"),
		"caption":   stringField(job.ContentData, "caption"),
	})
	if err != nil {
		return entities.PublishingResult{}, fmt.Errorf("instagram create container: %w", err)
	}
	if !is2xx(status) {
		return entities.PublishingResult{}, fmt.Errorf("instagram create container: status %d: %s", status, strings.TrimSpace(string(body)))
	}
	var container struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &container); err != nil || container.ID == "" {
		return entities.PublishingResult{}, fmt.Errorf("instagram create container: response missing container id")
	}

	status, body, err = postJSON(ctx, a.Client, "POST", a.baseURL()+"/"+accountID+"/media_publish", bearerHeader(creds), map[string]any{
		"creation_id": container.ID,
	})
	if err != nil {
		return entities.PublishingResult{}, fmt.Errorf("instagram publish container: %w", err)
	}
	if !is2xx(status) {
		return entities.PublishingResult{}, fmt.Errorf("instagram publish container: status %d: %s", status, strings.TrimSpace(string(body)))
	}
	var media struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &media); err != nil || media.ID == "" {
		return entities.PublishingResult{}, fmt.Errorf("instagram publish container: response missing media id")
	}
	return entities.PublishingResult{
		ExternalID:  media.ID,
		ExternalURL: "https://www.instagram.com/p/" + media.ID,
	}, nil
}

func (a *InstagramAdapter) Metrics(
	ctx context.Context,
	result entities.PublishingResult,
	creds ports.Credentials,
) map[string]any {
	url := a.baseURL() + "/" + result.ExternalID + "/insights?metric=impressions,reach"
	status, body, err := postJSON(ctx, a.Client, "GET", url, bearerHeader(creds), nil)
	if err != nil || !is2xx(status) {
		return map[string]any{}
	}
	metrics := map[string]any{}
	if err := json.Unmarshal(body, &metrics); err != nil {
		return map[string]any{}
	}
	return metrics
}
