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

const twitterMaxTextLength = 280

// TwitterAdapter publishes tweets through the v2 API.
type TwitterAdapter struct {
	BaseURL string
	Client  *http.Client
}

func (a *TwitterAdapter) baseURL() string {
	if strings.TrimSpace(a.BaseURL) == "" {
		return "https://api.twitter.com"
	}
	return strings.TrimRight(a.BaseURL, "/")
}

func (a *TwitterAdapter) Authenticate(ctx context.Context, creds ports.Credentials) bool {
	status, _, err := postJSON(ctx, a.Client, "GET", a.baseURL()+"/2/users/me", bearerHeader(creds), nil)
	return err == nil && is2xx(status)
}

func (a *TwitterAdapter) ValidateContent(content map[string]any) ports.ValidationResult {
	text := strings.TrimSpace(stringField(content, "text"))
	var errs []string
	if text == "" {
		errs = append(errs, "tweet text is required")
	}
	if len([]rune(text)) > twitterMaxTextLength {
		errs = append(errs, fmt.Sprintf("tweet text exceeds %d characters", twitterMaxTextLength))
	}
	return ports.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func (a *TwitterAdapter) Publish(
	ctx context.Context,
	job entities.PublishingJob,
	creds ports.Credentials,
) (entities.PublishingResult, error) {
	status, body, err := postJSON(ctx, a.Client, "POST", a.baseURL()+"/2/tweets", bearerHeader(creds), map[string]any{
		"text": stringField(job.ContentData, "text"),
	})
	if err != nil {
		return entities.PublishingResult{}, fmt.Errorf("twitter publish: %w", err)
	}
	if !is2xx(status) {
		return entities.PublishingResult{}, fmt.Errorf("twitter publish: status %d: %s", status, strings.TrimSpace(string(body)))
	}

	var decoded struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return entities.PublishingResult{}, fmt.Errorf("twitter publish: decode response: %w", err)
	}
	if decoded.Data.ID == "" {
		return entities.PublishingResult{}, fmt.Errorf("twitter publish: response missing tweet id")
	}
	return entities.PublishingResult{
		ExternalID:  decoded.Data.ID,
		ExternalURL: "https://twitter.com/i/web/status/" + decoded.Data.ID,
	}, nil
}

func (a *TwitterAdapter) Metrics(
	ctx context.Context,
	result entities.PublishingResult,
	creds ports.Credentials,
) map[string]any {
	url := a.baseURL() + "/2/tweets/" + result.ExternalID + "?tweet.fields=public_metrics"
	status, body, err := postJSON(ctx, a.Client, "GET", url, bearerHeader(creds), nil)
	if err != nil || !is2xx(status) {
		return map[string]any{}
	}
	var decoded struct {
		Data struct {
			PublicMetrics map[string]any `json:"public_metrics"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil || decoded.Data.PublicMetrics == nil {
		return map[string]any{}
	}
	return decoded.Data.PublicMetrics
}
