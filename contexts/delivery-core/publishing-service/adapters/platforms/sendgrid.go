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

// SendGridAdapter sends email campaigns through the v3 mail send API.
type SendGridAdapter struct {
	BaseURL string
	Client  *http.Client
}

func (a *SendGridAdapter) baseURL() string {
	if strings.TrimSpace(a.BaseURL) == "" {
		return "https://api.sendgrid.com"
	}
	return strings.TrimRight(a.BaseURL, "/")
}

func apiKeyHeader(creds ports.Credentials) map[string]string {
	key := strings.TrimSpace(creds["api_key"])
	if key == "" {
		return map[string]string{}
	}
	return map[string]string{"Authorization": "Bearer " + key}
}

func (a *SendGridAdapter) Authenticate(ctx context.Context, creds ports.Credentials) bool {
	status, _, err := postJSON(ctx, a.Client, "GET", a.baseURL()+"/v3/scopes", apiKeyHeader(creds), nil)
	return err == nil && is2xx(status)
}

func (a *SendGridAdapter) ValidateContent(content map[string]any) ports.ValidationResult {
	var errs []string
	if strings.TrimSpace(stringField(content, "subject")) == "" {
		errs = append(errs, "email subject is required")
	}
	if strings.TrimSpace(stringField(content, "html")) == "" && strings.TrimSpace(stringField(content, "text")) == "" {
		errs = append(errs, "email needs an html or text body")
	}
	return ports.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func (a *SendGridAdapter) Publish(
	ctx context.Context,
	job entities.PublishingJob,
	creds ports.Credentials,
) (entities.PublishingResult, error) {
	contents := make([]map[string]string, 0, 2)
	if text := stringField(job.ContentData, "text"); strings.TrimSpace(text) != "" {
		contents = append(contents, map[string]string{"type": "text/plain", "value": text})
	}
	if html := stringField(job.ContentData, "html"); strings.TrimSpace(html) != "" {
		contents = append(contents, map[string]string{"type": "text/html", "value": html})
	}
	payload := map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": strings.TrimSpace(creds["list_address"])}}},
		},
		"from":    map[string]string{"email": strings.TrimSpace(creds["from_address"])},
		"subject": stringField(job.ContentData, "subject"),
		"content": contents,
	}

	status, body, err := postJSON(ctx, a.Client, "POST", a.baseURL()+"/v3/mail/send", apiKeyHeader(creds), payload)
	if err != nil {
		return entities.PublishingResult{}, fmt.Errorf("sendgrid publish: %w", err)
	}
	if !is2xx(status) {
		return entities.PublishingResult{}, fmt.Errorf("sendgrid publish: status %d: %s", status, strings.TrimSpace(string(body)))
	}
	// Mail send returns 202 with no body; the message id is the external
	// identity when present, otherwise the queue id stands in.
	externalID := strings.TrimSpace(string(body))
	if externalID == "" {
		externalID = job.QueueID
	}
	return entities.PublishingResult{
		ExternalID:  externalID,
		ExternalURL: "",
	}, nil
}

func (a *SendGridAdapter) Metrics(
	ctx context.Context,
	result entities.PublishingResult,
	creds ports.Credentials,
) map[string]any {
	url := a.baseURL() + "/v3/messages/" + result.ExternalID
	status, body, err := postJSON(ctx, a.Client, "GET", url, apiKeyHeader(creds), nil)
	if err != nil || !is2xx(status) {
		return map[string]any{}
	}
	metrics := map[string]any{}
	if err := json.Unmarshal(body, &metrics); err != nil {
		return map[string]any{}
	}
	return metrics
}
