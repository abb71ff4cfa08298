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

// GenericAdapter covers platforms whose publish protocol is a single
// authenticated JSON POST. Endpoint paths, the primary text field, and the
// platform length limit are the only per-platform variation.
type GenericAdapter struct {
	Platform    entities.Platform
	BaseURL     string
	AuthPath    string
	PublishPath string
	TextField   string
	MaxTextLen  int
	Client      *http.Client
}

func NewGenericAdapter(
	platform entities.Platform,
	baseURL string,
	authPath string,
	publishPath string,
	textField string,
	maxTextLen int,
	client *http.Client,
) *GenericAdapter {
	return &GenericAdapter{
		Platform:    platform,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		AuthPath:    authPath,
		PublishPath: publishPath,
		TextField:   textField,
		MaxTextLen:  maxTextLen,
		Client:      client,
	}
}

func (a *GenericAdapter) Authenticate(ctx context.Context, creds ports.Credentials) bool {
	status, _, err := postJSON(ctx, a.Client, "GET", a.BaseURL+a.AuthPath, bearerHeader(creds), nil)
	return err == nil && is2xx(status)
}

func (a *GenericAdapter) ValidateContent(content map[string]any) ports.ValidationResult {
	var errs []string
	text := strings.TrimSpace(stringField(content, a.TextField))
	if text == "" {
		errs = append(errs, a.TextField+" is required")
	}
	if a.MaxTextLen > 0 && len([]rune(text)) > a.MaxTextLen {
		errs = append(errs, fmt.Sprintf("%s exceeds %d characters", a.TextField, a.MaxTextLen))
	}
	return ports.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func (a *GenericAdapter) Publish(
	ctx context.Context,
	job entities.PublishingJob,
	creds ports.Credentials,
) (entities.PublishingResult, error) {
	status, body, err := postJSON(ctx, a.Client, "POST", a.BaseURL+a.PublishPath, bearerHeader(creds), job.ContentData)
	if err != nil {
		return entities.PublishingResult{}, fmt.Errorf("%s publish: %w", a.Platform, err)
	}
	if !is2xx(status) {
		return entities.PublishingResult{}, fmt.Errorf("%s publish: status %d: %s", a.Platform, status, strings.TrimSpace(string(body)))
	}

	var decoded struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return entities.PublishingResult{}, fmt.Errorf("%s publish: decode response: %w", a.Platform, err)
	}
	if decoded.ID == "" {
		return entities.PublishingResult{}, fmt.Errorf("%s publish: response missing id", a.Platform)
	}
	return entities.PublishingResult{
		ExternalID:  decoded.ID,
		ExternalURL: decoded.URL,
	}, nil
}

func (a *GenericAdapter) Metrics(
	ctx context.Context,
	result entities.PublishingResult,
	creds ports.Credentials,
) map[string]any {
	url := a.BaseURL + a.PublishPath + "/" + result.ExternalID + "/metrics"
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
