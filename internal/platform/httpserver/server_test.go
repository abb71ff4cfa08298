package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	publishingservice "herald/contexts/delivery-core/publishing-service"
	publishingmemory "herald/contexts/delivery-core/publishing-service/adapters/memory"
	publishingentities "herald/contexts/delivery-core/publishing-service/domain/entities"
	publishingports "herald/contexts/delivery-core/publishing-service/ports"
	webhookservice "herald/contexts/delivery-core/webhook-service"
	webhookcommands "herald/contexts/delivery-core/webhook-service/application/commands"
	"herald/contexts/delivery-core/webhook-service/adapters/sender"
	"herald/internal/shared/events"
)

type stubAdapter struct{}

func (stubAdapter) Authenticate(_ context.Context, _ publishingports.Credentials) bool { return true }

func (stubAdapter) ValidateContent(_ map[string]any) publishingports.ValidationResult {
	return publishingports.ValidationResult{Valid: true}
}

func (stubAdapter) Publish(
	_ context.Context,
	job publishingentities.PublishingJob,
	_ publishingports.Credentials,
) (publishingentities.PublishingResult, error) {
	return publishingentities.PublishingResult{
		ExternalID:  "ext-1",
		ExternalURL: "https://example.com/" + string(job.Platform),
	}, nil
}

func (stubAdapter) Metrics(
	_ context.Context,
	_ publishingentities.PublishingResult,
	_ publishingports.Credentials,
) map[string]any {
	return nil
}

type stubRegistry struct{}

func (stubRegistry) Resolve(_ publishingentities.Platform) (publishingports.PlatformAdapter, error) {
	return stubAdapter{}, nil
}

type eventBridge struct {
	commands webhookcommands.UseCase
}

func (b eventBridge) Trigger(ctx context.Context, eventType string, payload map[string]any) error {
	_, err := b.commands.Trigger(ctx, eventType, payload)
	return err
}

type endpointLog struct {
	mu     sync.Mutex
	events []string
}

func (l *endpointLog) record(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *endpointLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func newTestServer(t *testing.T) (*Server, *endpointLog, *httptest.Server) {
	t.Helper()

	log := &endpointLog{}
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.record(r.Header.Get("X-Webhook-Event"))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(endpoint.Close)

	webhookModule := webhookservice.NewInMemoryModule(sender.NewHTTPSender(), nil)

	credentials := publishingmemory.NewCredentials()
	for _, platform := range publishingentities.AllPlatforms() {
		credentials.Set("user-1", platform, publishingports.Credentials{"access_token": "token"})
	}
	publishingModule := publishingservice.NewInMemoryModule(
		nil,
		credentials,
		stubRegistry{},
		eventBridge{commands: webhookModule.Commands},
		nil,
	)

	return New(publishingModule, webhookModule, nil, ""), log, endpoint
}

func doJSON(t *testing.T, handler http.Handler, method, path string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode request: %v", err)
		}
		body = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPublishFlowThroughHTTP(t *testing.T) {
	server, log, endpoint := newTestServer(t)
	handler := server.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/webhooks", map[string]any{
		"user_id": "user-1",
		"name":    "pipeline hook",
		"url":     endpoint.URL,
		"secret":  "s3cr3t",
		"events":  []string{events.PublishingStarted, events.PublishingCompleted},
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register webhook status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/packs/pack-1/publish", map[string]any{
		"user_id":   "user-1",
		"platforms": []string{"twitter", "linkedin"},
		"content":   map[string]any{"title": "launch", "body": "we shipped"},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("publish status = %d, body %s", rec.Code, rec.Body.String())
	}
	var publishResp struct {
		PackID   string `json:"pack_id"`
		Status   string `json:"status"`
		Outcomes []struct {
			Platform string `json:"platform"`
			Status   string `json:"status"`
		} `json:"outcomes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &publishResp); err != nil {
		t.Fatalf("decode publish response: %v", err)
	}
	if publishResp.Status != string(publishingentities.PackStatusPublished) {
		t.Fatalf("expected published pack, got %q", publishResp.Status)
	}
	if len(publishResp.Outcomes) != 2 {
		t.Fatalf("expected two outcomes, got %d", len(publishResp.Outcomes))
	}

	rec = doJSON(t, handler, http.MethodGet, "/v1/packs/pack-1/publishing-status", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "external_url") {
		t.Fatalf("expected result details in status response: %s", rec.Body.String())
	}

	seen := map[string]bool{}
	for _, event := range log.snapshot() {
		seen[event] = true
	}
	if !seen[events.PublishingStarted] || !seen[events.PublishingCompleted] {
		t.Fatalf("expected started and completed webhook deliveries, got %v", log.snapshot())
	}
}

func TestWebhookEndpointsNeverLeakSecret(t *testing.T) {
	server, _, endpoint := newTestServer(t)
	handler := server.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/webhooks", map[string]any{
		"user_id": "user-1",
		"url":     endpoint.URL,
		"secret":  "super-secret-value",
		"events":  []string{events.PackPublished},
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "super-secret-value") {
		t.Fatalf("register response leaked secret: %s", rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/v1/webhooks", nil, map[string]string{"X-User-Id": "user-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, body %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "super-secret-value") {
		t.Fatalf("list response leaked secret: %s", rec.Body.String())
	}
}

func TestWebhookLifecycleOverHTTP(t *testing.T) {
	server, _, endpoint := newTestServer(t)
	handler := server.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/webhooks", map[string]any{
		"user_id": "user-1",
		"url":     endpoint.URL,
		"secret":  "s",
		"events":  []string{events.PackPublished},
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}
	var created struct {
		WebhookID string `json:"webhook_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode register response: %v", err)
	}

	rec = doJSON(t, handler, http.MethodPatch, "/v1/webhooks/"+created.WebhookID, map[string]any{
		"is_active": false,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"is_active":false`) {
		t.Fatalf("expected deactivated webhook in response: %s", rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodDelete, "/v1/webhooks/"+created.WebhookID, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/v1/webhooks/missing-id", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown webhook, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/v1/webhooks/"+created.WebhookID+"/deliveries", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deliveries status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestPublishRejectsMalformedRequests(t *testing.T) {
	server, _, _ := newTestServer(t)
	handler := server.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/packs/pack-1/publish", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/packs/pack-1/publish", map[string]any{
		"user_id":   "user-1",
		"platforms": []string{},
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty platforms, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/packs/pack-1/schedule", map[string]any{
		"user_id":      "user-1",
		"platforms":    []string{"twitter"},
		"content":      map[string]any{"body": "later"},
		"scheduled_at": "not-a-time",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad timestamp, got %d", rec.Code)
	}
}
