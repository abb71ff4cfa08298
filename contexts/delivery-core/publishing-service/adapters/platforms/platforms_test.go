package platforms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"herald/contexts/delivery-core/publishing-service/domain/entities"
	"herald/contexts/delivery-core/publishing-service/ports"
)

func TestRegistryResolvesEveryPlatform(t *testing.T) {
	registry := NewDefaultRegistry(nil)
	for _, platform := range entities.AllPlatforms() {
		adapter, err := registry.Resolve(platform)
		if err != nil {
			t.Fatalf("resolve %s failed: %v", platform, err)
		}
		if adapter == nil {
			t.Fatalf("resolve %s returned nil adapter", platform)
		}
	}
	if _, err := registry.Resolve(entities.Platform("myspace")); err == nil {
		t.Fatal("expected error for unknown platform")
	}
}

func TestTwitterValidateContent(t *testing.T) {
	adapter := &TwitterAdapter{}

	if result := adapter.ValidateContent(map[string]any{"text": "hello"}); !result.Valid {
		t.Fatalf("expected valid tweet, got errors %v", result.Errors)
	}
	if result := adapter.ValidateContent(map[string]any{"text": ""}); result.Valid {
		t.Fatal("expected empty tweet rejected")
	}
	long := strings.Repeat("x", 281)
	if result := adapter.ValidateContent(map[string]any{"text": long}); result.Valid {
		t.Fatal("expected oversized tweet rejected")
	}
	// Rune count, not byte count, decides the limit.
	accented := strings.Repeat("é", 280)
	if result := adapter.ValidateContent(map[string]any{"text": accented}); !result.Valid {
		t.Fatalf("expected 280-rune tweet accepted, got errors %v", result.Errors)
	}
}

func TestTwitterPublish(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Fatalf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "12345"}})
	}))
	defer server.Close()

	adapter := &TwitterAdapter{BaseURL: server.URL, Client: server.Client()}
	result, err := adapter.Publish(context.Background(), entities.PublishingJob{
		QueueID:     "queue-1",
		Platform:    entities.PlatformTwitter,
		ContentData: map[string]any{"text": "hello"},
	}, ports.Credentials{"access_token": "token"})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if result.ExternalID != "12345" {
		t.Fatalf("external id = %q, want 12345", result.ExternalID)
	}
	if !strings.Contains(result.ExternalURL, "12345") {
		t.Fatalf("external url %q missing tweet id", result.ExternalURL)
	}
}

func TestTwitterPublishSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := &TwitterAdapter{BaseURL: server.URL, Client: server.Client()}
	_, err := adapter.Publish(context.Background(), entities.PublishingJob{
		ContentData: map[string]any{"text": "hello"},
	}, ports.Credentials{"access_token": "token"})
	if err == nil {
		t.Fatal("expected error from non-2xx publish")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error should carry status code, got %v", err)
	}
}

func TestInstagramValidateContent(t *testing.T) {
	adapter := &InstagramAdapter{}

	valid := map[string]any{"caption": "sunset", "image_url": "https://example.com/a.png"}
	if result := adapter.ValidateContent(valid); !result.Valid {
		t.Fatalf("expected valid post, got errors %v", result.Errors)
	}
	if result := adapter.ValidateContent(map[string]any{"caption": "no image"}); result.Valid {
		t.Fatal("expected post without image rejected")
	}
	long := map[string]any{
		"caption":   strings.Repeat("x", instagramMaxCaptionLength+1),
		"image_url": "https://example.com/a.png",
	}
	if result := adapter.ValidateContent(long); result.Valid {
		t.Fatal("expected oversized caption rejected")
	}
}

func TestSendGridValidateContent(t *testing.T) {
	adapter := &SendGridAdapter{}

	if result := adapter.ValidateContent(map[string]any{"subject": "hi", "text": "body"}); !result.Valid {
		t.Fatalf("expected valid email, got errors %v", result.Errors)
	}
	if result := adapter.ValidateContent(map[string]any{"text": "body"}); result.Valid {
		t.Fatal("expected email without subject rejected")
	}
	if result := adapter.ValidateContent(map[string]any{"subject": "hi"}); result.Valid {
		t.Fatal("expected email without body rejected")
	}
}
