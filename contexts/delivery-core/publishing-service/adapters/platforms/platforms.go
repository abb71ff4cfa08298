// Package platforms implements the per-platform publishing adapters behind
// the uniform capability contract: authenticate, validate, publish, metrics.
package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"herald/contexts/delivery-core/publishing-service/domain/entities"
	domainerrors "herald/contexts/delivery-core/publishing-service/domain/errors"
	"herald/contexts/delivery-core/publishing-service/ports"
)

const maxResponseBytes = 64 * 1024

// Registry resolves adapters over the closed platform enum. The switch is
// exhaustive; an unknown value only appears when a caller bypasses platform
// normalization.
type Registry struct {
	Twitter   ports.PlatformAdapter
	LinkedIn  ports.PlatformAdapter
	Facebook  ports.PlatformAdapter
	Instagram ports.PlatformAdapter
	SendGrid  ports.PlatformAdapter
	Mailchimp ports.PlatformAdapter
	WordPress ports.PlatformAdapter
	Medium    ports.PlatformAdapter
}

func (r Registry) Resolve(platform entities.Platform) (ports.PlatformAdapter, error) {
	var adapter ports.PlatformAdapter
	switch platform {
	case entities.PlatformTwitter:
		adapter = r.Twitter
	case entities.PlatformLinkedIn:
		adapter = r.LinkedIn
	case entities.PlatformFacebook:
		adapter = r.Facebook
	case entities.PlatformInstagram:
		adapter = r.Instagram
	case entities.PlatformSendGrid:
		adapter = r.SendGrid
	case entities.PlatformMailchimp:
		adapter = r.Mailchimp
	case entities.PlatformWordPress:
		adapter = r.WordPress
	case entities.PlatformMedium:
		adapter = r.Medium
	default:
		return nil, domainerrors.ErrUnsupportedPlatform
	}
	if adapter == nil {
		return nil, domainerrors.ErrAdapterNotConfigured
	}
	return adapter, nil
}

// NewDefaultRegistry wires every enum member against production endpoints.
func NewDefaultRegistry(client *http.Client) Registry {
	return Registry{
		Twitter:   &TwitterAdapter{Client: client},
		LinkedIn:  NewGenericAdapter(entities.PlatformLinkedIn, "https://api.linkedin.com", "/v2/me", "/v2/ugcPosts", "text", 3000, client),
		Facebook:  NewGenericAdapter(entities.PlatformFacebook, "https://graph.facebook.com", "/me", "/me/feed", "message", 63206, client),
		Instagram: &InstagramAdapter{Client: client},
		SendGrid:  &SendGridAdapter{Client: client},
		Mailchimp: NewGenericAdapter(entities.PlatformMailchimp, "https://api.mailchimp.com", "/3.0/ping", "/3.0/messages", "text", 0, client),
		WordPress: NewGenericAdapter(entities.PlatformWordPress, "https://public-api.wordpress.com", "/rest/v1.1/me", "/rest/v1.1/sites/me/posts/new", "content", 0, client),
		Medium:    NewGenericAdapter(entities.PlatformMedium, "https://api.medium.com", "/v1/me", "/v1/posts", "content", 0, client),
	}
}

func resolveClient(client *http.Client) *http.Client {
	if client == nil {
		return &http.Client{Timeout: 15 * time.Second}
	}
	return client
}

// postJSON performs one JSON request and returns status plus a bounded body.
func postJSON(
	ctx context.Context,
	client *http.Client,
	method string,
	url string,
	headers map[string]string,
	payload any,
) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := resolveClient(client).Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

func bearerHeader(creds ports.Credentials) map[string]string {
	token := strings.TrimSpace(creds["access_token"])
	if token == "" {
		return map[string]string{}
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}

func stringField(content map[string]any, key string) string {
	value, _ := content[key].(string)
	return value
}
