package sender

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"herald/contexts/delivery-core/webhook-service/ports"
)

const maxResponseBytes = 64 * 1024

// HTTPSender posts webhook payloads over plain HTTP. Attempt deadlines come
// from the caller's context; the client timeout is only a backstop.
type HTTPSender struct {
	Client *http.Client
}

func NewHTTPSender() HTTPSender {
	return HTTPSender{Client: &http.Client{Timeout: 35 * time.Second}}
}

func (s HTTPSender) Send(ctx context.Context, req ports.SendRequest) (ports.SendResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return ports.SendResult{}, err
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return ports.SendResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ports.SendResult{StatusCode: resp.StatusCode}, err
	}
	return ports.SendResult{StatusCode: resp.StatusCode, Body: string(body)}, nil
}
