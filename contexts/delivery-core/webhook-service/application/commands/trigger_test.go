package commands

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"herald/contexts/delivery-core/webhook-service/adapters/memory"
	"herald/contexts/delivery-core/webhook-service/adapters/sender"
	"herald/contexts/delivery-core/webhook-service/domain/entities"
	domainerrors "herald/contexts/delivery-core/webhook-service/domain/errors"
	"herald/contexts/delivery-core/webhook-service/ports"
	"herald/internal/shared/events"
	"herald/internal/shared/signing"
)

type recordedRequest struct {
	signature  string
	eventType  string
	deliveryID string
	body       []byte
}

type scriptedSender struct {
	mu     sync.Mutex
	status int
	err    error
	calls  int
}

func (s *scriptedSender) Send(_ context.Context, _ ports.SendRequest) (ports.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return ports.SendResult{}, s.err
	}
	return ports.SendResult{StatusCode: s.status, Body: "scripted"}, nil
}

func (s *scriptedSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestUseCase(s ports.Sender) (UseCase, *memory.Store) {
	store := memory.NewStore()
	return UseCase{
		Registry:   store,
		Deliveries: store,
		Sender:     s,
		Clock:      store,
		IDGen:      store,
	}, store
}

func TestTriggerDeliversSignedPayload(t *testing.T) {
	received := make(chan recordedRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- recordedRequest{
			signature:  r.Header.Get("X-Webhook-Signature"),
			eventType:  r.Header.Get("X-Webhook-Event"),
			deliveryID: r.Header.Get("X-Webhook-Delivery"),
			body:       body,
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	uc, _ := newTestUseCase(sender.NewHTTPSender())
	config, err := uc.Register(context.Background(), RegisterInput{
		UserID: "user-1",
		Name:   "ci hook",
		URL:    server.URL,
		Secret: "s3cr3t",
		Events: []string{events.PackPublished},
	})
	if err != nil {
		t.Fatalf("register webhook failed: %v", err)
	}

	deliveries, err := uc.Trigger(context.Background(), events.PackPublished, map[string]any{
		"pack_id": "pack-1",
	})
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	if len(deliveries) != 1 {
		t.Fatalf("expected one delivery, got %d", len(deliveries))
	}
	delivery := deliveries[0]
	if delivery.Status != entities.DeliveryStatusDelivered {
		t.Fatalf("expected delivered status, got %q (response %q)", delivery.Status, delivery.ResponseBody)
	}
	if delivery.Attempts != 1 {
		t.Fatalf("expected one attempt, got %d", delivery.Attempts)
	}
	if delivery.WebhookID != config.WebhookID {
		t.Fatalf("delivery bound to wrong webhook: %q", delivery.WebhookID)
	}

	select {
	case req := <-received:
		if !signing.Verify("s3cr3t", req.body, req.signature) {
			t.Fatalf("signature %q does not verify against body %s", req.signature, req.body)
		}
		if req.eventType != events.PackPublished {
			t.Fatalf("event header = %q, want %q", req.eventType, events.PackPublished)
		}
		if req.deliveryID != delivery.DeliveryID {
			t.Fatalf("delivery header = %q, want %q", req.deliveryID, delivery.DeliveryID)
		}
		var envelope struct {
			Event      string         `json:"event"`
			Data       map[string]any `json:"data"`
			Timestamp  string         `json:"timestamp"`
			DeliveryID string         `json:"delivery_id"`
		}
		if err := json.Unmarshal(req.body, &envelope); err != nil {
			t.Fatalf("payload is not valid JSON: %v", err)
		}
		if envelope.Event != events.PackPublished || envelope.DeliveryID != delivery.DeliveryID {
			t.Fatalf("unexpected envelope: %+v", envelope)
		}
		if envelope.Data["pack_id"] != "pack-1" {
			t.Fatalf("payload data missing pack_id: %+v", envelope.Data)
		}
		if _, err := time.Parse(time.RFC3339, envelope.Timestamp); err != nil {
			t.Fatalf("timestamp %q is not RFC3339: %v", envelope.Timestamp, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("endpoint never received the delivery")
	}
}

func TestTriggerSkipsUnsubscribedAndInactive(t *testing.T) {
	scripted := &scriptedSender{status: http.StatusOK}
	uc, _ := newTestUseCase(scripted)

	if _, err := uc.Register(context.Background(), RegisterInput{
		UserID: "user-1",
		URL:    "https://example.com/hook-a",
		Secret: "secret-a",
		Events: []string{events.PublishingCompleted},
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	inactive, err := uc.Register(context.Background(), RegisterInput{
		UserID: "user-1",
		URL:    "https://example.com/hook-b",
		Secret: "secret-b",
		Events: []string{events.PackPublished},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := uc.Deactivate(context.Background(), inactive.WebhookID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	deliveries, err := uc.Trigger(context.Background(), events.PackPublished, map[string]any{"pack_id": "p"})
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	if len(deliveries) != 0 {
		t.Fatalf("expected no deliveries, got %d", len(deliveries))
	}
	if scripted.callCount() != 0 {
		t.Fatalf("expected no sends, got %d", scripted.callCount())
	}
}

func TestFailedDeliveryGetsBackoffRetrySchedule(t *testing.T) {
	scripted := &scriptedSender{status: http.StatusInternalServerError}
	uc, _ := newTestUseCase(scripted)

	if _, err := uc.Register(context.Background(), RegisterInput{
		UserID: "user-1",
		URL:    "https://example.com/hook",
		Secret: "secret",
		Events: []string{events.PackPublished},
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	before := time.Now().UTC()
	deliveries, err := uc.Trigger(context.Background(), events.PackPublished, nil)
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	if len(deliveries) != 1 {
		t.Fatalf("expected one delivery, got %d", len(deliveries))
	}
	delivery := deliveries[0]
	if delivery.Status != entities.DeliveryStatusFailed {
		t.Fatalf("expected failed status, got %q", delivery.Status)
	}
	if delivery.ResponseCode != http.StatusInternalServerError {
		t.Fatalf("expected recorded response code 500, got %d", delivery.ResponseCode)
	}
	if delivery.NextRetryAt == nil {
		t.Fatal("expected a scheduled retry")
	}
	wantEarliest := before.Add(entities.Backoff(1))
	if delivery.NextRetryAt.Before(wantEarliest.Add(-time.Second)) {
		t.Fatalf("retry scheduled too early: %s < %s", delivery.NextRetryAt, wantEarliest)
	}
}

func TestRetrySweepExhaustsBudget(t *testing.T) {
	scripted := &scriptedSender{err: errors.New("connection refused")}
	uc, store := newTestUseCase(scripted)

	if _, err := uc.Register(context.Background(), RegisterInput{
		UserID: "user-1",
		URL:    "https://example.com/hook",
		Secret: "secret",
		Events: []string{events.PackPublished},
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	deliveries, err := uc.Trigger(context.Background(), events.PackPublished, nil)
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	delivery := deliveries[0]

	// Force each scheduled retry due, then sweep, until the budget is gone.
	for i := 0; i < entities.DefaultMaxAttempts+2; i++ {
		current, err := store.GetDelivery(context.Background(), delivery.DeliveryID)
		if err != nil {
			t.Fatalf("get delivery failed: %v", err)
		}
		if current.NextRetryAt == nil {
			break
		}
		past := time.Now().UTC().Add(-time.Minute)
		current.NextRetryAt = &past
		if err := store.UpdateDelivery(context.Background(), current); err != nil {
			t.Fatalf("update delivery failed: %v", err)
		}
		if _, err := uc.RetryDueDeliveries(context.Background(), 10); err != nil {
			t.Fatalf("retry sweep failed: %v", err)
		}
	}

	final, err := store.GetDelivery(context.Background(), delivery.DeliveryID)
	if err != nil {
		t.Fatalf("get delivery failed: %v", err)
	}
	if final.Status != entities.DeliveryStatusFailed {
		t.Fatalf("expected failed status, got %q", final.Status)
	}
	if final.Attempts != entities.DefaultMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", entities.DefaultMaxAttempts, final.Attempts)
	}
	if final.NextRetryAt != nil {
		t.Fatal("exhausted delivery must not schedule another retry")
	}
	if scripted.callCount() != entities.DefaultMaxAttempts {
		t.Fatalf("expected %d sends, got %d", entities.DefaultMaxAttempts, scripted.callCount())
	}
}

func TestRegisterValidation(t *testing.T) {
	uc, _ := newTestUseCase(&scriptedSender{status: http.StatusOK})

	cases := []struct {
		name  string
		input RegisterInput
	}{
		{name: "missing secret", input: RegisterInput{UserID: "u", URL: "https://example.com", Events: []string{events.PackPublished}}},
		{name: "bad url", input: RegisterInput{UserID: "u", URL: "not-a-url", Secret: "s", Events: []string{events.PackPublished}}},
		{name: "unknown event", input: RegisterInput{UserID: "u", URL: "https://example.com", Secret: "s", Events: []string{"made.up"}}},
		{name: "no events", input: RegisterInput{UserID: "u", URL: "https://example.com", Secret: "s"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := uc.Register(context.Background(), tc.input); !errors.Is(err, domainerrors.ErrInvalidWebhookInput) {
				t.Fatalf("expected invalid input error, got %v", err)
			}
		})
	}
}

func TestUpdatePartialFields(t *testing.T) {
	uc, _ := newTestUseCase(&scriptedSender{status: http.StatusOK})
	config, err := uc.Register(context.Background(), RegisterInput{
		UserID: "user-1",
		URL:    "https://example.com/hook",
		Secret: "secret",
		Events: []string{events.PackPublished},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	newURL := "https://example.com/hook-v2"
	updated, err := uc.Update(context.Background(), config.WebhookID, UpdateInput{URL: &newURL})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.URL != newURL {
		t.Fatalf("url = %q, want %q", updated.URL, newURL)
	}
	if updated.Secret != "secret" || !updated.IsActive {
		t.Fatalf("unrelated fields changed: %+v", updated)
	}

	if _, err := uc.Update(context.Background(), "missing-id", UpdateInput{URL: &newURL}); !errors.Is(err, domainerrors.ErrWebhookNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
