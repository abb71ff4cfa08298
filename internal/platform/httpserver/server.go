package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	publishingservice "herald/contexts/delivery-core/publishing-service"
	publishingerrors "herald/contexts/delivery-core/publishing-service/domain/errors"
	publishinghttp "herald/contexts/delivery-core/publishing-service/transport/http"
	webhookservice "herald/contexts/delivery-core/webhook-service"
	webhookerrors "herald/contexts/delivery-core/webhook-service/domain/errors"
	webhookhttp "herald/contexts/delivery-core/webhook-service/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	publishing publishingservice.Module
	webhooks   webhookservice.Module
}

func New(
	publishing publishingservice.Module,
	webhooks webhookservice.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		publishing: publishing,
		webhooks:   webhooks,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the routing table for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /v1/packs/{pack_id}/publish", s.handlePublishPack)
	s.mux.HandleFunc("POST /v1/packs/{pack_id}/schedule", s.handleSchedulePublishing)
	s.mux.HandleFunc("GET /v1/packs/{pack_id}/publishing-status", s.handlePublishingStatus)

	s.mux.HandleFunc("POST /v1/webhooks", s.handleRegisterWebhook)
	s.mux.HandleFunc("GET /v1/webhooks", s.handleListWebhooks)
	s.mux.HandleFunc("GET /v1/webhooks/{webhook_id}", s.handleGetWebhook)
	s.mux.HandleFunc("PATCH /v1/webhooks/{webhook_id}", s.handleUpdateWebhook)
	s.mux.HandleFunc("DELETE /v1/webhooks/{webhook_id}", s.handleDeactivateWebhook)
	s.mux.HandleFunc("GET /v1/webhooks/{webhook_id}/deliveries", s.handleListDeliveries)
	s.mux.HandleFunc("POST /v1/webhooks/test", s.handleTestWebhook)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePublishPack(w http.ResponseWriter, r *http.Request) {
	var req publishinghttp.PublishPackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePublishingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	packID := r.PathValue("pack_id")
	resp, err := s.publishing.Handler.PublishPackHandler(r.Context(), packID, req)
	if err != nil {
		writePublishingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSchedulePublishing(w http.ResponseWriter, r *http.Request) {
	var req publishinghttp.SchedulePublishingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePublishingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	packID := r.PathValue("pack_id")
	resp, err := s.publishing.Handler.SchedulePublishingHandler(r.Context(), packID, req)
	if err != nil {
		writePublishingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handlePublishingStatus(w http.ResponseWriter, r *http.Request) {
	packID := r.PathValue("pack_id")
	resp, err := s.publishing.Handler.PublishingStatusHandler(r.Context(), packID)
	if err != nil {
		writePublishingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegisterWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookhttp.RegisterWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeWebhookError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = r.Header.Get("X-User-Id")
	}

	resp, err := s.webhooks.Handler.RegisterWebhookHandler(r.Context(), req)
	if err != nil {
		writeWebhookDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListWebhooks(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		userID = r.URL.Query().Get("user_id")
	}
	if strings.TrimSpace(userID) == "" {
		writeWebhookError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	resp, err := s.webhooks.Handler.ListWebhooksHandler(r.Context(), userID)
	if err != nil {
		writeWebhookDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetWebhook(w http.ResponseWriter, r *http.Request) {
	webhookID := r.PathValue("webhook_id")
	resp, err := s.webhooks.Handler.GetWebhookHandler(r.Context(), webhookID)
	if err != nil {
		writeWebhookDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookhttp.UpdateWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeWebhookError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	webhookID := r.PathValue("webhook_id")
	resp, err := s.webhooks.Handler.UpdateWebhookHandler(r.Context(), webhookID, req)
	if err != nil {
		writeWebhookDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeactivateWebhook(w http.ResponseWriter, r *http.Request) {
	webhookID := r.PathValue("webhook_id")
	if err := s.webhooks.Handler.DeactivateWebhookHandler(r.Context(), webhookID); err != nil {
		writeWebhookDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	webhookID := r.PathValue("webhook_id")

	limit := 0
	if limitRaw := r.URL.Query().Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeWebhookError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}

	resp, err := s.webhooks.Handler.ListDeliveriesHandler(r.Context(), webhookID, limit)
	if err != nil {
		writeWebhookDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTestWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookhttp.TestWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeWebhookError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.webhooks.Handler.TestWebhookHandler(r.Context(), req)
	if err != nil {
		writeWebhookDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writePublishingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, publishingerrors.ErrJobNotFound):
		writePublishingError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, publishingerrors.ErrInvalidPublishInput),
		errors.Is(err, publishingerrors.ErrScheduleInPast):
		writePublishingError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, publishingerrors.ErrUnsupportedPlatform),
		errors.Is(err, publishingerrors.ErrInvalidContent):
		writePublishingError(w, http.StatusUnprocessableEntity, "invalid_content", err.Error())
	case errors.Is(err, publishingerrors.ErrJobExists):
		writePublishingError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, publishingerrors.ErrCredentialsNotFound),
		errors.Is(err, publishingerrors.ErrCredentialsExpired):
		writePublishingError(w, http.StatusUnprocessableEntity, "credentials_unusable", err.Error())
	case errors.Is(err, publishingerrors.ErrAdapterNotConfigured):
		writePublishingError(w, http.StatusServiceUnavailable, "adapter_not_configured", err.Error())
	case errors.Is(err, publishingerrors.ErrExternalPublish):
		writePublishingError(w, http.StatusBadGateway, "external_publish_failed", err.Error())
	default:
		writePublishingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeWebhookDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, webhookerrors.ErrWebhookNotFound),
		errors.Is(err, webhookerrors.ErrDeliveryNotFound):
		writeWebhookError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, webhookerrors.ErrInvalidWebhookInput):
		writeWebhookError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, webhookerrors.ErrWebhookExists),
		errors.Is(err, webhookerrors.ErrWebhookInactive):
		writeWebhookError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeWebhookError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writePublishingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, publishinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeWebhookError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, webhookhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
