package observability

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PublishingJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "herald_publishing_jobs_total",
		Help: "Publishing jobs settled, by platform and terminal status.",
	}, []string{"platform", "status"})

	PublishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "herald_publish_duration_seconds",
		Help:    "Duration of a single platform publish attempt.",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform"})

	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "herald_webhook_deliveries_total",
		Help: "Webhook delivery attempts, by outcome.",
	}, []string{"status"})

	WebhookDeliveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "herald_webhook_delivery_duration_seconds",
		Help:    "Duration of a single webhook delivery attempt.",
		Buckets: prometheus.DefBuckets,
	})

	// RetriesExhausted is the operator-visible signal that a unit of work hit
	// its retry bound and will never be attempted again.
	RetriesExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "herald_retries_exhausted_total",
		Help: "Jobs or deliveries that exhausted their retry budget.",
	}, []string{"kind"})
)

// NewLogger creates the process-wide structured logger.
func NewLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// StartMetricsServer exposes Prometheus metrics on its own listener.
func StartMetricsServer(addr string, logger *slog.Logger) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			if logger != nil {
				logger.Error("metrics server failed",
					"event", "metrics_server_failed",
					"module", "internal/platform/observability",
					"layer", "platform",
					"addr", addr,
					"error", err.Error(),
				)
			}
		}
	}()
}
