package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	MetricsPort string
	PostgresDSN string

	WorkerPollInterval time.Duration
	WorkerBatchSize    int
	RetrySweepCron     string

	EnablePublishingRetrySweep bool
	EnableScheduledPublisher   bool
	EnableWebhookRetrySweep    bool
}

func Load() (Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "herald"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		metricsPort = "9090"
	}

	sweepCron := os.Getenv("RETRY_SWEEP_CRON")
	if sweepCron == "" {
		sweepCron = "@every 1m"
	}

	return Config{
		ServiceName: service,
		HTTPPort:    port,
		MetricsPort: metricsPort,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		WorkerPollInterval: envDuration("WORKER_POLL_INTERVAL", 30*time.Second),
		WorkerBatchSize:    envInt("WORKER_BATCH_SIZE", 100),
		RetrySweepCron:     sweepCron,

		EnablePublishingRetrySweep: envBool("ENABLE_PUBLISHING_RETRY_SWEEP", true),
		EnableScheduledPublisher:   envBool("ENABLE_SCHEDULED_PUBLISHER", true),
		EnableWebhookRetrySweep:    envBool("ENABLE_WEBHOOK_RETRY_SWEEP", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
