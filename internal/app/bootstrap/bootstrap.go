package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	publishingservice "herald/contexts/delivery-core/publishing-service"
	publishingpostgres "herald/contexts/delivery-core/publishing-service/adapters/postgres"
	"herald/contexts/delivery-core/publishing-service/adapters/platforms"
	publishingports "herald/contexts/delivery-core/publishing-service/ports"
	publishingworkers "herald/contexts/delivery-core/publishing-service/application/workers"
	webhookservice "herald/contexts/delivery-core/webhook-service"
	webhookcommands "herald/contexts/delivery-core/webhook-service/application/commands"
	webhookworkers "herald/contexts/delivery-core/webhook-service/application/workers"
	webhookpostgres "herald/contexts/delivery-core/webhook-service/adapters/postgres"
	"herald/contexts/delivery-core/webhook-service/adapters/sender"
	"herald/internal/platform/config"
	"herald/internal/platform/db"
	"herald/internal/platform/httpserver"
	"herald/internal/platform/observability"

	"github.com/robfig/cron/v3"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server      *httpserver.Server
	postgres    *db.Postgres
	metricsAddr string
	logger      *slog.Logger
}

type WorkerApp struct {
	postgres           *db.Postgres
	scheduledPublisher publishingworkers.ScheduledPublisher
	publishingSweep    publishingworkers.RetrySweep
	webhookSweep       webhookworkers.RetrySweep

	runScheduledPublisher bool
	runPublishingSweep    bool
	runWebhookSweep       bool

	cron         *cron.Cron
	sweepCron    string
	pollInterval time.Duration
	metricsAddr  string
	logger       *slog.Logger
}

// webhookEventTrigger feeds publishing lifecycle events into the webhook
// delivery engine in-process.
type webhookEventTrigger struct {
	commands webhookcommands.UseCase
}

func (t webhookEventTrigger) Trigger(ctx context.Context, eventType string, payload map[string]any) error {
	_, err := t.commands.Trigger(ctx, eventType, payload)
	return err
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	webhookModule, publishingModule := buildModules(pg, logger)

	server := httpserver.New(publishingModule, webhookModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:      server,
		postgres:    pg,
		metricsAddr: normalizeAddr(cfg.MetricsPort),
		logger:      logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	webhookModule, publishingModule := buildModules(pg, logger)

	app := &WorkerApp{
		postgres:     pg,
		sweepCron:    cfg.RetrySweepCron,
		pollInterval: cfg.WorkerPollInterval,
		metricsAddr:  normalizeAddr(cfg.MetricsPort),
		logger:       logger,
	}
	app.runScheduledPublisher = cfg.EnableScheduledPublisher
	app.runPublishingSweep = cfg.EnablePublishingRetrySweep
	app.runWebhookSweep = cfg.EnableWebhookRetrySweep
	app.scheduledPublisher = publishingworkers.ScheduledPublisher{
		Commands:  publishingModule.Commands,
		BatchSize: cfg.WorkerBatchSize,
		Logger:    logger,
	}
	app.publishingSweep = publishingworkers.RetrySweep{
		Commands:  publishingModule.Commands,
		BatchSize: cfg.WorkerBatchSize,
		Logger:    logger,
	}
	app.webhookSweep = webhookworkers.RetrySweep{
		Commands:  webhookModule.Commands,
		BatchSize: cfg.WorkerBatchSize,
		Logger:    logger,
	}
	return app, nil
}

func buildModules(pg *db.Postgres, logger *slog.Logger) (webhookservice.Module, publishingservice.Module) {
	webhookRepo := webhookpostgres.NewRepository(pg.DB, logger)
	webhookModule := webhookservice.NewModule(webhookservice.Dependencies{
		Registry:   webhookRepo,
		Deliveries: webhookRepo,
		Sender:     sender.NewHTTPSender(),
		Clock:      webhookpostgres.SystemClock{},
		IDGen:      webhookpostgres.UUIDGenerator{},
		Logger:     logger,
	})

	publishingRepo := publishingpostgres.NewRepository(pg.DB, logger)
	publishingModule := publishingservice.NewModule(publishingservice.Dependencies{
		Jobs:        publishingRepo,
		Credentials: publishingpostgres.NewCredentialStore(pg.DB, publishingpostgres.SystemClock{}),
		Adapters:    platforms.NewDefaultRegistry(nil),
		Events:      webhookEventTrigger{commands: webhookModule.Commands},
		Clock:       publishingpostgres.SystemClock{},
		IDGen:       publishingpostgres.UUIDGenerator{},
		Logger:      logger,
	})
	return webhookModule, publishingModule
}

func (a *APIApp) Run(_ context.Context) error {
	observability.StartMetricsServer(a.metricsAddr, a.logger)
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	observability.StartMetricsServer(w.metricsAddr, w.logger)

	// Retry sweeps run on the cron schedule; the scheduled publisher polls
	// on the tighter interval so due jobs fire close to their requested time.
	w.cron = cron.New()
	if w.runPublishingSweep {
		if _, err := w.cron.AddFunc(w.sweepCron, func() {
			_ = w.publishingSweep.RunOnce(ctx)
		}); err != nil {
			return err
		}
	}
	if w.runWebhookSweep {
		if _, err := w.cron.AddFunc(w.sweepCron, func() {
			_ = w.webhookSweep.RunOnce(ctx)
		}); err != nil {
			return err
		}
	}
	w.cron.Start()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"sweep_cron", w.sweepCron,
	)

	for {
		if w.runScheduledPublisher {
			if err := w.scheduledPublisher.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.cron != nil {
		w.cron.Stop()
	}
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

var _ publishingports.EventTrigger = webhookEventTrigger{}
