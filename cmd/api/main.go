package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sla-service/internal/api/http"
	"github.com/spec-kit/sla-service/internal/api/http/handlers"
	"github.com/spec-kit/sla-service/internal/auth"
	"github.com/spec-kit/sla-service/internal/config"
	"github.com/spec-kit/sla-service/internal/events"
	"github.com/spec-kit/sla-service/internal/observability"
	"github.com/spec-kit/sla-service/internal/persistence"
	"github.com/spec-kit/sla-service/internal/repository"
	"github.com/spec-kit/sla-service/internal/service"
	"github.com/spec-kit/sla-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	configRepo := repository.NewSlaConfigRepository(pool)
	statusRepo := repository.NewSlaStatusRepository(pool)
	logRepo := repository.NewSlaLogRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	audit := service.NewAuditLogger(logRepo, logger)

	configService := service.NewConfigService(service.ConfigDependencies{
		ConfigRepo: configRepo,
		Audit:      audit,
		Dispatcher: dispatcher,
		Defaults:   cfg.Sla,
	})
	engine := service.NewEngine(configService)
	tracker := service.NewTrackerService(service.TrackerDependencies{
		StatusRepo: statusRepo,
		ConfigRepo: configRepo,
		Engine:     engine,
		Audit:      audit,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	alertService := service.NewAlertService(statusRepo, configRepo)
	reportService := service.NewReportService(statusRepo, configRepo)

	notifications := service.NewNotificationService(dispatcher, redis, logger, cfg.Notification)
	notifications.RegisterHandlers()

	breachMonitor := worker.NewBreachMonitor(statusRepo, audit, dispatcher, metrics, logger,
		cfg.Sla.BreachMonitorInterval())
	breachMonitor.Start(ctx)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokens)
	webhookVerifier := auth.NewWebhookVerifier(cfg.Auth.WebhookSecretHash)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Configs:         handlers.NewSlaConfigsHandler(configService),
		Status:          handlers.NewSlaStatusHandler(tracker, engine),
		Reports:         handlers.NewSlaReportsHandler(alertService, reportService, logRepo),
		AuthMiddleware:  authMiddleware,
		WebhookVerifier: webhookVerifier,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
