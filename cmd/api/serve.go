package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ceivoice/ticket-service/internal/ai"
	httptransport "github.com/ceivoice/ticket-service/internal/api/http"
	"github.com/ceivoice/ticket-service/internal/api/http/handlers"
	"github.com/ceivoice/ticket-service/internal/auth"
	"github.com/ceivoice/ticket-service/internal/config"
	"github.com/ceivoice/ticket-service/internal/events"
	"github.com/ceivoice/ticket-service/internal/notify"
	"github.com/ceivoice/ticket-service/internal/observability"
	"github.com/ceivoice/ticket-service/internal/persistence"
	"github.com/ceivoice/ticket-service/internal/repository"
	"github.com/ceivoice/ticket-service/internal/repository/memory"
	"github.com/ceivoice/ticket-service/internal/service"
	"github.com/ceivoice/ticket-service/internal/worker"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and notification worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	probes := map[string]handlers.Pinger{}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	var repos repository.Set
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}
		repos = repository.NewPostgresSet(pool)
		probes["postgres"] = pg
	} else {
		logger.Warn("POSTGRES_DSN not set; using the in-memory store (development only)")
		repos = memory.NewStore().Set()
	}

	queue, redisClient := buildQueue(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
		probes["redis"] = redisClient
	}

	dispatcher := events.NewInMemoryDispatcher()
	drafter, recommender := buildAI(cfg.AI, logger)
	deps := service.Dependencies{
		Repos:       repos,
		Drafter:     drafter,
		Recommender: recommender,
		Dispatcher:  dispatcher,
		Transitions: service.TransitionPolicyFor(cfg.Workflow.StrictTransitions),
		Logger:      logger,
		Metrics:     metrics,
	}

	service.NewNotificationService(dispatcher, queue, logger, metrics).RegisterHandlers()
	renderer := notify.NewRenderer(cfg.Notification.TrackingBaseURL)
	var sender notify.Sender = notify.NewLogSender(logger, renderer)
	if cfg.Notification.SMTPEnabled() {
		sender = notify.NewSMTPSender(cfg.Notification, renderer)
	}
	workerDone := worker.NewNotificationWorker(queue, sender, logger, metrics).Start(ctx)

	authService := service.NewAuthService(cfg.Auth, deps)
	if err := authService.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPass); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	intake := service.NewIntakeService(deps)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), repos.Users, repos.Staff)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, probes, metrics),
		Users:    handlers.NewUsersHandler(authService, intake),
		Staff:    handlers.NewStaffHandler(authService, service.NewStaffService(cfg.Auth, deps)),
		Requests: handlers.NewRequestsHandler(intake, service.NewTrackingService(deps)),
		Drafts: handlers.NewDraftsHandler(
			service.NewConsolidationService(deps),
			service.NewPromotionService(deps),
		),
		Tickets:        handlers.NewStaffTicketsHandler(service.NewTicketService(deps)),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	<-workerDone
	return nil
}

// buildQueue prefers Redis when configured and falls back to an in-process
// queue when Redis cannot be reached.
func buildQueue(ctx context.Context, cfg *config.Config, logger *zap.Logger) (notify.Queue, *persistence.Redis) {
	if cfg.Notification.QueueBackend == "redis" {
		redisClient, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err == nil {
			return notify.NewRedisQueue(redisClient.Client, cfg.Notification.QueueKey), redisClient
		}
		logger.Warn("redis unavailable; using in-memory notification queue", zap.Error(err))
	}
	return notify.NewChannelQueue(cfg.Notification.QueueBuffer), nil
}

func buildAI(cfg config.AIConfig, logger *zap.Logger) (ai.Drafter, ai.Recommender) {
	if cfg.Provider == "ollama" {
		client, err := ai.NewOllamaClient(cfg.URL, cfg.Model, cfg.Timeout)
		if err == nil {
			logger.Info("using ollama collaborator", zap.String("model", cfg.Model))
			return client, client
		}
		logger.Warn("invalid ollama url; using local collaborator", zap.String("url", cfg.URL), zap.Error(err))
	}
	local := ai.NewLocalDrafter()
	logger.Info("using local draft collaborator")
	return local, local
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
