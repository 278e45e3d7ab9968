package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/joaomjbraga/shipment-management/internal/api/http"
	"github.com/joaomjbraga/shipment-management/internal/api/http/handlers"
	"github.com/joaomjbraga/shipment-management/internal/auth"
	"github.com/joaomjbraga/shipment-management/internal/config"
	"github.com/joaomjbraga/shipment-management/internal/events"
	"github.com/joaomjbraga/shipment-management/internal/observability"
	"github.com/joaomjbraga/shipment-management/internal/persistence"
	"github.com/joaomjbraga/shipment-management/internal/repository"
	"github.com/joaomjbraga/shipment-management/internal/service"
	"github.com/joaomjbraga/shipment-management/internal/worker"
	"github.com/joaomjbraga/shipment-management/pkg/util/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("invalid token configuration", zap.Error(err))
	}
	createRoles, err := auth.ParseRoleSet(cfg.Policy.DeliveryCreateRoles)
	if err != nil {
		logger.Fatal("invalid DELIVERY_CREATE_ROLES", zap.Error(err))
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var publisher events.Publisher
	if cfg.Broker.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Broker.AMQPURL, cfg.Broker.Queue)
		if err != nil {
			logger.Fatal("failed to connect amqp", zap.Error(err))
		}
		defer amqpPublisher.Close() //nolint:errcheck
		publisher = amqpPublisher
		logger.Info("publishing delivery events", zap.String("queue", cfg.Broker.Queue))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	notifier := worker.StartNotificationWorker(dispatcher, service.NewNotificationService(publisher, logger), logger, 256)

	userRepo := repository.NewUserRepository(pg.Pool)
	deliveryRepo := repository.NewDeliveryRepository(pg.Pool)
	logRepo := repository.NewDeliveryLogRepository(pg.Pool)

	authService := service.NewAuthService(userRepo, tokens, logger, metrics)
	userService := service.NewUserService(userRepo, cfg.Auth.BcryptCost)
	deliveryService := service.NewDeliveryService(service.DeliveryDependencies{
		DeliveryRepo: deliveryRepo,
		LogRepo:      logRepo,
		UserRepo:     userRepo,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})

	v := validation.New()
	healthDeps := map[string]handlers.Pinger{"postgres": pg}
	var limiterCounter httptransport.WindowCounter
	if redis != nil {
		healthDeps["redis"] = redis
		limiterCounter = httptransport.NewRedisCounter(redis.Client)
	}

	app := httptransport.NewApp(httptransport.AppConfig{
		Name:           cfg.App.Name,
		RequestTimeout: cfg.App.RequestTimeout(),
	}, logger, metrics, httptransport.RouteConfig{
		Health:              handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps),
		Sessions:            handlers.NewSessionsHandler(authService, v),
		Users:               handlers.NewUsersHandler(userService, v),
		Deliveries:          handlers.NewDeliveriesHandler(deliveryService, v),
		DeliveryLogs:        handlers.NewDeliveryLogsHandler(deliveryService, v),
		AuthMiddleware:      auth.NewAuthMiddleware(tokens, logger, metrics),
		DeliveryCreateRoles: createRoles,
		SessionsLimiter:     httptransport.RateLimit(limiterCounter, cfg.Auth.SessionsPerMinute, time.Minute, logger),
		Metrics:             metrics.Handler(),
	})

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := notifier.Stop(shutdownCtx); err != nil {
		logger.Warn("notification worker did not drain", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
