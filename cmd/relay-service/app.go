package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redisclient "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq" // PostgreSQL driver

	"payrelay/internal/broker"
	"payrelay/internal/config"
	"payrelay/internal/constants"
	"payrelay/internal/detect"
	"payrelay/internal/ledger"
	"payrelay/internal/logger"
	"payrelay/internal/notify"
	"payrelay/internal/provider"
	"payrelay/internal/subscription"
	"payrelay/pkg/bootstrap"
	"payrelay/pkg/cel"
	"payrelay/pkg/health"
	"payrelay/pkg/logging"
	"payrelay/pkg/metrics"
	"payrelay/pkg/middleware"
	"payrelay/pkg/ratelimit"
)

type App struct {
	config      *config.Config
	logger      logger.Logger
	dbConnector *bootstrap.DatabaseConnector
	db          *sql.DB
	redisClient *redisclient.Client
	producer    broker.Producer
	eventLedger *ledger.Ledger
	poller      *detect.Poller
	server      *http.Server
	router      *gin.Engine
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("relay-service")
	}
	return &App{
		config:      cfg,
		logger:      log,
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	ctx = logging.WithServiceName(ctx, "relay-service")

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.initRelay(ctx); err != nil {
		return fmt.Errorf("failed to initialize relay: %w", err)
	}

	if err := a.initServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	return nil
}

// initDatabases connects whatever backends are configured. Both are
// optional; without them the relay runs on local JSON files.
func (a *App) initDatabases(ctx context.Context) error {
	redisClient, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redisClient = redisClient

	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db

	return nil
}

func (a *App) initRelay(ctx context.Context) error {
	var store ledger.Store
	if a.redisClient != nil {
		store = ledger.NewRedisStore(a.redisClient)
	} else {
		store = ledger.NewFileStore(a.config.Storage.LedgerFile)
		a.logger.InfowCtx(ctx, "Using file-backed ledger", "path", a.config.Storage.LedgerFile)
	}
	store = ledger.NewCircuitBreakerStore(store, a.config.CircuitBreaker)

	a.eventLedger = ledger.NewLedger(store, a.logger)
	a.eventLedger.Load(ctx)

	var repo subscription.Repository
	if a.db != nil {
		repo = subscription.NewRepository(a.db)
	} else {
		fileRepo, err := subscription.NewFileRepository(a.config.Storage.SubscriptionsFile, a.logger)
		if err != nil {
			return err
		}
		repo = fileRepo
		a.logger.InfowCtx(ctx, "Using file-backed subscriptions", "path", a.config.Storage.SubscriptionsFile)
	}

	renderer := notify.NewRenderer()
	dispatcher := notify.NewWebhookDispatcher(time.Duration(a.config.Dispatch.TimeoutSeconds) * time.Second)

	svc := subscription.NewService(repo,
		subscription.WithTestDelivery(renderer, dispatcher),
		subscription.WithStatusSource(a.eventLedger, a.config.Poller.IntervalSeconds),
	)

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create filter evaluator: %w", err)
	}

	fanoutOpts := []notify.FanoutOption{
		notify.WithFilterEvaluation(evaluator),
	}
	if a.config.Broker.Type == "kafka" && a.config.Broker.Kafka.EventTopic != "" {
		a.producer = broker.NewKafkaProducer(a.config.Broker.Kafka, a.logger)
		fanoutOpts = append(fanoutOpts, notify.WithEventMirror(a.producer, a.config.Broker.Kafka.EventTopic))
		a.logger.InfowCtx(ctx, "Event mirror enabled", "topic", a.config.Broker.Kafka.EventTopic)
	}

	fanout := notify.NewFanout(svc, renderer, dispatcher, a.logger, fanoutOpts...)

	fetcher := provider.NewClient(a.config.Provider)
	a.poller = detect.NewPoller(fetcher, a.eventLedger, fanout,
		time.Duration(a.config.Poller.IntervalSeconds)*time.Second, a.logger)

	return a.initRouter(svc)
}

func (a *App) initRouter(svc subscription.Service) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.config.Admin.RateLimit.Enabled {
		// Unset fields fall back to the package defaults.
		rateLimitConfig := ratelimit.DefaultConfig()
		if a.config.Admin.RateLimit.RPS > 0 {
			rateLimitConfig.RPS = a.config.Admin.RateLimit.RPS
		}
		if a.config.Admin.RateLimit.Burst > 0 {
			rateLimitConfig.Burst = a.config.Admin.RateLimit.Burst
		}
		if a.config.Admin.RateLimit.CleanupInterval > 0 {
			rateLimitConfig.CleanupInterval = time.Duration(a.config.Admin.RateLimit.CleanupInterval) * time.Second
		}
		if a.config.Admin.RateLimit.MaxAge > 0 {
			rateLimitConfig.MaxAge = time.Duration(a.config.Admin.RateLimit.MaxAge) * time.Second
		}
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
		a.logger.Infow("Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	handler := subscription.NewHandler(svc, a.logger)
	handler.RegisterRoutes(router)

	metrics.RegisterRelayMetrics()
	metrics.RegisterAdminMetrics()
	metrics.RegisterCircuitBreakerMetrics()

	healthRegistry := health.NewCheckerRegistry()
	if a.db != nil {
		healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	}
	if a.redisClient != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redisClient))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router = router
	return nil
}

func (a *App) initServer() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfowCtx(gctx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.poller.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown(gctx)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	ctx = logging.WithServiceName(ctx, "relay-service")
	a.logger.InfowCtx(ctx, "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	// The poller has stopped by now; flush anything it had not persisted.
	if a.eventLedger != nil {
		if err := a.eventLedger.Persist(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("ledger persist error: %w", err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	dbErrs := a.dbConnector.ShutdownDatabases(shutdownCtx, a.redisClient, a.db)
	errs = append(errs, dbErrs...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.InfowCtx(ctx, "Shutdown complete")
	return nil
}
