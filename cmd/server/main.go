package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	orderingapp "github.com/agrolink/backend/internal/application/ordering"
	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/infrastructure/cache"
	"github.com/agrolink/backend/internal/infrastructure/collaborator"
	"github.com/agrolink/backend/internal/infrastructure/config"
	"github.com/agrolink/backend/internal/infrastructure/event"
	"github.com/agrolink/backend/internal/infrastructure/logger"
	"github.com/agrolink/backend/internal/infrastructure/migration"
	"github.com/agrolink/backend/internal/infrastructure/notification"
	"github.com/agrolink/backend/internal/infrastructure/persistence"
	"github.com/agrolink/backend/internal/infrastructure/scheduler"
	"github.com/agrolink/backend/internal/infrastructure/telemetry"
	"github.com/agrolink/backend/internal/interfaces/http/handler"
	"github.com/agrolink/backend/internal/interfaces/http/middleware"
	"github.com/agrolink/backend/internal/interfaces/http/router"
	"github.com/agrolink/backend/migrations"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// eventHandlerTimeout bounds one asynchronous event handler invocation
const eventHandlerTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Fields: map[string]string{
			"service": cfg.App.Name,
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
		},
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting agrolink order service",
		zap.String("port", cfg.App.Port),
	)

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// Telemetry providers are no-ops when disabled
	tracerProvider, err := telemetry.NewTracerProvider(rootCtx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(rootCtx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.Open(rootCtx, &cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := applyMigrations(&cfg.Database, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBName:          cfg.Database.DBName,
		}, log)
		if err := plugin.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}
	dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
	dbMetricsCfg.Enabled = cfg.Telemetry.Enabled
	dbMetricsCfg.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, dbMetricsCfg, log)
	if err != nil {
		log.Warn("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(rootCtx)
		defer dbMetrics.Stop()
	}

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	proposalRepo := persistence.NewGormProposalRepository(db.DB)
	transportRepo := persistence.NewGormTransportRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Outbound collaborators
	catalogHTTP, err := collaborator.NewClient("catalog", cfg.Catalog, log)
	if err != nil {
		log.Fatal("Failed to configure catalog client", zap.Error(err))
	}
	discountHTTP, err := collaborator.NewClient("discount", cfg.Discount, log)
	if err != nil {
		log.Fatal("Failed to configure discount client", zap.Error(err))
	}
	catalog := collaborator.NewCatalogClient(catalogHTTP)
	discounts := collaborator.NewDiscountClient(discountHTTP)
	pricing := ordering.NewCartPricingEngine(catalog, catalog, catalog, discounts)

	// Shared state: idempotency keys for events and deadline warnings, rate limit windows
	stores, err := cache.Open(rootCtx, cfg.Redis, cache.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to open cache stores", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing cache stores", zap.Error(err))
		}
	}()
	store := stores.Idempotency

	// Business metrics
	businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:               meterProvider.Meter("agrolink.orders"),
		Logger:              log,
		NegotiationProvider: orderRepo,
	})
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}
	businessMetrics.StartPeriodicCollection(rootCtx, cfg.Telemetry.MetricsInterval)
	defer businessMetrics.Stop()

	// Event bus and notification delivery
	dispatcher := notification.NewDispatcher(cfg.Notification, log)
	defer func() {
		if err := dispatcher.Close(); err != nil {
			log.Error("Error closing notification dispatcher", zap.Error(err))
		}
	}()

	eventBus := event.NewInMemoryEventBus(log, event.WithAsyncDispatch(eventHandlerTimeout))
	notificationHandler := event.NewIdempotentHandler(
		orderingapp.NewNotificationHandler(dispatcher, log), store, log,
		event.WithDeliveryRecorder(businessMetrics),
	)
	eventBus.Subscribe(notificationHandler)
	log.Info("Event handlers registered",
		zap.Strings("notification_events", notificationHandler.EventTypes()),
	)

	if err := eventBus.Start(rootCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Application services
	orderService := orderingapp.NewOrderService(orderRepo, proposalRepo, cfg.Negotiation.DefaultDeadlineDays, log)
	cartService := orderingapp.NewCartService(orderRepo, txScope, pricing, log)
	negotiationService := orderingapp.NewNegotiationService(txScope, log)
	transportService := orderingapp.NewTransportService(orderRepo, transportRepo, catalog, txScope, orderingapp.TransportConfig{
		Freight: ordering.FreightParams{
			RatePerKgKm:    decimal.NewFromFloat(cfg.Freight.RatePerKgKm),
			MinimumFreight: decimal.NewFromFloat(cfg.Freight.MinimumFreight),
		},
		MaxScheduleDaysAhead: cfg.Freight.MaxScheduleDaysAhead,
	}, log)
	deadlineCfg := orderingapp.DeadlineConfig{
		WarningWindow: cfg.Deadline.WarningWindow,
		WarningTTL:    cfg.Deadline.WarningTTL,
		BatchSize:     cfg.Deadline.BatchSize,
	}

	orderService.SetEventPublisher(eventBus)
	orderService.SetBusinessMetrics(businessMetrics)
	cartService.SetEventPublisher(eventBus)
	cartService.SetBusinessMetrics(businessMetrics)
	negotiationService.SetEventPublisher(eventBus)
	negotiationService.SetBusinessMetrics(businessMetrics)
	transportService.SetEventPublisher(eventBus)
	transportService.SetBusinessMetrics(businessMetrics)

	// Deadline enforcement
	if cfg.Deadline.Enabled {
		// Each tick builds its sweeper on a fresh session bound to the tick context
		sweeperFactory := func(ctx context.Context) (scheduler.DeadlineSweeper, func(), error) {
			tickDB := db.DB.Session(&gorm.Session{NewDB: true, Context: ctx})
			svc := orderingapp.NewDeadlineService(
				persistence.NewGormOrderRepository(tickDB),
				persistence.NewGormTransactionScope(tickDB),
				store, deadlineCfg, log,
			)
			svc.SetEventPublisher(eventBus)
			svc.SetBusinessMetrics(businessMetrics)
			return svc, func() {}, nil
		}
		deadlineScheduler := scheduler.NewDeadlineScheduler(sweeperFactory, log, scheduler.DeadlineSchedulerConfig{
			Enabled:       true,
			CheckInterval: cfg.Deadline.CheckInterval,
			TickTimeout:   cfg.Deadline.TickTimeout,
			RunOnStart:    true,
		})
		if err := deadlineScheduler.Start(rootCtx); err != nil {
			log.Fatal("Failed to start deadline scheduler", zap.Error(err))
		}
		defer func() {
			if err := deadlineScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping deadline scheduler", zap.Error(err))
			}
		}()
		log.Info("Deadline scheduler started",
			zap.Duration("check_interval", cfg.Deadline.CheckInterval),
			zap.Duration("warning_window", cfg.Deadline.WarningWindow),
		)
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order:
	// 1. RequestID - generate or propagate the request ID
	// 2. Recovery - catch panics
	// 3. Tracing - root span per request, probes excluded
	// 4. Logger - request log with trace fields
	// 5. Metrics, security headers, CORS, body limit, compression, rate limit
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, "/health"))
	}
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(meterProvider, log))
	engine.Use(middleware.SecureHeaders(middleware.DefaultSecurityConfig()))
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORS(corsCfg))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.Compression("/health"))
	if cfg.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Counter: stores.Rate,
			Limit:   cfg.HTTP.RateLimitRequests,
			Window:  cfg.HTTP.RateLimitWindow,
			Logger:  log,
		}))
		log.Info("Rate limiting enabled",
			zap.String("backend", stores.Backend),
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, cfg.App.Version,
		handler.ReadinessProbe{
			Name:  "database",
			Check: db.Ping,
			Detail: func() any {
				pool, _ := db.Pool()
				return pool
			},
		},
		handler.ReadinessProbe{
			Name:   "cache",
			Check:  stores.Ping,
			Detail: func() any { return gin.H{"backend": stores.Backend} },
		},
	)

	// ActorIdentity runs before SpanEnricher so spans carry the actor
	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithAPIMiddleware(
			middleware.ActorIdentity(),
			middleware.SpanEnricher(),
			middleware.Timeout(cfg.HTTP.RequestTimeout),
		),
	)
	r.Probes(systemHandler.Live, systemHandler.Ready)
	r.RegisterOrdering(router.OrderingHandlers{
		Order:       handler.NewOrderHandler(orderService),
		Cart:        handler.NewCartHandler(cartService),
		Negotiation: handler.NewNegotiationHandler(negotiationService),
		Transport:   handler.NewTransportHandler(transportService),
		System:      systemHandler,
	}).Setup()
	log.Info("Routes registered", zap.Strings("routes", r.Routes()))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stopBackground()

	log.Info("Server exited gracefully")
}

// applyMigrations brings the schema to the latest embedded version.
// It uses a dedicated connection since closing the migrator closes its pool.
func applyMigrations(cfg *config.DatabaseConfig, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migrations.FS, migration.Config{}, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer m.Close()
	return m.EnsureLatest()
}
