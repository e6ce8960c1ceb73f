package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kevin07696/lawdesk/internal/adapters/database"
	"github.com/kevin07696/lawdesk/internal/adapters/postgres"
	"github.com/kevin07696/lawdesk/internal/config"
	integrationHandler "github.com/kevin07696/lawdesk/internal/handlers/integration"
	subscriptionHandler "github.com/kevin07696/lawdesk/internal/handlers/subscription"
	webhookHandler "github.com/kevin07696/lawdesk/internal/handlers/webhook"
	internalMiddleware "github.com/kevin07696/lawdesk/internal/middleware"
	"github.com/kevin07696/lawdesk/internal/services/asaas"
	"github.com/kevin07696/lawdesk/internal/services/credential"
	"github.com/kevin07696/lawdesk/internal/services/lifecycle"
	"github.com/kevin07696/lawdesk/pkg/middleware"
	"github.com/kevin07696/lawdesk/pkg/observability"
	"github.com/kevin07696/lawdesk/pkg/resilience"
	"github.com/kevin07696/lawdesk/pkg/shutdown"
)

const startupAttempts = 8

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger := initLogger(cfg)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting lawdesk billing service",
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
	logger.Info("Service stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()
	timeouts := resilience.DefaultTimeoutConfig()
	timeouts.Shutdown = cfg.Server.ShutdownTimeout

	shutdownManager := shutdown.NewManager(logger, timeouts.Shutdown)

	// Database
	password, err := resolveDatabasePassword(ctx, cfg, logger)
	if err != nil {
		return err
	}
	dbCfg := database.DefaultPostgreSQLConfig(cfg.Database.ConnectionString(password))
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns

	var db *database.PostgreSQLAdapter
	err = resilience.WaitFor(ctx, startupAttempts, resilience.StartupBackoff(), func(ctx context.Context) error {
		var connErr error
		db, connErr = database.NewPostgreSQLAdapter(ctx, dbCfg, logger)
		if connErr != nil {
			logger.Warn("Database not reachable yet", zap.Error(connErr))
		}
		return connErr
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	shutdownManager.RegisterNoErr("database", db.Close)

	poolMonitor := shutdown.NewPeriodicWorker("db-pool-monitor", time.Minute, logger)
	poolMonitor.Start(ctx, db.LogPoolStats)
	shutdownManager.Register("db-pool-monitor", poolMonitor.Shutdown)

	probeCtx, cancel := db.ComplexQueryContext(ctx)
	cols, err := postgres.ProbeSchema(probeCtx, db.Pool())
	cancel()
	if err != nil {
		return fmt.Errorf("probe schema: %w", err)
	}
	logger.Info("Resolved schema columns",
		zap.String("company_plan", cols.CompanyPlan),
		zap.String("charge_company", cols.ChargeCompany),
	)

	executor := postgres.NewDBExecutor(db.Pool())
	repos := postgres.NewRepositories(executor, cols, dbCfg.SimpleQueryTimeout)

	// Services
	lifecycleService := lifecycle.NewService(executor, repos.Companies, repos.Plans, logger)

	var processorOpts []asaas.ProcessorOption
	if cfg.Asaas.WebhookDedup {
		processorOpts = append(processorOpts, asaas.WithEventLedger(repos.WebhookEvents))
	}
	processor := asaas.NewProcessor(executor, repos.Charges, repos.Credentials, lifecycleService, logger, processorOpts...)

	secretService := credential.NewSecretService(executor, repos.Credentials, credential.URLConfig{
		PublicWebhookURL: cfg.Asaas.WebhookPublicURL,
		PublicBaseURL:    cfg.Server.PublicBaseURL,
	}, logger)

	// Rate limiting
	store, redisClient, err := initRateLimitStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		shutdownManager.Register("redis", func(context.Context) error { return redisClient.Close() })
	}
	if memStore, ok := store.(*middleware.MemoryStore); ok {
		shutdownManager.RegisterNoErr("ratelimit-sweeper", memStore.Shutdown)
	}
	rateLimiter := middleware.NewRateLimiter(store, func(r *http.Request) string {
		return middleware.ClientIP(r, cfg.Server.TrustProxyHeaders)
	}, logger)

	allowlist := internalMiddleware.NewIPAllowlist(cfg.Asaas.WebhookAllowedIPs, cfg.Server.TrustProxyHeaders, logger)
	if !allowlist.Enabled() {
		logger.Warn("ASAAS_WEBHOOK_ALLOWED_IPS is empty, webhook accepts any source address")
	}

	// Handlers
	webhooks := webhookHandler.NewAsaasHandler(processor, logger)
	subscriptions := subscriptionHandler.NewHandler(lifecycleService, logger)
	integrations := integrationHandler.NewAsaasHandler(secretService, logger)

	inFlight := shutdown.NewInFlightTracker("http", logger)
	webhookChain := func(route string, h http.HandlerFunc) http.Handler {
		return observability.InstrumentHandler(route, middleware.Chain(h,
			allowlist.Middleware,
			rateLimiter.Middleware,
			middleware.Timeout(timeouts, (*resilience.TimeoutConfig).WebhookContext),
		))
	}
	apiChain := func(route string, h http.HandlerFunc) http.Handler {
		return observability.InstrumentHandler(route, middleware.Chain(h,
			middleware.Timeout(timeouts, nil),
		))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/webhooks/asaas", webhookChain("/api/v1/webhooks/asaas", webhooks.HandleWebhook))
	mux.Handle("POST /api/v1/webhooks/asaas/{credentialID}", webhookChain("/api/v1/webhooks/asaas/{credentialID}", webhooks.HandleWebhook))
	mux.Handle("GET /api/v1/companies/{companyID}/subscription", apiChain("/api/v1/companies/{companyID}/subscription", subscriptions.GetStatus))
	mux.Handle("POST /api/v1/companies/{companyID}/subscription", apiChain("/api/v1/companies/{companyID}/subscription", subscriptions.CreateSubscription))
	mux.Handle("GET /api/v1/integrations/asaas/{credentialID}/webhook", apiChain("/api/v1/integrations/asaas/{credentialID}/webhook", integrations.GetWebhookSettings))

	securityHeaders := internalMiddleware.NewSecurityHeaders(!cfg.IsProduction())
	httpServer := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: middleware.Chain(mux,
			middleware.Recovery(logger),
			middleware.Logging(logger),
			inFlight.Middleware,
			securityHeaders.Middleware,
		),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      timeouts.HTTPHandler + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Metrics and health
	checks := map[string]observability.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = observability.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	metricsServer := observability.StartMetricsServer(strconv.Itoa(cfg.Server.MetricsPort), observability.NewHealthChecker(checks), logger)
	shutdownManager.RegisterHTTPServer("metrics-server", metricsServer)

	// Registered last so it stops first
	shutdownManager.Register("in-flight-requests", inFlight.Shutdown)
	shutdownManager.RegisterHTTPServer("http-server", httpServer)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	waitCtx, stopWaiting := context.WithCancel(ctx)
	defer stopWaiting()
	go func() {
		if err, ok := <-serveErr; ok && err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
			stopWaiting()
		}
	}()

	return shutdownManager.WaitForShutdown(waitCtx)
}

// initLogger initializes the logger
func initLogger(cfg *config.Config) *zap.Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if err := level.UnmarshalText([]byte(cfg.Logger.Level)); err != nil {
		level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Logger.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// initRateLimitStore picks the limiter backend. The Redis store shares
// windows across replicas; the memory store is per process.
func initRateLimitStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (middleware.Store, *redis.Client, error) {
	rl := cfg.RateLimit
	if rl.Backend != "redis" {
		logger.Info("Using in-memory rate limiter",
			zap.Float64("rps", rl.RequestsPerSecond),
			zap.Int("burst", rl.Burst),
		)
		return middleware.NewMemoryStore(middleware.MemoryStoreConfig{
			RequestsPerSecond: rl.RequestsPerSecond,
			Burst:             rl.Burst,
		}), nil, nil
	}

	opts, err := redis.ParseURL(rl.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	err = resilience.WaitFor(ctx, startupAttempts, resilience.StartupBackoff(), func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	logger.Info("Using Redis rate limiter",
		zap.String("addr", opts.Addr),
		zap.Int("burst", rl.Burst),
	)
	// Burst requests per one-second window
	return middleware.NewRedisStore(client, "lawdesk:ratelimit", rl.Burst, time.Second), client, nil
}
