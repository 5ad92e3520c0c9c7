package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/commercepay/payment-challenge-service/internal/adapters/payerauth"
	"github.com/commercepay/payment-challenge-service/internal/adapters/pims"
	"github.com/commercepay/payment-challenge-service/internal/adapters/sessionstore"
	"github.com/commercepay/payment-challenge-service/internal/adapters/transactiondata"
	"github.com/commercepay/payment-challenge-service/internal/config"
	sessionHandler "github.com/commercepay/payment-challenge-service/internal/handlers/session"
	"github.com/commercepay/payment-challenge-service/internal/services/challenge"
	pkghttp "github.com/commercepay/payment-challenge-service/pkg/http"
	"github.com/commercepay/payment-challenge-service/pkg/middleware"
	"github.com/commercepay/payment-challenge-service/pkg/observability"
	"github.com/commercepay/payment-challenge-service/pkg/security"
	"github.com/commercepay/payment-challenge-service/pkg/shutdown"
)

func main() {
	// Load .env if present; real deployments rely on the environment.
	_ = godotenv.Load()

	logger := initLogger()
	defer logger.Sync()

	logger.Info("Starting payment challenge service",
		zap.String("version", "0.1.0"),
	)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	dbPool, err := initDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbPool.Close()

	logger.Info("Database connection established",
		zap.String("database", cfg.Database.Database),
	)

	// The ports.Logger adapter shared by everything below main.
	appLogger := security.NewZapLogger(logger)

	ctx := context.Background()

	signer, err := initSessionSigner(ctx, cfg, appLogger)
	if err != nil {
		logger.Fatal("Failed to initialize session signer", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	payerAuthHTTP := pkghttp.NewHTTPClient(
		pkghttp.PayerAuthClientConfig(),
		time.Duration(cfg.PayerAuth.Timeout)*time.Second,
	)
	instrumentHTTP := pkghttp.NewHTTPClient(
		pkghttp.InstrumentClientConfig(),
		time.Duration(cfg.Instruments.Timeout)*time.Second,
	)
	transactionHTTP := pkghttp.NewHTTPClient(
		pkghttp.InstrumentClientConfig(),
		time.Duration(cfg.TransactionData.Timeout)*time.Second,
	)

	payerAuthClient := payerauth.NewClient(cfg.PayerAuth.BaseURL, cfg.PayerAuth.APIVersion, payerAuthHTTP, appLogger.Named("payerauth"), metrics)
	instrumentClient := pims.NewClient(cfg.Instruments.BaseURL, instrumentHTTP, appLogger.Named("pims"), metrics)
	transactionClient := transactiondata.NewClient(cfg.TransactionData.BaseURL, transactionHTTP, appLogger.Named("transactiondata"), metrics)

	store := sessionstore.NewPostgresStore(dbPool, appLogger.Named("sessionstore"))

	statusRules := cfg.Challenge.StatusRules
	if len(statusRules) == 0 {
		statusRules = challenge.DefaultStatusRules
	}
	statusMapper := challenge.NewStatusMapper(statusRules)

	manager := challenge.NewManager(
		store,
		payerAuthClient,
		instrumentClient,
		transactionClient,
		signer,
		statusMapper,
		appLogger,
		metrics,
		challenge.Config{
			PSD2Enabled:           cfg.Challenge.PSD2Enabled,
			NotificationBaseURL:   cfg.Challenge.NotificationBaseURL,
			DefaultMessageVersion: cfg.Challenge.DefaultMessageVersion,
		},
	)

	sessionTTL := time.Duration(cfg.Challenge.SessionTTLHours) * time.Hour
	sweeper := shutdown.NewPeriodicWorker("session-sweeper", time.Hour, logger)
	sweeper.Start(func(ctx context.Context) {
		purged, err := store.PurgeExpired(ctx, sessionTTL)
		if err != nil {
			logger.Warn("Session expiry sweep failed", zap.Error(err))
			return
		}
		if purged > 0 {
			logger.Info("Purged expired sessions", zap.Int64("count", purged))
		}
	})

	mux := http.NewServeMux()
	sessionHandler.NewHandler(manager, appLogger).Register(mux)

	rateLimiter := middleware.NewRateLimiter(100, 200)
	handler := metrics.HTTPMiddleware(rateLimiter.Middleware(mux))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	healthChecker := observability.NewHealthChecker(dbPool)
	metricsServer := observability.StartMetricsServer(strconv.Itoa(cfg.Server.MetricsPort), healthChecker, logger)

	logger.Info("Metrics server listening",
		zap.Int("port", cfg.Server.MetricsPort),
	)

	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Registered in dependency order; shutdown runs in reverse, so the
	// API drains before the pool closes.
	sm := shutdown.NewManager(logger, 30*time.Second)
	sm.RegisterNoErr("database", dbPool.Close)
	sm.RegisterNoErr("rate-limiter", rateLimiter.Shutdown)
	sm.RegisterHTTPServer("metrics-server", metricsServer)
	sm.Register("session-sweeper", sweeper.Shutdown)
	sm.RegisterHTTPServer("http-server", server)
	sm.WaitForShutdown()
}

// initLogger creates a zap logger based on the environment
func initLogger() *zap.Logger {
	env := os.Getenv("ENVIRONMENT")

	var logger *zap.Logger
	var err error

	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	return logger
}

// initDatabase creates and configures the PostgreSQL connection pool
func initDatabase(cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database pool configured",
		zap.Int32("max_conns", poolConfig.MaxConns),
		zap.Int32("min_conns", poolConfig.MinConns),
	)

	return pool, nil
}
