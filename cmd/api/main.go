package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/projectflow/loginguard/internal/auth"
	"github.com/projectflow/loginguard/internal/background"
	"github.com/projectflow/loginguard/internal/config"
	"github.com/projectflow/loginguard/internal/database"
	"github.com/projectflow/loginguard/internal/handlers"
	middlewareCustom "github.com/projectflow/loginguard/internal/middleware"
	"github.com/projectflow/loginguard/internal/repositories"
	"github.com/projectflow/loginguard/internal/routes"
	"github.com/projectflow/loginguard/internal/services"
	pkghttp "github.com/projectflow/loginguard/pkg/http"
	pkglogger "github.com/projectflow/loginguard/pkg/logger"
	"github.com/projectflow/loginguard/pkg/ratelimit"
)

// ledger is the attempt store plus the hooks main needs around it
type ledger interface {
	services.LoginAttemptRepository
	handlers.HealthChecker
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: pkglogger.ParseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("db_driver", cfg.Database.Driver),
		slog.Bool("identity_provider", cfg.Identity.Enabled()),
	)

	// Initialize ledger
	repo, closeDB, err := openLedger(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open login attempt ledger", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeDB()

	// Lockout policy
	lockoutService := services.NewLockoutService(repo, services.LockoutConfig{
		MaxLoginAttempts:    cfg.Lockout.MaxLoginAttempts,
		LoginAttemptsWindow: cfg.Lockout.LoginAttemptsWindow,
		LockoutDuration:     cfg.Lockout.LockoutDuration,
		Retention:           cfg.Lockout.Retention,
		LedgerTimeout:       cfg.Lockout.LedgerTimeout,
	}, logger)

	if cfg.Email.FromAddress != "" {
		notifier, err := services.NewSESLockoutNotifier(context.Background(), cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize lockout notifier", slog.Any("error", err))
			os.Exit(1)
		}
		lockoutService.SetNotifier(notifier)
	}

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	deps := routes.Dependencies{
		LoginAttemptHandler: handlers.NewLoginAttemptHandler(lockoutService, ipConfig, logger),
		HealthHandler:       handlers.NewHealthHandler(repo, logger),
		IPRateLimit: middlewareCustom.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit.IPRequestsPerMinute,
			IPConfig:          ipConfig,
		},
		AttemptLimiter: ratelimit.New(ratelimit.WithCapacity(cfg.RateLimit.Capacity)),
		AttemptLimit: middlewareCustom.AttemptLimitConfig{
			MaxAttempts: cfg.RateLimit.MaxAttempts,
			Window:      cfg.RateLimit.Window,
			IPConfig:    ipConfig,
		},
	}

	if cfg.Admin.ServiceRoleSecret != "" {
		deps.ServiceRole = auth.NewServiceRoleVerifier(cfg.Admin.ServiceRoleSecret)
	} else {
		logger.Warn("SERVICE_ROLE_SECRET not set, ledger cleanup endpoint disabled")
	}

	// Server-side authentication flow
	if cfg.Identity.Enabled() {
		provider := services.NewSupabaseIdentityProvider(cfg.Identity.SupabaseURL, cfg.Identity.SupabaseAnonKey, nil)
		authService := services.NewAuthService(lockoutService, provider, cfg.Identity.ResetRedirectURL, logger)
		authService.SetFailureDelay(auth.NewTimingDelay(auth.TimingConfig{
			BaseDelay:   cfg.Lockout.FailureDelay,
			RandomDelay: cfg.Lockout.FailureJitter,
		}))
		deps.AuthHandler = handlers.NewAuthHandler(authService, ipConfig, logger)
	}

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(lockoutService, logger, cfg.Lockout.CleanupInterval)

	// Setup router. Client IPs are resolved per request against TRUSTED_PROXIES,
	// so chi's RealIP is not installed.
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	routes.RegisterRoutes(router, deps)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		return
	}

	logger.Info("server stopped gracefully")
}

// openLedger connects the configured backend and applies migrations when DB_AUTO_MIGRATE is set
func openLedger(cfg *config.DatabaseConfig, logger *slog.Logger) (ledger, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := database.NewSQLiteConnection(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.AutoMigrate {
			if err := database.Migrate(ctx, db.Conn, cfg.Driver, logger); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		return repositories.NewSQLiteLoginAttemptRepository(db), db.Close, nil

	case config.DriverPostgres:
		db, err := database.NewConnection(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.AutoMigrate {
			sqlDB := stdlib.OpenDBFromPool(db.Pool)
			err := database.Migrate(ctx, sqlDB, cfg.Driver, logger)
			sqlDB.Close()
			if err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		return repositories.NewLoginAttemptRepository(db), db.Close, nil
	}

	return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}
