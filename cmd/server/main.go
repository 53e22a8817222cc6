package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/engine"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/featureflags"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/handler"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/infrastructure/logger"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/infrastructure/redis"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/observability/metrics"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/observability/tracing"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/reliability/circuitbreaker"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/repository"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/security"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/security/audit"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/security/auth"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/security/middleware"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/security/ratelimit"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/service"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/worker"
	"github.com/shlee8313/4-social-insurnace-sub001/pkg/config"
	"github.com/shlee8313/4-social-insurnace-sub001/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting status engine server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op without an OTLP endpoint)
	shutdownTracing, err := tracing.Init(ctx, log, "status-engine", cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Initialize database connection pool
	pool, err := database.NewConnectionPool(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	db := pool.GetDB()

	// 5. Initialize Redis client
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 6. Initialize repositories
	userRepo := repository.NewPostgresUserRepository(db, log)
	roleRepo := repository.NewPostgresRoleRepository(db, log)
	orgRepo := repository.NewPostgresOrganizationRepository(db, log)
	transitionRepo := repository.NewPostgresTransitionRepository(db, log)

	// 7. Initialize the resolution engine and the transition executor.
	// The atomic path runs behind a circuit breaker and a feature flag;
	// when either blocks it, the manual fallback saga takes over.
	resolver := engine.NewAffiliationResolver(userRepo, orgRepo, log)
	analyzer := engine.NewImpactAnalyzer(orgRepo, log)
	atomicExec := engine.NewAtomicExecutor(transitionRepo, userRepo, log)
	fallbackExec := engine.NewFallbackExecutor(userRepo, roleRepo, log)
	breaker := circuitbreaker.NewCircuitBreaker(3, 2, 30*time.Second)
	executor := engine.NewExecutorWithFallback(
		atomicExec,
		fallbackExec,
		breaker,
		func() bool { return featureflags.EnabledDefault(featureflags.AtomicTransition, true) },
		cfg.IsProduction(),
		log,
	)

	// 8. Initialize security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	refreshStore := auth.NewRefreshStore(redisClient, cfg.RefreshTokenTTL)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	auditLogger := audit.NewLogger(log)
	authz := security.NewAuthorizationService(log)

	// 9. Initialize services
	authService := service.NewAuthService(userRepo, roleRepo, resolver, tokenManager, refreshStore, redisClient, auditLogger, cfg, log)
	statusService := service.NewStatusService(userRepo, roleRepo, resolver, analyzer, executor, authz, auditLogger, log)
	accountService := service.NewAccountService(userRepo, roleRepo, orgRepo, log)

	// 10. Initialize handlers
	loginHandler := handler.NewLoginHandler(authService, rateLimiter, cfg, log)
	refreshHandler := handler.NewRefreshHandler(authService, cfg, log)
	registerHandler := handler.NewRegisterHandler(accountService, log)
	resetHandler := handler.NewPasswordResetHandler(authService, log)
	statusHandler := handler.NewStatusHandler(statusService, log)
	healthHandler := handler.NewHealthHandler(pool, redisClient, log)

	// 11. Setup HTTP routes
	mux := http.NewServeMux()
	mux.Handle("POST /api/auth/login", loginHandler)
	mux.Handle("POST /api/auth/refresh", refreshHandler)
	mux.Handle("POST /api/auth/register", registerHandler)
	mux.Handle("POST /api/auth/password-reset", resetHandler)
	mux.HandleFunc("GET /api/users/{id}/status", statusHandler.Get)
	mux.HandleFunc("POST /api/users/{id}/status", statusHandler.Change)
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> rate limit -> content
	// type -> JWT -> audit -> CORS -> routes
	rootHandler := middleware.RequestIDMiddleware(
		metrics.HTTPMetricsMiddleware(
			middleware.RateLimitMiddleware(rateLimiter, log)(
				middleware.ValidateJSONContentType(log)(
					middleware.JWTMiddleware(tokenManager, log)(
						middleware.AuditMiddleware(auditLogger)(handlerWithCORS),
					),
				),
			),
		),
	)
	rootHandler = otelhttp.NewHandler(rootHandler, "http.server")

	// 12. Start the lock sweeper in the background
	sweeper := worker.NewLockSweeper(userRepo, log, time.Duration(cfg.LockSweepIntervalMinutes)*time.Minute)
	go sweeper.Start(ctx)

	// 13. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.Int("login_limit", cfg.LoginLimitPerMinute),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop the lock sweeper
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
