package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gatehouse/internal/auth"
	"gatehouse/internal/background"
	"gatehouse/internal/cache"
	"gatehouse/internal/config"
	"gatehouse/internal/database"
	"gatehouse/internal/geo"
	"gatehouse/internal/handlers"
	middlewareCustom "gatehouse/internal/middleware"
	"gatehouse/internal/repositories"
	"gatehouse/internal/routes"
	"gatehouse/internal/services"
	pkghttp "gatehouse/pkg/http"
	pkglogger "gatehouse/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	attemptRepo := repositories.NewAttemptRepository(db)
	credentialRepo := repositories.NewCredentialRepository(db)
	adminRepo := repositories.NewAdminRepository(db)

	// Geo lookups cache in Redis when configured, in memory otherwise
	var geoCache cache.Cache
	if cfg.Cache.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisCache.Close()
		geoCache = redisCache
	} else {
		geoCache = cache.NewMemoryCache()
	}
	geoResolver := geo.NewResolver(geoCache, cfg.Cache.GeoTTL, logger)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.AdminTokenSecret,
		cfg.Auth.SiteTokenSecret,
		cfg.Auth.AdminTokenExpiry,
	)

	// Timing delay for failed login paths
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Initialize services
	lockoutService := services.NewLockoutService(attemptRepo, cfg.Lockout, logger)
	credentialService := services.NewCredentialService(credentialRepo, auditLogger)
	adminService := services.NewAdminService(adminRepo, auditLogger)
	gateway := services.NewAccessGateway(
		attemptRepo,
		credentialService,
		adminService,
		lockoutService,
		tokenManager,
		geoResolver,
		timingDelay,
		auditLogger,
		logger,
	)

	// Seed the admin credential on first boot
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := adminService.EnsureSeeded(seedCtx, cfg.Auth.AdminPassword); err != nil {
		logger.Error("failed to seed admin credential", slog.Any("error", err))
		seedCancel()
		os.Exit(1)
	}
	seedCancel()

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	cookieConfig := auth.CookieConfig{
		Domain: cfg.Server.CookieDomain,
		Secure: cfg.Server.Env == "production",
	}
	accessHandler := handlers.NewAccessHandler(gateway, ipConfig, cookieConfig)
	adminHandler := handlers.NewAdminHandler(credentialService, adminService, attemptRepo, ipConfig, cookieConfig)

	// Background janitor for expired credentials and old ledger rows
	janitor := background.NewJanitor(
		credentialService,
		attemptRepo,
		cfg.Auth.AttemptRetention,
		cfg.Auth.CleanupInterval,
		logger,
	)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, accessHandler, adminHandler, tokenManager)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start janitor
	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	defer janitorCancel()

	go janitor.Start(janitorCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	janitorCancel()
	janitor.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
