package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jobvert/jobvert/internal"
	"github.com/jobvert/jobvert/internal/billing"
	"github.com/jobvert/jobvert/internal/email"
	"github.com/jobvert/jobvert/internal/handler"
	"github.com/jobvert/jobvert/internal/jobs"
	"github.com/jobvert/jobvert/internal/metrics"
	"github.com/jobvert/jobvert/internal/middleware"
	"github.com/jobvert/jobvert/internal/repository"
	"github.com/jobvert/jobvert/internal/service"
	"github.com/jobvert/jobvert/internal/worker"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	repo := repository.New(db)

	// Initialize billing. Nil when Stripe is not configured: the webhook
	// endpoint acks without processing and checkout attempts fail with a
	// payment error.
	var billingService billing.Service
	if cfg.StripeSecretKey != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
		logger.Info("Stripe billing enabled")
	} else {
		logger.Warn("Stripe billing disabled, STRIPE_SECRET_KEY not set")
	}

	// Initialize email delivery
	emailService, err := email.NewSMTPEmailService(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}, cfg.BaseURL, logger)
	if err != nil {
		return fmt.Errorf("email service initialization failed: %w", err)
	}

	// Initialize services
	userService := service.NewUserService(repo, logger)
	companyService := service.NewCompanyService(repo, logger)
	quotaService := service.NewQuotaService(repo, logger)
	jobService := service.NewJobService(db, repo, billingService, emailService, logger, service.JobServiceConfig{
		FreePostingEnabled: cfg.FreePostingEnabled,
		BaseURL:            cfg.BaseURL,
	})

	if cfg.FreePostingEnabled {
		logger.Warn("Free posting mode enabled, payment gate bypassed")
	}

	// Initialize background worker
	w, err := worker.New(db, repo, worker.Config{
		Concurrency:       cfg.WorkerConcurrency,
		PollInterval:      cfg.WorkerPollInterval,
		JobTimeout:        cfg.WorkerJobTimeout,
		ShutdownTimeout:   30 * time.Second,
		StaleJobThreshold: 10 * time.Minute,
	}, logger)
	if err != nil {
		return fmt.Errorf("worker initialization failed: %w", err)
	}
	w.Register(jobs.NewExpireJobPostHandler(repo, logger))

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if cfg.WorkerEnabled {
		w.Start(workerCtx)
	} else {
		logger.Warn("Worker disabled, job posts will not expire")
	}

	// Initialize middleware
	isSecure := cfg.Env != "development"
	authMw := middleware.NewAuthMiddleware(userService, logger, isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)

	postLimiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, logger)
	rateLimitMw := middleware.NewRateLimitMiddleware(postLimiter, logger)

	// Initialize handlers
	quotaHandler := handler.NewQuotaHandler(quotaService, companyService, logger)
	jobHandler := handler.NewJobHandler(jobService, companyService, logger)
	companyHandler := handler.NewCompanyHandler(companyService, logger)
	webhookHandler := handler.NewWebhookHandler(billingService, jobService, userService, emailService, cfg.BaseURL, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics (basic auth when credentials are configured)
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	// Stripe webhook (public, signature-verified)
	webhookHandler.RegisterRoutes(mux)

	// Pricing catalog and quota API (auth optional, resolved by WithUser)
	quotaHandler.RegisterRoutes(mux)

	// Authenticated routes
	requireUser := middleware.Stack(authMw.RequireUser)
	jobHandler.RegisterRoutes(mux, middleware.Stack(authMw.RequireUser, rateLimitMw.Limit))
	companyHandler.RegisterRoutes(mux, requireUser)

	// Outer middleware applies to every route. WithUser resolves the
	// session cookie so optional-auth routes see the user too.
	root := middleware.Stack(
		metrics.Middleware,
		loggingMw.Handler,
		securityMw.Handler,
		authMw.WithUser,
	)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if cfg.WorkerEnabled {
		w.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
