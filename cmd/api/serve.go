package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"consultancy-backend/config"
	_ "consultancy-backend/docs" // Important for Swagger
	"consultancy-backend/internal/delivery/http/middleware"
	v1 "consultancy-backend/internal/delivery/http/v1"
	"consultancy-backend/internal/domain"
	"consultancy-backend/internal/usecase"
	"consultancy-backend/pkg/email"
	"consultancy-backend/pkg/logger"
	"consultancy-backend/pkg/redis"
	"consultancy-backend/pkg/security"
	"consultancy-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	gin.SetMode(cfg.GinMode)

	// 2. Setup Loggers
	logger.Init(cfg.LogLevel)
	audit := security.InitSecurityLogger("consultancy-backend", environment(cfg))
	defer func() { _ = audit.Sync() }()
	logger.Log.Info("Starting consultancy backend", "port", cfg.Port)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Optional Redis for the rate limit
	if err := redis.Initialize(ctx, redis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword}); err != nil {
		logger.Log.Warn("Redis unavailable, rate limit is per-instance", "error", err)
	}
	defer func() { _ = redis.Close() }()

	// 4. Setup Services
	emailService, err := newEmailService(cfg)
	if err != nil {
		return err
	}
	if !emailService.IsConfigured() {
		logger.Log.Warn("Email service not fully configured - notifications will be skipped")
	}

	formatter, err := email.NewFormatter(cfg.ContactSiteName, cfg.ContactTimezone, cfg.ContactZoneLabel)
	if err != nil {
		return err
	}
	verifier := newVerifier(cfg, audit)
	if !verifier.IsConfigured() {
		logger.Log.Warn("reCAPTCHA not configured", "fail_open", cfg.RecaptchaFailOpen)
	}

	// 5. Setup UseCases
	contactUC := usecase.NewContactUsecase(usecase.ContactDeps{
		Validate:  validation.New(),
		Verifier:  verifier,
		Formatter: formatter,
		Notifier:  emailService,
		Policy:    domain.ParseDeliveryPolicy(cfg.ContactDeliveryPolicy),
		Audit:     audit,
	})
	healthUC := usecase.NewHealthUsecase(map[string]usecase.Probe{
		"redis": func(ctx context.Context) error {
			if redis.Client() == nil {
				return nil
			}
			return redis.HealthCheck(ctx)
		},
	})

	limitCfg := middleware.ContactRateLimitConfig(cfg.RateLimitContactLimit, cfg.RateLimitWindow())
	limitCfg.Audit = audit

	// 6. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		ContactUC:      contactUC,
		HealthUC:       healthUC,
		AllowedOrigins: cfg.AllowedOrigins,
		TrustedProxies: cfg.TrustedProxies,
		ContactLimit:   middleware.RateLimitMiddleware(limitCfg),
		AccessLog:      middleware.AccessLog(),
	})

	// 7. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Graceful Shutdown
		<-gctx.Done()
		logger.Log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Log.Error("Server stopped with error", "error", err)
		return err
	}
	logger.Log.Info("Server exiting")
	return nil
}
