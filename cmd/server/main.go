package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"funnel/internal/api"
	"funnel/internal/api/handlers"
	"funnel/internal/api/middleware"
	"funnel/internal/engine/jobs"
	"funnel/internal/engine/triggers"
	"funnel/internal/engine/webhooks"
	"funnel/internal/pkg/logger"
	"funnel/internal/platform/auth"
	"funnel/internal/platform/config"
	"funnel/internal/platform/database"
	"funnel/internal/platform/metrics"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "server",
	Short:        "Serve the webhook intake and sequence API",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return serve(cfg)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "configs/config.yaml", "path to config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

func serve(cfg *config.Config) error {
	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(context.Background(), db)
		if err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info().Strs("applied", applied).Msg("database migrated")
	}

	if cfg.Webhooks.Secret == "" {
		log.Warn().Msg("webhook secret not configured, signature verification is disabled")
	}
	if cfg.Jobs.InvokerKeyHash == "" {
		log.Warn().Msg("invoker key not configured, job-run endpoint is open")
	}

	// Services
	registry := metrics.NewRegistry()
	tokenSvc := auth.NewTokenService(cfg.JWT)
	intake := webhooks.NewIntake(db, webhooks.Config{
		Secret:             cfg.Webhooks.Secret,
		AbandonmentDelay:   cfg.Webhooks.AbandonmentDelay,
		DedupeByProviderID: cfg.Webhooks.DedupeByProviderID,
	}, registry)
	runner := jobs.NewRunner(db, jobs.Config{
		BatchSize:   cfg.Jobs.BatchSize,
		MaxAttempts: cfg.Jobs.MaxAttempts,
	}, registry)
	triggerSvc := triggers.NewService(db)

	deps := &api.Dependencies{
		WebhookHandler:    handlers.NewWebhookHandler(intake, cfg.Webhooks.SignatureHeader, cfg.Webhooks.MaxBodyBytes),
		JobsHandler:       handlers.NewJobsHandler(runner),
		TriggerHandler:    handlers.NewTriggerHandler(triggerSvc),
		SequenceHandler:   handlers.NewSequenceHandler(triggerSvc),
		HealthHandler:     handlers.NewHealthHandler(db),
		MetricsHandler:    handlers.NewMetricsHandler(registry),
		AuthMiddleware:    middleware.NewAuthMiddleware(tokenSvc),
		InvokerMiddleware: middleware.NewInvokerMiddleware(cfg.Jobs.InvokerKeyHash),
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      middleware.RequestLogger(logger.Component("http"))(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
	return nil
}
