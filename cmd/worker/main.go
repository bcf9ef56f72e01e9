package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"funnel/internal/engine/jobs"
	"funnel/internal/pkg/logger"
	"funnel/internal/platform/config"
	"funnel/internal/platform/database"
	"funnel/internal/workers"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	once       bool
	interval   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run due delayed jobs",
	Long: "Executes check_abandonment and other delayed jobs whose time has come.\n" +
		"Use --once from cron or another external scheduler; without it the worker ticks on its own.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.Init(cfg.Logging)

		db, err := database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		runner := jobs.NewRunner(db, jobs.Config{
			BatchSize:   cfg.Jobs.BatchSize,
			MaxAttempts: cfg.Jobs.MaxAttempts,
		}, nil)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if once {
			report, err := runner.RunDue(ctx)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(report)
		}

		every := interval
		if every <= 0 {
			every = cfg.Jobs.Interval
		}
		workers.RunJobs(ctx, runner, every)
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "configs/config.yaml", "path to config file")
	rootCmd.Flags().BoolVar(&once, "once", false, "run a single batch and exit")
	rootCmd.Flags().DurationVar(&interval, "interval", 0, "tick interval (defaults to jobs.interval)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("worker failed")
		os.Exit(1)
	}
}
