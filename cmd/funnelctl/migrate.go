package main

import (
	"context"
	"fmt"

	"funnel/internal/platform/config"
	"funnel/internal/platform/database"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err := database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		applied, err := database.Migrate(context.Background(), db)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(applied) == 0 {
			fmt.Fprintln(out, "Database is up to date")
			return nil
		}
		for _, v := range applied {
			fmt.Fprintf(out, "Applied %s\n", v)
		}
		return nil
	},
}
