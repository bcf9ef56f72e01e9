package main

import (
	"fmt"

	"funnel/internal/platform/auth"
	"funnel/internal/platform/config"

	"github.com/spf13/cobra"
)

var (
	tokenUser    string
	tokenCompany string
	tokenRole    string
)

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id placed in the token")
	tokenCmd.Flags().StringVar(&tokenCompany, "company", "", "company id the token is scoped to")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "owner", "role: owner, admin or viewer")
	tokenCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for the configuration API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		token, err := auth.NewTokenService(cfg.JWT).GenerateAccessToken(tokenUser, tokenCompany, tokenRole)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
