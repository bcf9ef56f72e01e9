package main

import (
	"fmt"

	"funnel/internal/platform/auth"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(hashKeyCmd)
}

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key <key>",
	Short: "Print the bcrypt hash to put in jobs.invoker_key_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashInvokerKey(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}
