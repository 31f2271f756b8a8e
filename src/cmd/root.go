// Package cmd provides the fintrack command line.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/username/fintrack/backend/src/config"
	"github.com/username/fintrack/backend/src/logger"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "fintrack",
	Short: "Personal finance ledger",
	Long: `fintrack keeps wallets, transactions, transfers and recurring
schedules in a local SQLite ledger and serves them over a JSON API.

Example:
  fintrack serve
  fintrack import --owner user-1 --file bca.csv --wallet <id> --commit
  fintrack backfill`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadConfig()
		level := config.Cfg.LogLevel
		if debug {
			level = "debug"
		}
		logger.InitLogger(level)
	},
}

// Execute runs the root command. It is called by main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(tokenCmd)
}
