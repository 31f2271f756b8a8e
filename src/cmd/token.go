package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/username/fintrack/backend/src/config"
	"github.com/username/fintrack/backend/src/security"
)

var tokenOwner string

// tokenCmd issues API tokens; accounts live outside the ledger.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API access token for an owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth := security.NewAuthService(config.Cfg.JWTSecret, config.Cfg.AccessTokenExpiry)
		token, err := auth.GenerateToken(tokenOwner)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenOwner, "owner", "", "owner id")
	tokenCmd.MarkFlagRequired("owner")
}
