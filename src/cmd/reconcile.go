package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	reconcileOwner  string
	reconcileWallet string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute a wallet balance from its transactions",
	RunE:  runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileOwner, "owner", "", "owner id")
	reconcileCmd.Flags().StringVar(&reconcileWallet, "wallet", "", "wallet id")
	reconcileCmd.MarkFlagRequired("owner")
	reconcileCmd.MarkFlagRequired("wallet")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.ledger.ReconcileWallet(context.Background(), reconcileOwner, reconcileWallet)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Stored:   %s\n", report.Stored)
	fmt.Fprintf(out, "Computed: %s\n", report.Computed)
	if report.Fixed {
		fmt.Fprintf(out, "Drift of %s corrected\n", report.Drift)
	} else {
		fmt.Fprintln(out, "Balance is consistent")
	}
	return nil
}
