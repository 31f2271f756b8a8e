package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/username/fintrack/backend/src/services"
)

var (
	importFile   string
	importOwner  string
	importWallet string
	importCommit bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Parse a bank statement CSV and optionally store it",
	Long: `Parse a bank statement CSV export and print the drafts found.
With --commit the drafts are stored in the given wallet.

Example:
  fintrack import --owner user-1 --file bca.csv
  fintrack import --owner user-1 --file bca.csv --wallet <id> --commit`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "statement CSV file")
	importCmd.Flags().StringVar(&importOwner, "owner", "", "owner id")
	importCmd.Flags().StringVar(&importWallet, "wallet", "", "wallet to store the transactions in")
	importCmd.Flags().BoolVar(&importCommit, "commit", false, "store the parsed transactions")
	importCmd.MarkFlagRequired("file")
	importCmd.MarkFlagRequired("owner")
}

func runImport(cmd *cobra.Command, args []string) error {
	if importCommit && importWallet == "" {
		return errors.New("--wallet is required with --commit")
	}

	f, err := os.Open(importFile)
	if err != nil {
		return fmt.Errorf("failed to open statement: %w", err)
	}
	defer f.Close()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	ctx := context.Background()

	preview, err := a.imports.Preview(ctx, importOwner, f)
	if err != nil {
		return fmt.Errorf("failed to parse statement: %w", err)
	}

	out := cmd.OutOrStdout()
	bank := preview.BankDetected
	if bank == "" {
		bank = "(custom format)"
	}
	fmt.Fprintf(out, "\n=== Statement %s ===\n", importFile)
	fmt.Fprintf(out, "Bank:         %s\n", bank)
	fmt.Fprintf(out, "Rows read:    %d\n", preview.RowsRead)
	fmt.Fprintf(out, "Transactions: %d\n", len(preview.Transactions))
	for _, w := range preview.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}
	for _, e := range preview.Errors {
		fmt.Fprintf(out, "  error:   %s\n", e)
	}
	for _, d := range preview.Transactions {
		fmt.Fprintf(out, "  %s  %-7s %15s %s  %-40s %s\n",
			d.Date.Format("2006-01-02"), d.Type, d.Amount.StringFixed(2), d.Currency, d.Description, d.Category)
	}

	if !importCommit {
		fmt.Fprintln(out)
		return nil
	}
	res, err := a.imports.Commit(ctx, importOwner, services.CommitRequest{PreviewID: preview.ID, WalletID: importWallet})
	if err != nil {
		return fmt.Errorf("failed to store transactions: %w", err)
	}
	fmt.Fprintf(out, "\nStored %d transactions in wallet %s\n\n", res.Created, importWallet)
	return nil
}
