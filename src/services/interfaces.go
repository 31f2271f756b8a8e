package services

import (
	"context"
	"io"

	"github.com/username/fintrack/backend/src/models"
)

// LedgerService owns wallets and non-transfer transactions.
type LedgerService interface {
	CreateWallet(ctx context.Context, ownerID string, in WalletInput) (*models.Wallet, error)
	UpdateWallet(ctx context.Context, ownerID, id string, upd WalletUpdate) (*models.Wallet, error)
	GetWallet(ctx context.Context, ownerID, id string) (*models.Wallet, error)
	ListWallets(ctx context.Context, ownerID string) ([]models.Wallet, error)
	DeleteWallet(ctx context.Context, ownerID, id string, opts DeleteWalletOptions) error
	ReconcileWallet(ctx context.Context, ownerID, id string) (*models.ReconcileReport, error)

	CreateTransaction(ctx context.Context, ownerID string, in TransactionInput) (*models.Transaction, error)
	GetTransaction(ctx context.Context, ownerID, id string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, ownerID string, f TransactionFilter) ([]models.Transaction, error)
	DeleteTransaction(ctx context.Context, ownerID, id string) error
	RestoreTransaction(ctx context.Context, ownerID, id string) error
	BulkCreateTransactions(ctx context.Context, ownerID, walletID string, drafts []models.ParsedTransactionDraft) (*BulkCreateResult, error)
}

type TransferService interface {
	CreateTransfer(ctx context.Context, ownerID string, in TransferInput) (*TransferResult, error)
	DeleteTransfer(ctx context.Context, ownerID, txnID string) error
	RestoreTransfer(ctx context.Context, ownerID, txnID string) error
}

type RecurringService interface {
	CreateRecurring(ctx context.Context, ownerID string, in RecurringInput) (*models.RecurringTemplate, error)
	UpdateRecurring(ctx context.Context, ownerID, id string, upd RecurringUpdate) (*models.RecurringTemplate, error)
	DeleteRecurring(ctx context.Context, ownerID, id string) error
	GetRecurring(ctx context.Context, ownerID, id string) (*models.RecurringTemplate, error)
	ListRecurring(ctx context.Context, ownerID string) ([]models.RecurringTemplate, error)
	ConfirmRecurring(ctx context.Context, ownerID, id string) (*ConfirmResult, error)
	GenerateRecurringTransactions(ctx context.Context, ownerID string) (*BackfillReport, error)
	GenerateAll(ctx context.Context) (*BackfillReport, error)
}

type ImportService interface {
	Preview(ctx context.Context, ownerID string, file io.Reader) (*ImportPreview, error)
	Commit(ctx context.Context, ownerID string, req CommitRequest) (*BulkCreateResult, error)
}

var (
	_ LedgerService    = (*Ledger)(nil)
	_ TransferService  = (*TransferCoordinator)(nil)
	_ RecurringService = (*RecurringScheduler)(nil)
	_ ImportService    = (*StatementImporter)(nil)
)
