package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/username/fintrack/backend/src/database"
	"github.com/username/fintrack/backend/src/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

const walletColumns = `id, owner_id, name, currency, color, icon, balance, version, created_at, updated_at`

func scanWallet(row rowScanner) (*models.Wallet, error) {
	var w models.Wallet
	var balance, createdAt, updatedAt string
	if err := row.Scan(&w.ID, &w.OwnerID, &w.Name, &w.Currency, &w.Color, &w.Icon, &balance, &w.Version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("invalid stored balance for wallet %s: %w", w.ID, err)
	}
	if w.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if w.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func getWallet(ctx context.Context, q querier, ownerID, id string) (*models.Wallet, error) {
	row := q.QueryRowContext(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = ? AND owner_id = ?`, id, ownerID)
	w, err := scanWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "wallet", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet %s: %w", id, err)
	}
	return w, nil
}

func listWallets(ctx context.Context, q querier, ownerID string) ([]models.Wallet, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+walletColumns+` FROM wallets WHERE owner_id = ? ORDER BY created_at, name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallets: %w", err)
	}
	defer rows.Close()

	wallets := []models.Wallet{}
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, *w)
	}
	return wallets, rows.Err()
}

// setWalletBalance writes a new balance if the wallet still has the version
// it was read with.
func setWalletBalance(ctx context.Context, q querier, w *models.Wallet, balance decimal.Decimal, now string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE wallets SET balance = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		balance.String(), now, w.ID, w.Version)
	if err != nil {
		return fmt.Errorf("failed to update balance of wallet %s: %w", w.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update balance of wallet %s: %w", w.ID, err)
	}
	if n == 0 {
		return errStaleWallet
	}
	w.Balance = balance
	w.Version++
	return nil
}

// applyDelta adds delta to the stored balance of a wallet.
func applyDelta(ctx context.Context, q querier, ownerID, walletID string, delta decimal.Decimal, now string) error {
	if walletID == "" || delta.IsZero() {
		return nil
	}
	w, err := getWallet(ctx, q, ownerID, walletID)
	if err != nil {
		return err
	}
	return setWalletBalance(ctx, q, w, w.Balance.Add(delta), now)
}

// computeBalance sums the signed amounts of the active transactions of a
// wallet.
func computeBalance(ctx context.Context, q querier, walletID string) (decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx, `SELECT amount, type FROM transactions WHERE wallet_id = ? AND deleted_at IS NULL`, walletID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions of wallet %s: %w", walletID, err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var amount, typ string
		if err := rows.Scan(&amount, &typ); err != nil {
			return decimal.Zero, err
		}
		v, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid stored amount %q: %w", amount, err)
		}
		sum = sum.Add(models.Transaction{Amount: v, Type: models.TransactionType(typ)}.SignedAmount())
	}
	return sum, rows.Err()
}

// recomputeWallet replaces the stored balance with the computed one and
// returns the balance held before.
func recomputeWallet(ctx context.Context, q querier, ownerID, walletID, now string) (stored, computed decimal.Decimal, err error) {
	w, err := getWallet(ctx, q, ownerID, walletID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	computed, err = computeBalance(ctx, q, walletID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	stored = w.Balance
	if stored.Equal(computed) {
		return stored, computed, nil
	}
	return stored, computed, setWalletBalance(ctx, q, w, computed, now)
}

const transactionColumns = `id, owner_id, wallet_id, amount, currency, type, category, date, description,
	deleted_at, balance_reversed, transfer_id, recurring_id, source, created_at, updated_at`

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	var walletID, deletedAt, transferID, recurringID sql.NullString
	var amount, typ, date, createdAt, updatedAt string
	var reversed bool
	err := row.Scan(&t.ID, &t.OwnerID, &walletID, &amount, &t.Currency, &typ, &t.Category, &date, &t.Description,
		&deletedAt, &reversed, &transferID, &recurringID, &t.Source, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.WalletID = walletID.String
	t.TransferID = transferID.String
	t.RecurringID = recurringID.String
	t.Type = models.TransactionType(typ)
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid stored amount for transaction %s: %w", t.ID, err)
	}
	if t.Date, err = database.ParseTime(date); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	at, err := database.ParseNullTime(deletedAt)
	if err != nil {
		return nil, err
	}
	t.State = models.ActiveState()
	if at != nil {
		t.State = models.DeletedState(*at, reversed)
	}
	return &t, nil
}

func getTransaction(ctx context.Context, q querier, ownerID, id string) (*models.Transaction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "transaction", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %s: %w", id, err)
	}
	return t, nil
}

func insertTransaction(ctx context.Context, q querier, t *models.Transaction) error {
	var deletedAt any
	if at, ok := t.State.DeletedAt(); ok {
		deletedAt = database.FormatTime(at)
	}
	_, err := q.ExecContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, database.NullString(t.WalletID), t.Amount.String(), t.Currency, string(t.Type),
		t.Category, database.FormatTime(t.Date), t.Description, deletedAt, t.State.Reversed(),
		database.NullString(t.TransferID), database.NullString(t.RecurringID), t.Source,
		database.FormatTime(t.CreatedAt), database.FormatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// saveState persists a state transition of a transaction.
func saveState(ctx context.Context, q querier, t *models.Transaction, state models.TxnState, now string) error {
	var deletedAt any
	if at, ok := state.DeletedAt(); ok {
		deletedAt = database.FormatTime(at)
	}
	_, err := q.ExecContext(ctx, `UPDATE transactions SET deleted_at = ?, balance_reversed = ?, updated_at = ? WHERE id = ?`,
		deletedAt, state.Reversed(), now, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", t.ID, err)
	}
	t.State = state
	return nil
}

// TransactionFilter narrows ListTransactions. A zero Limit means no limit.
type TransactionFilter struct {
	WalletID       string
	IncludeDeleted bool
	Limit          int
}

func listTransactions(ctx context.Context, q querier, ownerID string, f TransactionFilter) ([]models.Transaction, error) {
	var where []string
	args := []any{ownerID}
	where = append(where, "owner_id = ?")
	if f.WalletID != "" {
		where = append(where, "wallet_id = ?")
		args = append(args, f.WalletID)
	}
	if !f.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY date DESC, created_at DESC, id`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txns := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}
