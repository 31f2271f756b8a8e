package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/models"
)

type TransferInput struct {
	FromWalletID string          `json:"fromWalletId"`
	ToWalletID   string          `json:"toWalletId"`
	Amount       decimal.Decimal `json:"amount"`
	Date         time.Time       `json:"date"`
	Notes        string          `json:"notes"`
}

// TransferResult holds both legs of a transfer.
type TransferResult struct {
	ExpenseTxn models.Transaction `json:"expenseTxn"`
	IncomeTxn  models.Transaction `json:"incomeTxn"`
}

// TransferCoordinator moves money between two wallets of the same owner as
// a linked expense/income pair.
type TransferCoordinator struct {
	ledger *Ledger
}

func NewTransferCoordinator(ledger *Ledger) *TransferCoordinator {
	return &TransferCoordinator{ledger: ledger}
}

func (c *TransferCoordinator) CreateTransfer(ctx context.Context, ownerID string, in TransferInput) (*TransferResult, error) {
	l := c.ledger
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if in.FromWalletID == "" || in.ToWalletID == "" {
		return nil, invalid("walletId", "both source and destination wallets are required")
	}
	if in.FromWalletID == in.ToWalletID {
		return nil, invalid("toWalletId", "source and destination wallets must differ")
	}
	if !in.Amount.IsPositive() {
		return nil, invalid("amount", "amount must be greater than zero")
	}

	var result *TransferResult
	err := l.inTx(ctx, "create transfer", func(tx *sql.Tx) error {
		from, err := getWallet(ctx, tx, ownerID, in.FromWalletID)
		if err != nil {
			return err
		}
		to, err := getWallet(ctx, tx, ownerID, in.ToWalletID)
		if err != nil {
			return err
		}
		if from.Currency != to.Currency {
			return invalid("toWalletId", "cannot transfer between %s and %s wallets", from.Currency, to.Currency)
		}
		if from.Balance.LessThan(in.Amount) {
			return &InsufficientFundsError{WalletID: from.ID, Balance: from.Balance, Requested: in.Amount}
		}

		now, nowStr := l.timestamp()
		date := in.Date
		if date.IsZero() {
			date = models.DayOf(now)
		}
		notes := strings.TrimSpace(in.Notes)
		out := models.Transaction{
			ID: l.newID(), OwnerID: ownerID, WalletID: from.ID, Amount: in.Amount, Currency: from.Currency,
			Type: models.TypeExpense, Category: models.TransferCategory, Date: date.UTC(),
			Description: transferDescription(notes, "Transfer to "+to.Name), State: models.ActiveState(),
			Source: models.SourceTransfer, CreatedAt: now, UpdatedAt: now,
		}
		inc := out
		inc.ID = l.newID()
		inc.WalletID = to.ID
		inc.Type = models.TypeIncome
		inc.Description = transferDescription(notes, "Transfer from "+from.Name)
		out.TransferID, inc.TransferID = inc.ID, out.ID

		if err := l.insertTxn(ctx, tx, &out); err != nil {
			return err
		}
		if err := l.insertTxn(ctx, tx, &inc); err != nil {
			return err
		}
		if err := setWalletBalance(ctx, tx, from, from.Balance.Sub(in.Amount), nowStr); err != nil {
			return err
		}
		if err := setWalletBalance(ctx, tx, to, to.Balance.Add(in.Amount), nowStr); err != nil {
			return err
		}
		result = &TransferResult{ExpenseTxn: out, IncomeTxn: inc}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.InvalidateUserCache(ownerID)
	logger.FromContext(ctx).Info("Transfer created", "ownerID", ownerID,
		"from", in.FromWalletID, "to", in.ToWalletID, "amount", in.Amount.String())
	return result, nil
}

func transferDescription(notes, fallback string) string {
	if notes != "" {
		return notes
	}
	return fallback
}

// DeleteTransfer tombstones both legs of the transfer containing txnID and
// reverses both balance movements.
func (c *TransferCoordinator) DeleteTransfer(ctx context.Context, ownerID, txnID string) error {
	return c.pairOp(ctx, ownerID, txnID, "delete transfer", c.ledger.deletePair)
}

// RestoreTransfer undoes DeleteTransfer.
func (c *TransferCoordinator) RestoreTransfer(ctx context.Context, ownerID, txnID string) error {
	return c.pairOp(ctx, ownerID, txnID, "restore transfer", c.ledger.restorePair)
}

func (c *TransferCoordinator) pairOp(ctx context.Context, ownerID, txnID, op string,
	fn func(context.Context, *sql.Tx, string, *models.Transaction) error) error {
	l := c.ledger
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	err := l.inTx(ctx, op, func(tx *sql.Tx) error {
		t, err := getTransaction(ctx, tx, ownerID, txnID)
		if err != nil {
			return err
		}
		if !t.IsTransfer() {
			return invalid("id", "transaction %s is not part of a transfer", txnID)
		}
		return fn(ctx, tx, ownerID, t)
	})
	if err != nil {
		return err
	}
	l.InvalidateUserCache(ownerID)
	logger.FromContext(ctx).Info("Transfer updated", "op", op, "ownerID", ownerID, "transactionID", txnID)
	return nil
}

// partnerOf loads the other leg of a transfer and checks the link points
// back.
func partnerOf(ctx context.Context, q querier, ownerID string, t *models.Transaction) (*models.Transaction, error) {
	p, err := getTransaction(ctx, q, ownerID, t.TransferID)
	if err != nil {
		return nil, conflict("transfer %s is missing its partner transaction", t.ID)
	}
	if p.TransferID != t.ID {
		return nil, conflict("transfer partner %s does not link back to %s", p.ID, t.ID)
	}
	return p, nil
}

func (l *Ledger) deletePair(ctx context.Context, tx *sql.Tx, ownerID string, t *models.Transaction) error {
	p, err := partnerOf(ctx, tx, ownerID, t)
	if err != nil {
		return err
	}
	if t.State.IsDeleted() || p.State.IsDeleted() {
		return conflict("transfer %s is already deleted", t.ID)
	}
	now, nowStr := l.timestamp()
	for _, leg := range []*models.Transaction{t, p} {
		state, err := leg.State.Delete(now, leg.WalletID != "")
		if err != nil {
			return conflict("transfer %s is already deleted", t.ID)
		}
		if err := saveState(ctx, tx, leg, state, nowStr); err != nil {
			return err
		}
		if state.Reversed() {
			if err := applyDelta(ctx, tx, ownerID, leg.WalletID, leg.SignedAmount().Neg(), nowStr); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Ledger) restorePair(ctx context.Context, tx *sql.Tx, ownerID string, t *models.Transaction) error {
	p, err := partnerOf(ctx, tx, ownerID, t)
	if err != nil {
		return err
	}
	if !t.State.IsDeleted() || !p.State.IsDeleted() {
		return conflict("transfer %s is not deleted", t.ID)
	}
	_, nowStr := l.timestamp()
	for _, leg := range []*models.Transaction{t, p} {
		reversed := leg.State.Reversed()
		state, err := leg.State.Restore()
		if err != nil {
			return conflict("transfer %s is not deleted", t.ID)
		}
		if err := saveState(ctx, tx, leg, state, nowStr); err != nil {
			return err
		}
		if reversed {
			if err := applyDelta(ctx, tx, ownerID, leg.WalletID, leg.SignedAmount(), nowStr); err != nil {
				return err
			}
		}
	}
	return nil
}
