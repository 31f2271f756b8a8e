package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
	// TypeTransfer is accepted when reading older rows. New transfer legs are
	// stored as an expense/income pair linked through TransferID.
	TypeTransfer TransactionType = "transfer"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

// Transaction sources.
const (
	SourceManual    = "manual"
	SourceImport    = "import"
	SourceTransfer  = "transfer"
	SourceRecurring = "recurring"
	SourceOpening   = "opening"
)

const (
	TransferCategory       = "Transfer"
	InitialBalanceCategory = "Initial Balance"
)

var (
	ErrAlreadyDeleted = errors.New("transaction is already deleted")
	ErrNotDeleted     = errors.New("transaction is not deleted")
)

// TxnState is either Active or Deleted. Delete and Restore are the only
// transitions; a deleted state remembers whether the balance effect of the
// transaction was reversed so that a restore re-applies exactly that.
type TxnState struct {
	deletedAt *time.Time
	reversed  bool
}

func ActiveState() TxnState { return TxnState{} }

// DeletedState rebuilds a tombstone read from storage.
func DeletedState(at time.Time, reversed bool) TxnState {
	return TxnState{deletedAt: &at, reversed: reversed}
}

func (s TxnState) IsDeleted() bool { return s.deletedAt != nil }

func (s TxnState) DeletedAt() (time.Time, bool) {
	if s.deletedAt == nil {
		return time.Time{}, false
	}
	return *s.deletedAt, true
}

// Reversed reports whether deleting undid the wallet balance effect.
func (s TxnState) Reversed() bool { return s.deletedAt != nil && s.reversed }

func (s TxnState) Delete(at time.Time, reversed bool) (TxnState, error) {
	if s.IsDeleted() {
		return s, ErrAlreadyDeleted
	}
	return DeletedState(at, reversed), nil
}

func (s TxnState) Restore() (TxnState, error) {
	if !s.IsDeleted() {
		return s, ErrNotDeleted
	}
	return ActiveState(), nil
}

func (s TxnState) MarshalJSON() ([]byte, error) {
	if s.deletedAt == nil {
		return json.Marshal(map[string]any{"status": "active"})
	}
	return json.Marshal(map[string]any{
		"status":    "deleted",
		"deletedAt": s.deletedAt.UTC().Format(time.RFC3339),
		"reversed":  s.reversed,
	})
}

type Transaction struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"ownerId"`
	WalletID    string          `json:"walletId,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	State       TxnState        `json:"state"`
	TransferID  string          `json:"transferId,omitempty"`
	RecurringID string          `json:"recurringId,omitempty"`
	Source      string          `json:"source"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (t Transaction) IsTransfer() bool { return t.TransferID != "" }

// SignedAmount is the effect of the transaction on its wallet balance:
// +amount for income, -amount for expense.
func (t Transaction) SignedAmount() decimal.Decimal {
	switch t.Type {
	case TypeIncome:
		return t.Amount
	case TypeExpense:
		return t.Amount.Neg()
	default:
		return decimal.Zero
	}
}
