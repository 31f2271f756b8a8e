package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParsedTransactionDraft is a statement row ready for review. It is never
// stored; the user may edit it before a bulk create.
type ParsedTransactionDraft struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category,omitempty"`
	Currency    string          `json:"currency"`
}
