package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"ownerId"`
	Name      string          `json:"name"`
	Currency  string          `json:"currency"`
	Color     string          `json:"color,omitempty"`
	Icon      string          `json:"icon,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ReconcileReport describes the outcome of recomputing a wallet balance
// from its active transactions.
type ReconcileReport struct {
	WalletID string          `json:"walletId"`
	Stored   decimal.Decimal `json:"stored"`
	Computed decimal.Decimal `json:"computed"`
	Drift    decimal.Decimal `json:"drift"`
	Fixed    bool            `json:"fixed"`
}
