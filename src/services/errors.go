package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinels matched with errors.Is at the HTTP and CLI boundaries.
var (
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrExpiredSchedule       = errors.New("recurring schedule has expired")
	ErrWalletHasTransactions = errors.New("wallet has transactions")
	ErrParsingFailed         = errors.New("failed to parse statement")
)

// errStaleWallet aborts a unit of work whose wallet row changed after it
// was read. The unit is retried from the start.
var errStaleWallet = errors.New("wallet was modified concurrently")

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError is returned for entities that do not exist and for entities
// owned by someone else.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func conflict(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

type InsufficientFundsError struct {
	WalletID  string
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("wallet %s has balance %s, %s requested", e.WalletID, e.Balance, e.Requested)
}

func (e *InsufficientFundsError) Is(target error) bool { return target == ErrInsufficientFunds }

type ExpiredScheduleError struct {
	TemplateID string
	EndDate    time.Time
}

func (e *ExpiredScheduleError) Error() string {
	return fmt.Sprintf("recurring transaction %s ended on %s", e.TemplateID, e.EndDate.Format("2006-01-02"))
}

func (e *ExpiredScheduleError) Is(target error) bool { return target == ErrExpiredSchedule }

// WalletHasTransactionsError asks the caller to choose between reassigning
// and deleting the wallet's transactions.
type WalletHasTransactionsError struct {
	WalletID         string
	TransactionCount int
}

func (e *WalletHasTransactionsError) Error() string {
	return fmt.Sprintf("wallet %s has %d transactions; reassign or delete them first", e.WalletID, e.TransactionCount)
}

func (e *WalletHasTransactionsError) Is(target error) bool {
	return target == ErrWalletHasTransactions || target == ErrConflict
}

func requireOwner(ownerID string) error {
	if ownerID == "" {
		return &ValidationError{Field: "ownerId", Reason: "an authenticated owner is required"}
	}
	return nil
}
