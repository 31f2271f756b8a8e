package parsers

import (
	"context"
	"io"

	"github.com/username/fintrack/backend/src/models"
)

// Parser turns a statement file into transaction drafts.
type Parser interface {
	Ingest(ctx context.Context, file io.Reader) (*IngestResult, error)
}

// IngestResult is the reviewable outcome of a statement import. Warnings
// are rows skipped for missing or invalid values; Errors are rows (or the
// whole file) that could not be read at all.
type IngestResult struct {
	Transactions []models.ParsedTransactionDraft `json:"transactions"`
	Errors       []string                        `json:"errors"`
	Warnings     []string                        `json:"warnings"`
	BankDetected string                          `json:"bankDetected,omitempty"`
	BankCode     string                          `json:"bankCode"`
	RowsRead     int                             `json:"rowsRead"`
	Truncated    bool                            `json:"truncated"`
}

func newIngestResult() *IngestResult {
	return &IngestResult{
		Transactions: []models.ParsedTransactionDraft{},
		Errors:       []string{},
		Warnings:     []string{},
		BankCode:     CustomBankCode,
	}
}
