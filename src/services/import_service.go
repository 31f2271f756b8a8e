package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/parsers"
)

const (
	ckImportPreview = "import_preview_%s_%s"

	DefaultImportTimeout = 30 * time.Second
)

// ImportPreview is an ingested statement kept for review before commit.
type ImportPreview struct {
	ID string `json:"previewId"`
	*parsers.IngestResult
}

// CommitRequest stores reviewed drafts. When Transactions is empty the
// drafts of the cached preview are used unchanged.
type CommitRequest struct {
	PreviewID    string                          `json:"previewId"`
	WalletID     string                          `json:"walletId"`
	Transactions []models.ParsedTransactionDraft `json:"transactions"`
}

// StatementImporter runs statement ingestion and hands reviewed drafts to
// the ledger.
type StatementImporter struct {
	parser       parsers.Parser
	ledger       *Ledger
	previewCache *cache.Cache
	timeout      time.Duration
}

func NewStatementImporter(parser parsers.Parser, ledger *Ledger, previewCache *cache.Cache, timeout time.Duration) *StatementImporter {
	if previewCache == nil {
		previewCache = cache.New(DefaultCacheExpiration, CacheCleanupInterval)
	}
	if timeout <= 0 {
		timeout = DefaultImportTimeout
	}
	return &StatementImporter{parser: parser, ledger: ledger, previewCache: previewCache, timeout: timeout}
}

func (s *StatementImporter) Preview(ctx context.Context, ownerID string, file io.Reader) (*ImportPreview, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.parser.Ingest(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}

	preview := &ImportPreview{ID: uuid.NewString(), IngestResult: result}
	if len(result.Transactions) > 0 {
		s.previewCache.Set(fmt.Sprintf(ckImportPreview, ownerID, preview.ID), result.Transactions, cache.DefaultExpiration)
	}
	logger.FromContext(ctx).Info("Statement preview ready", "ownerID", ownerID, "previewID", preview.ID,
		"bank", result.BankCode, "transactions", len(result.Transactions), "duration", time.Since(start))
	return preview, nil
}

func (s *StatementImporter) Commit(ctx context.Context, ownerID string, req CommitRequest) (*BulkCreateResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	drafts := req.Transactions
	key := ""
	if req.PreviewID != "" {
		key = fmt.Sprintf(ckImportPreview, ownerID, req.PreviewID)
	}
	if len(drafts) == 0 {
		if key == "" {
			return nil, invalid("transactions", "either transactions or a previewId is required")
		}
		cached, found := s.previewCache.Get(key)
		if !found {
			return nil, &NotFoundError{Entity: "import preview", ID: req.PreviewID}
		}
		drafts = cached.([]models.ParsedTransactionDraft)
	}

	res, err := s.ledger.BulkCreateTransactions(ctx, ownerID, req.WalletID, drafts)
	if err != nil {
		return nil, err
	}
	if key != "" {
		s.previewCache.Delete(key)
	}
	return res, nil
}
