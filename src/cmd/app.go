package cmd

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/username/fintrack/backend/src/config"
	"github.com/username/fintrack/backend/src/database"
	"github.com/username/fintrack/backend/src/parsers"
	"github.com/username/fintrack/backend/src/processors"
	"github.com/username/fintrack/backend/src/security"
	"github.com/username/fintrack/backend/src/services"
)

type app struct {
	auth      *security.AuthService
	ledger    *services.Ledger
	transfers *services.TransferCoordinator
	recurring *services.RecurringScheduler
	imports   *services.StatementImporter
}

// newApp opens the database and wires the services from config.Cfg.
func newApp() (*app, error) {
	cfg := config.Cfg
	if err := database.InitDB(cfg.DatabasePath); err != nil {
		return nil, err
	}

	walletCache := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	previewCache := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)

	ledger := services.NewLedger(database.DB, services.NewSQLCategoryRegistry(database.DB), walletCache)
	ingestor := parsers.NewStatementIngestor(
		processors.NewCategoryClassifierFromConfig(cfg.CategoryRulesPath),
		parsers.IngestOptions{MaxRows: cfg.MaxImportRows, DefaultCurrency: cfg.DefaultCurrency, Now: time.Now},
	)

	return &app{
		auth:      security.NewAuthService(cfg.JWTSecret, cfg.AccessTokenExpiry),
		ledger:    ledger,
		transfers: services.NewTransferCoordinator(ledger),
		recurring: services.NewRecurringScheduler(ledger, cfg.BackfillMaxOccurrences, cfg.BackfillTimeout),
		imports:   services.NewStatementImporter(ingestor, ledger, previewCache, cfg.ImportTimeout),
	}, nil
}

func (a *app) close() {
	if database.DB != nil {
		database.DB.Close()
	}
}
