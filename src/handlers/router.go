package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/username/fintrack/backend/src/security"
	"github.com/username/fintrack/backend/src/services"
	"github.com/username/fintrack/backend/src/utils"
)

// RouterConfig carries the services and HTTP settings the API is built from.
type RouterConfig struct {
	Auth      *security.AuthService
	Ledger    services.LedgerService
	Transfers services.TransferService
	Recurring services.RecurringService
	Imports   services.ImportService

	MaxUploadSize  int64
	RateLimitRPS   int
	RateLimitBurst int
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	wallets := NewWalletHandler(cfg.Ledger)
	txns := NewTransactionHandler(cfg.Ledger)
	transfers := NewTransferHandler(cfg.Transfers)
	recurring := NewRecurringHandler(cfg.Recurring)
	imports := NewImportHandler(cfg.Imports, cfg.MaxUploadSize)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS(cfg.AllowedOrigins))
	if cfg.RateLimitRPS > 0 {
		r.Use(RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		utils.SendJSON(w, map[string]string{"message": "fintrack ledger is running"}, http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Auth))

		r.Route("/wallets", func(r chi.Router) {
			r.Get("/", wallets.HandleListWallets)
			r.Post("/", wallets.HandleCreateWallet)
			r.Get("/{id}", wallets.HandleGetWallet)
			r.Patch("/{id}", wallets.HandleUpdateWallet)
			r.Delete("/{id}", wallets.HandleDeleteWallet)
			r.Post("/{id}/reconcile", wallets.HandleReconcileWallet)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", txns.HandleListTransactions)
			r.Post("/", txns.HandleCreateTransaction)
			r.Post("/bulk", txns.HandleBulkCreate)
			r.Delete("/{id}", txns.HandleDeleteTransaction)
			r.Post("/{id}/restore", txns.HandleRestoreTransaction)
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", transfers.HandleCreateTransfer)
			r.Delete("/{id}", transfers.HandleDeleteTransfer)
			r.Post("/{id}/restore", transfers.HandleRestoreTransfer)
		})

		r.Route("/recurring", func(r chi.Router) {
			r.Get("/", recurring.HandleListRecurring)
			r.Post("/", recurring.HandleCreateRecurring)
			r.Post("/generate", recurring.HandleGenerate)
			r.Get("/{id}", recurring.HandleGetRecurring)
			r.Patch("/{id}", recurring.HandleUpdateRecurring)
			r.Delete("/{id}", recurring.HandleDeleteRecurring)
			r.Post("/{id}/confirm", recurring.HandleConfirmRecurring)
		})

		r.Route("/imports", func(r chi.Router) {
			r.Post("/preview", imports.HandlePreview)
			r.Post("/commit", imports.HandleCommit)
		})
	})
	return r
}
