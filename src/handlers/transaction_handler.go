package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/services"
	"github.com/username/fintrack/backend/src/utils"
)

type TransactionHandler struct {
	ledger services.LedgerService
}

func NewTransactionHandler(ledger services.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

// HandleListTransactions accepts walletId, includeDeleted and limit query
// parameters.
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := services.TransactionFilter{
		WalletID:       q.Get("walletId"),
		IncludeDeleted: q.Get("includeDeleted") == "true",
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			utils.SendJSONError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	txns, err := h.ledger.ListTransactions(r.Context(), ownerID, filter)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	utils.SendJSON(w, txns, http.StatusOK)
}

func (h *TransactionHandler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var in services.TransactionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	txn, err := h.ledger.CreateTransaction(r.Context(), ownerID, in)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, txn, http.StatusCreated)
}

type bulkCreateRequest struct {
	WalletID     string                          `json:"walletId"`
	Transactions []models.ParsedTransactionDraft `json:"transactions"`
}

func (h *TransactionHandler) HandleBulkCreate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var req bulkCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.ledger.BulkCreateTransactions(r.Context(), ownerID, req.WalletID, req.Transactions)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, res, http.StatusCreated)
}

func (h *TransactionHandler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	if err := h.ledger.DeleteTransaction(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		sendServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TransactionHandler) HandleRestoreTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.ledger.RestoreTransaction(r.Context(), ownerID, id); err != nil {
		sendServiceError(w, r, err)
		return
	}
	txn, err := h.ledger.GetTransaction(r.Context(), ownerID, id)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, txn, http.StatusOK)
}
