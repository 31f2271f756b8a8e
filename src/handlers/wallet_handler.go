package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/services"
	"github.com/username/fintrack/backend/src/utils"
)

type WalletHandler struct {
	ledger services.LedgerService
}

func NewWalletHandler(ledger services.LedgerService) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

func (h *WalletHandler) HandleListWallets(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	log := logger.FromContext(r.Context())

	wallets, err := h.ledger.ListWallets(r.Context(), ownerID)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	currentETag, etagErr := utils.GenerateETag(wallets)
	if etagErr != nil {
		log.Error("Failed to generate ETag for wallets", "error", etagErr)
	}
	w.Header().Set("Cache-Control", "no-cache, private")
	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		for _, cETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				log.Debug("ETag match for wallets", "etag", currentETag)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}
	utils.SendJSON(w, wallets, http.StatusOK)
}

func (h *WalletHandler) HandleCreateWallet(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var in services.WalletInput
	if !decodeJSON(w, r, &in) {
		return
	}
	wallet, err := h.ledger.CreateWallet(r.Context(), ownerID, in)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, wallet, http.StatusCreated)
}

func (h *WalletHandler) HandleGetWallet(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	wallet, err := h.ledger.GetWallet(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, wallet, http.StatusOK)
}

func (h *WalletHandler) HandleUpdateWallet(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var upd services.WalletUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	wallet, err := h.ledger.UpdateWallet(r.Context(), ownerID, chi.URLParam(r, "id"), upd)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, wallet, http.StatusOK)
}

// HandleDeleteWallet reads its options from the query string:
// ?reassignTo=<walletId> or ?deleteTransactions=true.
func (h *WalletHandler) HandleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	opts := services.DeleteWalletOptions{
		ReassignTo:         q.Get("reassignTo"),
		DeleteTransactions: q.Get("deleteTransactions") == "true",
	}
	if err := h.ledger.DeleteWallet(r.Context(), ownerID, chi.URLParam(r, "id"), opts); err != nil {
		sendServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WalletHandler) HandleReconcileWallet(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	report, err := h.ledger.ReconcileWallet(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, report, http.StatusOK)
}
