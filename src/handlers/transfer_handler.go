package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/username/fintrack/backend/src/services"
	"github.com/username/fintrack/backend/src/utils"
)

type TransferHandler struct {
	transfers services.TransferService
}

func NewTransferHandler(transfers services.TransferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

func (h *TransferHandler) HandleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var in services.TransferInput
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.transfers.CreateTransfer(r.Context(), ownerID, in)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, res, http.StatusCreated)
}

// HandleDeleteTransfer accepts the id of either leg.
func (h *TransferHandler) HandleDeleteTransfer(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	if err := h.transfers.DeleteTransfer(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		sendServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TransferHandler) HandleRestoreTransfer(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	if err := h.transfers.RestoreTransfer(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		sendServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
