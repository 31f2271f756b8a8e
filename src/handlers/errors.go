package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/services"
	"github.com/username/fintrack/backend/src/utils"
)

// sendServiceError maps the service error taxonomy onto HTTP statuses.
// Anything unrecognised is logged and reported as a 500 without details.
func sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var hasTxns *services.WalletHasTransactionsError
	if errors.As(err, &hasTxns) {
		log.Info("Wallet deletion needs a decision", "walletID", hasTxns.WalletID, "transactionCount", hasTxns.TransactionCount)
		utils.SendJSON(w, map[string]any{
			"error":            err.Error(),
			"transactionCount": hasTxns.TransactionCount,
		}, http.StatusConflict)
		return
	}

	var status int
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrParsingFailed):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInsufficientFunds), errors.Is(err, services.ErrExpiredSchedule):
		status = http.StatusUnprocessableEntity
	default:
		log.Error("Internal error handling request", "method", r.Method, "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "An internal error occurred. Please try again later.", http.StatusInternalServerError)
		return
	}
	utils.SendJSONError(w, err.Error(), status)
}

// decodeJSON reads a JSON request body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		logger.FromContext(r.Context()).Debug("Invalid request body", "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID, ok := GetOwnerIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or owner ID not found in context", http.StatusUnauthorized)
	}
	return ownerID, ok
}
