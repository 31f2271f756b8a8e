package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/services"
	"github.com/username/fintrack/backend/src/utils"
)

type RecurringHandler struct {
	scheduler services.RecurringService
}

func NewRecurringHandler(scheduler services.RecurringService) *RecurringHandler {
	return &RecurringHandler{scheduler: scheduler}
}

func (h *RecurringHandler) HandleListRecurring(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	templates, err := h.scheduler.ListRecurring(r.Context(), ownerID)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	if templates == nil {
		templates = []models.RecurringTemplate{}
	}
	utils.SendJSON(w, templates, http.StatusOK)
}

func (h *RecurringHandler) HandleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var in services.RecurringInput
	if !decodeJSON(w, r, &in) {
		return
	}
	tmpl, err := h.scheduler.CreateRecurring(r.Context(), ownerID, in)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, tmpl, http.StatusCreated)
}

func (h *RecurringHandler) HandleGetRecurring(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	tmpl, err := h.scheduler.GetRecurring(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, tmpl, http.StatusOK)
}

func (h *RecurringHandler) HandleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var upd services.RecurringUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	tmpl, err := h.scheduler.UpdateRecurring(r.Context(), ownerID, chi.URLParam(r, "id"), upd)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, tmpl, http.StatusOK)
}

func (h *RecurringHandler) HandleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	if err := h.scheduler.DeleteRecurring(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		sendServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecurringHandler) HandleConfirmRecurring(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	res, err := h.scheduler.ConfirmRecurring(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, res, http.StatusCreated)
}

// HandleGenerate backfills the caller's own templates.
func (h *RecurringHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	report, err := h.scheduler.GenerateRecurringTransactions(r.Context(), ownerID)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("Recurring backfill finished", "generated", report.Generated, "truncated", report.Truncated)
	utils.SendJSON(w, report, http.StatusOK)
}
