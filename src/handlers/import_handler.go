package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/security/validation"
	"github.com/username/fintrack/backend/src/services"
	"github.com/username/fintrack/backend/src/utils"
)

type ImportHandler struct {
	importer      services.ImportService
	maxUploadSize int64
}

func NewImportHandler(importer services.ImportService, maxUploadSize int64) *ImportHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = 10 * 1024 * 1024
	}
	return &ImportHandler{importer: importer, maxUploadSize: maxUploadSize}
}

// HandlePreview ingests the multipart "file" field and returns the drafts
// for review. Nothing is stored in the ledger.
func (h *ImportHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	log := logger.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1024*1024)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		log.Warn("Failed to parse multipart form or request too large", "error", err, "limit", h.maxUploadSize)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", h.maxUploadSize/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		log.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > h.maxUploadSize {
		log.Warn("Uploaded file too large", "fileSize", fileHeader.Size, "limit", h.maxUploadSize)
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB", h.maxUploadSize/(1024*1024)), http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	detectedContentType, err := validation.ValidateFileContentByMagicBytes(file)
	if err != nil {
		if errors.Is(err, validation.ErrUnsupportedFile) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		sendServiceError(w, r, err)
		return
	}
	log.Info("Processing statement upload", "filename", fileHeader.Filename, "clientType", clientContentType, "detectedType", detectedContentType)

	preview, err := h.importer.Preview(r.Context(), ownerID, file)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, preview, http.StatusOK)
}

func (h *ImportHandler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var req services.CommitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.importer.Commit(r.Context(), ownerID, req)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, res, http.StatusCreated)
}
