package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"healthbridge-backend/internal/models"
)

type syncer interface {
	Sync(ctx context.Context, body []byte) (int64, error)
}

type SyncHandler struct {
	syncService syncer
	maxBody     int64
}

func NewSyncHandler(syncService syncer, maxBody int64) *SyncHandler {
	return &SyncHandler{syncService: syncService, maxBody: maxBody}
}

func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("PAYLOAD_TOO_LARGE", "Request body too large", r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp("BAD_REQUEST", "Could not read request body", r))
		return
	}

	id, err := h.syncService.Sync(r.Context(), body)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SyncResponse{Status: "ok", SyncID: id})
}
