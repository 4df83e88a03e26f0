package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/iconidentify/vidbridge/internal/ledger"
)

// RecordsHandler serves ledger rows for manual auditing.
type RecordsHandler struct {
	ledger ledger.Ledger
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(led ledger.Ledger) *RecordsHandler {
	return &RecordsHandler{ledger: led}
}

// RecordResponse is one ledger row in the API.
type RecordResponse struct {
	SourceMessageID int64     `json:"source_message_id"`
	SourceChatID    int64     `json:"source_chat_id"`
	SourceText      string    `json:"source_text,omitempty"`
	LocalPath       string    `json:"local_path"`
	RemoteVideoID   string    `json:"remote_video_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// List handles GET /api/v1/records?limit=N - newest first.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be 1-500"})
			return
		}
		limit = n
	}

	recs, err := h.ledger.Recent(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	out := make([]RecordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, RecordResponse{
			SourceMessageID: rec.SourceMessageID,
			SourceChatID:    rec.SourceChatID,
			SourceText:      rec.SourceText,
			LocalPath:       rec.LocalPath,
			RemoteVideoID:   rec.RemoteVideoID,
			CreatedAt:       rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": out, "count": len(out)})
}
