package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/MegaGrindStone/meeting-chat-ui/internal/session"
)

// HandleUpload uploads the "transcript" form field as the session's transcript. The request returns once
// the backend answered; the outcome reaches the page through the session's SSE stream, so the response
// itself carries no content.
func (m Main) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctrl, ok := m.sessionController(w, r)
	if !ok {
		return
	}

	err := ctrl.SubmitTranscript(r.Context(), r.FormValue("transcript"))
	if errors.Is(err, session.ErrPending) {
		http.Error(w, "Upload already in progress", http.StatusConflict)
		return
	}
	if err != nil {
		m.logger.Error("Failed to submit transcript", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
