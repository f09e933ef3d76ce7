package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/MegaGrindStone/meeting-chat-ui/internal/session"
)

// HandleChat sends the "message" form field to the backend. When the request carries a "key" field it is
// a key press in the chat input and only the Enter key sends; otherwise it is a click on the send button.
// Messages and the re-enabled button reach the page through the session's SSE stream.
func (m Main) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctrl, ok := m.sessionController(w, r)
	if !ok {
		return
	}

	msg := r.FormValue("message")

	var err error
	if key := r.FormValue("key"); key != "" {
		err = ctrl.HandleChatKey(r.Context(), key, msg)
	} else {
		err = ctrl.SubmitChatMessage(r.Context(), msg)
	}
	if errors.Is(err, session.ErrPending) {
		http.Error(w, "Message already being sent", http.StatusConflict)
		return
	}
	if err != nil {
		m.logger.Error("Failed to submit chat message", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
