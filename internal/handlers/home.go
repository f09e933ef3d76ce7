package handlers

import (
	"log/slog"
	"net/http"
)

// HandleHome renders the page. Every page load starts a new session, replacing the previous one.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctrl := m.newSession()

	if err := m.templates.ExecuteTemplate(w, "home.html", ctrl.Snapshot()); err != nil {
		m.logger.Error("Failed to render home page", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
