package handlers

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	meetingchatui "github.com/MegaGrindStone/meeting-chat-ui"
	"github.com/MegaGrindStone/meeting-chat-ui/internal/session"
	"github.com/tmaxmax/go-sse"
)

// Main handles the web interface of a meeting chat session. It renders the page, binds browser events to
// the session controller and pushes the controller's UI changes to the browser through server-sent
// events.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template

	backend     session.Backend
	sessionOpts []session.Option

	current *currentSession

	logger        *slog.Logger
	sessionLogger *slog.Logger
}

// currentSession holds the controller of the page that was loaded last. A page load replaces it.
type currentSession struct {
	mu   sync.Mutex
	ctrl *session.Controller
}

const errLoggerKey = "err"

// NewMain creates a new Main instance that talks to backend. It parses the HTML templates from the embedded
// filesystem and configures the SSE server so each client subscribes to the topic of the session it was
// rendered for. The options are applied to every session controller Main creates.
func NewMain(backend session.Backend, logger *slog.Logger, sessionOpts ...session.Option) (Main, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return Main{}, err
	}

	return Main{
		sseSrv: &sse.Server{
			OnSession: func(s *sse.Session) (sse.Subscription, bool) {
				topics := []string{sse.DefaultTopic}

				sessionID := s.Req.URL.Query().Get("session_id")
				if sessionID != "" {
					topics = append(topics, sessionTopic(sessionID))
				}

				return sse.Subscription{
					Client:      s,
					LastEventID: s.LastEventID,
					Topics:      topics,
				}, true
			},
		},
		templates:     tmpl,
		backend:       backend,
		sessionOpts:   sessionOpts,
		current:       &currentSession{},
		logger:        logger.With(slog.String("module", "handlers")),
		sessionLogger: logger,
	}, nil
}

func parseTemplates() (*template.Template, error) {
	// We parse templates from three distinct directories to separate layout, pages, and partial views
	return template.ParseFS(
		meetingchatui.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
}

func sessionTopic(sessionID string) string {
	return fmt.Sprintf("session-%s", sessionID)
}

// HandleSSE streams the UI changes of the session named by the "session_id" query parameter.
func (m Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}

// newSession starts the session of a freshly loaded page and closes the previous one.
func (m Main) newSession() *session.Controller {
	m.current.mu.Lock()
	defer m.current.mu.Unlock()

	return m.startSession()
}

// controller returns the session of the page that sent a request. Only the page loaded last has a live
// session; requests from any other page are refused.
func (m Main) controller(sessionID string) (*session.Controller, bool) {
	m.current.mu.Lock()
	defer m.current.mu.Unlock()

	if m.current.ctrl == nil || sessionID == "" || m.current.ctrl.ID() != sessionID {
		return nil, false
	}
	return m.current.ctrl, true
}

// sessionController looks up the session named by the "session_id" form field. When the page that sent the
// request was replaced by a newer page load, it answers 410 and reports false.
func (m Main) sessionController(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	sessionID := r.FormValue("session_id")
	ctrl, ok := m.controller(sessionID)
	if !ok {
		m.logger.Warn("Request for an inactive session", slog.String("sessionID", sessionID))
		http.Error(w, "Session expired, reload the page", http.StatusGone)
		return nil, false
	}
	return ctrl, true
}

// startSession must be called with m.current.mu held.
func (m Main) startSession() *session.Controller {
	if m.current.ctrl != nil {
		m.current.ctrl.Close()
	}

	p := &publisher{
		sseSrv:    m.sseSrv,
		templates: m.templates,
		logger:    m.logger,
	}
	ctrl := session.New(m.backend, p, m.sessionLogger, m.sessionOpts...)
	p.setTopic(sessionTopic(ctrl.ID()))

	m.current.ctrl = ctrl
	return ctrl
}

// Shutdown gracefully terminates the Main instance's SSE server. It broadcasts a close message to all
// connected clients and waits up to 5 seconds for connections to terminate. After the timeout, any
// remaining connections are forcefully closed.
func (m Main) Shutdown(ctx context.Context) error {
	m.current.mu.Lock()
	if m.current.ctrl != nil {
		m.current.ctrl.Close()
	}
	m.current.mu.Unlock()

	e := &sse.Message{Type: sse.Type("closeSession")}
	// We create a close event that complies with SSE spec requiring data
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}
