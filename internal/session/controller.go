package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MegaGrindStone/meeting-chat-ui/internal/models"
	"github.com/MegaGrindStone/meeting-chat-ui/internal/services"
	"github.com/google/uuid"
)

// Backend represents the server that holds transcripts and answers questions about them. Both calls carry
// the session identifier so the server can correlate them.
type Backend interface {
	Upload(ctx context.Context, sessionID, transcript string) error
	Chat(ctx context.Context, sessionID, message string) (string, error)
}

// Listener receives every change of the controller's UI state, in the order the changes happen. Methods
// are called while the controller holds its lock, so they must not call back into the controller.
type Listener interface {
	MessageAppended(msg models.Message)
	StatusChanged(status models.Status)
	FormChanged(form models.Form)
}

// State is a copy of everything the UI shows for a session.
type State struct {
	ID       string
	Messages []models.Message
	Status   models.Status
	Upload   models.Form
	Send     models.Form
}

// Controller owns one session: its identifier, message log, status slot and the two forms. It issues
// upload and chat requests to the Backend and reports every resulting UI change to its Listener.
type Controller struct {
	id string

	backend  Backend
	listener Listener
	logger   *slog.Logger

	clearDelay time.Duration
	now        func() time.Time
	afterFunc  func(time.Duration, func()) timer

	mu          sync.Mutex
	messages    []models.Message
	status      models.Status
	statusGen   uint64
	statusTimer timer
	upload      models.Form
	send        models.Form
	closed      bool
}

// Option configures a Controller.
type Option func(*Controller)

type timer interface {
	Stop() bool
}

// DefaultStatusClearDelay is how long an info or success status stays visible.
const DefaultStatusClearDelay = 5 * time.Second

const (
	uploadLabel    = "Upload Transcript"
	uploadingLabel = "Uploading..."
	sendLabel      = "Send"
	sendingLabel   = "Sending..."

	// KeyEnter is the key that submits the chat input.
	KeyEnter = "Enter"

	errLoggerKey = "err"
)

// ErrPending is returned when a request of the same kind is still outstanding.
var ErrPending = errors.New("request already pending")

// WithStatusClearDelay sets how long info and success statuses stay visible. Non-positive values keep the
// default.
func WithStatusClearDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.clearDelay = d
		}
	}
}

// WithClock sets the time source used for the session identifier and message timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New starts a session: it generates the session identifier and appends the session start message. The
// listener may be nil.
func New(backend Backend, listener Listener, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		backend:    backend,
		listener:   listener,
		clearDelay: DefaultStatusClearDelay,
		now:        time.Now,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
		upload: models.Form{Action: models.ActionUpload, Label: uploadLabel},
		send:   models.Form{Action: models.ActionSend, Label: sendLabel},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.listener == nil {
		c.listener = nopListener{}
	}

	c.id = NewID(c.now())
	c.logger = logger.With(slog.String("module", "session"), slog.String("sessionID", c.id))

	c.mu.Lock()
	c.appendMessage(models.SenderSystem,
		fmt.Sprintf("Session started (ID: %s). Upload a meeting transcript to begin.", c.id))
	c.mu.Unlock()

	c.logger.Info("Session started")

	return c
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

// Snapshot returns a copy of the current UI state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		ID:       c.id,
		Messages: slices.Clone(c.messages),
		Status:   c.status,
		Upload:   c.upload,
		Send:     c.send,
	}
}

// SubmitTranscript uploads the trimmed text as the session's transcript. Failures are not returned; they
// are shown in the status slot. The only error is ErrPending, when an upload is already outstanding.
func (c *Controller) SubmitTranscript(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.upload.Pending {
		c.mu.Unlock()
		return ErrPending
	}

	c.upload.Input = text
	transcript := strings.TrimSpace(text)
	if transcript == "" {
		c.listener.FormChanged(c.upload)
		c.showStatus(models.StatusError, "Please enter a transcript before uploading.")
		c.mu.Unlock()
		return nil
	}

	c.upload.Pending = true
	c.upload.Label = uploadingLabel
	c.listener.FormChanged(c.upload)
	c.showStatus(models.StatusInfo, "Uploading transcript...")
	c.mu.Unlock()

	defer c.finish(&c.upload, uploadLabel)

	err := c.backend.Upload(ctx, c.id, transcript)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Warn("Failed to upload transcript", slog.String(errLoggerKey, err.Error()))
		c.showStatus(models.StatusError, failureText(err, "Failed to upload transcript"))
		return nil
	}

	c.showStatus(models.StatusSuccess, "Transcript uploaded successfully!")
	c.upload.Input = ""
	c.appendMessage(models.SenderSystem, "Transcript uploaded. You can now ask questions about the meeting.")
	return nil
}

// SubmitChatMessage sends the trimmed text to the backend and appends the reply to the log. An empty
// message is ignored. Failures are appended as error messages; the only error returned is ErrPending.
func (c *Controller) SubmitChatMessage(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.send.Pending {
		c.mu.Unlock()
		return ErrPending
	}

	message := strings.TrimSpace(text)
	if message == "" {
		c.mu.Unlock()
		return nil
	}

	c.appendMessage(models.SenderUser, message)
	c.send.Input = ""
	c.send.Pending = true
	c.send.Label = sendingLabel
	c.listener.FormChanged(c.send)
	c.mu.Unlock()

	defer c.finish(&c.send, sendLabel)

	reply, err := c.backend.Chat(ctx, c.id, message)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Warn("Failed to send chat message", slog.String(errLoggerKey, err.Error()))
		c.appendMessage(models.SenderError, failureText(err, "Failed to get response"))
		return nil
	}

	c.appendMessage(models.SenderBot, reply)
	return nil
}

// HandleChatKey handles a key press in the chat input. Enter sends text; every other key is ignored.
func (c *Controller) HandleChatKey(ctx context.Context, key, text string) error {
	if key != KeyEnter {
		return nil
	}
	return c.SubmitChatMessage(ctx, text)
}

// Close stops the pending status clear. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.statusTimer != nil {
		c.statusTimer.Stop()
		c.statusTimer = nil
	}
}

// finish re-enables the form's trigger and restores its label. It runs on every exit path of a request.
func (c *Controller) finish(form *models.Form, label string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	form.Pending = false
	form.Label = label
	c.listener.FormChanged(*form)
}

func (c *Controller) appendMessage(sender models.Sender, text string) {
	msg := models.Message{
		ID:        uuid.New().String(),
		Sender:    sender,
		Text:      text,
		Timestamp: c.now(),
	}
	c.messages = append(c.messages, msg)
	c.listener.MessageAppended(msg)
}

// showStatus replaces the status slot. A transient status schedules its own clear and cancels the clear
// scheduled by the status it replaces.
func (c *Controller) showStatus(kind models.StatusKind, text string) {
	c.status = models.Status{Text: text, Kind: kind}
	c.statusGen++
	if c.statusTimer != nil {
		c.statusTimer.Stop()
		c.statusTimer = nil
	}
	c.listener.StatusChanged(c.status)

	if !kind.Transient() {
		return
	}
	gen := c.statusGen
	c.statusTimer = c.afterFunc(c.clearDelay, func() {
		c.clearStatus(gen)
	})
}

func (c *Controller) clearStatus(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A newer status may have been shown after this clear was scheduled.
	if c.closed || gen != c.statusGen {
		return
	}
	c.status = models.Status{}
	c.statusTimer = nil
	c.listener.StatusChanged(c.status)
}

func failureText(err error, fallback string) string {
	var apiErr *services.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = fallback
		}
		return "Error: " + msg
	}
	return "Network error: " + err.Error()
}

type nopListener struct{}

func (nopListener) MessageAppended(models.Message) {}
func (nopListener) StatusChanged(models.Status)    {}
func (nopListener) FormChanged(models.Form)        {}
