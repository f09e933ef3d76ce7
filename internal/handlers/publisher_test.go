package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MegaGrindStone/meeting-chat-ui/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmaxmax/go-sse"
)

func render(t *testing.T, name string, data any) string {
	t.Helper()

	tmpl, err := parseTemplates()
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, tmpl.ExecuteTemplate(&sb, name, data))
	return sb.String()
}

func TestChatMessageRendersLiteralText(t *testing.T) {
	out := render(t, "chat_message", models.Message{
		ID:        "1",
		Sender:    models.SenderBot,
		Text:      `<script>alert(1)</script> & "quotes"`,
		Timestamp: time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC),
	})

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;alert(1)&lt;/script&gt; &amp; &#34;quotes&#34;")
	assert.Contains(t, out, "Assistant")
	assert.Contains(t, out, "9:05:00 AM")
	assert.Contains(t, out, `class="message bot"`)
}

func TestChatMessageLabels(t *testing.T) {
	for sender, label := range map[models.Sender]string{
		models.SenderUser:   "You",
		models.SenderBot:    "Assistant",
		models.SenderError:  "Error",
		models.SenderSystem: "System",
	} {
		out := render(t, "chat_message", models.Message{Sender: sender, Text: "x"})
		assert.Contains(t, out, `<div class="message-header">`+label+` <span`)
	}
}

func TestUploadStatusRendering(t *testing.T) {
	out := render(t, "upload_status", models.Status{Text: "Error: <b>bad</b>", Kind: models.StatusError})
	assert.Contains(t, out, `class="status-message error"`)
	assert.Contains(t, out, "Error: &lt;b&gt;bad&lt;/b&gt;")

	out = render(t, "upload_status", models.Status{})
	assert.Contains(t, out, `class="status-message"`)
}

func TestTriggerRendering(t *testing.T) {
	out := render(t, "send_trigger", models.Form{Action: models.ActionSend, Pending: true, Label: "Sending..."})
	assert.Contains(t, out, "disabled")
	assert.Contains(t, out, "Sending...")

	out = render(t, "upload_trigger", models.Form{Action: models.ActionUpload, Label: "Upload Transcript"})
	assert.NotContains(t, out, "disabled")
	assert.Contains(t, out, "Upload Transcript")

	out = render(t, "upload_input", models.Form{Input: "</textarea><script>x</script>"})
	assert.NotContains(t, out, "<script>")

	// Enter in the chat input and the send button share one queue, so a key press while a send is in
	// flight is dropped in the browser.
	for _, name := range []string{"send_input", "send_trigger"} {
		out = render(t, name, models.Form{Action: models.ActionSend, Label: "Send"})
		assert.Contains(t, out, `hx-sync="closest .chat-input-row:drop"`, name)
		assert.Contains(t, out, "#session-id", name)
	}
}

type recordingProvider struct {
	mu     sync.Mutex
	events []string
}

type stubBackend struct{}

func TestConsecutiveSendsClearChatInput(t *testing.T) {
	rec := &recordingProvider{}
	main := newRecordingMain(t, rec)
	sessionID := loadSession(t, main)

	for _, text := range []string{"first", "second", "third"} {
		rec.reset()

		w := post(main.HandleChat, "/chat", url.Values{"message": {text}, "session_id": {sessionID}})
		require.Equal(t, http.StatusNoContent, w.Code)

		inputs := rec.eventsOf(sendInputSSEType)
		require.Len(t, inputs, 1, "send %q", text)
		assert.Contains(t, inputs[0], `id="chat-input"`)
		assert.Contains(t, inputs[0], `value=""`)

		assert.Len(t, rec.eventsOf(sendTriggerSSEType), 2, "disabled then enabled")
	}
}

func TestUploadInputEvents(t *testing.T) {
	rec := &recordingProvider{}
	main := newRecordingMain(t, rec)
	sessionID := loadSession(t, main)

	rec.reset()
	w := post(main.HandleUpload, "/upload", url.Values{"transcript": {"   "}, "session_id": {sessionID}})
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, rec.eventsOf(uploadInputSSEType), 1, "rejected input is echoed once")

	rec.reset()
	w = post(main.HandleUpload, "/upload", url.Values{"transcript": {"Bob: ship it"}, "session_id": {sessionID}})
	require.Equal(t, http.StatusNoContent, w.Code)

	// Re-sent when the upload starts and again when success clears it.
	inputs := rec.eventsOf(uploadInputSSEType)
	require.Len(t, inputs, 2)
	assert.Contains(t, inputs[0], "Bob: ship it")
	assert.NotContains(t, inputs[1], "Bob: ship it")
}

func newRecordingMain(t *testing.T, rec *recordingProvider) Main {
	t.Helper()

	main, err := NewMain(stubBackend{}, discardLogger())
	require.NoError(t, err)
	main.sseSrv.Provider = rec
	t.Cleanup(func() {
		_ = main.Shutdown(context.Background())
	})
	return main
}

func loadSession(t *testing.T, main Main) string {
	t.Helper()

	w := httptest.NewRecorder()
	main.HandleHome(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	main.current.mu.Lock()
	defer main.current.mu.Unlock()
	return main.current.ctrl.ID()
}

func post(handler http.HandlerFunc, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func (r *recordingProvider) Subscribe(context.Context, sse.Subscription) error {
	return nil
}

func (r *recordingProvider) Publish(msg *sse.Message, _ []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, msg.String())
	return nil
}

func (r *recordingProvider) Shutdown(context.Context) error {
	return nil
}

func (r *recordingProvider) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}

func (r *recordingProvider) eventsOf(typ sse.EventType) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := "event: " + typ.String() + "\n"
	var events []string
	for _, e := range r.events {
		if strings.HasPrefix(e, prefix) {
			events = append(events, e)
		}
	}
	return events
}

func (stubBackend) Upload(context.Context, string, string) error {
	return nil
}

func (stubBackend) Chat(context.Context, string, string) (string, error) {
	return "ok", nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
