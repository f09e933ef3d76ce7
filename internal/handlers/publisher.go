package handlers

import (
	"html/template"
	"log/slog"
	"strings"
	"sync"

	"github.com/MegaGrindStone/meeting-chat-ui/internal/models"
	"github.com/tmaxmax/go-sse"
)

// SSE event types for real-time updates.
var (
	messageSSEType       = sse.Type("message")
	statusSSEType        = sse.Type("status")
	uploadTriggerSSEType = sse.Type("upload-trigger")
	uploadInputSSEType   = sse.Type("upload-input")
	sendTriggerSSEType   = sse.Type("send-trigger")
	sendInputSSEType     = sse.Type("send-input")
)

// publisher renders the UI changes of one session and publishes them to the session's SSE topic.
type publisher struct {
	sseSrv    *sse.Server
	templates *template.Template
	logger    *slog.Logger

	mu    sync.Mutex
	topic string
	// inputs holds the last published content of each input field, so a field the user is typing in is
	// not replaced when a request finishes.
	inputs map[models.Action]string
}

func (p *publisher) setTopic(topic string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.topic = topic
}

func (p *publisher) MessageAppended(msg models.Message) {
	p.publish(messageSSEType, "chat_message", msg)
}

func (p *publisher) StatusChanged(status models.Status) {
	p.publish(statusSSEType, "upload_status", status)
}

func (p *publisher) FormChanged(form models.Form) {
	triggerType, inputType := uploadTriggerSSEType, uploadInputSSEType
	triggerTmpl, inputTmpl := "upload_trigger", "upload_input"
	if form.Action == models.ActionSend {
		triggerType, inputType = sendTriggerSSEType, sendInputSSEType
		triggerTmpl, inputTmpl = "send_trigger", "send_input"
	}

	p.publish(triggerType, triggerTmpl, form)

	p.mu.Lock()
	if p.inputs == nil {
		p.inputs = make(map[models.Action]string)
	}
	last, seen := p.inputs[form.Action]
	p.inputs[form.Action] = form.Input
	p.mu.Unlock()

	// A request that starts may have taken the field's content from the browser, which is never echoed
	// back here, so the field is always re-sent then.
	if !seen || last != form.Input || form.Pending {
		p.publish(inputType, inputTmpl, form)
	}
}

func (p *publisher) publish(typ sse.EventType, tmpl string, data any) {
	p.mu.Lock()
	topic := p.topic
	p.mu.Unlock()

	// Changes made before the page is rendered are part of the page itself.
	if topic == "" {
		return
	}

	var sb strings.Builder
	if err := p.templates.ExecuteTemplate(&sb, tmpl, data); err != nil {
		p.logger.Error("Failed to render template",
			slog.String("template", tmpl),
			slog.String(errLoggerKey, err.Error()))
		return
	}

	msg := sse.Message{
		Type: typ,
	}
	msg.AppendData(sb.String())
	if err := p.sseSrv.Publish(&msg, topic); err != nil {
		p.logger.Error("Failed to publish event",
			slog.String("template", tmpl),
			slog.String(errLoggerKey, err.Error()))
	}
}
