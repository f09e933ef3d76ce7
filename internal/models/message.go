package models

import "time"

// Message represents an entry of the chat log shown to the user. Messages are immutable once appended
// and are kept in insertion order for the lifetime of a session.
type Message struct {
	ID        string
	Sender    Sender
	Text      string
	Timestamp time.Time
}

// Sender represents who produced a message.
type Sender string

// StatusKind represents the severity of a status notice.
type StatusKind string

// Action identifies one of the two user-triggered requests.
type Action string

const (
	// SenderUser represents a message typed by the user.
	SenderUser Sender = "user"
	// SenderBot represents a reply returned by the backend.
	SenderBot Sender = "bot"
	// SenderError represents a failed chat request.
	SenderError Sender = "error"
	// SenderSystem represents a lifecycle notice, such as session start or upload confirmation.
	SenderSystem Sender = "system"

	// StatusInfo is a transient progress notice.
	StatusInfo StatusKind = "info"
	// StatusSuccess is a transient confirmation.
	StatusSuccess StatusKind = "success"
	// StatusError persists until another status replaces it.
	StatusError StatusKind = "error"

	// ActionUpload is the transcript upload.
	ActionUpload Action = "upload"
	// ActionSend is the chat message send.
	ActionSend Action = "send"
)

// TimeFormat is the time-of-day layout used when displaying message timestamps.
const TimeFormat = "3:04:05 PM"

// Label returns the header shown above a message of this sender.
func (s Sender) Label() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderBot:
		return "Assistant"
	case SenderError:
		return "Error"
	case SenderSystem:
		return "System"
	default:
		return string(s)
	}
}

// Clock returns the message timestamp formatted as a time of day.
func (m Message) Clock() string {
	return m.Timestamp.Format(TimeFormat)
}

// Status is the single-slot notice shown next to the upload control. The zero value is an empty slot.
type Status struct {
	Text string
	Kind StatusKind
}

// Empty reports whether the slot currently shows nothing.
func (s Status) Empty() bool {
	return s.Text == "" && s.Kind == ""
}

// Transient reports whether a status of this kind clears itself after a delay.
func (k StatusKind) Transient() bool {
	return k == StatusInfo || k == StatusSuccess
}

// Form is the state of one input field together with the trigger that submits it.
type Form struct {
	Action Action
	// Input is the current content of the input field.
	Input string
	// Pending is true while a request for this action is outstanding; the trigger is disabled meanwhile.
	Pending bool
	// Label is the text shown on the trigger.
	Label string
}
