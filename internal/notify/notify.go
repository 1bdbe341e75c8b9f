// Package notify delivers out-of-band messages such as one-time codes.
package notify

import (
	"log/slog"
	"sync"
)

// Sender delivers a message to a recipient address.
type Sender interface {
	Send(to, subject, body string) error
}

// LogSender writes messages to the structured log instead of sending them.
// It is used in dev mode and when SMTP is not configured.
type LogSender struct{}

// Send logs the message.
func (LogSender) Send(to, subject, body string) error {
	slog.Info("notification", "to", to, "subject", subject, "body", body)
	return nil
}

// Message is a message captured by a Recorder.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Recorder keeps every message in memory. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Send records the message.
func (r *Recorder) Send(to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{To: to, Subject: subject, Body: body})
	return nil
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recent message and whether there was one.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}
