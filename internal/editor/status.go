package editor

import (
	"errors"
	"sync"

	"github.com/dshills/fanout/internal/lsp"
)

// Severity classifies a status message.
type Severity int

// Status severities.
const (
	SeverityInfo Severity = iota
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "info"
}

// Message is one status line.
type Message struct {
	Text     string
	Severity Severity
}

// Status holds the status line. Every message is also passed to the optional
// listener, which display sinks use to print it.
type Status struct {
	mu       sync.Mutex
	last     Message
	set      bool
	listener func(Message)
}

// OnMessage sets the listener.
func (s *Status) OnMessage(fn func(Message)) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

// Set shows an informational message.
func (s *Status) Set(text string) {
	s.publish(Message{Text: text, Severity: SeverityInfo})
}

// Error shows an error message.
func (s *Status) Error(text string) {
	s.publish(Message{Text: text, Severity: SeverityError})
}

// Report shows err as an error message. A server that vanished is reported
// with the fixed text users know from other features.
func (s *Status) Report(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, lsp.ErrServerGone) {
		s.Error("Language Server disappeared")
		return
	}
	s.Error(err.Error())
}

// Last returns the most recent message. ok is false if nothing was shown.
func (s *Status) Last() (msg Message, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.set
}

// Clear forgets the last message.
func (s *Status) Clear() {
	s.mu.Lock()
	s.last, s.set = Message{}, false
	s.mu.Unlock()
}

func (s *Status) publish(msg Message) {
	s.mu.Lock()
	s.last, s.set = msg, true
	fn := s.listener
	s.mu.Unlock()

	if fn != nil {
		fn(msg)
	}
}
