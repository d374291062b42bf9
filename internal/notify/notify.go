// Package notify defines the notification sink boundary the transaction
// coordinator publishes to on commit: an injected interface rather than a
// module-level notifier global, the same dependency-injection shape beads
// uses for its own internal/eventbus consumers.
package notify

import (
	"fmt"
	"log"

	"github.com/localcontacts/contactwriter/internal/model"
)

// Sink receives deduplicated id lists exactly once per commit.
type Sink interface {
	ContactsAdded(ids []model.ID)
	ContactsChanged(ids []model.ID)
	ContactsRemoved(ids []model.ID)
}

// LoggingSink logs each notification batch to an injected *log.Logger
// rather than calling log.Fatal/panic from library code, matching the
// convention of keeping internal/* free of hard-coded fatal exits.
type LoggingSink struct {
	Logger *log.Logger
}

// NewLoggingSink builds a LoggingSink; a nil logger falls back to the
// standard logger.
func NewLoggingSink(logger *log.Logger) *LoggingSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingSink{Logger: logger}
}

func (s *LoggingSink) ContactsAdded(ids []model.ID) {
	if len(ids) == 0 {
		return
	}
	s.Logger.Print(fmt.Sprintf("contacts added: %v", ids))
}

func (s *LoggingSink) ContactsChanged(ids []model.ID) {
	if len(ids) == 0 {
		return
	}
	s.Logger.Print(fmt.Sprintf("contacts changed: %v", ids))
}

func (s *LoggingSink) ContactsRemoved(ids []model.ID) {
	if len(ids) == 0 {
		return
	}
	s.Logger.Print(fmt.Sprintf("contacts removed: %v", ids))
}

// NoopSink discards every notification; useful in tests that don't care
// about the notification side-channel.
type NoopSink struct{}

func (NoopSink) ContactsAdded(ids []model.ID)   {}
func (NoopSink) ContactsChanged(ids []model.ID) {}
func (NoopSink) ContactsRemoved(ids []model.ID) {}

// MultiSink fans a commit's notifications out to every sink in order.
type MultiSink []Sink

func (m MultiSink) ContactsAdded(ids []model.ID) {
	for _, s := range m {
		s.ContactsAdded(ids)
	}
}
func (m MultiSink) ContactsChanged(ids []model.ID) {
	for _, s := range m {
		s.ContactsChanged(ids)
	}
}
func (m MultiSink) ContactsRemoved(ids []model.ID) {
	for _, s := range m {
		s.ContactsRemoved(ids)
	}
}
