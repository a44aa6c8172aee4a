// Package securitytest provides test doubles for the security package.
package securitytest

import (
	"sync"

	"github.com/flemzord/tdsta/internal/security"
)

// NewTestRedactor returns a Redactor with no patterns, so test fixtures
// that happen to look like tokens survive. Literals registered on it still
// apply.
func NewTestRedactor() *security.Redactor {
	return &security.Redactor{}
}

// AuditRecorder collects audit events in memory.
type AuditRecorder struct {
	mu     sync.Mutex
	events []security.AuditEvent
}

// Events returns a copy of the recorded events.
func (r *AuditRecorder) Events() []security.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]security.AuditEvent(nil), r.events...)
}

// Count returns how many events of type t were recorded.
func (r *AuditRecorder) Count(t security.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (r *AuditRecorder) record(e security.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// NewTestAuditLogger returns an AuditLogger that records into memory.
func NewTestAuditLogger() (*security.AuditLogger, *AuditRecorder) {
	rec := &AuditRecorder{}
	logger := security.NewAuditLogger(security.AuditLoggerConfig{OnEvent: rec.record})
	return logger, rec
}
