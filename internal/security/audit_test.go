package security

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestAuditLogger_WritesJSONL(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	fixedTime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	logger := NewAuditLogger(AuditLoggerConfig{
		Writer: &buf,
		Now:    func() time.Time { return fixedTime },
	})

	logger.Log(AuditEvent{
		Type:       EventAuthFailure,
		RemoteAddr: "10.0.0.1:5555",
		Method:     "POST",
		Path:       "/api/corpus/refresh",
		Detail:     "bad token",
	})

	var got AuditEvent
	if err := json.NewDecoder(&buf).Decode(&got); err != nil {
		t.Fatalf("failed to decode JSONL: %v", err)
	}
	if got.Type != EventAuthFailure {
		t.Errorf("type = %q, want %q", got.Type, EventAuthFailure)
	}
	if got.Path != "/api/corpus/refresh" {
		t.Errorf("path = %q", got.Path)
	}
	if !got.Timestamp.Equal(fixedTime) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, fixedTime)
	}
}

func TestAuditLogger_RedactsDetailAndMetadata(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := NewRedactor()
	r.AddLiteral("forum-key-123")

	logger := NewAuditLogger(AuditLoggerConfig{Writer: &buf, Redactor: r})

	meta := map[string]string{"api_key": "forum-key-123"}
	logger.Log(AuditEvent{
		Type:     EventConfigReload,
		Detail:   "reloaded with forum-key-123",
		Metadata: meta,
	})

	out := buf.String()
	if strings.Contains(out, "forum-key-123") {
		t.Errorf("secret leaked: %s", out)
	}
	if !strings.Contains(out, RedactPlaceholder) {
		t.Errorf("expected placeholder in %s", out)
	}
	if meta["api_key"] != "forum-key-123" {
		t.Error("caller's metadata was modified")
	}
}

func TestAuditLogger_OnEvent(t *testing.T) {
	t.Parallel()

	var got []AuditEvent
	logger := NewAuditLogger(AuditLoggerConfig{
		OnEvent: func(e AuditEvent) { got = append(got, e) },
	})

	logger.Log(AuditEvent{Type: EventCorpusRefresh, Detail: "forum"})
	logger.Log(AuditEvent{Type: EventRateLimit, Detail: "question"})

	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[1].Type != EventRateLimit {
		t.Errorf("second type = %q", got[1].Type)
	}
	if got[0].Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestAuditLogger_NilIsNoop(t *testing.T) {
	t.Parallel()

	var logger *AuditLogger
	logger.Log(AuditEvent{Type: EventAuthSuccess})
}

func TestAuditLogger_Concurrent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewAuditLogger(AuditLoggerConfig{Writer: &buf})

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Log(AuditEvent{Type: EventAuthSuccess})
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 50 {
		t.Fatalf("got %d lines, want 50", len(lines))
	}
	for _, line := range lines {
		var e AuditEvent
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("interleaved output: %q", line)
		}
	}
}
