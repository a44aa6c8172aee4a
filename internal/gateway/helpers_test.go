package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/tdsta/internal/core"
	"github.com/flemzord/tdsta/internal/ingest"
	"github.com/flemzord/tdsta/internal/knowledge"
	"github.com/flemzord/tdsta/internal/qa"
	"github.com/flemzord/tdsta/internal/telemetry"
	"gopkg.in/yaml.v3"
)

const testToken = "admin-token-for-tests"

func mustYAMLNode(t *testing.T, s string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if len(doc.Content) == 0 {
		return &yaml.Node{Kind: yaml.MappingNode}
	}
	return doc.Content[0]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// harness is a provisioned gateway served by httptest.
type harness struct {
	gw       *Gateway
	appCtx   *core.AppContext
	ingestor *ingest.Ingestor
	metrics  *telemetry.Metrics
	srv      *httptest.Server
}

// newHarness provisions a gateway from cfgYAML with the static providers,
// the built-in topics and a metrics registry. setup runs before services
// are resolved.
func newHarness(t *testing.T, cfgYAML string, setup func(h *harness)) *harness {
	t.Helper()

	appCtx := core.NewAppContext(discardLogger(), t.TempDir())
	h := &harness{
		appCtx: appCtx,
		ingestor: ingest.New(ingest.Config{
			Site:   ingest.StaticSiteProvider{},
			Forum:  ingest.StaticForumProvider{},
			Logger: discardLogger(),
		}),
		metrics: telemetry.NewMetrics(),
	}
	appCtx.RegisterService(ingest.IngestorService, h.ingestor)
	appCtx.RegisterService(knowledge.HolderService, knowledge.NewHolder(knowledge.DefaultStore()))
	appCtx.RegisterService(telemetry.MetricsService, h.metrics)

	h.gw = &Gateway{}
	if err := h.gw.Configure(mustYAMLNode(t, cfgYAML)); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := h.gw.Provision(appCtx.ForModule("gateway.http")); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := h.gw.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if setup != nil {
		setup(h)
	}
	h.gw.resolve()
	h.gw.startedAt = time.Now()

	h.srv = httptest.NewServer(h.gw.buildRouter())
	t.Cleanup(h.srv.Close)
	return h
}

// do sends a request and decodes a JSON response into out (if non-nil).
func (h *harness) do(t *testing.T, method, path, body, token string, out any) int {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, h.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode
}

// raw returns the undecoded response body.
func (h *harness) raw(t *testing.T, method, path, body, token string) (int, string) {
	t.Helper()
	var out json.RawMessage
	code := h.do(t, method, path, body, token, &out)
	return code, string(bytes.TrimSpace(out))
}

// panicAnswerer fails every question.
type panicAnswerer struct{}

func (panicAnswerer) Process(context.Context, string, *string) qa.Answer {
	panic("boom")
}
