package gateway

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flemzord/tdsta/internal/config"
	"github.com/flemzord/tdsta/internal/cron/crontest"
	"github.com/flemzord/tdsta/internal/ingest"
	"github.com/flemzord/tdsta/internal/ingest/archive"
	"github.com/flemzord/tdsta/internal/knowledge"
	"github.com/flemzord/tdsta/internal/security"
	"github.com/flemzord/tdsta/internal/security/securitytest"
)

const authYAML = "auth: {bearer_token: " + testToken + "}"

// ingestorRefresher runs real passes against the harness ingestor.
type ingestorRefresher struct {
	in *ingest.Ingestor
}

func (r ingestorRefresher) RefreshSite(ctx context.Context) int {
	return len(r.in.IngestSiteContent(ctx))
}

func (r ingestorRefresher) RefreshForum(ctx context.Context) (int, error) {
	items, err := r.in.IngestForumPosts(ctx, ingest.DefaultStartDate, ingest.DefaultEndDate, ingest.DefaultCategory)
	return len(items), err
}

func TestAdmin_RequiresAuth(t *testing.T) {
	t.Parallel()

	h := newHarness(t, authYAML, nil)
	for _, path := range []string{"/status", "/api/topics", "/api/corpus", "/api/config"} {
		if code := h.do(t, http.MethodGet, path, "", "", nil); code != http.StatusUnauthorized {
			t.Errorf("GET %s without token = %d, want 401", path, code)
		}
		if code := h.do(t, http.MethodGet, path, "", "wrong", nil); code != http.StatusUnauthorized {
			t.Errorf("GET %s with bad token = %d, want 401", path, code)
		}
	}
}

func TestAdmin_PublicRoutesStayPublic(t *testing.T) {
	t.Parallel()

	h := newHarness(t, authYAML, nil)
	if code := h.do(t, http.MethodPost, "/api/", `{"question": "docker"}`, "", nil); code != http.StatusOK {
		t.Errorf("POST /api/ = %d, want 200", code)
	}
	if code := h.do(t, http.MethodGet, "/api/health", "", "", nil); code != http.StatusOK {
		t.Errorf("GET /api/health = %d, want 200", code)
	}
}

func TestAdmin_Topics(t *testing.T) {
	t.Parallel()

	h := newHarness(t, authYAML, nil)
	var topics []knowledge.TopicEntry
	if code := h.do(t, http.MethodGet, "/api/topics", "", testToken, &topics); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	want := []string{"gpt_models", "ga4_dashboard", "docker_podman", "future_exams"}
	if len(topics) != len(want) {
		t.Fatalf("got %d topics, want %d", len(topics), len(want))
	}
	for i, id := range want {
		if topics[i].ID != id {
			t.Errorf("topics[%d] = %q, want %q", i, topics[i].ID, id)
		}
	}
}

func TestAdmin_CorpusAndRefresh(t *testing.T) {
	t.Parallel()

	audit, rec := securitytest.NewTestAuditLogger()
	h := newHarness(t, authYAML, func(h *harness) {
		h.appCtx.RegisterService(ingest.RefresherService, ingestorRefresher{in: h.ingestor})
		h.gw.audit = audit
	})

	var refresh RefreshResponse
	if code := h.do(t, http.MethodPost, "/api/corpus/refresh", "", testToken, &refresh); code != http.StatusOK {
		t.Fatalf("refresh status = %d", code)
	}
	if refresh.SiteItems == nil || *refresh.SiteItems != 2 {
		t.Errorf("site_items = %v, want 2", refresh.SiteItems)
	}
	if refresh.ForumItems == nil || *refresh.ForumItems != 3 {
		t.Errorf("forum_items = %v, want 3", refresh.ForumItems)
	}
	if refresh.CorpusSize != 5 {
		t.Errorf("corpus_size = %d, want 5", refresh.CorpusSize)
	}
	if got := rec.Count(security.EventCorpusRefresh); got != 1 {
		t.Errorf("corpus_refresh audit events = %d, want 1", got)
	}

	var all CorpusResponse
	h.do(t, http.MethodGet, "/api/corpus", "", testToken, &all)
	if all.Count != 5 || len(all.Items) != 5 {
		t.Errorf("corpus count = %d, want 5", all.Count)
	}

	var site CorpusResponse
	h.do(t, http.MethodGet, "/api/corpus?category=SITE", "", testToken, &site)
	if site.Count != 2 {
		t.Errorf("site count = %d, want 2", site.Count)
	}

	var status StatusResponse
	h.do(t, http.MethodGet, "/status", "", testToken, &status)
	if status.Corpus.Items != 5 || status.Topics != 4 {
		t.Errorf("status = %+v", status)
	}
	if status.Questions == nil {
		t.Error("status should include question counters")
	}
}

func TestAdmin_RefreshSourceSelection(t *testing.T) {
	t.Parallel()

	mock := &crontest.MockRefresher{SiteItems: 2, ForumItems: 0, ForumErr: errors.New("forum down")}
	h := newHarness(t, authYAML, func(h *harness) {
		h.appCtx.RegisterService(ingest.RefresherService, mock)
	})

	var resp RefreshResponse
	if code := h.do(t, http.MethodPost, "/api/corpus/refresh?source=forum", "", testToken, &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.SiteItems != nil {
		t.Errorf("site pass should not run, got %v", *resp.SiteItems)
	}
	if resp.ForumError != "forum down" {
		t.Errorf("forum_error = %q", resp.ForumError)
	}
	if mock.SiteCalls.Load() != 0 || mock.ForumCalls.Load() != 1 {
		t.Errorf("calls: site=%d forum=%d", mock.SiteCalls.Load(), mock.ForumCalls.Load())
	}

	if code := h.do(t, http.MethodPost, "/api/corpus/refresh?source=wiki", "", testToken, nil); code != http.StatusUnprocessableEntity {
		t.Errorf("unknown source status = %d, want 422", code)
	}
}

func TestAdmin_RefreshRateLimited(t *testing.T) {
	t.Parallel()

	mock := &crontest.MockRefresher{}
	h := newHarness(t, authYAML+"\nrate_limit: {refreshes_per_hour: 1}", func(h *harness) {
		h.appCtx.RegisterService(ingest.RefresherService, mock)
	})

	h.do(t, http.MethodPost, "/api/corpus/refresh", "", testToken, nil)
	if code := h.do(t, http.MethodPost, "/api/corpus/refresh", "", testToken, nil); code != http.StatusTooManyRequests {
		t.Errorf("second refresh = %d, want 429", code)
	}
}

func TestAdmin_Search(t *testing.T) {
	t.Parallel()

	h := newHarness(t, authYAML, func(h *harness) {
		a, err := archive.Open(t.Context(), archive.Config{Enabled: true, Path: filepath.Join(t.TempDir(), "corpus.db")})
		if err != nil {
			t.Fatalf("archive.Open: %v", err)
		}
		t.Cleanup(func() { _ = a.Close() })
		h.ingestor.SetRecorder(ingest.ArchiveRecorder{Archive: a})
		h.appCtx.RegisterService(ingest.ArchiveService, a)
	})
	h.ingestor.IngestSiteContent(t.Context())

	var items []archive.Item
	if code := h.do(t, http.MethodGet, "/api/corpus/search?q=docker", "", testToken, &items); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(items) == 0 {
		t.Fatal("expected at least one hit for docker")
	}
	if items[0].PassID == "" {
		t.Error("archived item should carry its pass id")
	}

	if code := h.do(t, http.MethodGet, "/api/corpus/search", "", testToken, nil); code != http.StatusUnprocessableEntity {
		t.Errorf("missing q = %d, want 422", code)
	}
	if code := h.do(t, http.MethodGet, "/api/corpus/search?q=x&limit=zero", "", testToken, nil); code != http.StatusUnprocessableEntity {
		t.Errorf("bad limit = %d, want 422", code)
	}
}

func TestAdmin_SearchWithoutArchive(t *testing.T) {
	t.Parallel()

	h := newHarness(t, authYAML, nil)
	if code := h.do(t, http.MethodGet, "/api/corpus/search?q=docker", "", testToken, nil); code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
}

func TestAdmin_ConfigRedacted(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), config.FileName)
	content := `version: "1"
modules:
  gateway.http:
    auth:
      bearer_token: ` + testToken + `
  ingest.corpus:
    forum:
      provider: discourse
      api_key: 0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef
      api_user: system
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	h := newHarness(t, authYAML, func(h *harness) {
		h.appCtx.RegisterService(config.PathService, path)
	})

	code, body := h.raw(t, http.MethodGet, "/api/config", "", testToken)
	if code != http.StatusOK {
		t.Fatalf("status = %d: %s", code, body)
	}
	if strings.Contains(body, testToken) || strings.Contains(body, "0123456789abcdef") {
		t.Errorf("secret leaked: %s", body)
	}
	if !strings.Contains(body, `"api_user":"system"`) {
		t.Errorf("non-secret value missing: %s", body)
	}
	if !strings.Contains(body, security.RedactPlaceholder) {
		t.Errorf("expected placeholder: %s", body)
	}
}

func TestAdmin_ConfigUnavailable(t *testing.T) {
	t.Parallel()

	h := newHarness(t, authYAML, nil)
	if code := h.do(t, http.MethodGet, "/api/config", "", testToken, nil); code != http.StatusServiceUnavailable {
		t.Errorf("GET /api/config = %d, want 503", code)
	}
	if code := h.do(t, http.MethodPost, "/api/config/reload", "", testToken, nil); code != http.StatusServiceUnavailable {
		t.Errorf("POST /api/config/reload = %d, want 503", code)
	}
}
