package gateway

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/flemzord/tdsta/internal/ingest"
	"github.com/flemzord/tdsta/internal/qa"
)

func TestAPI_Info(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "{}", nil)
	var info InfoResponse
	if code := h.do(t, http.MethodGet, "/", "", "", &info); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if info.Message != "TDS Virtual TA API" || info.Version != Version {
		t.Errorf("info = %+v", info)
	}
	if _, ok := info.Endpoints["POST /api/"]; !ok {
		t.Errorf("endpoints = %v", info.Endpoints)
	}
}

func TestAPI_Health(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "{}", nil)

	var before HealthResponse
	if code := h.do(t, http.MethodGet, "/api/health", "", "", &before); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if before.Status != "healthy" || before.CorpusSize != 0 || before.LastRefreshedAt != nil {
		t.Errorf("before ingestion: %+v", before)
	}

	h.ingestor.IngestSiteContent(t.Context())

	var after HealthResponse
	h.do(t, http.MethodGet, "/api/health", "", "", &after)
	if after.CorpusSize != 2 {
		t.Errorf("corpus_size = %d, want 2", after.CorpusSize)
	}
	if after.LastRefreshedAt == nil {
		t.Error("last_refreshed_at not set after ingestion")
	}
	if after.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestAPI_Question(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "{}", nil)

	tests := []struct {
		name      string
		body      string
		wantStart string
		wantLinks int
	}{
		{
			name:      "model question",
			body:      `{"question": "Should I use gpt-4o-mini which AI proxy supports, or gpt-3.5-turbo-0125?"}`,
			wantStart: "You must use `gpt-3.5-turbo-0125`",
			wantLinks: 2,
		},
		{
			name:      "future exam",
			body:      `{"question": "When is the TDS Sep 2025 end-term exam?"}`,
			wantStart: "I don't have information about the TDS Sep 2025",
			wantLinks: 0,
		},
		{
			name:      "unmatched",
			body:      `{"question": "What is the meaning of life?"}`,
			wantStart: qa.DefaultAnswer,
			wantLinks: 2,
		},
		{
			name:      "null image",
			body:      `{"question": "docker or podman?", "image": null}`,
			wantStart: "While you know Docker",
			wantLinks: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var ans qa.Answer
			if code := h.do(t, http.MethodPost, "/api/", tt.body, "", &ans); code != http.StatusOK {
				t.Fatalf("status = %d", code)
			}
			if !strings.HasPrefix(ans.Answer, tt.wantStart) {
				t.Errorf("answer = %q, want prefix %q", ans.Answer, tt.wantStart)
			}
			if len(ans.Links) != tt.wantLinks {
				t.Errorf("links = %v, want %d", ans.Links, tt.wantLinks)
			}
		})
	}
}

func TestAPI_QuestionLinksNeverNull(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "{}", nil)
	_, body := h.raw(t, http.MethodPost, "/api/", `{"question": "september 2025 end-term exam"}`, "")
	if !strings.Contains(body, `"links":[]`) {
		t.Errorf("body = %s, want empty links array", body)
	}
}

func TestAPI_QuestionFallbackLinks(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "{}", nil)
	var ans qa.Answer
	h.do(t, http.MethodPost, "/api/", `{"question": "unrelated"}`, "", &ans)

	roots := ingest.DefaultRoots()
	if len(ans.Links) != 2 || ans.Links[0] != roots.Forum || ans.Links[1] != roots.Site {
		t.Errorf("links = %v, want [%v %v]", ans.Links, roots.Forum, roots.Site)
	}
}

func TestAPI_MalformedImageIgnored(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "{}", nil)

	var plain, withImage qa.Answer
	h.do(t, http.MethodPost, "/api/", `{"question": "ga4 dashboard bonus"}`, "", &plain)
	code := h.do(t, http.MethodPost, "/api/", `{"question": "ga4 dashboard bonus", "image": "%%%not-base64"}`, "", &withImage)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if plain.Answer != withImage.Answer || len(plain.Links) != len(withImage.Links) {
		t.Errorf("image changed the answer: %+v vs %+v", plain, withImage)
	}
}

func TestAPI_QuestionValidation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "{}", nil)

	tests := []struct {
		name       string
		body       string
		wantDetail string
	}{
		{name: "invalid json", body: `{"question": `, wantDetail: "Invalid JSON body"},
		{name: "array", body: `["question"]`, wantDetail: "JSON object"},
		{name: "missing question", body: `{"image": "aGk="}`, wantDetail: "Field required"},
		{name: "null question", body: `{"question": null}`, wantDetail: "Field required"},
		{name: "number question", body: `{"question": 42}`, wantDetail: "must be a string"},
		{name: "empty question", body: `{"question": "   "}`, wantDetail: "must not be empty"},
		{name: "object image", body: `{"question": "hi", "image": {}}`, wantDetail: "image"},
		{name: "too deep", body: `{"question": "hi", "x": ` + strings.Repeat("[", 20) + strings.Repeat("]", 20) + `}`, wantDetail: "too deep"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var resp struct {
				Detail string `json:"detail"`
			}
			code := h.do(t, http.MethodPost, "/api/", tt.body, "", &resp)
			if code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", code)
			}
			if !strings.Contains(resp.Detail, tt.wantDetail) {
				t.Errorf("detail = %q, want %q", resp.Detail, tt.wantDetail)
			}
		})
	}
}

func TestAPI_BodyTooLarge(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "max_body_size: 32", nil)
	code := h.do(t, http.MethodPost, "/api/", `{"question": "`+strings.Repeat("a", 64)+`"}`, "", nil)
	if code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", code)
	}
}

func TestAPI_QuestionRateLimit(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "rate_limit: {questions_per_min: 1}", nil)
	if code := h.do(t, http.MethodPost, "/api/", `{"question": "docker"}`, "", nil); code != http.StatusOK {
		t.Fatalf("first status = %d", code)
	}
	var resp struct {
		Detail string `json:"detail"`
	}
	if code := h.do(t, http.MethodPost, "/api/", `{"question": "docker"}`, "", &resp); code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", code)
	}
	if resp.Detail == "" {
		t.Error("missing detail")
	}
}

func TestAPI_QuestionRateLimitPerClient(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "rate_limit: {questions_per_min: 3}\ntrust_proxy_headers: true", nil)
	ask := func(client string) int {
		req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, h.srv.URL+"/api/",
			strings.NewReader(`{"question": "docker or podman"}`))
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", client)
		resp, err := h.srv.Client().Do(req)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	for i := range 3 {
		if code := ask("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("student A question %d: status = %d", i+1, code)
		}
	}
	if code := ask("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("student A over limit: status = %d, want 429", code)
	}
	if code := ask("10.0.0.2"); code != http.StatusOK {
		t.Errorf("student B: status = %d, want 200", code)
	}
}

func TestAPI_NotFoundAndMethodNotAllowed(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "{}", nil)

	var resp struct {
		Detail string `json:"detail"`
	}
	if code := h.do(t, http.MethodGet, "/nope", "", "", &resp); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if resp.Detail != "Endpoint not found" {
		t.Errorf("detail = %q", resp.Detail)
	}

	resp.Detail = ""
	if code := h.do(t, http.MethodGet, "/api/", "", "", &resp); code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", code)
	}
	if resp.Detail == "" {
		t.Error("405 should carry a JSON detail")
	}
}

func TestAPI_AdminRoutesHiddenWithoutAuth(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "{}", nil)
	if code := h.do(t, http.MethodGet, "/api/topics", "", "", nil); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestAPI_PanicRecovered(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "{}", func(h *harness) {
		h.appCtx.RegisterService(qa.ServiceName, panicAnswerer{})
	})

	var resp struct {
		Detail string `json:"detail"`
	}
	if code := h.do(t, http.MethodPost, "/api/", `{"question": "docker"}`, "", &resp); code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", code)
	}
	if resp.Detail != "Internal server error" {
		t.Errorf("detail = %q", resp.Detail)
	}
}

func TestAPI_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "{}", nil)
	h.do(t, http.MethodPost, "/api/", `{"question": "docker"}`, "", nil)

	req, _ := http.NewRequestWithContext(t.Context(), http.MethodGet, h.srv.URL+"/metrics", nil)
	resp, err := h.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"tdsta_questions_total", "tdsta_http_request_duration_seconds"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestAPI_CORSPreflight(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "{}", nil)
	req, _ := http.NewRequestWithContext(t.Context(), http.MethodOptions, h.srv.URL+"/api/", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := h.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestFTSQuery(t *testing.T) {
	t.Parallel()

	if got, want := ftsQuery(`gpt-4o "mini"`), `"gpt-4o" """mini"""`; got != want {
		t.Errorf("ftsQuery() = %q, want %q", got, want)
	}
}
