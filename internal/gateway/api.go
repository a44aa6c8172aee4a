package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/flemzord/tdsta/internal/security"
)

// requestError is a client-facing validation message.
type requestError string

func (e requestError) Error() string { return string(e) }

// InfoResponse is the JSON response for GET /.
type InfoResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// HealthResponse is the JSON response for GET /api/health.
type HealthResponse struct {
	Status          string     `json:"status"`
	Timestamp       time.Time  `json:"timestamp"`
	Version         string     `json:"version"`
	CorpusSize      int        `json:"corpus_size"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at"`
}

func (g *Gateway) handleInfo() http.HandlerFunc {
	endpoints := map[string]string{
		"POST /api/":      "Submit questions to the Virtual TA",
		"GET /api/health": "Health check endpoint",
	}
	if *g.config.WebSocket {
		endpoints["GET /ws"] = "Ask questions over a websocket"
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, InfoResponse{
			Message:   "TDS Virtual TA API",
			Version:   Version,
			Endpoints: endpoints,
		})
	}
}

func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status:    "healthy",
			Timestamp: g.now().UTC(),
			Version:   Version,
		}
		if g.ingestor != nil {
			stats := g.ingestor.Corpus().Stats()
			resp.CorpusSize = stats.Items
			if !stats.LastRefreshedAt.IsZero() {
				ts := stats.LastRefreshedAt
				resp.LastRefreshedAt = &ts
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleQuestion serves POST /api/.
func (g *Gateway) handleQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := g.limiter.AllowKey(security.BucketQuestion, clientIP(r)); err != nil {
			g.audit.Log(security.AuditEvent{
				Type:       security.EventRateLimit,
				RemoteAddr: r.RemoteAddr,
				Method:     r.Method,
				Path:       r.URL.Path,
				Detail:     security.BucketQuestion,
			})
			writeDetail(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		body, err := security.ReadBody(r.Body, g.config.MaxBodySize)
		if err != nil {
			if errors.Is(err, security.ErrBodyTooLarge) {
				writeDetail(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			writeDetail(w, http.StatusBadRequest, "Could not read request body")
			return
		}

		question, image, err := g.parseQuestion(body)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, g.answerer.Process(r.Context(), question, image))
	}
}

// questionRequest keeps raw fields so missing and mistyped values can be
// told apart.
type questionRequest struct {
	Question json.RawMessage `json:"question"`
	Image    json.RawMessage `json:"image"`
}

// parseQuestion validates a {"question", "image"?} payload. Errors are
// requestError values.
func (g *Gateway) parseQuestion(body []byte) (string, *string, error) {
	if err := security.ValidateJSONDepth(body, g.config.MaxJSONDepth); err != nil {
		if errors.Is(err, security.ErrJSONTooDeep) {
			return "", nil, requestError("JSON nesting too deep")
		}
		return "", nil, requestError("Invalid JSON body")
	}

	var req questionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", nil, requestError("Request body must be a JSON object")
	}

	if isNull(req.Question) {
		return "", nil, requestError("Field required: question")
	}
	var question string
	if err := json.Unmarshal(req.Question, &question); err != nil {
		return "", nil, requestError("question must be a string")
	}
	if strings.TrimSpace(question) == "" {
		return "", nil, requestError("question must not be empty")
	}

	if isNull(req.Image) {
		return question, nil, nil
	}
	var image string
	if err := json.Unmarshal(req.Image, &image); err != nil {
		return "", nil, requestError("image must be a base64 string")
	}
	return question, &image, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes a {"detail": msg} error body.
func writeDetail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"detail": msg})
}
