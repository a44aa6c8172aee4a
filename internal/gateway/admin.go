package gateway

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/flemzord/tdsta/internal/config"
	"github.com/flemzord/tdsta/internal/ingest"
	"github.com/flemzord/tdsta/internal/knowledge"
	"github.com/flemzord/tdsta/internal/security"
)

// Admin query limits.
const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

// Refresh sources accepted by POST /api/corpus/refresh.
const (
	refreshSite  = "site"
	refreshForum = "forum"
	refreshAll   = "all"
)

// handleListTopics returns the topic catalog in match order.
func (g *Gateway) handleListTopics() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.holder == nil {
			writeDetail(w, http.StatusServiceUnavailable, "Knowledge store not available")
			return
		}
		entries := g.holder.Store().Entries()
		if entries == nil {
			entries = []knowledge.TopicEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// CorpusResponse is the JSON response for GET /api/corpus.
type CorpusResponse struct {
	Count int                  `json:"count"`
	Items []ingest.ContentItem `json:"items"`
}

// handleListCorpus returns the corpus, optionally filtered by ?category=.
func (g *Gateway) handleListCorpus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.ingestor == nil {
			writeDetail(w, http.StatusServiceUnavailable, "Corpus not available")
			return
		}
		category := r.URL.Query().Get("category")
		items := make([]ingest.ContentItem, 0)
		for _, it := range g.ingestor.Corpus().Items() {
			if category == "" || strings.EqualFold(it.Category, category) {
				items = append(items, it)
			}
		}
		writeJSON(w, http.StatusOK, CorpusResponse{Count: len(items), Items: items})
	}
}

// handleSearchCorpus runs a full-text search over the archive.
func (g *Gateway) handleSearchCorpus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.archive == nil {
			writeDetail(w, http.StatusServiceUnavailable, "Archive not enabled")
			return
		}
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			writeDetail(w, http.StatusUnprocessableEntity, "Query parameter required: q")
			return
		}
		limit := defaultSearchLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeDetail(w, http.StatusUnprocessableEntity, "limit must be a positive integer")
				return
			}
			limit = min(n, maxSearchLimit)
		}

		items, err := g.archive.Search(r.Context(), ftsQuery(q), limit)
		if err != nil {
			g.logger.Error("archive search failed", "error", err)
			writeDetail(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if items == nil {
			writeJSON(w, http.StatusOK, []struct{}{})
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// ftsQuery quotes each term so user input is matched literally rather than
// parsed as FTS5 syntax.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

// RefreshResponse is the JSON response for POST /api/corpus/refresh.
type RefreshResponse struct {
	SiteItems  *int   `json:"site_items,omitempty"`
	ForumItems *int   `json:"forum_items,omitempty"`
	ForumError string `json:"forum_error,omitempty"`
	CorpusSize int    `json:"corpus_size"`
}

// handleRefreshCorpus runs ingestion passes now. ?source= selects site,
// forum or all (default).
func (g *Gateway) handleRefreshCorpus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.refresher == nil || g.ingestor == nil {
			writeDetail(w, http.StatusServiceUnavailable, "Ingestion not available")
			return
		}
		source := r.URL.Query().Get("source")
		if source == "" {
			source = refreshAll
		}
		if source != refreshSite && source != refreshForum && source != refreshAll {
			writeDetail(w, http.StatusUnprocessableEntity, "source must be site, forum or all")
			return
		}
		if err := g.limiter.Allow(security.BucketRefresh); err != nil {
			emitAuthEvent(g.audit, security.EventRateLimit, r, security.BucketRefresh)
			writeDetail(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		// Passes outlive a dropped client connection.
		ctx := context.WithoutCancel(r.Context())
		var resp RefreshResponse
		if source != refreshForum {
			n := g.refresher.RefreshSite(ctx)
			resp.SiteItems = &n
		}
		if source != refreshSite {
			n, err := g.refresher.RefreshForum(ctx)
			resp.ForumItems = &n
			if err != nil {
				resp.ForumError = err.Error()
			}
		}
		resp.CorpusSize = g.ingestor.Corpus().Len()

		g.audit.Log(security.AuditEvent{
			Type:       security.EventCorpusRefresh,
			RemoteAddr: r.RemoteAddr,
			Method:     r.Method,
			Path:       r.URL.Path,
			Detail:     source,
			Metadata:   map[string]string{"corpus_size": strconv.Itoa(resp.CorpusSize)},
		})
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleGetConfig returns the configuration file with secrets redacted.
func (g *Gateway) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.configPath == "" {
			writeDetail(w, http.StatusServiceUnavailable, "Config path not set")
			return
		}

		cfg, err := config.Load(g.configPath)
		if err != nil {
			g.logger.Error("config load failed", "error", err)
			writeDetail(w, http.StatusInternalServerError, "Failed to load config")
			return
		}

		modules := make(map[string]any, len(cfg.Modules))
		for id, node := range cfg.Modules {
			var v any
			if err := node.Decode(&v); err != nil {
				writeDetail(w, http.StatusInternalServerError, "Failed to decode config")
				return
			}
			if v == nil {
				v = map[string]any{}
			}
			modules[id] = v
		}
		out := map[string]any{
			"version":  cfg.Version,
			"data_dir": cfg.ResolvedDataDir(),
			"log":      map[string]any{"level": cfg.Log.Level, "format": cfg.Log.Format},
			"modules":  modules,
		}

		redactor := g.redactor
		if redactor == nil {
			redactor = security.NewRedactor()
		}
		redactor.RedactMap(out)

		writeJSON(w, http.StatusOK, out)
	}
}

// handleReloadConfig triggers a hot-reload of the configuration.
func (g *Gateway) handleReloadConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.configPath == "" || g.reloader == nil {
			writeDetail(w, http.StatusServiceUnavailable, "Reload not available")
			return
		}
		if err := g.reloader.HandleReload(r.Context(), g.configPath); err != nil {
			g.logger.Error("config reload failed", "error", err)
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
	}
}
