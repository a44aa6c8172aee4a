package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	if g.config.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(g.observe)
	r.Use(g.recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: g.config.CORS.AllowedOrigins,
		AllowedMethods: g.config.CORS.AllowedMethods,
		AllowedHeaders: g.config.CORS.AllowedHeaders,
	}).Handler)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Public.
	r.Get("/", g.handleInfo())
	r.Get("/api/health", g.handleHealth())
	r.Post("/api/", g.handleQuestion())
	if g.metrics != nil {
		r.Method(http.MethodGet, "/metrics", g.metrics.Handler())
	}
	if *g.config.WebSocket {
		r.Get("/ws", g.handleWebSocket())
	}

	// Admin endpoints. Not mounted if no auth configured. Paths are
	// registered flat: mounting a /api subrouter would shadow POST /api/.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.audit, g.limiter))
			r.Get("/status", g.handleStatus())
			r.Get("/api/topics", g.handleListTopics())
			r.Get("/api/corpus", g.handleListCorpus())
			r.Get("/api/corpus/search", g.handleSearchCorpus())
			r.Post("/api/corpus/refresh", g.handleRefreshCorpus())
			r.Get("/api/config", g.handleGetConfig())
			r.Post("/api/config/reload", g.handleReloadConfig())
		})
	}

	return r
}
