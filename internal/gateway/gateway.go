// Package gateway serves the question API over HTTP and websockets, along
// with health, metrics and auth-guarded admin endpoints. It binds to
// loopback by default and follows the module system pattern.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/flemzord/tdsta/internal/config"
	"github.com/flemzord/tdsta/internal/core"
	"github.com/flemzord/tdsta/internal/cron"
	"github.com/flemzord/tdsta/internal/ingest"
	"github.com/flemzord/tdsta/internal/ingest/archive"
	"github.com/flemzord/tdsta/internal/knowledge"
	"github.com/flemzord/tdsta/internal/qa"
	"github.com/flemzord/tdsta/internal/reload"
	"github.com/flemzord/tdsta/internal/security"
	"github.com/flemzord/tdsta/internal/telemetry"
	"gopkg.in/yaml.v3"
)

// Version is reported by GET / and GET /api/health.
const Version = "1.0.0"

func init() {
	core.RegisterModule(&Gateway{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// Answerer answers questions.
type Answerer interface {
	Process(ctx context.Context, question string, image *string) qa.Answer
}

// Gateway is the HTTP gateway module. It is a leaf module: nothing imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	limiter   *security.RateLimiter
	audit     *security.AuditLogger
	startedAt time.Time
	now       func() time.Time

	// Resolved lazily at Start() via service registry.
	answerer   Answerer
	ingestor   *ingest.Ingestor
	refresher  cron.Refresher
	archive    *archive.Archive
	holder     *knowledge.Holder
	metrics    *telemetry.Metrics
	redactor   *security.Redactor
	reloader   *reload.Handler
	configPath string
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return fmt.Errorf("gateway: decode config: %w", err)
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.now = time.Now
	g.limiter = security.NewRateLimiter(g.config.RateLimit)

	if a, ok := core.Lookup[*security.AuditLogger](ctx, security.AuditService); ok {
		g.audit = a
	} else {
		g.audit = security.NewAuditLogger(security.AuditLoggerConfig{
			OnEvent: func(e security.AuditEvent) {
				g.logger.Info("audit", "type", string(e.Type), "path", e.Path, "remote_addr", e.RemoteAddr, "detail", e.Detail)
			},
		})
	}

	// Keep gateway credentials out of logs and the config dump.
	if r, ok := core.Lookup[*security.Redactor](ctx, security.RedactorService); ok {
		r.AddLiteral(g.config.Auth.BearerToken)
		r.AddLiteral(g.config.Auth.BasicPass)
	}
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	return g.config.validate()
}

// resolve binds the services published by other modules. Missing optional
// services disable the endpoints that need them.
func (g *Gateway) resolve() {
	ctx := g.appCtx
	g.ingestor, _ = core.Lookup[*ingest.Ingestor](ctx, ingest.IngestorService)
	g.refresher, _ = core.Lookup[cron.Refresher](ctx, ingest.RefresherService)
	g.archive, _ = core.Lookup[*archive.Archive](ctx, ingest.ArchiveService)
	g.holder, _ = core.Lookup[*knowledge.Holder](ctx, knowledge.HolderService)
	g.metrics, _ = core.Lookup[*telemetry.Metrics](ctx, telemetry.MetricsService)
	g.redactor, _ = core.Lookup[*security.Redactor](ctx, security.RedactorService)
	g.reloader, _ = core.Lookup[*reload.Handler](ctx, reload.HandlerService)
	g.configPath, _ = core.Lookup[string](ctx, config.PathService)

	if a, ok := core.Lookup[Answerer](ctx, qa.ServiceName); ok {
		g.answerer = a
		return
	}
	cfg := qa.Config{Logger: g.logger}
	if g.holder != nil {
		cfg.Knowledge = g.holder
	}
	if g.ingestor != nil {
		cfg.Roots = g.ingestor
	}
	if g.metrics != nil {
		cfg.Metrics = g.metrics
	}
	g.answerer = qa.NewService(cfg)
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	g.resolve()
	g.startedAt = g.now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String(), "admin", g.config.Auth.IsConfigured())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
