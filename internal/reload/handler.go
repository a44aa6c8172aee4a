package reload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/flemzord/tdsta/internal/config"
	"github.com/flemzord/tdsta/internal/core"
	"github.com/flemzord/tdsta/internal/security"
)

// HandlerService is the service name of the running *Handler.
const HandlerService = "reload.handler"

// Listener is told about every configuration that was applied.
type Listener func(cfg *config.Config)

// Handler reloads application configuration and notifies modules.
type Handler struct {
	app    *core.App
	logger *slog.Logger
	audit  *security.AuditLogger

	mu        sync.Mutex
	listeners []Listener
}

// NewHandler creates a reload handler. audit may be nil.
func NewHandler(app *core.App, logger *slog.Logger, audit *security.AuditLogger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		app:    app,
		logger: logger,
		audit:  audit,
	}
}

// OnReload registers fn to run after each successful reload.
func (h *Handler) OnReload(fn Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// HandleReload loads a fresh config from disk, validates it, and calls Reload
// on all modules that implement core.Reloader.
func (h *Handler) HandleReload(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		h.record(configPath, err)
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		h.record(configPath, err)
		return fmt.Errorf("validating config: %w", err)
	}
	err = h.apply(ctx, cfg)
	h.record(configPath, err)
	return err
}

// HandleReloadFromConfig reloads modules from a pre-loaded, already-validated
// config. It does not re-validate.
func (h *Handler) HandleReloadFromConfig(ctx context.Context, cfg *config.Config) error {
	return h.apply(ctx, cfg)
}

func (h *Handler) apply(ctx context.Context, cfg *config.Config) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before reload: %w", err)
	}

	// Modules keep using the data directory they started with.
	appCtx := h.app.Context().WithModuleConfigs(cfg.Modules)
	if err := h.app.ReloadModules(appCtx); err != nil {
		return fmt.Errorf("reloading modules: %w", err)
	}

	h.mu.Lock()
	listeners := append([]Listener(nil), h.listeners...)
	h.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}

	h.logger.Info("configuration reloaded successfully")
	return nil
}

func (h *Handler) record(path string, err error) {
	event := security.AuditEvent{
		Type:     security.EventConfigReload,
		Detail:   "ok",
		Metadata: map[string]string{"path": path},
	}
	if err != nil {
		event.Detail = err.Error()
	}
	h.audit.Log(event)
}
