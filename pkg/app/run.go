// Package app assembles the tdsta runtime: it loads configuration, builds
// the shared services, loads the modules and drives the process lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/flemzord/tdsta/internal/config"
	"github.com/flemzord/tdsta/internal/core"
	"github.com/flemzord/tdsta/internal/ingest"
	"github.com/flemzord/tdsta/internal/knowledge"
	"github.com/flemzord/tdsta/internal/qa"
	"github.com/flemzord/tdsta/internal/reload"
	"github.com/flemzord/tdsta/internal/security"
	"github.com/flemzord/tdsta/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// AuditFileName is the audit log written under the data directory.
const AuditFileName = "audit.jsonl"

// RunParams configures the runtime.
type RunParams struct {
	// ConfigPath is an explicit configuration file. If empty, config.Find
	// is used.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the configured data directory.
	DataDir string

	// LogLevel overrides log.level from the configuration.
	LogLevel string
}

// Runtime is a loaded but not necessarily started application.
type Runtime struct {
	App        *core.App
	Config     *config.Config
	ConfigPath string
	DataDir    string
	Logger     *slog.Logger
	Redactor   *security.Redactor
	Audit      *security.AuditLogger
	Metrics    *telemetry.Metrics
	QA         *qa.Service
	Reloader   *reload.Handler

	auditFile *os.File
	closeOnce sync.Once
}

// Build loads and validates the configuration, registers the shared
// services and loads every configured module. Modules are not started.
func Build(params RunParams) (*Runtime, error) {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		found, err := config.Find()
		if err != nil {
			return nil, fmt.Errorf("%w (searched: %v)", err, config.SearchPaths())
		}
		cfgPath = found
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	levelName := cfg.Log.Level
	if params.LogLevel != "" {
		levelName = params.LogLevel
	}
	level := slog.LevelInfo
	if levelName != "" {
		if level, err = config.ParseLevel(levelName); err != nil {
			return nil, err
		}
	}

	redactor := security.NewRedactor()
	redactor.SetLiterals(Secrets(cfg)...)
	logger := NewLogger(os.Stderr, cfg.Log.Format, level, redactor)

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = cfg.ResolvedDataDir()
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	auditFile, err := os.OpenFile(filepath.Join(dataDir, AuditFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	audit := security.NewAuditLogger(security.AuditLoggerConfig{
		Writer:   auditFile,
		Redactor: redactor,
	})
	metrics := telemetry.NewMetrics()

	appCtx := core.NewAppContext(logger, dataDir).WithModuleConfigs(cfg.Modules)
	appCtx.RegisterService(security.RedactorService, redactor)
	appCtx.RegisterService(security.AuditService, audit)
	appCtx.RegisterService(telemetry.MetricsService, metrics)
	appCtx.RegisterService(config.PathService, cfgPath)

	application := core.NewApp(appCtx)
	if err := application.LoadModules(config.Resolve(cfg)); err != nil {
		_ = auditFile.Close()
		return nil, err
	}

	// The question service is built after LoadModules so it sees the
	// catalog holder, the ingestor roots and the tracer.
	ks, _ := core.Lookup[qa.KnowledgeSource](appCtx, knowledge.HolderService)
	roots, _ := core.Lookup[qa.RootsSource](appCtx, ingest.IngestorService)
	tracer, _ := core.Lookup[trace.Tracer](appCtx, telemetry.TracerService)
	service := qa.NewService(qa.Config{
		Knowledge: ks,
		Roots:     roots,
		Logger:    logger.With("component", "qa"),
		Metrics:   metrics,
		Tracer:    tracer,
	})
	appCtx.RegisterService(qa.ServiceName, service)

	handler := reload.NewHandler(application, logger, audit)
	handler.OnReload(func(c *config.Config) {
		redactor.SetLiterals(Secrets(c)...)
	})
	appCtx.RegisterService(reload.HandlerService, handler)

	return &Runtime{
		App:        application,
		Config:     cfg,
		ConfigPath: cfgPath,
		DataDir:    dataDir,
		Logger:     logger,
		Redactor:   redactor,
		Audit:      audit,
		Metrics:    metrics,
		QA:         service,
		Reloader:   handler,
		auditFile:  auditFile,
	}, nil
}

// Close stops started modules and closes the audit log. It is safe to call
// more than once.
func (rt *Runtime) Close() {
	rt.closeOnce.Do(func() {
		rt.App.Stop()
		_ = rt.auditFile.Close()
	})
}

// Run starts the runtime and blocks until SIGINT or SIGTERM.
func Run(params RunParams) error {
	return RunContext(context.Background(), params)
}

// RunContext starts the runtime and blocks until ctx is done or a shutdown
// signal arrives. SIGHUP and edits to the configuration file trigger a
// live reload of modules that implement core.Reloader.
func RunContext(ctx context.Context, params RunParams) error {
	rt, err := Build(params)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.App.Start(); err != nil {
		return err
	}
	rt.Logger.Info("tdsta started", "version", params.Version, "config", rt.ConfigPath, "data_dir", rt.DataDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	watcher := reload.NewWatcher(reload.WatcherConfig{ConfigPath: rt.ConfigPath})
	watcher.Start(watchCtx)
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			rt.Logger.Info("context done, shutting down")
			return shutdown(rt, ctx.Err())
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				rt.Logger.Info("SIGHUP received, reloading configuration")
				watcher.Trigger()
				continue
			}
			rt.Logger.Info("shutdown signal received", "signal", sig.String())
			return shutdown(rt, nil)
		case evt := <-watcher.Events():
			rt.Logger.Info("reloading configuration", "trigger", string(evt.Type), "path", evt.ConfigPath)
			if err := rt.Reloader.HandleReload(watchCtx, rt.ConfigPath); err != nil {
				rt.Logger.Error("reload failed", "error", err)
			}
		}
	}
}

func shutdown(rt *Runtime, cause error) error {
	rt.Close()
	rt.Logger.Info("shutdown complete")
	if errors.Is(cause, context.Canceled) {
		return nil
	}
	return cause
}
