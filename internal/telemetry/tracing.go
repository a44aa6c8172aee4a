package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/flemzord/tdsta/internal/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"
)

// TracerService is the service name under which the tracer is registered.
const TracerService = "telemetry.tracer"

// Version is stamped into the service.version resource attribute.
var Version = "dev"

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	// Endpoint is the OTLP/HTTP collector host:port. Export is disabled
	// when empty.
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
}

func (c *TracingConfig) defaults() {
	if c.ServiceName == "" {
		c.ServiceName = "tdsta"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1
	}
}

func (c *TracingConfig) validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("telemetry: sample_rate must be within [0, 1], got %g", c.SampleRate)
	}
	return nil
}

// Module installs the global tracer provider.
type Module struct {
	config   TracingConfig
	logger   *slog.Logger
	provider *sdktrace.TracerProvider
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "telemetry.otel",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("telemetry: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	if err := m.config.validate(); err != nil {
		return err
	}
	m.logger = ctx.Logger

	tp, err := NewTracerProvider(context.TODO(), m.config)
	if err != nil {
		return err
	}
	m.provider = tp
	otel.SetTracerProvider(tp)
	ctx.RegisterService(TracerService, tp.Tracer("github.com/flemzord/tdsta"))

	m.logger.Info("tracing configured",
		"endpoint", m.config.Endpoint,
		"exporting", m.config.Endpoint != "",
		"sample_rate", m.config.SampleRate,
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.provider == nil {
		return errors.New("telemetry: tracer provider not provisioned")
	}
	return nil
}

// Stop implements core.Stopper. Pending spans are flushed.
func (m *Module) Stop(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.provider.Shutdown(ctx)
}

// NewTracerProvider builds a tracer provider. Without an endpoint spans are
// sampled but never exported.
func NewTracerProvider(ctx context.Context, cfg TracingConfig) (*sdktrace.TracerProvider, error) {
	cfg.defaults()
	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", Version),
		attribute.String("host.name", hostname()),
	)
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	}

	if cfg.Endpoint != "" {
		clientOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			clientOpts = append(clientOpts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("telemetry: create OTLP exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
