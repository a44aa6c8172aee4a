package knowledge

import (
	"fmt"

	"github.com/flemzord/tdsta/internal/core"
	"gopkg.in/yaml.v3"
)

// HolderService is the service name under which the module publishes its
// *Holder.
const HolderService = "knowledge.holder"

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Reloader     = (*Module)(nil)
)

// ModuleConfig configures the knowledge.store module.
type ModuleConfig struct {
	// File is an optional YAML topic catalog. The built-in topics are used
	// when empty.
	File string `yaml:"file"`
}

// Module exposes the topic catalog to the rest of the application.
type Module struct {
	config ModuleConfig
	holder *Holder
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "knowledge.store",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("knowledge: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	store, err := m.config.build()
	if err != nil {
		return err
	}
	m.holder = NewHolder(store)
	ctx.RegisterService(HolderService, m.holder)

	source := m.config.File
	if source == "" {
		source = "built-in"
	}
	ctx.Logger.Info("knowledge base loaded", "topics", store.Len(), "source", source)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.holder == nil || m.holder.Store() == nil {
		return fmt.Errorf("%w: store not provisioned", ErrConfig)
	}
	return nil
}

// Reload implements core.Reloader. The new catalog replaces the old one only
// if it is valid.
func (m *Module) Reload(ctx *core.AppContext) error {
	var cfg ModuleConfig
	if node, ok := ctx.ModuleConfig(m.ModuleInfo().ID); ok {
		if err := node.Decode(&cfg); err != nil {
			return fmt.Errorf("knowledge: decode config: %w", err)
		}
	}

	store, err := cfg.build()
	if err != nil {
		return err
	}
	m.config = cfg
	m.holder.Swap(store)
	ctx.Logger.Info("knowledge base reloaded", "topics", store.Len())
	return nil
}

// Holder returns the catalog holder.
func (m *Module) Holder() *Holder {
	return m.holder
}

func (c ModuleConfig) build() (*Store, error) {
	if c.File == "" {
		return NewStore(DefaultEntries())
	}
	return LoadFile(c.File)
}
