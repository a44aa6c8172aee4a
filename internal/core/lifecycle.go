package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// Configurable is implemented by modules that accept YAML configuration.
// The node holds the module's section of the config file.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner is implemented by modules that build their runtime state
// (stores, providers, services) once configuration is decoded.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator is implemented by modules that can check their provisioned
// state. Validate must not have side effects.
type Validator interface {
	Validate() error
}

// Starter is implemented by modules that run background work such as
// listeners, schedulers or startup ingestion.
type Starter interface {
	Start() error
}

// Stopper is implemented by modules holding resources. Stop is called in
// reverse start order.
type Stopper interface {
	Stop(ctx context.Context) error
}

// Reloader is implemented by modules that can apply a fresh configuration
// without restarting the process.
type Reloader interface {
	Reload(ctx *AppContext) error
}
