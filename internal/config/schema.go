// Package config handles YAML configuration loading, environment variable
// expansion, lookup and structural validation for tdsta.
package config

import "gopkg.in/yaml.v3"

// PathService is the service name under which the path of the loaded
// configuration file is registered.
const PathService = "config.path"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir holds persistent state such as the ingestion archive.
	// Defaults to DefaultDataDir.
	DataDir string `yaml:"data_dir,omitempty"`

	// Log configures the root logger.
	Log LogConfig `yaml:"log,omitempty"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "ingest.corpus").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LogConfig configures the root slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level,omitempty"`

	// Format is "text" or "json". Defaults to text.
	Format string `yaml:"format,omitempty"`
}

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)
