package archive

import (
	"fmt"
	"path/filepath"
)

const (
	defaultBusyTimeout = 5000
	defaultDBFile      = "corpus.db"
)

// Config configures the archive database.
type Config struct {
	// Enabled turns the archive on. Defaults to false.
	Enabled bool `yaml:"enabled"`

	// Path is the database file. Defaults to {DataDir}/corpus.db.
	Path string `yaml:"path"`

	// WAL enables WAL journal mode. Defaults to true.
	WAL *bool `yaml:"wal"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`
}

// Defaults fills unset fields.
func (c *Config) Defaults() {
	if c.WAL == nil {
		t := true
		c.WAL = &t
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
}

// DefaultPath returns the database path under dataDir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, defaultDBFile)
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

// Validate checks numeric bounds.
func (c *Config) Validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("archive: busy_timeout must be non-negative, got %d", c.BusyTimeout)
	}
	return nil
}
