package app

import (
	"io"
	"log/slog"

	"github.com/flemzord/tdsta/internal/config"
	"github.com/flemzord/tdsta/internal/security"
	"gopkg.in/yaml.v3"
)

// NewLogger builds the root logger. Every record passes through redactor
// before reaching the text or JSON handler.
func NewLogger(w io.Writer, format string, level slog.Level, redactor *security.Redactor) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var inner slog.Handler
	if format == config.FormatJSON {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

// Secrets returns every scalar value in the module sections whose key
// names a credential, so the redactor can scrub them verbatim.
func Secrets(cfg *config.Config) []string {
	var out []string
	for _, node := range cfg.Modules {
		collectSecrets(&node, &out)
	}
	return out
}

func collectSecrets(n *yaml.Node, out *[]string) {
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			collectSecrets(c, out)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if val.Kind == yaml.ScalarNode && security.IsSecretKey(key.Value) && val.Value != "" {
				*out = append(*out, val.Value)
				continue
			}
			collectSecrets(val, out)
		}
	}
}
