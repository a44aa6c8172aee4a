package config

import (
	"strings"
	"testing"

	"github.com/flemzord/tdsta/internal/core"
	"gopkg.in/yaml.v3"
)

// plainModule stands in for a module that takes no configuration.
type plainModule struct{ id string }

func (m *plainModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  core.ModuleID(m.id),
		New: func() core.Module { return &plainModule{id: m.id} },
	}
}

// sectionModule stands in for a module that must have a config section.
type sectionModule struct{ plainModule }

func (m *sectionModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  core.ModuleID(m.id),
		New: func() core.Module { return &sectionModule{plainModule{id: m.id}} },
	}
}

func (m *sectionModule) Configure(_ *yaml.Node) error { return nil }

func init() {
	core.RegisterModule(&plainModule{id: "knowledge.store"})
	core.RegisterModule(&plainModule{id: "telemetry.otel"})
	core.RegisterModule(&sectionModule{plainModule{id: "ingest.corpus"}})
	core.RegisterModule(&sectionModule{plainModule{id: "gateway.http"}})
}

const servingModules = `
modules:
  knowledge.store: {}
  ingest.corpus:
    forum: {provider: discourse, base_url: https://discourse.onlinedegree.iitm.ac.in}
    site: {provider: http, pages: ["https://tds.s-anand.net/"]}
  gateway.http:
    bind: 127.0.0.1:8000
`

func TestValidate_Documents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		doc      string
		wantErrs []string
	}{
		{
			name: "virtual ta",
			doc:  "version: \"1\"\nlog: {level: debug, format: json}\n" + servingModules,
		},
		{
			name: "empty ingest section",
			doc:  "version: \"1\"\nmodules:\n  ingest.corpus:\n  gateway.http: {}\n",
		},
		{
			name:     "version missing",
			doc:      servingModules,
			wantErrs: []string{"version field is required"},
		},
		{
			name:     "future version",
			doc:      "version: \"2\"\n" + servingModules,
			wantErrs: []string{"unsupported", `"2"`},
		},
		{
			name:     "no modules",
			doc:      "version: \"1\"\nmodules: {}\n",
			wantErrs: []string{"at least one", `"ingest.corpus" requires configuration`, `"gateway.http" requires configuration`},
		},
		{
			name:     "gateway section missing",
			doc:      "version: \"1\"\nmodules:\n  ingest.corpus: {}\n  knowledge.store: {}\n",
			wantErrs: []string{`"gateway.http" requires configuration`},
		},
		{
			name:     "unknown scraper module",
			doc:      "version: \"1\"\n" + servingModules + "  ingest.scraper: {}\n",
			wantErrs: []string{`unknown module "ingest.scraper"`},
		},
		{
			name:     "misspelled sections",
			doc:      "version: \"1\"\n" + servingModules + "  gateway.htp: {}\n  knowledge.stor: {}\n",
			wantErrs: []string{`"gateway.htp"`, `"knowledge.stor"`},
		},
		{
			name:     "log level",
			doc:      "version: \"1\"\nlog: {level: loud}\n" + servingModules,
			wantErrs: []string{`invalid log level "loud"`},
		},
		{
			name:     "log format",
			doc:      "version: \"1\"\nlog: {format: xml}\n" + servingModules,
			wantErrs: []string{`log.format "xml"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := Parse([]byte(tt.doc))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			err = Validate(cfg)
			if len(tt.wantErrs) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want errors %q", tt.wantErrs)
			}
			for _, want := range tt.wantErrs {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Validate() = %v, want it to mention %q", err, want)
				}
			}
		})
	}
}

func TestValidate_RenderedInitConfig(t *testing.T) {
	t.Parallel()

	raw, err := Render(InitOptions{
		Bind:          "127.0.0.1:8000",
		ForumProvider: "static",
		SitePages:     []string{"https://tds.s-anand.net/"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v\n%s", err, raw)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("rendered config does not validate: %v\n%s", err, raw)
	}
}
