package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// InitOptions are the answers collected by `tdsta config init`.
type InitOptions struct {
	Bind          string
	AuthToken     string
	ForumProvider string
	ForumBaseURL  string
	ForumAPIKey   string
	ForumAPIUser  string
	SiteProvider  string
	SitePages     []string
	Archive       bool
	ForumRefresh  string
	OTLPEndpoint  string
}

// Render produces a complete version 1 configuration from opts. Empty
// options are left out so module defaults apply.
func Render(opts InitOptions) ([]byte, error) {
	gateway := map[string]any{}
	if opts.Bind != "" {
		gateway["bind"] = opts.Bind
	}
	if opts.AuthToken != "" {
		gateway["auth"] = map[string]any{"bearer_token": opts.AuthToken}
	}

	forum := map[string]any{}
	if opts.ForumProvider != "" {
		forum["provider"] = opts.ForumProvider
	}
	if opts.ForumBaseURL != "" {
		forum["base_url"] = opts.ForumBaseURL
	}
	if opts.ForumAPIKey != "" {
		forum["api_key"] = opts.ForumAPIKey
	}
	if opts.ForumAPIUser != "" {
		forum["api_user"] = opts.ForumAPIUser
	}

	site := map[string]any{}
	if opts.SiteProvider != "" {
		site["provider"] = opts.SiteProvider
	}
	if len(opts.SitePages) > 0 {
		site["pages"] = opts.SitePages
	}

	ingest := map[string]any{
		"forum":   forum,
		"site":    site,
		"archive": map[string]any{"enabled": opts.Archive},
	}
	if opts.ForumRefresh != "" {
		ingest["refresh"] = map[string]any{"forum": opts.ForumRefresh}
	}

	telemetry := map[string]any{}
	if opts.OTLPEndpoint != "" {
		telemetry["endpoint"] = opts.OTLPEndpoint
	}

	doc := map[string]any{
		"version": "1",
		"modules": map[string]any{
			"knowledge.store": map[string]any{},
			"ingest.corpus":   ingest,
			"gateway.http":    gateway,
			"telemetry.otel":  telemetry,
		},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("config: render: %w", err)
	}
	return out, nil
}
