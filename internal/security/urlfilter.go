package security

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// ErrURLBlocked is returned when a URL is denied by the filter.
var ErrURLBlocked = errors.New("URL blocked by filter")

// URLFilterConfig lists the domains outbound fetches may reach. Subdomains
// match: allowing "example.com" allows "api.example.com". Deny wins.
type URLFilterConfig struct {
	AllowDomains []string `yaml:"allow_domains"`
	DenyDomains  []string `yaml:"deny_domains"`
}

// URLFilter is a default-deny domain filter.
type URLFilter struct {
	allow []string
	deny  []string
}

// NewURLFilter creates a filter from cfg.
func NewURLFilter(cfg URLFilterConfig) *URLFilter {
	return &URLFilter{allow: normalize(cfg.AllowDomains), deny: normalize(cfg.DenyDomains)}
}

func normalize(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// Check returns nil if rawURL may be fetched.
func (f *URLFilter) Check(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid URL: %w", ErrURLBlocked, err)
	}
	return f.check(parsed)
}

// check accepts only http(s) URLs on public hosts matched by the lists.
func (f *URLFilter) check(u *url.URL) error {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: empty hostname", ErrURLBlocked)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrURLBlocked, u.Scheme)
	}
	if ip := net.ParseIP(host); ip != nil && (!ip.IsGlobalUnicast() || ip.IsPrivate()) {
		return fmt.Errorf("%w: %s (non-public address)", ErrURLBlocked, host)
	}
	for _, d := range f.deny {
		if matchDomain(host, d) {
			return fmt.Errorf("%w: %s (denied)", ErrURLBlocked, host)
		}
	}
	for _, a := range f.allow {
		if matchDomain(host, a) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s (not in allow list)", ErrURLBlocked, host)
}

// IsConfigured reports whether any domain is listed.
func (f *URLFilter) IsConfigured() bool {
	return len(f.allow) > 0 || len(f.deny) > 0
}

// Transport wraps next so every request, redirects included, is checked
// against the filter. A nil next uses http.DefaultTransport.
func (f *URLFilter) Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return filteringTransport{filter: f, next: next}
}

type filteringTransport struct {
	filter *URLFilter
	next   http.RoundTripper
}

func (t filteringTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.filter.check(req.URL); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}

// matchDomain reports whether host is domain or one of its subdomains.
func matchDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
