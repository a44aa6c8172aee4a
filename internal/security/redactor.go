// Package security holds the cross-cutting safety pieces of the service:
// secret redaction for logs and config dumps, auth audit events, sliding
// window rate limits, request body validation and outbound URL filtering.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactorService is the service name of the shared *Redactor.
const RedactorService = "security.redactor"

// RedactPlaceholder replaces redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// secretKeyPattern matches map keys that likely hold secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|password|pass$|api_key|credential)`)

// Redactor replaces secrets in strings and maps. It matches regex patterns
// for known token formats and literal values registered at runtime (the
// gateway token, the forum API key). Safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor returns a Redactor loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: DefaultPatterns()}
}

// AddPattern adds a compiled pattern.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
}

// AddLiteral registers a literal secret. Empty strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// SetLiterals replaces all literal secrets, e.g. after a config reload.
func (r *Redactor) SetLiterals(secrets ...string) {
	lits := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			lits = append(lits, s)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = lits
}

// Redact replaces every known secret in s.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns, literals := r.patterns, r.literals
	r.mu.RUnlock()

	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	for _, lit := range literals {
		s = strings.ReplaceAll(s, lit, RedactPlaceholder)
	}
	return s
}

// IsSecretKey reports whether a config or map key names a credential.
func IsSecretKey(key string) bool {
	return secretKeyPattern.MatchString(key)
}

// RedactMap walks a decoded JSON/YAML document in place. String values under
// secret-looking keys are replaced outright; other strings are scanned.
func (r *Redactor) RedactMap(m map[string]any) {
	for k, v := range m {
		if s, ok := v.(string); ok && s != "" && secretKeyPattern.MatchString(k) {
			m[k] = RedactPlaceholder
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			r.RedactMap(val)
		case []any:
			for i, item := range val {
				switch it := item.(type) {
				case map[string]any:
					r.RedactMap(it)
				case string:
					val[i] = r.Redact(it)
				}
			}
		case string:
			m[k] = r.Redact(val)
		}
	}
}

// DefaultPatterns returns patterns for bearer credentials and common API
// key formats.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Bearer credentials.
		regexp.MustCompile(`(?i)bearer\s+[a-z0-9._~+/=\-]{16,}`),
		// JSON Web Tokens.
		regexp.MustCompile(`eyJ[a-zA-Z0-9_\-]{8,}\.[a-zA-Z0-9_\-]{8,}\.[a-zA-Z0-9_\-]{8,}`),
		// OpenAI-style keys, including AI proxy tokens.
		regexp.MustCompile(`sk-[a-zA-Z0-9\-_]{20,}`),
		// GitHub tokens.
		regexp.MustCompile(`(ghp_|gho_|ghs_|github_pat_)[a-zA-Z0-9_]{20,}`),
		// Discourse API keys are 64 hex characters.
		regexp.MustCompile(`\b[a-f0-9]{64}\b`),
	}
}
