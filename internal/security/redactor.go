// Package security holds the gateway's protective layers: secret
// redaction for logs, per-client rate limiting, admin audit events and
// request body validation.
package security

import (
	"regexp"
	"slices"
	"strings"
	"sync"
)

// AppContext service names of the process-wide security components.
const (
	RedactorService    = "security.redactor"
	AuditService       = "security.audit"
	RateLimiterService = "security.ratelimiter"
)

// RedactPlaceholder replaces every redacted secret.
const RedactPlaceholder = "***REDACTED***"

// secretKeyPattern matches map keys that likely hold secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|password|api_key|apikey|credential|key$)`)

// Redactor replaces secrets in strings and maps. Known provider key
// formats are matched by pattern; tenant keys read at runtime are added
// as literals. Safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor returns a Redactor loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: DefaultPatterns()}
}

// AddPattern adds a pattern.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
}

// AddLiteral registers secret values to redact verbatim. Blank and
// already known values are ignored.
func (r *Redactor) AddLiteral(secrets ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range secrets {
		s = strings.TrimSpace(s)
		if s == "" || slices.Contains(r.literals, s) {
			continue
		}
		r.literals = append(r.literals, s)
	}
}

// Literals returns how many literal secrets are registered.
func (r *Redactor) Literals() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.literals)
}

// Redact replaces every pattern match and literal in s with
// RedactPlaceholder. Literals are applied first so a tenant key that also
// matches a pattern is replaced whole.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}
	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	return s
}

// RedactMap rewrites m in place: string values under secret-looking keys
// are replaced outright, every other string is passed through Redact.
// Nested maps and slices of maps are walked.
func (r *Redactor) RedactMap(m map[string]any) {
	for k, v := range m {
		if secretKeyPattern.MatchString(k) {
			if s, ok := v.(string); ok && s != "" {
				m[k] = RedactPlaceholder
				continue
			}
		}
		switch val := v.(type) {
		case map[string]any:
			r.RedactMap(val)
		case []any:
			for _, item := range val {
				if sub, ok := item.(map[string]any); ok {
					r.RedactMap(sub)
				}
			}
		case string:
			m[k] = r.Redact(val)
		}
	}
}

// DefaultPatterns returns patterns for the key formats of the supported
// generation and retrieval backends.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Groq
		regexp.MustCompile(`gsk_[a-zA-Z0-9]{20,}`),
		// Google AI Studio
		regexp.MustCompile(`AIza[0-9A-Za-z\-_]{30,}`),
		// Anthropic, before the generic sk- form
		regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-_]{20,}`),
		// Supermemory
		regexp.MustCompile(`sm_[a-zA-Z0-9_]{20,}`),
		regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
		regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-._~+/]{16,}=*`),
	}
}
