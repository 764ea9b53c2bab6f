// Package tenant defines the per-tenant records the response pipeline reads
// (preferences, credentials, rules and knowledge tags) and the store
// contracts the persistence modules implement.
package tenant

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/flemzord/ragraft/internal/budget"
)

// Defaults applied when a tenant has not configured a value.
const (
	DefaultProvider    = "groq"
	DefaultModel       = "llama-3.1-8b-instant"
	DefaultTemperature = 0.4
	DefaultName        = "Assistant"
	DefaultTone        = "Clear, concise, helpful"
	DefaultStreamSpeed = "NORMAL"

	MinTemperature = 0.0
	MaxTemperature = 0.8
)

// StreamSpeeds are the accepted Preferences.StreamSpeed values.
var StreamSpeeds = []string{"INSTANT", "SLOW", "FAST", "NORMAL"}

// publicCodeDigits is the length of generated public chat codes.
const publicCodeDigits = 8

var (
	// ErrNotFound is returned when a tenant or one of its records does not exist.
	ErrNotFound = errors.New("tenant: not found")

	// ErrInvalidCode is returned for a public code that is not purely numeric.
	ErrInvalidCode = errors.New("tenant: invalid public code")
)

// Tenant is one operator account.
type Tenant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PublicCode string    `json:"public_code"`
	CreatedAt  time.Time `json:"created_at"`
}

// Preferences are the tenant's chat settings. Budget fields hold the raw
// stored values; use Budgets for their normalized form.
type Preferences struct {
	Temperature *float64 `json:"temperature,omitempty"`

	MaxOutputTokens     *float64 `json:"max_output_tokens,omitempty"`
	HistoryMessageLimit *float64 `json:"history_message_limit,omitempty"`
	RAGMaxChunks        *float64 `json:"rag_max_chunks,omitempty"`
	RAGChunkMaxChars    *float64 `json:"rag_chunk_max_chars,omitempty"`
	RAGMaxContextChars  *float64 `json:"rag_max_context_chars,omitempty"`

	// DeveloperLogging turns on per-step pipeline logs for this tenant.
	DeveloperLogging bool `json:"developer_logging"`

	// Persona.
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Tone        string `json:"tone,omitempty"`
	StreamSpeed string `json:"stream_speed,omitempty"`
	OpeningLine string `json:"opening_line,omitempty"`
}

// Budgets returns the normalized budgets.
func (p Preferences) Budgets() budget.Budgets {
	return budget.Resolve(budget.Raw{
		MaxOutputTokens:     p.MaxOutputTokens,
		HistoryMessageLimit: p.HistoryMessageLimit,
		RAGMaxChunks:        p.RAGMaxChunks,
		RAGChunkMaxChars:    p.RAGChunkMaxChars,
		RAGMaxContextChars:  p.RAGMaxContextChars,
	})
}

// ResolvedTemperature returns the stored temperature clamped to
// [MinTemperature, MaxTemperature], or DefaultTemperature when unset.
func (p Preferences) ResolvedTemperature() float64 {
	if p.Temperature == nil {
		return DefaultTemperature
	}
	return ClampTemperature(*p.Temperature)
}

// AssistantName returns the persona name, or DefaultName.
func (p Preferences) AssistantName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return DefaultName
}

// ClampTemperature bounds t to [MinTemperature, MaxTemperature].
func ClampTemperature(t float64) float64 {
	return min(max(t, MinTemperature), MaxTemperature)
}

// Setup holds the tenant's backend selection and credentials.
type Setup struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	APIKey   string `json:"api_key,omitempty"`

	RoutingProvider string `json:"routing_provider,omitempty"`
	RoutingModel    string `json:"routing_model,omitempty"`
	RoutingAPIKey   string `json:"routing_api_key,omitempty"`

	RetrievalKey string `json:"retrieval_key,omitempty"`
}

// Credential selects a generation backend and model with its key.
type Credential struct {
	Provider string
	Model    string
	APIKey   string
}

// RoutingCredential is the credential used for the retrieval decision.
// UsesFallback is set when the tenant configured no routing credential
// and the generation credential is used instead.
type RoutingCredential struct {
	Credential
	UsesFallback bool
}

// Generation returns the generation credential with provider and model
// defaulted when blank and the key trimmed.
func (s Setup) Generation() Credential {
	return Credential{
		Provider: orDefault(s.Provider, DefaultProvider),
		Model:    orDefault(s.Model, DefaultModel),
		APIKey:   strings.TrimSpace(s.APIKey),
	}
}

// Routing returns the routing credential. When no routing field is set
// the generation credential is returned with UsesFallback. Otherwise
// blank provider or model fall back to the generation values, but the key
// never does.
func (s Setup) Routing() RoutingCredential {
	gen := s.Generation()
	provider := strings.TrimSpace(s.RoutingProvider)
	model := strings.TrimSpace(s.RoutingModel)
	key := strings.TrimSpace(s.RoutingAPIKey)
	if provider == "" && model == "" && key == "" {
		return RoutingCredential{Credential: gen, UsesFallback: true}
	}
	return RoutingCredential{
		Credential: Credential{
			Provider: orDefault(provider, gen.Provider),
			Model:    orDefault(model, gen.Model),
			APIKey:   key,
		},
	}
}

// Secrets returns the non-empty keys held by s.
func (s Setup) Secrets() []string {
	var out []string
	for _, k := range []string{s.APIKey, s.RoutingAPIKey, s.RetrievalKey} {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// KnowledgeItem is a text document a tenant uploaded, with the tags it
// was filed under.
type KnowledgeItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// Question is one answered visitor question.
type Question struct {
	TenantID string
	Text     string
	RuleID   string
	NeedsRAG bool
	Reason   string
	Tokens   int
	AskedAt  time.Time
}

// NormalizeQuestion lowercases text, replaces anything but ASCII letters,
// digits and whitespace with a space, and collapses whitespace.
func NormalizeQuestion(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ValidPublicCode reports whether code is a non-empty string of digits.
func ValidPublicCode(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NewPublicCode returns a random numeric public code.
func NewPublicCode() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(publicCodeDigits), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	code := n.String()
	return strings.Repeat("0", publicCodeDigits-len(code)) + code, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
