// Package provider defines the provider-neutral generation contract, the
// enumerated set of supported backends and the registry that dispatches
// requests to them.
package provider

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/flemzord/ragraft/internal/budget"
	"github.com/flemzord/ragraft/pkg/message"
)

// Kind names a supported generation backend.
type Kind string

// Supported backends.
const (
	Groq      Kind = "groq"
	Google    Kind = "google"
	Anthropic Kind = "anthropic"
)

var kinds = []Kind{Groq, Google, Anthropic}

// Kinds returns every supported backend.
func Kinds() []Kind {
	return slices.Clone(kinds)
}

// ParseKind validates a provider name. Matching is case-insensitive and
// ignores surrounding whitespace.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(kinds, k) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, s)
	}
	return k, nil
}

// String returns the provider name.
func (k Kind) String() string { return string(k) }

// Request is a single generation call. Temperature is already clamped by
// the caller; backends send it as-is.
type Request struct {
	Provider        Kind
	Model           string
	APIKey          string
	Temperature     float64
	Messages        []message.Message
	MaxOutputTokens budget.Limit
}

// Usage reports token counts when the backend returns them.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is the outcome of a generation call.
type Result struct {
	Text  string
	Usage *Usage
}

// Generator performs generation calls for one backend.
// Concrete implementations live in modules/provider/* and also implement
// core.Module for lifecycle management.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// SplitSystem separates system messages from the conversation. The
// non-empty system texts are returned in order; rest keeps every other
// message in order.
func SplitSystem(msgs []message.Message) (system []string, rest []message.Message) {
	for _, m := range msgs {
		if m.Role != message.RoleSystem {
			rest = append(rest, m)
			continue
		}
		if text := m.Text(); text != "" {
			system = append(system, text)
		}
	}
	return system, rest
}
