// Package routing decides whether a message needs knowledge retrieval
// before generation.
package routing

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/flemzord/ragraft/internal/provider"
	"github.com/flemzord/ragraft/pkg/message"
)

// Decision reasons.
const (
	ReasonNoUserMessage = "no_user_message"
	ReasonEmptyQuery    = "empty_query"
	ReasonKeyMissing    = "routing_api_key_missing"
	ReasonParseFailed   = "routing_parse_failed"
	ReasonFailed        = "routing_failed"
	ReasonBinary        = "binary_response"
	ReasonJSON          = "json_response"
)

const routerPrompt = `You are a router for RAG. Your only job is to decide whether we should search Supermemory.
Return only a single character:
- "1" if the question needs RAG (internal knowledge or documents).
- "0" if it does not (greetings, chit-chat, or general instructions).
Do not include any other text.`

var (
	binaryToken = regexp.MustCompile(`\b([01])\b`)
	jsonObject  = regexp.MustCompile(`\{[\s\S]*\}`)
)

// Decision is the outcome of routing one message.
type Decision struct {
	NeedsRAG  bool   `json:"needs_rag"`
	Reason    string `json:"reason"`
	QueryHint string `json:"query_hint,omitempty"`
}

func skip(reason string) Decision {
	return Decision{NeedsRAG: false, Reason: reason}
}

// Setup selects the backend used for the classification call.
// UsesFallback is informational: it reports that the tenant has no routing
// credential and the generation credential was substituted.
type Setup struct {
	Provider     string
	Model        string
	APIKey       string
	UsesFallback bool
}

// Gate classifies messages with a single low-cost generation call.
type Gate struct {
	gen    provider.Generator
	logger *slog.Logger
}

// NewGate creates a Gate dispatching classification calls through gen.
func NewGate(gen provider.Generator, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{gen: gen, logger: logger}
}

// Decide routes the latest user message in msgs. It never fails: every
// error becomes a Decision with NeedsRAG false.
func (g *Gate) Decide(ctx context.Context, setup Setup, msgs []message.Message) Decision {
	last, ok := message.LastUser(msgs)
	if !ok {
		return skip(ReasonNoUserMessage)
	}
	query := last.Text()
	if strings.TrimSpace(query) == "" {
		return skip(ReasonEmptyQuery)
	}
	if setup.APIKey == "" {
		return skip(ReasonKeyMissing)
	}

	kind, err := provider.ParseKind(setup.Provider)
	if err != nil {
		g.logger.Warn("routing: classification skipped", "error", err)
		return skip(ReasonFailed)
	}

	res, err := g.gen.Generate(ctx, provider.Request{
		Provider:    kind,
		Model:       setup.Model,
		APIKey:      setup.APIKey,
		Temperature: 0,
		Messages: []message.Message{
			message.System(routerPrompt),
			message.User("User message:\n" + query),
		},
	})
	if err != nil {
		g.logger.Warn("routing: classification failed", "provider", kind, "error", err)
		return skip(ReasonFailed)
	}

	d, ok := ParseDecision(res.Text)
	if !ok {
		return skip(ReasonParseFailed)
	}
	return d
}

// ParseDecision reads a classifier answer. Accepted shapes, tried in order:
// an exact "0" or "1", an isolated 0/1 token anywhere in the text, and a
// JSON object with a boolean needs_rag and optional reason and query_hint.
func ParseDecision(raw string) (Decision, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "0" || trimmed == "1" {
		return Decision{NeedsRAG: trimmed == "1", Reason: ReasonBinary}, true
	}
	if m := binaryToken.FindStringSubmatch(trimmed); m != nil {
		return Decision{NeedsRAG: m[1] == "1", Reason: ReasonBinary}, true
	}

	obj := jsonObject.FindString(trimmed)
	if obj == "" {
		return Decision{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return Decision{}, false
	}
	var needsRAG bool
	if err := json.Unmarshal(fields["needs_rag"], &needsRAG); err != nil || !isBool(fields["needs_rag"]) {
		return Decision{}, false
	}

	d := Decision{NeedsRAG: needsRAG, Reason: ReasonJSON}
	if s, ok := stringField(fields["reason"]); ok {
		d.Reason = s
	}
	if s, ok := stringField(fields["query_hint"]); ok {
		d.QueryHint = s
	}
	return d, true
}

func isBool(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "true" || s == "false"
}

// stringField decodes raw when it holds a JSON string.
func stringField(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
