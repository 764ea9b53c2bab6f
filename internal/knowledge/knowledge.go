// Package knowledge grounds a conversation in retrieved tenant knowledge.
package knowledge

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/flemzord/ragraft/internal/budget"
	"github.com/flemzord/ragraft/internal/retrieval"
	"github.com/flemzord/ragraft/pkg/message"
)

// defaultMaxChunks applies when the tenant sets no chunk budget.
const defaultMaxChunks = 6

const (
	guardWithRule = "You must answer using only the knowledge base provided. " +
		"If the answer is not present, you may answer using the rule response included. " +
		"If neither is present, say you don't know."
	guardWithoutRule = "You must answer using only the knowledge base provided. " +
		"If the answer is not present, say you don't know."

	knowledgePrefix = "Use the knowledge base below to answer the user question.\n\nKnowledge base:\n"
)

var (
	errNoBackend  = errors.New("knowledge: no retrieval backend")
	errEmptyQuery = errors.New("knowledge: empty query")
	errNoTags     = errors.New("knowledge: tenant has no knowledge tags")
	errNoChunks   = errors.New("knowledge: search returned no chunks")
)

// TagSource lists the knowledge tags a tenant has used.
type TagSource interface {
	Tags(ctx context.Context, tenantID string) ([]string, error)
}

// Input is one enrichment request.
type Input struct {
	TenantID string
	Messages []message.Message

	// RuleResponse is the matched rule's response, or "". It is offered
	// to the model as source [#0].
	RuleResponse string

	Budgets      budget.Budgets
	RetrievalKey string
}

// Enricher prepends a grounding guard and retrieved knowledge to a
// conversation.
type Enricher struct {
	tags      TagSource
	retrieval retrieval.Service
	logger    *slog.Logger
}

// NewEnricher creates an Enricher.
func NewEnricher(tags TagSource, svc retrieval.Service, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{tags: tags, retrieval: svc, logger: logger}
}

// Enrich returns [guard, knowledge, ...messages]. It never fails: when
// retrieval cannot produce chunks it returns the fallback
// [guard, (rule-only knowledge)?, ...messages]. A conversation without a
// user message is returned unchanged.
func (e *Enricher) Enrich(ctx context.Context, in Input) []message.Message {
	last, ok := message.LastUser(in.Messages)
	if !ok {
		return message.Concat(in.Messages)
	}

	rule := strings.TrimSpace(in.RuleResponse)
	guard := message.System(guardWithoutRule)
	if rule != "" {
		guard = message.System(guardWithRule)
	}

	chunks, err := e.retrieve(ctx, in, last.Text())
	if err != nil {
		e.logger.Warn("knowledge: using fallback", "tenant", in.TenantID, "error", err)
		if rule == "" {
			return message.Prepend(in.Messages, guard)
		}
		return message.Prepend(in.Messages, guard, knowledgeMessage(AssembleSources(rule, nil, budget.None)))
	}

	sources := AssembleSources(rule, chunks, in.Budgets.RAGMaxContextChars)
	return message.Prepend(in.Messages, guard, knowledgeMessage(sources))
}

// retrieve runs tag selection and search, returning the chunks to cite
// already capped and truncated per the budgets.
func (e *Enricher) retrieve(ctx context.Context, in Input, query string) ([]string, error) {
	if e.retrieval == nil {
		return nil, errNoBackend
	}
	if strings.TrimSpace(query) == "" {
		return nil, errEmptyQuery
	}

	all, err := e.tags.Tags(ctx, in.TenantID)
	if err != nil {
		return nil, err
	}
	tags, _ := SelectTags(all, query)
	if len(tags) == 0 {
		return nil, errNoTags
	}

	maxChunks := in.Budgets.RAGMaxChunks.Or(defaultMaxChunks)
	chunks, err := e.retrieval.Search(ctx, retrieval.Query{
		APIKey:   in.RetrievalKey,
		TenantID: in.TenantID,
		Text:     query,
		Tags:     tags,
		Limit:    maxChunks,
	})
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, errNoChunks
	}

	if len(chunks) > maxChunks {
		chunks = chunks[:maxChunks]
	}
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c
		if limit, ok := in.Budgets.RAGChunkMaxChars.Get(); ok && runeLen(c) > limit {
			out[i] = TruncateBySentence(c, limit)
		}
	}
	return out, nil
}

func knowledgeMessage(sources []string) message.Message {
	return message.User(knowledgePrefix + strings.Join(sources, "\n"))
}
