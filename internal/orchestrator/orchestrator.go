// Package orchestrator runs the per-message response pipeline: rule
// matching, budget resolution, history limiting, the retrieval decision,
// knowledge enrichment and generation.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/flemzord/ragraft/internal/budget"
	"github.com/flemzord/ragraft/internal/constraints"
	"github.com/flemzord/ragraft/internal/history"
	"github.com/flemzord/ragraft/internal/knowledge"
	"github.com/flemzord/ragraft/internal/metrics"
	"github.com/flemzord/ragraft/internal/provider"
	"github.com/flemzord/ragraft/internal/retrieval"
	"github.com/flemzord/ragraft/internal/routing"
	"github.com/flemzord/ragraft/internal/rules"
	"github.com/flemzord/ragraft/internal/tenant"
	"github.com/flemzord/ragraft/pkg/message"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/flemzord/ragraft/internal/orchestrator"

// ServiceName is the AppContext service name of the process orchestrator.
const ServiceName = "orchestrator"

// Deps are the collaborators of an Orchestrator. Questions, Metrics and
// Tracer are optional.
type Deps struct {
	Preferences tenant.PreferenceStore
	Credentials tenant.CredentialStore
	Rules       tenant.RuleStore
	Tags        tenant.TagRegistry
	Questions   tenant.QuestionLog
	Retrieval   retrieval.Service
	Generator   provider.Generator

	Metrics *metrics.Metrics
	Tracer  trace.Tracer
	Logger  *slog.Logger
}

// Response is the outcome of one pipeline run.
type Response struct {
	Text        string
	Usage       *provider.Usage
	Decision    routing.Decision
	RuleMatched bool
	RuleID      string
	RequestID   string
}

// Orchestrator turns a conversation and a tenant's settings into a reply.
// It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	deps     Deps
	gate     *routing.Gate
	enricher *knowledge.Enricher
	tracer   trace.Tracer
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Orchestrator.
func New(d Deps) *Orchestrator {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := d.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Orchestrator{
		deps:     d,
		gate:     routing.NewGate(d.Generator, logger),
		enricher: knowledge.NewEnricher(d.Tags, d.Retrieval, logger),
		tracer:   tracer,
		logger:   logger,
		now:      time.Now,
	}
}

// settings is what step 1 loads.
type settings struct {
	prefs tenant.Preferences
	cred  tenant.Credential
}

// Respond runs the pipeline for one conversation. Only three failures
// reach the caller, all classified by ErrorKind: an unsupported provider,
// a missing generation or retrieval credential, and a failed generation
// call. Every other failure degrades to a default.
func (o *Orchestrator) Respond(ctx context.Context, tenantID string, msgs []message.Message) (resp Response, err error) {
	start := o.now()
	resp.RequestID = uuid.NewString()

	ctx, span := o.tracer.Start(ctx, "orchestrator.Respond", trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("request.id", resp.RequestID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, ErrorKind(err))
		}
		span.End()
	}()

	s := o.loadSettings(ctx, tenantID)
	dev := newStepLog(o.logger, s.prefs.DeveloperLogging, resp.RequestID, tenantID)
	dev.step("request_received", fmt.Sprintf("messages=%d", len(msgs)))

	temperature := s.prefs.ResolvedTemperature()
	budgets := s.prefs.Budgets()
	dev.step("preferences_loaded", fmt.Sprintf("temperature=%.2f", temperature))
	if budgets.HistoryMessageLimit.IsSet() {
		dev.step("history_limit", "limit="+budgets.HistoryMessageLimit.String())
	}

	kind, err := provider.ParseKind(s.cred.Provider)
	dev.step("answer_model_resolved", s.cred.Provider+":"+s.cred.Model)
	if err != nil {
		o.deps.Metrics.ObserveResponse(s.cred.Provider, KindUnsupportedProvider, o.now().Sub(start))
		return resp, err
	}
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = ErrorKind(err)
		}
		o.deps.Metrics.ObserveResponse(kind.String(), outcome, o.now().Sub(start))
	}()
	if s.cred.APIKey == "" {
		return resp, provider.MissingCredentialError(kind)
	}
	dev.step("answer_api_key_present", "")

	lastUserText := message.LastUserText(msgs)
	if lastUserText != "" {
		dev.step("user_message", truncate(lastUserText, 160))
	}

	match, matched := o.matchRule(ctx, tenantID, lastUserText)
	if matched {
		resp.RuleMatched = true
		resp.RuleID = match.Rule.ID
		o.deps.Metrics.ObserveRuleMatch()
		dev.step("rule_matched", match.MatchedPhrase)
	} else {
		dev.step("rule_matched", "none")
	}

	limited := history.Limit(o.prefix(msgs, budgets, match, matched), budgets.HistoryMessageLimit)
	dev.step("context_messages_sent", fmt.Sprint(len(limited)-message.CountRole(limited, message.RoleSystem)))

	resp.Decision = o.decide(ctx, tenantID, msgs)
	o.deps.Metrics.ObserveRouting(resp.Decision.NeedsRAG, resp.Decision.Reason)
	dev.step("routing_decision", routingDetail(resp.Decision))

	final := limited
	if resp.Decision.NeedsRAG {
		key, err := o.retrievalKey(ctx, tenantID)
		if err != nil {
			return resp, err
		}
		in := knowledge.Input{
			TenantID:     tenantID,
			Messages:     limited,
			Budgets:      budgets,
			RetrievalKey: key,
		}
		if matched {
			in.RuleResponse = match.Rule.Response
		}
		final = o.enrich(ctx, in)
		o.deps.Metrics.ObserveEnrichment()
		dev.step("knowledge_enriched", "")
	} else {
		dev.step("knowledge_skipped", "")
	}

	dev.step("generation_start", "provider="+kind.String())
	res, err := o.generate(ctx, provider.Request{
		Provider:        kind,
		Model:           s.cred.Model,
		APIKey:          s.cred.APIKey,
		Temperature:     temperature,
		Messages:        final,
		MaxOutputTokens: budgets.MaxOutputTokens,
	})
	if err != nil {
		o.deps.Metrics.ObserveGenerationError(kind.String(), err)
		o.logger.Warn("orchestrator: generation failed",
			"request_id", resp.RequestID, "provider", kind, "error", err)
		return resp, upstream(kind, err)
	}

	resp.Text = strings.TrimSpace(res.Text)
	resp.Usage = res.Usage
	if res.Usage != nil {
		o.deps.Metrics.ObserveUsage(kind.String(), res.Usage)
		dev.step("token_usage", fmt.Sprintf("prompt=%d completion=%d total=%d",
			res.Usage.PromptTokens, res.Usage.CompletionTokens, res.Usage.TotalTokens))
	} else {
		dev.step("token_usage", "unavailable")
	}
	dev.step("generation_complete", fmt.Sprintf("length=%d", len(resp.Text)))

	o.recordQuestion(ctx, tenantID, lastUserText, resp)
	return resp, nil
}

// loadSettings reads preferences and the generation credential
// concurrently. Failures fall back to defaults.
func (o *Orchestrator) loadSettings(ctx context.Context, tenantID string) settings {
	var (
		wg sync.WaitGroup
		s  settings
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		prefs, _, err := o.deps.Preferences.Preferences(ctx, tenantID)
		if err != nil {
			o.logger.Warn("orchestrator: preferences unavailable, using defaults", "tenant", tenantID, "error", err)
			prefs = tenant.Preferences{}
		}
		s.prefs = prefs
	}()
	go func() {
		defer wg.Done()
		cred, _, err := o.deps.Credentials.GenerationCredential(ctx, tenantID)
		if err != nil {
			o.logger.Warn("orchestrator: credential unavailable", "tenant", tenantID, "error", err)
			cred = tenant.Setup{}.Generation()
		}
		s.cred = cred
	}()
	wg.Wait()
	return s
}

func (o *Orchestrator) matchRule(ctx context.Context, tenantID, text string) (rules.Match, bool) {
	if text == "" {
		return rules.Match{}, false
	}
	list, err := o.deps.Rules.EnabledRules(ctx, tenantID)
	if err != nil {
		o.logger.Warn("orchestrator: rule lookup failed", "tenant", tenantID, "error", err)
		return rules.Match{}, false
	}
	return rules.Find(list, text)
}

// prefix prepends the constraint message and then the rule instruction.
func (o *Orchestrator) prefix(msgs []message.Message, b budget.Budgets, match rules.Match, matched bool) []message.Message {
	var head []message.Message
	if c, ok := constraints.Build(b); ok {
		head = append(head, c)
	}
	if matched {
		head = append(head, rules.InstructionMessage(match.Rule.Response))
	}
	return message.Prepend(msgs, head...)
}

func (o *Orchestrator) decide(ctx context.Context, tenantID string, msgs []message.Message) routing.Decision {
	ctx, span := o.tracer.Start(ctx, "routing.Decide")
	defer span.End()

	cred, _, err := o.deps.Credentials.RoutingCredential(ctx, tenantID)
	if err != nil {
		o.logger.Warn("orchestrator: routing credential unavailable", "tenant", tenantID, "error", err)
		cred = tenant.Setup{}.Routing()
	}
	d := o.gate.Decide(ctx, routing.Setup{
		Provider:     cred.Provider,
		Model:        cred.Model,
		APIKey:       cred.APIKey,
		UsesFallback: cred.UsesFallback,
	}, msgs)
	span.SetAttributes(
		attribute.Bool("routing.needs_rag", d.NeedsRAG),
		attribute.String("routing.reason", d.Reason),
		attribute.Bool("routing.uses_fallback", cred.UsesFallback),
	)
	return d
}

// retrievalKey returns the tenant's retrieval key, failing when the
// backend needs one and none is stored.
func (o *Orchestrator) retrievalKey(ctx context.Context, tenantID string) (string, error) {
	key, _, err := o.deps.Credentials.RetrievalKey(ctx, tenantID)
	if err != nil {
		o.logger.Warn("orchestrator: retrieval key unavailable", "tenant", tenantID, "error", err)
		key = ""
	}
	if key == "" && o.deps.Retrieval != nil && o.deps.Retrieval.RequiresCredential() {
		return "", retrieval.ErrMissingCredential
	}
	return key, nil
}

func (o *Orchestrator) enrich(ctx context.Context, in knowledge.Input) []message.Message {
	ctx, span := o.tracer.Start(ctx, "knowledge.Enrich")
	defer span.End()
	out := o.enricher.Enrich(ctx, in)
	span.SetAttributes(attribute.Int("messages.out", len(out)))
	return out
}

func (o *Orchestrator) generate(ctx context.Context, req provider.Request) (provider.Result, error) {
	ctx, span := o.tracer.Start(ctx, "provider.Generate", trace.WithAttributes(
		attribute.String("provider", req.Provider.String()),
		attribute.String("model", req.Model),
		attribute.Int("messages", len(req.Messages)),
	))
	defer span.End()

	res, err := o.deps.Generator.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, provider.CauseLabel(err))
	}
	return res, err
}

// recordQuestion logs the answered question. Failures are ignored.
func (o *Orchestrator) recordQuestion(ctx context.Context, tenantID, text string, resp Response) {
	if o.deps.Questions == nil || text == "" {
		return
	}
	q := tenant.Question{
		TenantID: tenantID,
		Text:     text,
		RuleID:   resp.RuleID,
		NeedsRAG: resp.Decision.NeedsRAG,
		Reason:   resp.Decision.Reason,
		AskedAt:  o.now(),
	}
	if resp.Usage != nil {
		q.Tokens = resp.Usage.TotalTokens
	}
	if err := o.deps.Questions.RecordQuestion(ctx, q); err != nil {
		o.logger.Debug("orchestrator: question not recorded", "tenant", tenantID, "error", err)
	}
}

func routingDetail(d routing.Decision) string {
	if d.NeedsRAG {
		return "needs_rag | " + d.Reason
	}
	return "no_rag | " + d.Reason
}
