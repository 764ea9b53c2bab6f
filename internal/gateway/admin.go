package gateway

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/flemzord/ragraft/internal/core"
	"github.com/flemzord/ragraft/internal/orchestrator"
	"github.com/flemzord/ragraft/internal/provider"
	"github.com/flemzord/ragraft/internal/retrieval"
	"github.com/flemzord/ragraft/internal/rules"
	"github.com/flemzord/ragraft/internal/security"
	"github.com/flemzord/ragraft/internal/tenant"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Credential kinds accepted by PUT /api/tenants/{id}/credentials/{kind}.
const (
	credentialGeneration = "generation"
	credentialRouting    = "routing"
	credentialRetrieval  = "retrieval"
)

const kindUpstreamRetrieval = "upstream_retrieval_failure"

// TenantResponse describes a tenant without exposing its keys.
type TenantResponse struct {
	tenant.Tenant
	Preferences tenant.Preferences `json:"preferences"`
	Credentials CredentialSummary  `json:"credentials"`
}

// CredentialSummary reports which credentials are configured.
type CredentialSummary struct {
	Provider        string `json:"provider"`
	Model           string `json:"model"`
	HasAPIKey       bool   `json:"has_api_key"`
	RoutingProvider string `json:"routing_provider,omitempty"`
	RoutingModel    string `json:"routing_model,omitempty"`
	HasRoutingKey   bool   `json:"has_routing_key"`
	HasRetrievalKey bool   `json:"has_retrieval_key"`
}

// CredentialRequest is the body of a credential update. Retrieval
// credentials only read APIKey.
type CredentialRequest struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key"`
}

// RuleRequest is the body of a rule creation. Enabled defaults to true.
type RuleRequest struct {
	Phrase   string `json:"phrase"`
	Response string `json:"response"`
	Enabled  *bool  `json:"enabled"`
	Priority int    `json:"priority"`
}

// KnowledgeRequest is the body of a knowledge upload.
type KnowledgeRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// handleGetTenant returns the tenant, its preferences and a credential summary.
func (g *Gateway) handleGetTenant() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := g.tenantByID(w, r)
		if !ok {
			return
		}
		prefs, _, err := g.svc.Settings.Preferences(r.Context(), t.ID)
		if err != nil {
			g.internalError(w, "loading preferences failed", err)
			return
		}
		setup, _, err := g.svc.Settings.Setup(r.Context(), t.ID)
		if err != nil {
			g.internalError(w, "loading credentials failed", err)
			return
		}
		gen := setup.Generation()
		writeJSON(w, http.StatusOK, TenantResponse{
			Tenant:      t,
			Preferences: prefs,
			Credentials: CredentialSummary{
				Provider:        gen.Provider,
				Model:           gen.Model,
				HasAPIKey:       gen.APIKey != "",
				RoutingProvider: setup.RoutingProvider,
				RoutingModel:    setup.RoutingModel,
				HasRoutingKey:   strings.TrimSpace(setup.RoutingAPIKey) != "",
				HasRetrievalKey: strings.TrimSpace(setup.RetrievalKey) != "",
			},
		})
	}
}

// handlePutPreferences replaces a tenant's preferences.
func (g *Gateway) handlePutPreferences() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := g.tenantByID(w, r)
		if !ok {
			return
		}
		var prefs tenant.Preferences
		if !g.decodeBody(w, r, &prefs) {
			return
		}
		if prefs.StreamSpeed != "" {
			prefs.StreamSpeed = strings.ToUpper(strings.TrimSpace(prefs.StreamSpeed))
			if !slices.Contains(tenant.StreamSpeeds, prefs.StreamSpeed) {
				writeError(w, http.StatusBadRequest, kindInvalidRequest,
					"stream_speed must be one of "+strings.Join(tenant.StreamSpeeds, ", "))
				return
			}
		}

		if err := g.svc.Settings.SavePreferences(r.Context(), t.ID, prefs); err != nil {
			g.internalError(w, "saving preferences failed", err)
			return
		}
		g.audit(r, security.EventPreferencesChange, t.ID, "preferences", "")
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePutCredential replaces one of a tenant's credentials.
func (g *Gateway) handlePutCredential() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := g.tenantByID(w, r)
		if !ok {
			return
		}
		kind := chi.URLParam(r, "kind")
		if kind != credentialGeneration && kind != credentialRouting && kind != credentialRetrieval {
			writeError(w, http.StatusNotFound, kindNotFound, notFoundMessage)
			return
		}

		var req CredentialRequest
		if !g.decodeBody(w, r, &req) {
			return
		}
		req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
		req.Model = strings.TrimSpace(req.Model)
		req.APIKey = strings.TrimSpace(req.APIKey)
		if req.Provider != "" && kind != credentialRetrieval {
			if _, err := provider.ParseKind(req.Provider); err != nil {
				writeError(w, http.StatusBadRequest, orchestrator.KindUnsupportedProvider, err.Error())
				return
			}
		}

		setup, _, err := g.svc.Settings.Setup(r.Context(), t.ID)
		if err != nil {
			g.internalError(w, "loading credentials failed", err)
			return
		}
		switch kind {
		case credentialGeneration:
			setup.Provider, setup.Model, setup.APIKey = req.Provider, req.Model, req.APIKey
		case credentialRouting:
			setup.RoutingProvider, setup.RoutingModel, setup.RoutingAPIKey = req.Provider, req.Model, req.APIKey
		case credentialRetrieval:
			setup.RetrievalKey = req.APIKey
		}

		if err := g.svc.Settings.SaveSetup(r.Context(), t.ID, setup); err != nil {
			g.internalError(w, "saving credentials failed", err)
			return
		}
		if g.svc.Redactor != nil {
			g.svc.Redactor.AddLiteral(req.APIKey)
		}
		g.audit(r, security.EventCredentialChange, t.ID, kind, req.Provider)
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleListRules lists every rule of a tenant, enabled or not.
func (g *Gateway) handleListRules() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := g.tenantByID(w, r)
		if !ok {
			return
		}
		list, err := g.svc.Rules.Rules(r.Context(), t.ID)
		if err != nil {
			g.internalError(w, "listing rules failed", err)
			return
		}
		if list == nil {
			list = []rules.Rule{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// handleCreateRule adds a response rule.
func (g *Gateway) handleCreateRule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := g.tenantByID(w, r)
		if !ok {
			return
		}
		var req RuleRequest
		if !g.decodeBody(w, r, &req) {
			return
		}
		if len(rules.SplitPhrases(req.Phrase)) == 0 {
			writeError(w, http.StatusBadRequest, kindInvalidRequest, "phrase must contain at least one trigger")
			return
		}
		if strings.TrimSpace(req.Response) == "" {
			writeError(w, http.StatusBadRequest, kindInvalidRequest, "response must not be empty")
			return
		}

		rule := rules.Rule{
			ID:        uuid.NewString(),
			Phrase:    strings.TrimSpace(req.Phrase),
			Response:  strings.TrimSpace(req.Response),
			Enabled:   req.Enabled == nil || *req.Enabled,
			Priority:  req.Priority,
			CreatedAt: time.Now().UTC(),
		}
		if err := g.svc.Rules.SaveRule(r.Context(), t.ID, rule); err != nil {
			g.internalError(w, "saving rule failed", err)
			return
		}
		g.audit(r, security.EventRuleChange, t.ID, rule.ID, "")
		writeJSON(w, http.StatusCreated, rule)
	}
}

// handleDeleteRule removes a rule.
func (g *Gateway) handleDeleteRule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := g.tenantByID(w, r)
		if !ok {
			return
		}
		ruleID := chi.URLParam(r, "rule")
		err := g.svc.Rules.DeleteRule(r.Context(), t.ID, ruleID)
		if errors.Is(err, tenant.ErrNotFound) {
			writeError(w, http.StatusNotFound, kindNotFound, notFoundMessage)
			return
		}
		if err != nil {
			g.internalError(w, "deleting rule failed", err)
			return
		}
		g.audit(r, security.EventRuleDelete, t.ID, ruleID, "")
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleListKnowledge lists a tenant's uploaded knowledge items.
func (g *Gateway) handleListKnowledge() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := g.tenantByID(w, r)
		if !ok {
			return
		}
		items, err := g.svc.Knowledge.Knowledge(r.Context(), t.ID)
		if err != nil {
			g.internalError(w, "listing knowledge failed", err)
			return
		}
		if items == nil {
			items = []tenant.KnowledgeItem{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// handleAddKnowledge ingests a text document into the retrieval backend
// under each of its tags, then records it and its tags for the tenant.
func (g *Gateway) handleAddKnowledge() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := g.tenantByID(w, r)
		if !ok {
			return
		}
		if g.svc.Retrieval == nil {
			writeError(w, http.StatusServiceUnavailable, orchestrator.KindInternal, "no retrieval backend configured")
			return
		}
		var req KnowledgeRequest
		if !g.decodeBody(w, r, &req) {
			return
		}
		content := strings.TrimSpace(req.Content)
		if content == "" {
			writeError(w, http.StatusBadRequest, kindInvalidRequest, "content must not be empty")
			return
		}
		tags := normalizeTags(req.Tags)

		setup, _, err := g.svc.Settings.Setup(r.Context(), t.ID)
		if err != nil {
			g.internalError(w, "loading credentials failed", err)
			return
		}
		key := strings.TrimSpace(setup.RetrievalKey)
		if key == "" && g.svc.Retrieval.RequiresCredential() {
			writeError(w, http.StatusBadRequest, orchestrator.KindMissingCredential, retrieval.ErrMissingCredential.Error())
			return
		}

		title := strings.TrimSpace(req.Title)
		for _, tag := range retrieval.TagsOrDefault(tags) {
			err := g.svc.Retrieval.Ingest(r.Context(), retrieval.Document{
				APIKey:   key,
				TenantID: t.ID,
				Title:    title,
				Content:  content,
				Tag:      tag,
			})
			if err != nil {
				g.logger.Warn("gateway: knowledge ingest failed", "tenant", t.ID, "tag", tag, "error", err)
				writeError(w, http.StatusBadGateway, kindUpstreamRetrieval, "knowledge ingest failed")
				return
			}
		}

		item := tenant.KnowledgeItem{
			ID:        uuid.NewString(),
			Title:     title,
			Content:   content,
			Tags:      tags,
			CreatedAt: time.Now().UTC(),
		}
		if err := g.svc.Knowledge.AddKnowledge(r.Context(), t.ID, item); err != nil {
			g.internalError(w, "saving knowledge failed", err)
			return
		}
		g.audit(r, security.EventKnowledgeIngest, t.ID, item.ID, strings.Join(tags, ","))
		writeJSON(w, http.StatusCreated, item)
	}
}

// handleDeleteKnowledgeTag removes a tag from the retrieval backend and
// then from the tenant's tag registry.
func (g *Gateway) handleDeleteKnowledgeTag() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := g.tenantByID(w, r)
		if !ok {
			return
		}
		if g.svc.Retrieval == nil {
			writeError(w, http.StatusServiceUnavailable, orchestrator.KindInternal, "no retrieval backend configured")
			return
		}
		tag := strings.TrimSpace(chi.URLParam(r, "tag"))
		tags, err := g.svc.Knowledge.Tags(r.Context(), t.ID)
		if err != nil {
			g.internalError(w, "listing tags failed", err)
			return
		}
		if !slices.Contains(tags, tag) {
			writeError(w, http.StatusNotFound, kindNotFound, notFoundMessage)
			return
		}

		setup, _, err := g.svc.Settings.Setup(r.Context(), t.ID)
		if err != nil {
			g.internalError(w, "loading credentials failed", err)
			return
		}
		key := strings.TrimSpace(setup.RetrievalKey)
		if key == "" && g.svc.Retrieval.RequiresCredential() {
			writeError(w, http.StatusBadRequest, orchestrator.KindMissingCredential, retrieval.ErrMissingCredential.Error())
			return
		}
		if err := g.svc.Retrieval.DeleteTag(r.Context(), t.ID, key, tag); err != nil {
			g.logger.Warn("gateway: knowledge delete failed", "tenant", t.ID, "tag", tag, "error", err)
			writeError(w, http.StatusBadGateway, kindUpstreamRetrieval, "knowledge delete failed")
			return
		}

		err = g.svc.Knowledge.RemoveTag(r.Context(), t.ID, tag)
		if err != nil && !errors.Is(err, tenant.ErrNotFound) {
			g.internalError(w, "removing tag failed", err)
			return
		}
		g.audit(r, security.EventKnowledgeDelete, t.ID, tag, "")
		w.WriteHeader(http.StatusNoContent)
	}
}

// moduleJSON is a serializable module info snapshot.
type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// handleGetAllModules lists all compiled modules (for /api/modules).
func (g *Gateway) handleGetAllModules() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		mods := core.GetModules()
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleJSON{
				ID:        string(m.ID),
				Namespace: m.ID.Namespace(),
				Name:      m.ID.Name(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (g *Gateway) audit(r *http.Request, typ security.EventType, tenantID, target, detail string) {
	g.svc.Audit.Log(security.AuditEvent{
		Type:     typ,
		TenantID: tenantID,
		Remote:   clientIP(r),
		Target:   target,
		Detail:   detail,
	})
}

// normalizeTags trims tags and drops blanks and duplicates, keeping order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" && !slices.Contains(out, tag) {
			out = append(out, tag)
		}
	}
	return out
}
