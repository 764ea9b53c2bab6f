package gateway

import (
	"net/http"

	"github.com/flemzord/ragraft/internal/orchestrator"
	"github.com/flemzord/ragraft/internal/provider"
	"github.com/flemzord/ragraft/internal/tenant"
	"github.com/flemzord/ragraft/pkg/message"
	"github.com/go-chi/chi/v5"
)

// ChatRequest is the body of both chat endpoints.
type ChatRequest struct {
	Messages []message.Message `json:"messages"`
}

// ChatResponse is returned on success.
type ChatResponse struct {
	Text      string          `json:"text"`
	RequestID string          `json:"request_id,omitempty"`
	Usage     *provider.Usage `json:"usage,omitempty"`
}

// OpeningResponse is the body of GET /api/public-chat/{code}/opening.
type OpeningResponse struct {
	Line        string `json:"line"`
	Name        string `json:"name"`
	Tone        string `json:"tone"`
	StreamSpeed string `json:"stream_speed"`
	Generated   bool   `json:"generated"`
}

// handleChat answers on behalf of a tenant named by ID.
func (g *Gateway) handleChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := g.tenantByID(w, r)
		if !ok {
			return
		}
		g.respond(w, r, t.ID)
	}
}

// handlePublicChat answers for the tenant owning the public code.
func (g *Gateway) handlePublicChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := g.tenantByCode(w, r)
		if !ok {
			return
		}
		g.respond(w, r, t.ID)
	}
}

// handleOpening returns the greeting shown before the first visitor message.
func (g *Gateway) handleOpening() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := g.tenantByCode(w, r)
		if !ok {
			return
		}
		o := g.svc.Responder.OpeningLine(r.Context(), t.ID)
		writeJSON(w, http.StatusOK, OpeningResponse{
			Line:        o.Line,
			Name:        o.Brief.Name,
			Tone:        o.Brief.Tone,
			StreamSpeed: o.Brief.StreamSpeed,
			Generated:   o.Generated,
		})
	}
}

func (g *Gateway) respond(w http.ResponseWriter, r *http.Request, tenantID string) {
	var req ChatRequest
	if !g.decodeBody(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, kindInvalidRequest, "messages must not be empty")
		return
	}

	resp, err := g.svc.Responder.Respond(r.Context(), tenantID, req.Messages)
	if err != nil {
		g.logger.Warn("gateway: response failed",
			"tenant", tenantID,
			"kind", orchestrator.ErrorKind(err),
			"error", err,
		)
		g.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{
		Text:      resp.Text,
		RequestID: resp.RequestID,
		Usage:     resp.Usage,
	})
}

// tenantByCode resolves the {code} URL parameter. Malformed and unknown
// codes are both reported as 404.
func (g *Gateway) tenantByCode(w http.ResponseWriter, r *http.Request) (tenant.Tenant, bool) {
	code := chi.URLParam(r, "code")
	if !tenant.ValidPublicCode(code) {
		writeError(w, http.StatusNotFound, kindNotFound, notFoundMessage)
		return tenant.Tenant{}, false
	}
	t, found, err := g.svc.Directory.TenantByCode(r.Context(), code)
	if err != nil {
		g.internalError(w, "tenant lookup failed", err)
		return tenant.Tenant{}, false
	}
	if !found {
		writeError(w, http.StatusNotFound, kindNotFound, notFoundMessage)
		return tenant.Tenant{}, false
	}
	return t, true
}

// tenantByID resolves the {tenant} URL parameter.
func (g *Gateway) tenantByID(w http.ResponseWriter, r *http.Request) (tenant.Tenant, bool) {
	id := chi.URLParam(r, "tenant")
	t, found, err := g.svc.Directory.Tenant(r.Context(), id)
	if err != nil {
		g.internalError(w, "tenant lookup failed", err)
		return tenant.Tenant{}, false
	}
	if !found {
		writeError(w, http.StatusNotFound, kindNotFound, notFoundMessage)
		return tenant.Tenant{}, false
	}
	return t, true
}
