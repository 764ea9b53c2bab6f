package gateway

import (
	"net/http"
	"time"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime          int64             `json:"uptime_seconds"`
	Providers       map[string]string `json:"providers"`
	Retrieval       bool              `json:"retrieval"`
	RateLimitedKeys int               `json:"rate_limited_keys"`
	AuditWriteFails int64             `json:"audit_write_failures"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime:    int64(time.Since(g.startedAt).Seconds()),
			Providers: g.providerHealth(),
			Retrieval: g.svc.Retrieval != nil,
		}
		if g.svc.Limiter != nil {
			resp.RateLimitedKeys = g.svc.Limiter.Keys()
		}
		if g.svc.Audit != nil {
			resp.AuditWriteFails = g.svc.Audit.WriteErrors()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
