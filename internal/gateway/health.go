package gateway

import (
	"net/http"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status    string            `json:"status"` // "ok" or "degraded"
	Providers map[string]string `json:"providers"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 unless a generation backend is reported down.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status:    "ok",
			Providers: g.providerHealth(),
		}

		code := http.StatusOK
		if g.svc.Registry != nil && !g.svc.Registry.Healthy() {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}

func (g *Gateway) providerHealth() map[string]string {
	out := map[string]string{}
	if g.svc.Registry == nil {
		return out
	}
	for kind, state := range g.svc.Registry.Health() {
		out[kind.String()] = state
	}
	return out
}
