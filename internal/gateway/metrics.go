package gateway

import (
	"net/http"
)

// handleMetrics serves the pipeline's Prometheus registry. Without
// metrics the endpoint reports 404.
func (g *Gateway) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.svc.Metrics == nil {
			http.NotFound(w, r)
			return
		}
		g.svc.Metrics.Handler().ServeHTTP(w, r)
	}
}
