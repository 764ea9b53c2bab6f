package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	if g.config.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	r.Get("/metrics", g.handleMetrics())
	r.Route("/api/public-chat/{code}", func(r chi.Router) {
		r.Use(g.rateLimit("public"))
		r.Post("/", g.handlePublicChat())
		r.Get("/opening", g.handleOpening())
	})

	// Admin endpoints. Not mounted if no auth configured.
	if g.currentAuth().IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.currentAuth, g.svc.Audit, g.svc.Limiter))
			r.Get("/status", g.handleStatus())
			r.Route("/api", func(r chi.Router) {
				r.Post("/chat/{tenant}", g.handleChat())
				r.Get("/modules", g.handleGetAllModules())
				r.Route("/tenants/{tenant}", func(r chi.Router) {
					r.Get("/", g.handleGetTenant())
					r.Put("/preferences", g.handlePutPreferences())
					r.Put("/credentials/{kind}", g.handlePutCredential())
					r.Get("/rules", g.handleListRules())
					r.Post("/rules", g.handleCreateRule())
					r.Delete("/rules/{rule}", g.handleDeleteRule())
					r.Get("/knowledge", g.handleListKnowledge())
					r.Post("/knowledge", g.handleAddKnowledge())
					r.Delete("/knowledge/tags/{tag}", g.handleDeleteKnowledgeTag())
				})
			})
		})
	}

	return r
}
