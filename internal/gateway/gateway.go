// Package gateway provides the HTTP surface: admin and public chat, the
// tenant admin API, health and metrics. It binds to loopback by default and
// follows the module system pattern.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/flemzord/ragraft/internal/core"
	"github.com/flemzord/ragraft/internal/metrics"
	"github.com/flemzord/ragraft/internal/orchestrator"
	"github.com/flemzord/ragraft/internal/provider"
	"github.com/flemzord/ragraft/internal/retrieval"
	"github.com/flemzord/ragraft/internal/security"
	"github.com/flemzord/ragraft/internal/tenant"
	"github.com/flemzord/ragraft/pkg/message"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
	_ core.Reloader     = (*Gateway)(nil)

	_ Responder = (*orchestrator.Orchestrator)(nil)
)

// Responder runs the response pipeline.
type Responder interface {
	Respond(ctx context.Context, tenantID string, msgs []message.Message) (orchestrator.Response, error)
	OpeningLine(ctx context.Context, tenantID string) orchestrator.Opening
}

// Services are the collaborators the gateway resolves at Start. Only
// Responder, Directory and Settings are required.
type Services struct {
	Responder Responder
	Directory tenant.Directory
	Settings  tenant.SettingsStore
	Rules     tenant.RuleWriter
	Knowledge tenant.KnowledgeStore
	Retrieval retrieval.Service

	Registry *provider.Registry
	Metrics  *metrics.Metrics
	Redactor *security.Redactor
	Audit    *security.AuditLogger
	Limiter  *security.RateLimiter
}

// Gateway is the HTTP gateway module. It is a leaf module; nothing
// imports it.
type Gateway struct {
	config    Config
	auth      atomic.Pointer[AuthConfig]
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	svc       Services
	startedAt time.Time
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	auth := g.config.Auth
	g.auth.Store(&auth)
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	if g.config.Auth.BasicUser != "" && g.config.Auth.BasicPass == "" {
		return errors.New("gateway: auth.basic_pass is required with auth.basic_user")
	}
	return nil
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	svc, err := resolveServices(g.appCtx)
	if err != nil {
		return err
	}
	g.svc = svc
	if !g.currentAuth().IsConfigured() {
		g.logger.Warn("gateway: no admin auth configured, admin routes disabled")
	}

	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway: listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway: serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway: shutting down")
	return g.server.Shutdown(shutdownCtx)
}

// Reload implements core.Reloader. Admin credentials are swapped in place;
// a changed bind address or newly enabled auth needs a restart.
func (g *Gateway) Reload(ctx *core.AppContext) error {
	node, ok := ctx.ModuleConfig("gateway.http")
	if !ok {
		return nil
	}
	var cfg Config
	if err := node.Decode(&cfg); err != nil {
		return fmt.Errorf("gateway: decoding config: %w", err)
	}
	cfg.defaults()

	if cfg.Bind != g.config.Bind {
		g.logger.Warn("gateway: bind address change requires a restart", "current", g.config.Bind, "configured", cfg.Bind)
	}
	if cfg.Auth.IsConfigured() != g.currentAuth().IsConfigured() {
		g.logger.Warn("gateway: enabling or disabling admin auth requires a restart")
	}
	auth := cfg.Auth
	g.auth.Store(&auth)
	return nil
}

func (g *Gateway) currentAuth() AuthConfig {
	if a := g.auth.Load(); a != nil {
		return *a
	}
	return g.config.Auth
}

// resolveServices reads the gateway's collaborators from the service
// registry.
func resolveServices(ctx *core.AppContext) (Services, error) {
	var svc Services
	var ok bool

	if svc.Responder, ok = core.ServiceAs[Responder](ctx, orchestrator.ServiceName); !ok {
		return svc, errors.New("gateway: orchestrator service not registered")
	}
	store, ok := core.ServiceAs[tenant.Store](ctx, tenant.StoreService)
	if !ok {
		return svc, errors.New("gateway: tenant store not registered")
	}
	svc.Directory = store
	svc.Rules = store
	svc.Knowledge = store
	if svc.Settings, ok = core.ServiceAs[tenant.SettingsStore](ctx, tenant.SettingsService); !ok {
		svc.Settings = store
	}

	svc.Retrieval, _ = core.ServiceAs[retrieval.Service](ctx, retrieval.ServiceName)
	svc.Registry, _ = core.ServiceAs[*provider.Registry](ctx, provider.RegistryService)
	svc.Metrics, _ = core.ServiceAs[*metrics.Metrics](ctx, metrics.ServiceName)
	svc.Redactor, _ = core.ServiceAs[*security.Redactor](ctx, security.RedactorService)
	svc.Audit, _ = core.ServiceAs[*security.AuditLogger](ctx, security.AuditService)
	svc.Limiter, _ = core.ServiceAs[*security.RateLimiter](ctx, security.RateLimiterService)
	return svc, nil
}
