package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/flemzord/ragraft/internal/config"
	"github.com/flemzord/ragraft/internal/core"
	"github.com/flemzord/ragraft/internal/cron"
	"github.com/flemzord/ragraft/internal/metrics"
	"github.com/flemzord/ragraft/internal/orchestrator"
	"github.com/flemzord/ragraft/internal/provider"
	"github.com/flemzord/ragraft/internal/retrieval"
	"github.com/flemzord/ragraft/internal/security"
	"github.com/flemzord/ragraft/internal/tenant"
)

// ErrNoStore is returned when no store module is configured.
var ErrNoStore = errors.New("app: a store module is required")

// Options configures Bootstrap.
type Options struct {
	DataDir string

	// LogOutput receives log lines. Defaults to os.Stderr.
	LogOutput io.Writer
	LogLevel  slog.Level
}

// Runtime is a fully wired but not yet started application.
type Runtime struct {
	App          *core.App
	Context      *core.AppContext
	Logger       *slog.Logger
	Redactor     *security.Redactor
	Audit        *security.AuditLogger
	Limiter      *security.RateLimiter
	Providers    *provider.Registry
	Metrics      *metrics.Metrics
	Store        tenant.Store
	Settings     *tenant.CachedStore
	Orchestrator *orchestrator.Orchestrator
	Scheduler    *cron.Scheduler

	closers []io.Closer
}

// Bootstrap builds the shared services, loads the configured modules and
// wires the response pipeline on top of them. Modules are provisioned but
// not started.
func Bootstrap(cfg *config.Config, opts Options) (*Runtime, error) {
	if opts.DataDir == "" {
		opts.DataDir = DefaultDataDir()
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}

	rt := &Runtime{Redactor: security.NewRedactor()}
	inner := slog.NewTextHandler(opts.LogOutput, &slog.HandlerOptions{Level: opts.LogLevel})
	rt.Logger = slog.New(security.NewRedactingHandler(inner, rt.Redactor))

	auditOut, err := openAuditLog(cfg.Security.AuditLog, opts.DataDir)
	if err != nil {
		return nil, err
	}
	if auditOut != nil {
		rt.closers = append(rt.closers, auditOut)
	}
	auditCfg := security.AuditLoggerConfig{Redactor: rt.Redactor}
	if auditOut != nil {
		auditCfg.Writer = auditOut
	}
	rt.Audit = security.NewAuditLogger(auditCfg)
	rt.Limiter = security.NewRateLimiter(cfg.Security.PublicRateLimit)

	rt.Providers = provider.NewRegistry(rt.Logger, cfg.Pipeline.ProviderHealth)
	rt.Metrics = metrics.New()
	rt.Metrics.RegisterProviderHealth(rt.Providers.Health)

	rt.Context = core.NewAppContext(rt.Logger, opts.DataDir).WithModuleConfigs(cfg.Modules)
	rt.Context.RegisterService(security.RedactorService, rt.Redactor)
	rt.Context.RegisterService(security.AuditService, rt.Audit)
	rt.Context.RegisterService(security.RateLimiterService, rt.Limiter)
	rt.Context.RegisterService(provider.RegistryService, rt.Providers)
	rt.Context.RegisterService(metrics.ServiceName, rt.Metrics)

	rt.App = core.NewApp(rt.Context)
	if err := rt.App.LoadModules(config.Resolve(cfg)); err != nil {
		rt.Close()
		return nil, err
	}

	if err := rt.wirePipeline(cfg); err != nil {
		rt.App.Stop()
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// wirePipeline builds the settings cache, the orchestrator and the
// maintenance jobs from the services the modules registered.
func (rt *Runtime) wirePipeline(cfg *config.Config) error {
	store, ok := core.ServiceAs[tenant.Store](rt.Context, tenant.StoreService)
	if !ok {
		return ErrNoStore
	}
	rt.Store = store

	cache, _ := core.ServiceAs[tenant.Cache](rt.Context, tenant.CacheService)
	rt.Settings = tenant.NewCachedStore(store, cache, cfg.Pipeline.CacheTTL, rt.Logger)
	rt.Settings.OnSecrets = rt.Redactor.AddLiteral
	rt.Context.RegisterService(tenant.SettingsService, rt.Settings)

	search, _ := core.ServiceAs[retrieval.Service](rt.Context, retrieval.ServiceName)
	if len(rt.Providers.Health()) == 0 {
		rt.Logger.Warn("app: no provider module loaded, every reply will fail")
	}

	rt.Orchestrator = orchestrator.New(orchestrator.Deps{
		Preferences: rt.Settings,
		Credentials: rt.Settings,
		Rules:       store,
		Tags:        store,
		Questions:   store,
		Retrieval:   search,
		Generator:   rt.Providers,
		Metrics:     rt.Metrics,
		Logger:      rt.Logger,
	})
	rt.Context.RegisterService(orchestrator.ServiceName, rt.Orchestrator)

	rt.Scheduler = cron.NewScheduler(rt.Logger)
	jobs := []cron.Job{
		&cron.QuestionRetentionJob{
			Log:    store,
			MaxAge: cfg.Pipeline.QuestionRetention,
			Logger: rt.Logger,
		},
		&cron.RateLimitSweepJob{Limiter: rt.Limiter},
		&cron.HealthReportJob{Health: rt.Providers.Health, Logger: rt.Logger},
	}
	for _, j := range jobs {
		if err := rt.Scheduler.RegisterJob(j); err != nil {
			return err
		}
	}
	rt.App.Append(&jobsModule{scheduler: rt.Scheduler})
	return nil
}

// Close releases resources Bootstrap opened outside of modules.
func (rt *Runtime) Close() {
	for _, c := range rt.closers {
		if err := c.Close(); err != nil {
			rt.Logger.Warn("app: close failed", "error", err)
		}
	}
	rt.closers = nil
}

// openAuditLog opens the audit file in append mode. A relative path is
// resolved under dataDir. An empty path disables the file.
func openAuditLog(path, dataDir string) (*os.File, error) {
	if path == "" {
		return nil, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dataDir, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("app: create audit log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("app: open audit log: %w", err)
	}
	return f, nil
}

// jobsModule runs the maintenance scheduler inside the App lifecycle.
type jobsModule struct {
	scheduler *cron.Scheduler
}

var (
	_ core.Module  = (*jobsModule)(nil)
	_ core.Starter = (*jobsModule)(nil)
	_ core.Stopper = (*jobsModule)(nil)
)

func (m *jobsModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "pipeline.jobs"}
}

func (m *jobsModule) Start() error {
	return m.scheduler.Start()
}

func (m *jobsModule) Stop(ctx context.Context) error {
	return m.scheduler.Stop(ctx)
}
