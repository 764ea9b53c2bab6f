package reload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flemzord/ragraft/internal/config"
	"github.com/flemzord/ragraft/internal/core"
)

// Handler reloads application configuration and notifies modules.
type Handler struct {
	app    *core.App
	base   *core.AppContext
	logger *slog.Logger
}

// NewHandler creates a reload handler. base is the context the application
// was built with; reloaded modules share its service registry.
func NewHandler(app *core.App, base *core.AppContext, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		app:    app,
		base:   base,
		logger: logger,
	}
}

// HandleReload loads a fresh config from disk, validates it, and calls Reload
// on all modules that implement core.Reloader.
func (h *Handler) HandleReload(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return h.handleReload(ctx, cfg)
}

// HandleReloadFromConfig reloads modules from a pre-loaded, already-validated
// config. It does not re-validate.
func (h *Handler) HandleReloadFromConfig(ctx context.Context, cfg *config.Config) error {
	return h.handleReload(ctx, cfg)
}

func (h *Handler) handleReload(ctx context.Context, cfg *config.Config) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before reload: %w", err)
	}

	appCtx := h.base.WithModuleConfigs(cfg.Modules)
	if err := h.app.ReloadModules(appCtx); err != nil {
		return fmt.Errorf("reloading modules: %w", err)
	}

	h.logger.Info("reload: configuration reloaded")
	return nil
}
