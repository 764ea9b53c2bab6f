// Package app wires configuration, modules and the response pipeline into
// a running ragraft server.
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/flemzord/ragraft/internal/config"
	"github.com/flemzord/ragraft/internal/reload"
	"github.com/flemzord/ragraft/internal/telemetry"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.Locate is called.
	ConfigPath string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level
}

// LoadConfig resolves, loads and validates the configuration file.
func LoadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		located, err := config.Locate()
		if err != nil {
			return nil, "", err
		}
		path = located
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Run loads configuration, starts all modules, and blocks until ctx is
// cancelled or a shutdown signal is received. SIGHUP and file-change
// events trigger a live reload of modules that implement core.Reloader.
func Run(ctx context.Context, params RunParams) error {
	cfg, cfgPath, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}

	rt, err := Bootstrap(cfg, Options{DataDir: params.DataDir, LogLevel: params.LogLevel})
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.Logger

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		rt.App.Stop()
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("telemetry: shutdown failed", "error", err)
		}
	}()

	handler := reload.NewHandler(rt.App, rt.Context, logger)

	if err := rt.App.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	watcher := reload.NewWatcher(reload.WatcherConfig{ConfigPath: cfgPath})
	if err := watcher.Start(watchCtx); err != nil {
		logger.Warn("reload: file watcher disabled", "error", err)
	}
	defer watcher.Stop()

	logger.Info("ragraft started", "config", cfgPath)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown requested")
			rt.App.Stop()
			logger.Info("shutdown complete")
			return nil
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Info("SIGHUP received, reloading configuration")
				if err := handler.HandleReload(watchCtx, cfgPath); err != nil {
					logger.Error("reload failed", "error", err)
				}
				continue
			}
			logger.Info("shutdown signal received", "signal", sig.String())
			rt.App.Stop()
			logger.Info("shutdown complete")
			return nil
		case evt := <-watcher.Events():
			logger.Info("config file changed, reloading", "path", evt.ConfigPath)
			if err := handler.HandleReload(watchCtx, cfgPath); err != nil {
				logger.Error("reload failed", "error", err)
			}
		}
	}
}

// Check loads and validates the configuration and provisions every module
// without starting any, returning the loaded module IDs.
func Check(path, dataDir string) ([]string, error) {
	cfg, _, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	rt, err := Bootstrap(cfg, Options{DataDir: dataDir, LogLevel: slog.LevelWarn})
	if err != nil {
		return nil, err
	}
	defer rt.Close()
	defer rt.App.Stop()
	return config.Resolve(cfg), nil
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/ragraft if set, otherwise ~/.local/share/ragraft.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "ragraft")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "ragraft")
	}
	return filepath.Join(home, ".local", "share", "ragraft")
}
