// Package supermemory implements the retrieval.supermemory module, a
// retrieval backend backed by the Supermemory hosted API. Every call uses
// the tenant's own API key.
package supermemory

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flemzord/ragraft/internal/core"
	"github.com/flemzord/ragraft/internal/retrieval"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ retrieval.Service = (*Module)(nil)
	_ core.Module       = (*Module)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
)

// Config holds the configuration for the Supermemory module.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.supermemory.ai"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// Module is the retrieval.supermemory module.
type Module struct {
	config Config
	logger *slog.Logger
	client *http.Client
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "retrieval.supermemory",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return err
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger
	m.client = &http.Client{Timeout: m.config.Timeout}

	if _, exists := ctx.Service(retrieval.ServiceName); exists {
		return errors.New("retrieval.supermemory: another retrieval backend is already loaded")
	}
	ctx.RegisterService(retrieval.ServiceName, m)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.config.BaseURL == "" {
		return errors.New("retrieval.supermemory: base_url is required")
	}
	return nil
}

// RequiresCredential implements retrieval.Service.
func (m *Module) RequiresCredential() bool { return true }
