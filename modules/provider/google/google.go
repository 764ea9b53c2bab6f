// Package google implements the provider.google module: text generation
// through the Gemini generateContent REST API.
package google

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flemzord/ragraft/internal/core"
	"github.com/flemzord/ragraft/internal/provider"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Provider{})
}

// Compile-time interface guards.
var (
	_ provider.Generator = (*Provider)(nil)
	_ core.Module        = (*Provider)(nil)
	_ core.Configurable  = (*Provider)(nil)
	_ core.Provisioner   = (*Provider)(nil)
	_ core.Validator     = (*Provider)(nil)
)

// Config holds the configuration for the Google provider module.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
}

// Provider generates text with Gemini models.
type Provider struct {
	config Config
	logger *slog.Logger
	client *http.Client
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.google",
		New: func() core.Module { return &Provider{} },
	}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return err
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.logger = ctx.Logger
	p.client = &http.Client{Timeout: p.config.Timeout}

	reg, ok := core.ServiceAs[*provider.Registry](ctx, provider.RegistryService)
	if !ok {
		return errors.New("provider.google: provider registry not available")
	}
	reg.Register(provider.Google, p)
	return nil
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	if p.config.BaseURL == "" {
		return errors.New("provider.google: base_url is required")
	}
	if p.config.Timeout < 0 {
		return errors.New("provider.google: timeout must not be negative")
	}
	return nil
}
