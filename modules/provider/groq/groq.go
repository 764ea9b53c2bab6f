// Package groq implements the provider.groq module: text generation through
// Groq's OpenAI-compatible Chat Completions API.
package groq

import (
	"errors"
	"log/slog"
	"net/http"

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

// Provider generates text with Groq. API keys come with each request.
type Provider struct {
	config Config
	logger *slog.Logger
	client *http.Client
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.groq",
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
	p.client = &http.Client{Timeout: p.config.parsedTimeout()}

	reg, ok := core.ServiceAs[*provider.Registry](ctx, provider.RegistryService)
	if !ok {
		return errors.New("provider.groq: provider registry not available")
	}
	reg.Register(provider.Groq, p)
	return nil
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	if p.config.BaseURL == "" {
		return errors.New("provider.groq: base_url is required")
	}
	return p.config.validateTimeout()
}
