// Package anthropic implements the provider.anthropic module, generating
// text through the Anthropic Messages API.
package anthropic

import (
	"errors"
	"log/slog"
	"net/http"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/flemzord/ragraft/internal/core"
	"github.com/flemzord/ragraft/internal/provider"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Anthropic{})
}

// Interface guards.
var (
	_ core.Module        = (*Anthropic)(nil)
	_ core.Configurable  = (*Anthropic)(nil)
	_ core.Provisioner   = (*Anthropic)(nil)
	_ core.Validator     = (*Anthropic)(nil)
	_ provider.Generator = (*Anthropic)(nil)
)

// Anthropic is the provider.anthropic module. The SDK client carries no
// credential; each request supplies the tenant's key.
type Anthropic struct {
	config Config
	client *sdkanthropic.Client
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (a *Anthropic) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.anthropic",
		New: func() core.Module { return &Anthropic{} },
	}
}

// Configure implements core.Configurable.
func (a *Anthropic) Configure(node *yaml.Node) error {
	if err := node.Decode(&a.config); err != nil {
		return err
	}
	a.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (a *Anthropic) Provision(ctx *core.AppContext) error {
	a.logger = ctx.Logger
	a.client = newClient(a.config)

	reg, ok := core.ServiceAs[*provider.Registry](ctx, provider.RegistryService)
	if !ok {
		return errors.New("provider.anthropic: provider registry not available")
	}
	reg.Register(provider.Anthropic, a)
	return nil
}

// Validate implements core.Validator.
func (a *Anthropic) Validate() error {
	if a.config.DefaultMaxTokens <= 0 {
		return errors.New("provider.anthropic: default_max_tokens must be positive")
	}
	if a.client == nil {
		return errors.New("provider.anthropic: client not initialized (Provision not called)")
	}
	return nil
}

func newClient(cfg Config) *sdkanthropic.Client {
	opts := []option.RequestOption{
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		// One attempt per request; failures surface to the caller.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := sdkanthropic.NewClient(opts...)
	return &client
}
