package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/flemzord/ragraft/internal/provider"
)

// Generate implements provider.Generator.
func (a *Anthropic) Generate(ctx context.Context, req provider.Request) (provider.Result, error) {
	if req.APIKey == "" {
		return provider.Result{}, provider.MissingCredentialError(provider.Anthropic)
	}

	params := convertRequest(req, &a.config)
	msg, err := a.client.Messages.New(ctx, params, option.WithAPIKey(req.APIKey))
	if err != nil {
		return provider.Result{}, mapError(err)
	}
	return convertResponse(msg), nil
}
