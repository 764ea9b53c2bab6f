package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/flemzord/ragraft/internal/provider"
)

// maxResponseSize is the maximum response body size (10 MB).
const maxResponseSize = 10 * 1024 * 1024

func buildChatRequest(req provider.Request) chatRequest {
	cr := chatRequest{
		Model:       req.Model,
		Messages:    toMessages(req.Messages),
		Temperature: req.Temperature,
	}
	if n, ok := req.MaxOutputTokens.Get(); ok {
		cr.MaxTokens = n
	}
	return cr
}

func (p *Provider) newHTTPRequest(ctx context.Context, apiKey, path string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("groq: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("groq: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	return httpReq, nil
}

// doPost sends a POST request and returns the response body and status code.
func (p *Provider) doPost(ctx context.Context, apiKey, path string, payload any) ([]byte, int, error) {
	httpReq, err := p.newHTTPRequest(ctx, apiKey, path, payload)
	if err != nil {
		return nil, 0, provider.UpstreamError(provider.Groq, 0, "", err)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, 0, mapConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, provider.UpstreamError(provider.Groq, resp.StatusCode, "read response", err)
	}
	return body, resp.StatusCode, nil
}

// Generate implements provider.Generator.
func (p *Provider) Generate(ctx context.Context, req provider.Request) (provider.Result, error) {
	if req.APIKey == "" {
		return provider.Result{}, provider.MissingCredentialError(provider.Groq)
	}

	body, status, err := p.doPost(ctx, req.APIKey, "/chat/completions", buildChatRequest(req))
	if err != nil {
		return provider.Result{}, err
	}
	if httpErr := mapHTTPError(status, body); httpErr != nil {
		return provider.Result{}, httpErr
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return provider.Result{}, provider.UpstreamError(provider.Groq, status, "unmarshal response", err)
	}

	var text string
	if len(resp.Choices) > 0 {
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	return provider.Result{Text: text, Usage: fromUsage(resp.Usage)}, nil
}
