package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/flemzord/ragraft/internal/provider"
)

// maxResponseSize is the maximum response body size (10 MB).
const maxResponseSize = 10 * 1024 * 1024

// Generate implements provider.Generator.
func (p *Provider) Generate(ctx context.Context, req provider.Request) (provider.Result, error) {
	if req.APIKey == "" {
		return provider.Result{}, provider.MissingCredentialError(provider.Google)
	}

	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return provider.Result{}, provider.UpstreamError(provider.Google, 0, "marshal request", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		p.config.BaseURL, url.PathEscape(req.Model), url.QueryEscape(req.APIKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return provider.Result{}, provider.UpstreamError(provider.Google, 0, "create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return provider.Result{}, provider.ConnectionError(provider.Google, redactKey(err))
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return provider.Result{}, provider.UpstreamError(provider.Google, resp.StatusCode, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return provider.Result{}, mapHTTPError(resp.StatusCode, data)
	}

	var gr generateResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return provider.Result{}, provider.UpstreamError(provider.Google, resp.StatusCode, "unmarshal response", err)
	}
	text := gr.firstText()
	if text == "" {
		return provider.Result{}, provider.UpstreamError(provider.Google, 0, "", provider.ErrEmptyResponse)
	}
	return provider.Result{Text: text, Usage: gr.usage()}, nil
}

func mapHTTPError(statusCode int, body []byte) error {
	var apiErr apiError
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}
	cause := provider.StatusCause(statusCode)
	if statusCode == 400 && strings.Contains(strings.ToLower(msg), "token count") {
		cause = provider.ErrContextLength
	}
	return provider.UpstreamError(provider.Google, statusCode, msg, cause)
}

// redactKey masks the key query parameter that transport errors echo
// back in the request URL.
func redactKey(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	u, perr := url.Parse(uerr.URL)
	if perr != nil || !u.Query().Has("key") {
		return err
	}
	q := u.Query()
	q.Set("key", "REDACTED")
	u.RawQuery = q.Encode()
	uerr.URL = u.String()
	return err
}
