package groq

import (
	"encoding/json"
	"strings"

	"github.com/flemzord/ragraft/internal/provider"
)

// mapHTTPError maps a non-2xx response to a provider error carrying the
// upstream message. Returns nil for 2xx status codes.
func mapHTTPError(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var msg string
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	} else {
		msg = strings.TrimSpace(string(body))
	}

	cause := provider.StatusCause(statusCode)
	if statusCode == 400 && strings.Contains(strings.ToLower(msg), "context_length") {
		cause = provider.ErrContextLength
	}
	return provider.UpstreamError(provider.Groq, statusCode, msg, cause)
}

// mapConnectionError wraps transport failures. Network errors count as the
// provider being down; context errors stay visible through Unwrap.
func mapConnectionError(err error) error {
	return provider.ConnectionError(provider.Groq, err)
}
