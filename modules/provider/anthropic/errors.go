package anthropic

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/flemzord/ragraft/internal/provider"
)

// statusOverloaded is Anthropic's non-standard "overloaded" status.
const statusOverloaded = 529

// apiErrorBody is the Anthropic error JSON.
type apiErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// mapError converts an SDK error into a provider error.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *sdkanthropic.Error
	if !errors.As(err, &apiErr) {
		return provider.ConnectionError(provider.Anthropic, err)
	}

	var body apiErrorBody
	msg := apiErr.Error()
	if json.Unmarshal([]byte(apiErr.RawJSON()), &body) == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}

	cause := provider.StatusCause(apiErr.StatusCode)
	switch {
	case apiErr.StatusCode == statusOverloaded:
		cause = provider.ErrProviderDown
	case apiErr.StatusCode == http.StatusBadRequest && isContextLengthError(body.Error.Type, msg):
		cause = provider.ErrContextLength
	}
	if cause == nil {
		cause = err
	} else {
		cause = errors.Join(cause, err)
	}
	return provider.UpstreamError(provider.Anthropic, apiErr.StatusCode, msg, cause)
}

func isContextLengthError(errType, msg string) bool {
	if errType != "" && errType != "invalid_request_error" {
		return false
	}
	return strings.Contains(msg, "context length") ||
		strings.Contains(msg, "too many tokens") ||
		strings.Contains(msg, "token limit")
}
