package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Caller-visible failure classes. Every error returned by a Generator
// matches exactly one of them through errors.Is.
var (
	// ErrUnsupportedProvider indicates a provider name outside the enumerated set.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrMissingCredential indicates the tenant has no API key for the backend.
	ErrMissingCredential = errors.New("missing credential")

	// ErrUpstream indicates the backend call failed or returned nothing usable.
	ErrUpstream = errors.New("upstream generation failure")
)

// Upstream causes, used for metrics labels and logging.
var (
	// ErrRateLimit indicates the provider returned a rate limit response.
	ErrRateLimit = errors.New("provider rate limited")

	// ErrContextLength indicates the request exceeded the model's context window.
	ErrContextLength = errors.New("context length exceeded")

	// ErrProviderDown indicates the provider is temporarily unavailable.
	ErrProviderDown = errors.New("provider unavailable")

	// ErrAuth indicates the provider rejected the API key.
	ErrAuth = errors.New("provider authentication failed")

	// ErrEmptyResponse indicates the provider answered without any text.
	ErrEmptyResponse = errors.New("response was empty")
)

// Error is the typed failure surfaced by generation backends. Message holds
// the raw upstream message when one was available.
type Error struct {
	Provider Kind
	Class    error
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	prefix := string(e.Provider)
	if prefix == "" {
		prefix = "provider"
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" && e.Class != nil {
		msg = e.Class.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", prefix, e.Status, msg)
	}
	return prefix + ": " + msg
}

// Unwrap exposes both the failure class and the underlying cause.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Class != nil {
		errs = append(errs, e.Class)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// UpstreamError builds an ErrUpstream failure for kind.
func UpstreamError(kind Kind, status int, msg string, cause error) *Error {
	return &Error{Provider: kind, Class: ErrUpstream, Status: status, Message: msg, Err: cause}
}

// MissingCredentialError builds an ErrMissingCredential failure for kind.
func MissingCredentialError(kind Kind) *Error {
	return &Error{Provider: kind, Class: ErrMissingCredential, Message: "API key is missing"}
}

// ConnectionError wraps a transport failure. Network errors also match
// ErrProviderDown; context errors stay visible through Unwrap.
func ConnectionError(kind Kind, err error) *Error {
	var netErr net.Error
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) && errors.As(err, &netErr) {
		return UpstreamError(kind, 0, err.Error(), errors.Join(ErrProviderDown, err))
	}
	return UpstreamError(kind, 0, err.Error(), err)
}

// StatusCause maps an HTTP status to the matching upstream cause, or nil.
func StatusCause(status int) error {
	switch {
	case status == 429:
		return ErrRateLimit
	case status == 401 || status == 403:
		return ErrAuth
	case status >= 500:
		return ErrProviderDown
	default:
		return nil
	}
}

// CauseLabel names the upstream cause of err for metrics.
func CauseLabel(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrRateLimit):
		return "rate_limit"
	case errors.Is(err, ErrProviderDown):
		return "provider_down"
	case errors.Is(err, ErrContextLength):
		return "context_length"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ErrUnsupportedProvider):
		return "unsupported_provider"
	default:
		return "other"
	}
}

// IsTransient reports whether the failure is likely to clear on its own.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrProviderDown)
}
