package orchestrator

import (
	"errors"

	"github.com/flemzord/ragraft/internal/provider"
	"github.com/flemzord/ragraft/internal/retrieval"
)

// Caller-visible error kinds.
const (
	KindUnsupportedProvider = "unsupported_provider"
	KindMissingCredential   = "missing_credential"
	KindUpstream            = "upstream_generation_failure"
	KindInternal            = "internal"
)

// ErrorKind classifies an error returned by Respond.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, provider.ErrUnsupportedProvider):
		return KindUnsupportedProvider
	case errors.Is(err, provider.ErrMissingCredential), errors.Is(err, retrieval.ErrMissingCredential):
		return KindMissingCredential
	case errors.Is(err, provider.ErrUpstream):
		return KindUpstream
	default:
		return KindInternal
	}
}

// upstream makes sure a generation failure matches provider.ErrUpstream
// unless it already carries a caller-visible class.
func upstream(kind provider.Kind, err error) error {
	if errors.Is(err, provider.ErrUpstream) ||
		errors.Is(err, provider.ErrMissingCredential) ||
		errors.Is(err, provider.ErrUnsupportedProvider) {
		return err
	}
	return provider.UpstreamError(kind, 0, "", err)
}
