package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/flemzord/ragraft/internal/provider"
	"github.com/flemzord/ragraft/internal/provider/providertest"
)

func TestHealth_AllHealthy(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, AuthConfig{})
	env.g.svc.Registry.Register(provider.Groq, &providertest.MockGenerator{GenerateFunc: providertest.Reply("hi")})

	rr := env.do(t, http.MethodGet, "/health", nil, "")
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want %q", resp.Status, "ok")
	}
	if resp.Providers["groq"] != "healthy" {
		t.Errorf("providers = %v", resp.Providers)
	}
}

func TestHealth_Degraded(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, AuthConfig{})
	reg := provider.NewRegistry(nil, provider.HealthConfig{MaxFailures: 1})
	reg.Register(provider.Groq, &providertest.MockGenerator{
		GenerateFunc: func(context.Context, provider.Request) (provider.Result, error) {
			return provider.Result{}, provider.UpstreamError(provider.Groq, 503, "busy", provider.ErrProviderDown)
		},
	})
	env.g.svc.Registry = reg

	// Drive the backend down.
	_, _ = reg.Generate(t.Context(), provider.Request{Provider: provider.Groq, APIKey: "k"})

	rr := env.do(t, http.MethodGet, "/health", nil, "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want %q", resp.Status, "degraded")
	}
	if resp.Providers["groq"] != "down" {
		t.Errorf("providers = %v", resp.Providers)
	}
}

func TestHealth_NoRegistry(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, AuthConfig{})
	env.g.svc.Registry = nil

	rr := env.do(t, http.MethodGet, "/health", nil, "")
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if len(env.g.providerHealth()) != 0 {
		t.Error("expected no providers without a registry")
	}
}
