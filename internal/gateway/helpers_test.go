package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flemzord/ragraft/internal/metrics"
	"github.com/flemzord/ragraft/internal/orchestrator"
	"github.com/flemzord/ragraft/internal/persona"
	"github.com/flemzord/ragraft/internal/provider"
	"github.com/flemzord/ragraft/internal/retrieval/retrievaltest"
	"github.com/flemzord/ragraft/internal/security"
	"github.com/flemzord/ragraft/internal/security/securitytest"
	"github.com/flemzord/ragraft/internal/tenant"
	"github.com/flemzord/ragraft/internal/tenant/tenanttest"
	"github.com/flemzord/ragraft/pkg/message"
)

const (
	testToken  = "test-token"
	testTenant = "t1"
	testCode   = "12345678"
)

// mockResponder is a Responder with Func fields. Unset RespondFunc
// answers "ok"; unset OpeningFunc answers the fallback greeting.
type mockResponder struct {
	RespondFunc func(ctx context.Context, tenantID string, msgs []message.Message) (orchestrator.Response, error)
	OpeningFunc func(ctx context.Context, tenantID string) orchestrator.Opening

	tenants []string
}

func (m *mockResponder) Respond(ctx context.Context, tenantID string, msgs []message.Message) (orchestrator.Response, error) {
	m.tenants = append(m.tenants, tenantID)
	if m.RespondFunc == nil {
		return orchestrator.Response{Text: "ok", RequestID: "req-1"}, nil
	}
	return m.RespondFunc(ctx, tenantID, msgs)
}

func (m *mockResponder) OpeningLine(ctx context.Context, tenantID string) orchestrator.Opening {
	if m.OpeningFunc == nil {
		brief := persona.Brief{Name: tenant.DefaultName, Tone: tenant.DefaultTone, StreamSpeed: tenant.DefaultStreamSpeed}
		return orchestrator.Opening{Line: persona.FallbackOpening(brief), Brief: brief}
	}
	return m.OpeningFunc(ctx, tenantID)
}

// testEnv is a gateway wired to in-memory collaborators.
type testEnv struct {
	g         *Gateway
	store     *tenanttest.MemoryStore
	cache     *tenanttest.MemoryCache
	responder *mockResponder
	retrieval *retrievaltest.MockService
	audit     *securitytest.AuditRecorder
	handler   http.Handler
}

func newTestEnv(t *testing.T, auth AuthConfig) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	env := &testEnv{
		store:     tenanttest.NewMemoryStore(),
		cache:     tenanttest.NewMemoryCache(),
		responder: &mockResponder{},
		retrieval: &retrievaltest.MockService{},
	}
	if err := env.store.CreateTenant(context.Background(), tenant.Tenant{ID: testTenant, Name: "Acme", PublicCode: testCode}); err != nil {
		t.Fatal(err)
	}
	auditLogger, rec := securitytest.NewAuditLogger()
	env.audit = rec

	g := &Gateway{logger: logger}
	g.config = Config{Auth: auth}
	g.config.defaults()
	g.auth.Store(&auth)
	g.svc = Services{
		Responder: env.responder,
		Directory: env.store,
		Settings:  tenant.NewCachedStore(env.store, env.cache, 0, logger),
		Rules:     env.store,
		Knowledge: env.store,
		Retrieval: env.retrieval,
		Registry:  provider.NewRegistry(logger, provider.HealthConfig{}),
		Metrics:   metrics.New(),
		Redactor:  security.NewRedactor(),
		Audit:     auditLogger,
		Limiter:   security.NewRateLimiter(security.RateLimitConfig{PerMinute: 1000}),
	}
	env.g = g
	env.handler = g.buildRouter()
	return env
}

// do sends a request through the router. body, when non-nil, is encoded
// as JSON; a string body is sent verbatim.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v (body %q)", err, rr.Body.String())
	}
	return body.Error
}
