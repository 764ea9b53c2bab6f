package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/flemzord/ragraft/internal/core"
	"github.com/flemzord/ragraft/internal/orchestrator"
	"github.com/flemzord/ragraft/internal/tenant"
	"github.com/flemzord/ragraft/internal/tenant/tenanttest"
	"gopkg.in/yaml.v3"
)

func TestGateway_ModuleInfo(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	info := g.ModuleInfo()

	if info.ID != "gateway.http" {
		t.Errorf("ID = %q, want %q", info.ID, "gateway.http")
	}
	if info.New == nil {
		t.Fatal("New func is nil")
	}

	mod := info.New()
	if _, ok := mod.(*Gateway); !ok {
		t.Error("New() should return *Gateway")
	}
}

func TestGateway_ConfigureDefaults(t *testing.T) {
	t.Parallel()

	g := &Gateway{}

	node := mustYAMLNode(t, "{}")
	if err := g.Configure(node); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if g.config.Bind != "127.0.0.1:8080" {
		t.Errorf("Bind = %q, want default", g.config.Bind)
	}
	if g.config.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want 10s", g.config.ReadTimeout)
	}
	if g.config.WriteTimeout != 90*time.Second {
		t.Errorf("WriteTimeout = %v, want 90s", g.config.WriteTimeout)
	}
	if g.config.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", g.config.ShutdownTimeout)
	}
	if g.config.MaxBodyBytes != 1<<20 {
		t.Errorf("MaxBodyBytes = %d, want 1 MiB", g.config.MaxBodyBytes)
	}
}

func TestGateway_ConfigureCustom(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	node := mustYAMLNode(t, `
bind: "0.0.0.0:9090"
read_timeout: 5s
write_timeout: 15s
shutdown_timeout: 10s
max_body_bytes: 4096
trust_proxy: true
auth:
  bearer_token: "my-token"
`)

	if err := g.Configure(node); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if g.config.Bind != "0.0.0.0:9090" {
		t.Errorf("Bind = %q, want custom", g.config.Bind)
	}
	if g.currentAuth().BearerToken != "my-token" {
		t.Errorf("BearerToken = %q", g.currentAuth().BearerToken)
	}
	if g.config.MaxBodyBytes != 4096 || !g.config.TrustProxy {
		t.Errorf("config = %+v", g.config)
	}
}

func TestGateway_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "good address", cfg: Config{Bind: "127.0.0.1:8080"}},
		{name: "bad address", cfg: Config{Bind: "not a valid address::"}, wantErr: true},
		{name: "basic user without pass", cfg: Config{Bind: "127.0.0.1:8080", Auth: AuthConfig{BasicUser: "admin"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := &Gateway{config: tt.cfg}
			if err := g.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// freeAddr returns a free TCP address on localhost.
func freeAddr(t *testing.T) string {
	t.Helper()
	var lc net.ListenConfig
	ln, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatal(err)
	}
	return addr
}

// doGet makes a GET request with context.
func doGet(t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

// newStartableGateway returns a provisioned gateway whose AppContext
// carries the required services.
func newStartableGateway(t *testing.T, addr string, auth AuthConfig) (*Gateway, *core.AppContext) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	appCtx := core.NewAppContext(logger, t.TempDir())

	store := tenanttest.NewMemoryStore()
	appCtx.RegisterService(tenant.StoreService, store)
	appCtx.RegisterService(orchestrator.ServiceName, &mockResponder{})

	g := &Gateway{}
	g.config = Config{
		Bind:            addr,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 2 * time.Second,
		Auth:            auth,
	}
	g.auth.Store(&auth)
	if err := g.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	return g, appCtx
}

func TestGateway_StartStop(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	g, _ := newStartableGateway(t, addr, AuthConfig{})

	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp := doGet(t, "http://"+addr+"/health")
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("health.Status = %q, want %q", health.Status, "ok")
	}

	if err := g.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestGateway_StartMissingServices(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	g := &Gateway{}
	g.config.defaults()
	if err := g.Provision(core.NewAppContext(logger, t.TempDir())); err != nil {
		t.Fatal(err)
	}
	if err := g.Start(); err == nil {
		_ = g.Stop(context.Background())
		t.Fatal("expected error without an orchestrator service")
	}
}

func TestGateway_ResolveServices(t *testing.T) {
	t.Parallel()

	_, appCtx := newStartableGateway(t, "127.0.0.1:0", AuthConfig{})
	store, _ := core.ServiceAs[tenant.Store](appCtx, tenant.StoreService)
	settings := tenant.NewCachedStore(store, nil, 0, nil)
	appCtx.RegisterService(tenant.SettingsService, settings)

	svc, err := resolveServices(appCtx)
	if err != nil {
		t.Fatalf("resolveServices: %v", err)
	}
	if svc.Settings != settings {
		t.Error("settings should come from the cache-fronted service")
	}
	if svc.Retrieval != nil || svc.Registry != nil || svc.Limiter != nil {
		t.Error("optional services should stay nil when not registered")
	}
}

func TestGateway_AdminNotMountedWithoutAuth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, AuthConfig{})
	for _, path := range []string{"/status", "/api/tenants/" + testTenant} {
		rr := env.do(t, http.MethodGet, path, nil, "")
		if rr.Code != http.StatusNotFound && rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want 404 or 405 (not mounted)", path, rr.Code)
		}
	}
}

func TestGateway_AdminWithAuth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, AuthConfig{BearerToken: testToken})

	if rr := env.do(t, http.MethodGet, "/status", nil, ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("no-auth status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	if rr := env.do(t, http.MethodGet, "/status", nil, testToken); rr.Code != http.StatusOK {
		t.Errorf("auth status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestGateway_Reload(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, AuthConfig{BearerToken: "old-token"})
	appCtx := core.NewAppContext(nil, t.TempDir()).WithModuleConfigs(map[string]yaml.Node{
		"gateway.http": *mustYAMLNode(t, "auth:\n  bearer_token: new-token\n"),
	})
	env.g.config.Bind = "127.0.0.1:8080"

	if err := env.g.Reload(appCtx); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if rr := env.do(t, http.MethodGet, "/status", nil, "old-token"); rr.Code != http.StatusUnauthorized {
		t.Errorf("old token: status = %d, want 401", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/status", nil, "new-token"); rr.Code != http.StatusOK {
		t.Errorf("new token: status = %d, want 200", rr.Code)
	}
}

func TestGateway_StopNilServer(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	if err := g.Stop(context.Background()); err != nil {
		t.Errorf("Stop on nil server should not error: %v", err)
	}
}

// mustYAMLNode parses YAML text into a *yaml.Node for Configure calls.
func mustYAMLNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatalf("YAML parse: %v", err)
	}
	if len(node.Content) > 0 {
		return node.Content[0]
	}
	return &node
}
