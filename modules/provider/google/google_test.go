package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flemzord/ragraft/internal/budget"
	"github.com/flemzord/ragraft/internal/core"
	"github.com/flemzord/ragraft/internal/provider"
	"github.com/flemzord/ragraft/pkg/message"
)

func newTestProvider(t *testing.T, handler http.Handler) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Provider{config: Config{BaseURL: srv.URL}, client: srv.Client()}
}

func readRequestBody(t *testing.T, r *http.Request) generateRequest {
	t.Helper()
	body, _ := io.ReadAll(r.Body)
	var req generateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Errorf("invalid request body: %v", err)
	}
	return req
}

func testRequest() provider.Request {
	return provider.Request{
		Provider:    provider.Google,
		Model:       "gemini-2.0-flash",
		APIKey:      "AIza-test",
		Temperature: 0.5,
		Messages: []message.Message{
			message.System("rule A"),
			message.User("hello"),
			message.System("rule B"),
			message.Assistant("hi there"),
			message.User(""),
			message.User("question"),
		},
	}
}

func TestGenerate_Success(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.0-flash:generateContent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "AIza-test" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}

		req := readRequestBody(t, r)
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "rule A\n\nrule B" {
			t.Errorf("systemInstruction = %+v", req.SystemInstruction)
		}
		wantRoles := []string{"user", "model", "user"}
		if len(req.Contents) != len(wantRoles) {
			t.Fatalf("contents = %+v, want %d entries", req.Contents, len(wantRoles))
		}
		for i, role := range wantRoles {
			if req.Contents[i].Role != role {
				t.Errorf("contents[%d].role = %q, want %q", i, req.Contents[i].Role, role)
			}
		}
		if req.GenerationConfig.Temperature != 0.5 {
			t.Errorf("temperature = %v", req.GenerationConfig.Temperature)
		}
		if req.GenerationConfig.MaxOutputTokens != 0 {
			t.Errorf("maxOutputTokens = %d, want omitted", req.GenerationConfig.MaxOutputTokens)
		}

		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": " Bonjour! "}]}}],
			"usageMetadata": {"promptTokenCount": 7, "candidatesTokenCount": 3, "totalTokenCount": 10}
		}`))
	}))

	res, err := p.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if res.Text != "Bonjour!" {
		t.Errorf("text = %q", res.Text)
	}
	if res.Usage == nil || res.Usage.TotalTokens != 10 || res.Usage.PromptTokens != 7 {
		t.Errorf("usage = %+v", res.Usage)
	}
}

func TestBuildRequest_NoSystemAndBudget(t *testing.T) {
	req := testRequest()
	req.Messages = []message.Message{message.User("q")}
	req.MaxOutputTokens = budget.Some(128)

	gr := buildRequest(req)
	if gr.SystemInstruction != nil {
		t.Errorf("systemInstruction = %+v, want nil", gr.SystemInstruction)
	}
	if gr.GenerationConfig.MaxOutputTokens != 128 {
		t.Errorf("maxOutputTokens = %d, want 128", gr.GenerationConfig.MaxOutputTokens)
	}
}

func TestGenerate_EmptyResponse(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"candidates": []}`,
		`{"candidates": [{"content": {"parts": [{"text": "   "}]}}]}`,
	}
	for _, body := range bodies {
		p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		_, err := p.Generate(context.Background(), testRequest())
		if !errors.Is(err, provider.ErrUpstream) || !errors.Is(err, provider.ErrEmptyResponse) {
			t.Errorf("body %s: error = %v, want empty response upstream failure", body, err)
		}
	}
}

func TestGenerate_HTTPError(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "API key not valid.", "status": "INVALID_ARGUMENT"}}`))
	}))

	_, err := p.Generate(context.Background(), testRequest())
	var perr *provider.Error
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *provider.Error", err)
	}
	if perr.Status != 400 || perr.Message != "API key not valid." {
		t.Errorf("status = %d message = %q", perr.Status, perr.Message)
	}
	if !errors.Is(err, provider.ErrUpstream) {
		t.Error("expected ErrUpstream")
	}
}

func TestGenerate_ConnectionErrorRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	p := &Provider{config: Config{BaseURL: base}, client: &http.Client{}}
	_, err := p.Generate(context.Background(), testRequest())
	if !errors.Is(err, provider.ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
	if strings.Contains(err.Error(), "AIza-test") {
		t.Errorf("error leaks API key: %v", err)
	}
}

func TestGenerate_MissingKey(t *testing.T) {
	p := &Provider{config: Config{BaseURL: "http://unused"}, client: &http.Client{}}
	req := testRequest()
	req.APIKey = ""
	if _, err := p.Generate(context.Background(), req); !errors.Is(err, provider.ErrMissingCredential) {
		t.Errorf("error = %v, want ErrMissingCredential", err)
	}
}

func TestModule_Lifecycle(t *testing.T) {
	appCtx := core.NewAppContext(nil, t.TempDir())
	reg := provider.NewRegistry(nil, provider.HealthConfig{})
	appCtx.RegisterService(provider.RegistryService, reg)

	p := &Provider{}
	p.config.defaults()
	if err := p.Provision(appCtx); err != nil {
		t.Fatalf("Provision() error: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if _, err := reg.Generator(provider.Google); err != nil {
		t.Errorf("google not registered: %v", err)
	}
}
