package groq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flemzord/ragraft/internal/budget"
	"github.com/flemzord/ragraft/internal/core"
	"github.com/flemzord/ragraft/internal/provider"
	"github.com/flemzord/ragraft/pkg/message"
	"gopkg.in/yaml.v3"
)

func newTestProvider(t *testing.T, handler http.Handler) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &Provider{
		config: Config{BaseURL: srv.URL, Timeout: "5s"},
		client: srv.Client(),
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func readRequestBody(t *testing.T, r *http.Request) chatRequest {
	t.Helper()
	body, _ := io.ReadAll(r.Body)
	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Errorf("invalid request body: %v", err)
	}
	return req
}

func testRequest() provider.Request {
	return provider.Request{
		Provider:    provider.Groq,
		Model:       "llama-3.1-8b-instant",
		APIKey:      "gsk_test",
		Temperature: 0.4,
		Messages: []message.Message{
			message.System("be brief"),
			message.User("Hi"),
		},
	}
}

func TestGenerate_Success(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer gsk_test" {
			t.Error("missing authorization header")
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Error("missing content-type header")
		}

		req := readRequestBody(t, r)
		if req.Model != "llama-3.1-8b-instant" {
			t.Errorf("model = %q", req.Model)
		}
		if req.Temperature != 0.4 {
			t.Errorf("temperature = %v, want 0.4", req.Temperature)
		}
		if req.MaxTokens != 0 {
			t.Errorf("max_tokens = %d, want omitted", req.MaxTokens)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[0].Content != "be brief" {
			t.Errorf("messages = %+v, want inline system message", req.Messages)
		}

		writeJSON(t, w, chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: "  Hello!  "}}},
			Usage:   &chatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		})
	})

	p := newTestProvider(t, handler)
	res, err := p.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if res.Text != "Hello!" {
		t.Errorf("text = %q, want Hello!", res.Text)
	}
	if res.Usage == nil || res.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v, want total 15", res.Usage)
	}
}

func TestGenerate_MaxOutputTokens(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if req := readRequestBody(t, r); req.MaxTokens != 200 {
			t.Errorf("max_tokens = %d, want 200", req.MaxTokens)
		}
		writeJSON(t, w, chatResponse{Choices: []chatChoice{{Message: chatMessage{Content: "ok"}}}})
	})

	p := newTestProvider(t, handler)
	req := testRequest()
	req.MaxOutputTokens = budget.Some(200)
	res, err := p.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if res.Usage != nil {
		t.Errorf("usage = %+v, want nil when not reported", res.Usage)
	}
}

func TestGenerate_StructuredContentFlattened(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := readRequestBody(t, r)
		if got := req.Messages[0].Content; got != "a b" {
			t.Errorf("content = %q, want %q", got, "a b")
		}
		writeJSON(t, w, chatResponse{Choices: []chatChoice{{Message: chatMessage{Content: "ok"}}}})
	})

	p := newTestProvider(t, handler)
	req := testRequest()
	req.Messages = []message.Message{{
		Role:  message.RoleUser,
		Parts: []message.Part{{Type: message.PartText, Text: "a"}, {Type: message.PartText, Text: "b"}},
	}}
	if _, err := p.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
}

func TestGenerate_MissingKey(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("backend must not be called without a key")
	}))
	req := testRequest()
	req.APIKey = ""
	_, err := p.Generate(context.Background(), req)
	if !errors.Is(err, provider.ErrMissingCredential) {
		t.Errorf("error = %v, want ErrMissingCredential", err)
	}
}

func TestGenerate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantCause  error
		wantMsg    string
	}{
		{"rate_limit", http.StatusTooManyRequests, `{"error":{"message":"Rate limit exceeded"}}`, provider.ErrRateLimit, "Rate limit exceeded"},
		{"context_length", http.StatusBadRequest, `{"error":{"message":"context_length_exceeded"}}`, provider.ErrContextLength, "context_length_exceeded"},
		{"auth", http.StatusUnauthorized, `{"error":{"message":"Invalid API Key"}}`, provider.ErrAuth, "Invalid API Key"},
		{"server_error", http.StatusBadGateway, `upstream exploded`, provider.ErrProviderDown, "upstream exploded"},
		{"bad_request", http.StatusBadRequest, `{"error":{"message":"model not found"}}`, nil, "model not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := p.Generate(context.Background(), testRequest())
			if !errors.Is(err, provider.ErrUpstream) {
				t.Fatalf("error = %v, want ErrUpstream", err)
			}
			if tt.wantCause != nil && !errors.Is(err, tt.wantCause) {
				t.Errorf("error = %v, want cause %v", err, tt.wantCause)
			}
			var perr *provider.Error
			if !errors.As(err, &perr) {
				t.Fatal("expected *provider.Error")
			}
			if perr.Status != tt.statusCode || perr.Message != tt.wantMsg {
				t.Errorf("got status %d message %q", perr.Status, perr.Message)
			}
		})
	}
}

func TestGenerate_InvalidJSON(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	_, err := p.Generate(context.Background(), testRequest())
	if !errors.Is(err, provider.ErrUpstream) {
		t.Errorf("error = %v, want ErrUpstream", err)
	}
}

func TestGenerate_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := &Provider{config: Config{BaseURL: url}, client: &http.Client{}}
	_, err := p.Generate(context.Background(), testRequest())
	if !errors.Is(err, provider.ErrUpstream) || !errors.Is(err, provider.ErrProviderDown) {
		t.Errorf("error = %v, want ErrUpstream and ErrProviderDown", err)
	}
}

func TestModule_RegistersIntoRegistry(t *testing.T) {
	appCtx := core.NewAppContext(nil, t.TempDir())
	reg := provider.NewRegistry(nil, provider.HealthConfig{})
	appCtx.RegisterService(provider.RegistryService, reg)

	p := &Provider{}
	if err := p.Configure(&yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	if p.config.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("default base_url = %q", p.config.BaseURL)
	}
	if err := p.Provision(appCtx); err != nil {
		t.Fatalf("Provision() error: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if _, err := reg.Generator(provider.Groq); err != nil {
		t.Errorf("groq not registered: %v", err)
	}
}

func TestModule_ProvisionWithoutRegistry(t *testing.T) {
	p := &Provider{}
	p.config.defaults()
	if err := p.Provision(core.NewAppContext(nil, t.TempDir())); err == nil {
		t.Error("expected error without provider registry")
	}
}

func TestValidate_BadTimeout(t *testing.T) {
	p := &Provider{config: Config{BaseURL: "http://x", Timeout: "soon"}}
	if err := p.Validate(); err == nil {
		t.Error("expected error for invalid timeout")
	}
}
