package security

import (
	"errors"
	"strings"
	"testing"
)

func TestReadBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		limit   int
		wantErr error
	}{
		{name: "chat request", body: `{"messages":[{"role":"user","content":"hi"}]}`, limit: 1024},
		{name: "at limit", body: `"` + strings.Repeat("a", 8) + `"`, limit: 10},
		{name: "over limit", body: `"` + strings.Repeat("a", 9) + `"`, limit: 10, wantErr: ErrBodyTooLarge},
		{name: "zero limit uses default", body: `{}`},
		{name: "empty", body: ``, limit: 10},
		{name: "too deep", body: strings.Repeat("[", 17) + strings.Repeat("]", 17), wantErr: ErrJSONTooDeep},
		{name: "malformed", body: `{"a":}`, wantErr: ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data, err := ReadBody(strings.NewReader(tt.body), tt.limit)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ReadBody = %v, want %v", err, tt.wantErr)
			}
			if err == nil && string(data) != tt.body {
				t.Errorf("data = %q, want %q", data, tt.body)
			}
		})
	}
}

func TestValidateJSONDepth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		json    string
		max     int
		wantErr error
	}{
		{name: "flat object", json: `{"key": "value"}`, max: 1},
		{name: "nested within limit", json: `{"a": {"b": {"c": 1}}}`, max: 3},
		{name: "nested over limit", json: `{"a": {"b": {"c": {"d": 1}}}}`, max: 3, wantErr: ErrJSONTooDeep},
		{name: "array over limit", json: `[[[[1]]]]`, max: 3, wantErr: ErrJSONTooDeep},
		{name: "siblings do not add depth", json: `[[1],[2],[3]]`, max: 2},
		{name: "scalar", json: `"hello"`, max: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := ValidateJSONDepth([]byte(tt.json), tt.max); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateJSONDepth(%q, %d) = %v, want %v", tt.json, tt.max, err, tt.wantErr)
			}
		})
	}
}

func BenchmarkReadBody(b *testing.B) {
	body := `{"messages":[{"role":"user","content":"How long do refunds take?"},{"role":"assistant","content":"Five days."}]}`
	for b.Loop() {
		_, _ = ReadBody(strings.NewReader(body), 0)
	}
}
