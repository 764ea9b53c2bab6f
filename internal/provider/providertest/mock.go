// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"sync"

	"github.com/flemzord/ragraft/internal/provider"
)

// MockGenerator is a configurable test double for provider.Generator.
// Unset GenerateFunc panics on call. Safe for concurrent use.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, req provider.Request) (provider.Result, error)

	mu       sync.Mutex
	requests []provider.Request
}

// Generate records req and delegates to GenerateFunc.
func (m *MockGenerator) Generate(ctx context.Context, req provider.Request) (provider.Result, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.GenerateFunc(ctx, req)
}

// Calls returns how many times Generate was called.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every recorded request.
func (m *MockGenerator) Requests() []provider.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]provider.Request(nil), m.requests...)
}

// Reply returns a GenerateFunc that always answers text.
func Reply(text string) func(context.Context, provider.Request) (provider.Result, error) {
	return func(context.Context, provider.Request) (provider.Result, error) {
		return provider.Result{Text: text}, nil
	}
}

var _ provider.Generator = (*MockGenerator)(nil)
