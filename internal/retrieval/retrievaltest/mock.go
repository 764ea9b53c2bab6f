// Package retrievaltest provides test helpers for the retrieval package.
package retrievaltest

import (
	"context"
	"sync"

	"github.com/flemzord/ragraft/internal/retrieval"
)

// MockService is a configurable test double for retrieval.Service.
// Unset SearchFunc panics on call; unset IngestFunc and DeleteTagFunc
// succeed. Safe for concurrent use.
type MockService struct {
	SearchFunc    func(ctx context.Context, q retrieval.Query) ([]string, error)
	IngestFunc    func(ctx context.Context, doc retrieval.Document) error
	DeleteTagFunc func(ctx context.Context, tenantID, apiKey, tag string) error
	NeedsKey      bool

	mu       sync.Mutex
	queries  []retrieval.Query
	ingested []retrieval.Document
}

// Search records q and delegates to SearchFunc.
func (m *MockService) Search(ctx context.Context, q retrieval.Query) ([]string, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()
	return m.SearchFunc(ctx, q)
}

// Ingest records doc and delegates to IngestFunc when set.
func (m *MockService) Ingest(ctx context.Context, doc retrieval.Document) error {
	m.mu.Lock()
	m.ingested = append(m.ingested, doc)
	m.mu.Unlock()
	if m.IngestFunc == nil {
		return nil
	}
	return m.IngestFunc(ctx, doc)
}

// DeleteTag delegates to DeleteTagFunc when set.
func (m *MockService) DeleteTag(ctx context.Context, tenantID, apiKey, tag string) error {
	if m.DeleteTagFunc == nil {
		return nil
	}
	return m.DeleteTagFunc(ctx, tenantID, apiKey, tag)
}

// RequiresCredential returns NeedsKey.
func (m *MockService) RequiresCredential() bool { return m.NeedsKey }

// Queries returns a copy of every recorded search.
func (m *MockService) Queries() []retrieval.Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]retrieval.Query(nil), m.queries...)
}

// Ingested returns a copy of every recorded document.
func (m *MockService) Ingested() []retrieval.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]retrieval.Document(nil), m.ingested...)
}

// Chunks returns a SearchFunc that always answers chunks.
func Chunks(chunks ...string) func(context.Context, retrieval.Query) ([]string, error) {
	return func(context.Context, retrieval.Query) ([]string, error) {
		return chunks, nil
	}
}

var _ retrieval.Service = (*MockService)(nil)
