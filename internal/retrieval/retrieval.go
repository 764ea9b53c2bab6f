// Package retrieval defines the contract of knowledge retrieval backends:
// tag-scoped search over tenant documents, ingestion and deletion.
package retrieval

import (
	"context"
	"errors"
)

// ServiceName is the AppContext service name of the active backend.
const ServiceName = "retrieval.service"

// DefaultTag scopes documents ingested without a tag.
const DefaultTag = "ragraft_default"

// ErrMissingCredential is returned by backends that need an API key when
// none was supplied.
var ErrMissingCredential = errors.New("retrieval: API key is missing")

// Query is a search request. An empty Tags searches DefaultTag.
type Query struct {
	APIKey   string
	TenantID string
	Text     string
	Tags     []string
	Limit    int
}

// Document is a unit of ingested knowledge.
type Document struct {
	APIKey   string
	TenantID string
	Title    string
	Content  string
	Tag      string
}

// Service is implemented by retrieval backends. Chunks are opaque text
// fragments in relevance order.
type Service interface {
	Search(ctx context.Context, q Query) ([]string, error)
	Ingest(ctx context.Context, doc Document) error
	DeleteTag(ctx context.Context, tenantID, apiKey, tag string) error

	// RequiresCredential reports whether calls need a tenant API key.
	RequiresCredential() bool
}

// TagsOrDefault returns tags, or DefaultTag alone when tags is empty.
func TagsOrDefault(tags []string) []string {
	if len(tags) == 0 {
		return []string{DefaultTag}
	}
	return tags
}

// TagOrDefault returns tag, or DefaultTag when tag is blank.
func TagOrDefault(tag string) string {
	if tag == "" {
		return DefaultTag
	}
	return tag
}
