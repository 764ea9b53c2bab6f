package supermemory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/flemzord/ragraft/internal/retrieval"
)

// maxResponseSize is the maximum response body size (10 MB).
const maxResponseSize = 10 * 1024 * 1024

type searchRequest struct {
	Q                  string   `json:"q"`
	ContainerTags      []string `json:"containerTags"`
	ChunkThreshold     float64  `json:"chunkThreshold"`
	DocumentThreshold  float64  `json:"documentThreshold"`
	OnlyMatchingChunks bool     `json:"onlyMatchingChunks"`
	IncludeFullDocs    bool     `json:"includeFullDocs"`
	IncludeSummary     bool     `json:"includeSummary"`
	Limit              int      `json:"limit"`
	Rerank             bool     `json:"rerank"`
	RewriteQuery       bool     `json:"rewriteQuery"`
}

type documentRequest struct {
	Content      string            `json:"content"`
	ContainerTag string            `json:"containerTag"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type deleteRequest struct {
	ContainerTag string `json:"containerTag"`
}

// defaultLimit applies when the query carries no limit.
const defaultLimit = 6

// Search implements retrieval.Service.
func (m *Module) Search(ctx context.Context, q retrieval.Query) ([]string, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	body, err := m.do(ctx, http.MethodPost, "/v3/search", q.APIKey, searchRequest{
		Q:                  q.Text,
		ContainerTags:      retrieval.TagsOrDefault(q.Tags),
		OnlyMatchingChunks: true,
		Limit:              limit,
	})
	if err != nil {
		return nil, fmt.Errorf("supermemory: search: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("supermemory: decode search response: %w", err)
	}
	return extractChunks(payload), nil
}

// Ingest implements retrieval.Service.
func (m *Module) Ingest(ctx context.Context, doc retrieval.Document) error {
	req := documentRequest{
		Content:      doc.Content,
		ContainerTag: retrieval.TagOrDefault(doc.Tag),
	}
	if doc.Title != "" {
		req.Metadata = map[string]string{"title": doc.Title}
	}
	if _, err := m.do(ctx, http.MethodPost, "/v3/documents", doc.APIKey, req); err != nil {
		return fmt.Errorf("supermemory: add document: %w", err)
	}
	return nil
}

// DeleteTag implements retrieval.Service. The tenant is implied by the key.
func (m *Module) DeleteTag(ctx context.Context, _, apiKey, tag string) error {
	if _, err := m.do(ctx, http.MethodDelete, "/v4/memories", apiKey, deleteRequest{ContainerTag: tag}); err != nil {
		return fmt.Errorf("supermemory: delete memories: %w", err)
	}
	return nil
}

func (m *Module) do(ctx context.Context, method, path, apiKey string, payload any) ([]byte, error) {
	if apiKey == "" {
		return nil, retrieval.ErrMissingCredential
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, m.config.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, msg)
	}
	return body, nil
}
