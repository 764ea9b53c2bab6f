package bleve

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/flemzord/ragraft/internal/retrieval"
	"github.com/google/uuid"
)

const (
	defaultLimit = 6

	// deletePageSize bounds each lookup when removing a tag.
	deletePageSize = 500
)

func scopeQuery(tenantID string, tags []string) blevequery.Query {
	tenant := bleve.NewTermQuery(tenantID)
	tenant.SetField("tenant_id")

	tagQueries := make([]blevequery.Query, 0, len(tags))
	for _, tag := range tags {
		tq := bleve.NewTermQuery(tag)
		tq.SetField("tag")
		tagQueries = append(tagQueries, tq)
	}
	return bleve.NewConjunctionQuery(tenant, bleve.NewDisjunctionQuery(tagQueries...))
}

// Search implements retrieval.Service.
func (m *Module) Search(ctx context.Context, q retrieval.Query) ([]string, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	match := bleve.NewMatchQuery(q.Text)
	match.SetField("content")

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(scopeQuery(q.TenantID, retrieval.TagsOrDefault(q.Tags)), match))
	req.Size = limit
	req.Fields = []string{"content"}

	res, err := m.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve: search: %w", err)
	}

	chunks := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if content, ok := hit.Fields["content"].(string); ok {
			if content = strings.TrimSpace(content); content != "" {
				chunks = append(chunks, content)
			}
		}
	}
	return chunks, nil
}

// Ingest implements retrieval.Service.
func (m *Module) Ingest(_ context.Context, doc retrieval.Document) error {
	if doc.TenantID == "" {
		return fmt.Errorf("bleve: ingest: tenant id is required")
	}
	err := m.index.Index(uuid.NewString(), indexedDoc{
		TenantID: doc.TenantID,
		Tag:      retrieval.TagOrDefault(doc.Tag),
		Title:    doc.Title,
		Content:  doc.Content,
	})
	if err != nil {
		return fmt.Errorf("bleve: index document: %w", err)
	}
	return nil
}

// DeleteTag implements retrieval.Service.
func (m *Module) DeleteTag(ctx context.Context, tenantID, _, tag string) error {
	for {
		req := bleve.NewSearchRequest(scopeQuery(tenantID, []string{tag}))
		req.Size = deletePageSize

		res, err := m.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("bleve: find documents: %w", err)
		}
		if len(res.Hits) == 0 {
			return nil
		}

		batch := m.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := m.index.Batch(batch); err != nil {
			return fmt.Errorf("bleve: delete documents: %w", err)
		}
	}
}
