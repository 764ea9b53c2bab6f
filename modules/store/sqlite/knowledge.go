package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/flemzord/ragraft/internal/tenant"
)

// AddKnowledge implements tenant.KnowledgeStore. The item and its tags
// are written in one transaction; blank and duplicate tags are dropped.
func (s *Store) AddKnowledge(ctx context.Context, tenantID string, item tenant.KnowledgeItem) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO knowledge_items (id, tenant_id, title, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		item.ID, tenantID, item.Title, item.Content, formatTime(item.CreatedAt),
	); err != nil {
		return fmt.Errorf("sqlite: insert knowledge item: %w", err)
	}

	for _, tag := range item.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO knowledge_tags (item_id, tenant_id, tag) VALUES (?, ?, ?)`,
			item.ID, tenantID, tag,
		); err != nil {
			return fmt.Errorf("sqlite: insert knowledge tag: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit knowledge item: %w", err)
	}
	return nil
}

// Knowledge implements tenant.KnowledgeStore, oldest first.
func (s *Store) Knowledge(ctx context.Context, tenantID string) ([]tenant.KnowledgeItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT k.id, k.title, k.content, k.created_at,
		       COALESCE((SELECT group_concat(tag, char(31)) FROM knowledge_tags t WHERE t.item_id = k.id), '')
		FROM knowledge_items k
		WHERE k.tenant_id = ?
		ORDER BY k.created_at ASC, k.rowid ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list knowledge: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []tenant.KnowledgeItem
	for rows.Next() {
		var (
			item    tenant.KnowledgeItem
			created string
			tags    string
		)
		if err := rows.Scan(&item.ID, &item.Title, &item.Content, &created, &tags); err != nil {
			return nil, fmt.Errorf("sqlite: scan knowledge item: %w", err)
		}
		if item.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if tags != "" {
			item.Tags = strings.Split(tags, "\x1f")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: scan knowledge rows: %w", err)
	}
	return items, nil
}

// RemoveTag implements tenant.KnowledgeStore.
func (s *Store) RemoveTag(ctx context.Context, tenantID, tag string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM knowledge_tags WHERE tenant_id = ? AND tag = ?", tenantID, tag)
	if err != nil {
		return fmt.Errorf("sqlite: remove tag: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

// Tags implements tenant.TagRegistry. Tags are distinct and ordered by
// first use.
func (s *Store) Tags(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag FROM knowledge_tags
		WHERE tenant_id = ?
		GROUP BY tag
		ORDER BY MIN(rowid)`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("sqlite: scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: scan tag rows: %w", err)
	}
	return tags, nil
}
