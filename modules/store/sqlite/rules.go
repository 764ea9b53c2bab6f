package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flemzord/ragraft/internal/rules"
	"github.com/flemzord/ragraft/internal/tenant"
)

const ruleColumns = "id, phrase, response, enabled, priority, created_at"

// EnabledRules implements tenant.RuleStore. Rules are returned in
// evaluation order: priority, then creation time.
func (s *Store) EnabledRules(ctx context.Context, tenantID string) ([]rules.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+` FROM rules
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY priority ASC, created_at ASC, rowid ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list enabled rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRules(rows)
}

// Rules implements tenant.RuleWriter.
func (s *Store) Rules(ctx context.Context, tenantID string) ([]rules.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+` FROM rules
		WHERE tenant_id = ?
		ORDER BY priority ASC, created_at ASC, rowid ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRules(rows)
}

// SaveRule implements tenant.RuleWriter. A rule with an existing ID is
// replaced.
func (s *Store) SaveRule(ctx context.Context, tenantID string, r rules.Rule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO rules (id, tenant_id, phrase, response, enabled, priority, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, tenantID, r.Phrase, r.Response, boolInt(r.Enabled), r.Priority, formatTime(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save rule: %w", err)
	}
	return nil
}

// DeleteRule implements tenant.RuleWriter. Returns tenant.ErrNotFound if
// the tenant has no such rule.
func (s *Store) DeleteRule(ctx context.Context, tenantID, ruleID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM rules WHERE tenant_id = ? AND id = ?", tenantID, ruleID)
	if err != nil {
		return fmt.Errorf("sqlite: delete rule: %w", err)
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

func scanRules(rows *sql.Rows) ([]rules.Rule, error) {
	var out []rules.Rule
	for rows.Next() {
		var (
			r       rules.Rule
			enabled int
			created string
		)
		if err := rows.Scan(&r.ID, &r.Phrase, &r.Response, &enabled, &r.Priority, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scan rule: %w", err)
		}
		r.Enabled = enabled != 0

		t, err := parseTime(created)
		if err != nil {
			return nil, err
		}
		r.CreatedAt = t
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: scan rules rows: %w", err)
	}
	return out, nil
}
