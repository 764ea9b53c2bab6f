package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/flemzord/ragraft/internal/tenant"
)

// RecordQuestion implements tenant.QuestionLog. The question text is
// stored normalized; a question that normalizes to nothing is skipped.
func (s *Store) RecordQuestion(ctx context.Context, q tenant.Question) error {
	text := tenant.NormalizeQuestion(q.Text)
	if text == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO question_log (tenant_id, question, rule_id, needs_rag, reason, tokens, asked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.TenantID, text, q.RuleID, boolInt(q.NeedsRAG), q.Reason, q.Tokens, formatTime(q.AskedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: record question: %w", err)
	}
	return nil
}

// PruneQuestions implements tenant.QuestionLog.
func (s *Store) PruneQuestions(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM question_log WHERE asked_at < ?", formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune questions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return n, nil
}

// QuestionCount returns how many questions are logged for tenantID.
func (s *Store) QuestionCount(ctx context.Context, tenantID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM question_log WHERE tenant_id = ?", tenantID).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count questions: %w", err)
	}
	return n, nil
}
