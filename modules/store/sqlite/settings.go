package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/ragraft/internal/tenant"
)

// Preferences implements tenant.SettingsStore.
func (s *Store) Preferences(ctx context.Context, tenantID string) (tenant.Preferences, bool, error) {
	var (
		p         tenant.Preferences
		temp      sql.NullFloat64
		maxTokens sql.NullFloat64
		history   sql.NullFloat64
		chunks    sql.NullFloat64
		chunkLen  sql.NullFloat64
		ctxChars  sql.NullFloat64
		devLog    int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT temperature, max_output_tokens, history_message_limit,
		       rag_max_chunks, rag_chunk_max_chars, rag_max_context_chars,
		       developer_logging, name, description, tone, stream_speed, opening_line
		FROM preferences WHERE tenant_id = ?`, tenantID,
	).Scan(&temp, &maxTokens, &history, &chunks, &chunkLen, &ctxChars,
		&devLog, &p.Name, &p.Description, &p.Tone, &p.StreamSpeed, &p.OpeningLine)
	if errors.Is(err, sql.ErrNoRows) {
		return tenant.Preferences{}, false, nil
	}
	if err != nil {
		return tenant.Preferences{}, false, fmt.Errorf("sqlite: read preferences: %w", err)
	}

	p.Temperature = nullable(temp)
	p.MaxOutputTokens = nullable(maxTokens)
	p.HistoryMessageLimit = nullable(history)
	p.RAGMaxChunks = nullable(chunks)
	p.RAGChunkMaxChars = nullable(chunkLen)
	p.RAGMaxContextChars = nullable(ctxChars)
	p.DeveloperLogging = devLog != 0
	return p, true, nil
}

// SavePreferences implements tenant.SettingsStore.
func (s *Store) SavePreferences(ctx context.Context, tenantID string, p tenant.Preferences) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO preferences (
			tenant_id, temperature, max_output_tokens, history_message_limit,
			rag_max_chunks, rag_chunk_max_chars, rag_max_context_chars,
			developer_logging, name, description, tone, stream_speed, opening_line, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tenantID, p.Temperature, p.MaxOutputTokens, p.HistoryMessageLimit,
		p.RAGMaxChunks, p.RAGChunkMaxChars, p.RAGMaxContextChars,
		boolInt(p.DeveloperLogging), p.Name, p.Description, p.Tone, p.StreamSpeed, p.OpeningLine,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save preferences: %w", err)
	}
	return nil
}

// Setup implements tenant.SettingsStore.
func (s *Store) Setup(ctx context.Context, tenantID string) (tenant.Setup, bool, error) {
	var v tenant.Setup
	err := s.db.QueryRowContext(ctx, `
		SELECT provider, model, api_key, routing_provider, routing_model,
		       routing_api_key, retrieval_key
		FROM setups WHERE tenant_id = ?`, tenantID,
	).Scan(&v.Provider, &v.Model, &v.APIKey, &v.RoutingProvider, &v.RoutingModel,
		&v.RoutingAPIKey, &v.RetrievalKey)
	if errors.Is(err, sql.ErrNoRows) {
		return tenant.Setup{}, false, nil
	}
	if err != nil {
		return tenant.Setup{}, false, fmt.Errorf("sqlite: read setup: %w", err)
	}
	return v, true, nil
}

// SaveSetup implements tenant.SettingsStore.
func (s *Store) SaveSetup(ctx context.Context, tenantID string, v tenant.Setup) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO setups (
			tenant_id, provider, model, api_key, routing_provider, routing_model,
			routing_api_key, retrieval_key, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tenantID, v.Provider, v.Model, v.APIKey, v.RoutingProvider, v.RoutingModel,
		v.RoutingAPIKey, v.RetrievalKey, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save setup: %w", err)
	}
	return nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
