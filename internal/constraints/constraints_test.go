package constraints

import (
	"strings"
	"testing"

	"github.com/flemzord/ragraft/internal/budget"
	"github.com/flemzord/ragraft/pkg/message"
)

func TestBuild_NoBudgets(t *testing.T) {
	if _, ok := Build(budget.Budgets{}); ok {
		t.Error("Build() ok = true with no budgets")
	}
}

func TestBuild_HistoryLimitAloneProducesNothing(t *testing.T) {
	if _, ok := Build(budget.Budgets{HistoryMessageLimit: budget.Some(4)}); ok {
		t.Error("history limit must not produce a constraint message")
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		budgets budget.Budgets
		want    string
	}{
		{
			name:    "single budget",
			budgets: budget.Budgets{MaxOutputTokens: budget.Some(256)},
			want:    "Generation constraints: max_output_tokens=256. ",
		},
		{
			name: "all budgets in fixed order",
			budgets: budget.Budgets{
				MaxOutputTokens:    budget.Some(300),
				RAGMaxChunks:       budget.Some(4),
				RAGChunkMaxChars:   budget.Some(500),
				RAGMaxContextChars: budget.Some(2000),
			},
			want: "Generation constraints: max_output_tokens=300, rag_max_chunks=4, rag_chunk_max_chars=500, rag_max_context_chars=2000. ",
		},
		{
			name:    "rag only",
			budgets: budget.Budgets{RAGMaxContextChars: budget.Some(800)},
			want:    "Generation constraints: rag_max_context_chars=800. ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := Build(tt.budgets)
			if !ok {
				t.Fatal("Build() ok = false")
			}
			if msg.Role != message.RoleSystem {
				t.Errorf("role = %q, want system", msg.Role)
			}
			if !strings.HasPrefix(msg.Content, tt.want) {
				t.Errorf("content = %q, want prefix %q", msg.Content, tt.want)
			}
			if !strings.HasSuffix(msg.Content, "shorten the response but keep it complete.") {
				t.Errorf("content missing guidance: %q", msg.Content)
			}
		})
	}
}
