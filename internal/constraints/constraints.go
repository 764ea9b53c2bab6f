// Package constraints renders active generation budgets as a system
// instruction.
package constraints

import (
	"fmt"
	"strings"

	"github.com/flemzord/ragraft/internal/budget"
	"github.com/flemzord/ragraft/pkg/message"
)

const guidance = "Knowledge chunks may be truncated at sentence boundaries. " +
	"Write complete sentences and avoid ending mid-sentence. " +
	"If you are near the limit, shorten the response but keep it complete."

// Build returns the constraint message for b, or false when no budget that
// affects the output is set. The history limit is not listed.
func Build(b budget.Budgets) (message.Message, bool) {
	fields := []struct {
		name  string
		limit budget.Limit
	}{
		{"max_output_tokens", b.MaxOutputTokens},
		{"rag_max_chunks", b.RAGMaxChunks},
		{"rag_chunk_max_chars", b.RAGChunkMaxChars},
		{"rag_max_context_chars", b.RAGMaxContextChars},
	}

	var parts []string
	for _, f := range fields {
		if n, ok := f.limit.Get(); ok {
			parts = append(parts, fmt.Sprintf("%s=%d", f.name, n))
		}
	}
	if len(parts) == 0 {
		return message.Message{}, false
	}
	return message.System("Generation constraints: " + strings.Join(parts, ", ") + ". " + guidance), true
}
