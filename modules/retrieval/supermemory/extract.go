package supermemory

import "strings"

// resultBuckets are the top-level keys that may hold search hits. The API
// has returned hits under each of them across versions.
var resultBuckets = []string{"chunks", "documents", "memories", "results", "matches", "data"}

// textKeys are tried in order to find the text of a hit.
var textKeys = []string{"content", "body", "summary", "text", "chunk", "chunkContent", "value"}

// extractChunks collects hit texts from every bucket. A hit with nested
// chunks contributes each nested text, then its own text if any.
func extractChunks(payload map[string]any) []string {
	var texts []string
	for _, key := range resultBuckets {
		bucket, ok := payload[key].([]any)
		if !ok {
			continue
		}
		for _, item := range bucket {
			record, _ := item.(map[string]any)
			if nested, ok := record["chunks"].([]any); ok {
				for _, n := range nested {
					if text := extractText(n); text != "" {
						texts = append(texts, text)
					}
				}
			}

			text := extractText(item)
			if text == "" {
				text = firstText(record, "document", "memory", "chunk")
			}
			if text != "" {
				texts = append(texts, text)
			}
		}
	}
	return texts
}

// extractText returns the trimmed string value, or the first non-empty
// text found under textKeys for an object.
func extractText(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case map[string]any:
		return firstText(val, textKeys...)
	default:
		return ""
	}
}

func firstText(record map[string]any, keys ...string) string {
	for _, k := range keys {
		if text := extractText(record[k]); text != "" {
			return text
		}
	}
	return ""
}
