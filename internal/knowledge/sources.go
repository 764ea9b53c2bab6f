package knowledge

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/flemzord/ragraft/internal/budget"
)

// SelectTags picks the retrieval scope for query. Tags whose trimmed,
// lower-cased form occurs in the lower-cased query are returned with
// matched true; when none occurs, every tag is returned (broad search).
// Tags are trimmed, blanks dropped and duplicates removed in first-seen
// order.
func SelectTags(tags []string, query string) (selected []string, matched bool) {
	q := strings.ToLower(query)
	var all, hits []string
	for _, raw := range tags {
		tag := strings.TrimSpace(raw)
		if tag == "" || slices.Contains(all, tag) {
			continue
		}
		all = append(all, tag)
		if strings.Contains(q, strings.ToLower(tag)) {
			hits = append(hits, tag)
		}
	}
	if len(hits) > 0 {
		return hits, true
	}
	return all, false
}

// TruncateBySentence shortens text to at most maxChars characters. When a
// sentence terminator (. ? !) falls after the halfway point, the text is
// cut just after it; otherwise it is hard-cut and "..." is appended.
func TruncateBySentence(text string, maxChars int) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) <= maxChars {
		return trimmed
	}

	slice := runes[:maxChars]
	last := -1
	for i, r := range slice {
		if r == '.' || r == '?' || r == '!' {
			last = i
		}
	}
	if last > int(math.Floor(float64(maxChars)*0.5)) {
		return strings.TrimSpace(string(slice[:last+1]))
	}
	return strings.TrimSpace(string(slice)) + "..."
}

// AssembleSources numbers the knowledge sources: the rule response, if
// any, as [#0] and chunks from [#1]. With a context budget, sources are
// kept greedily in order while their running size (each counted as its
// length plus one separator) fits; the first source is always kept.
func AssembleSources(rule string, chunks []string, maxContextChars budget.Limit) []string {
	sources := make([]string, 0, len(chunks)+1)
	if rule != "" {
		sources = append(sources, "[#0] "+rule)
	}
	for i, c := range chunks {
		sources = append(sources, "[#"+strconv.Itoa(i+1)+"] "+c)
	}

	limit, ok := maxContextChars.Get()
	if !ok {
		return sources
	}
	kept := make([]string, 0, len(sources))
	total := 0
	for _, s := range sources {
		next := total + runeLen(s) + 1
		if next > limit && len(kept) > 0 {
			break
		}
		kept = append(kept, s)
		total = next
	}
	return kept
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
