// Package rules matches incoming messages against tenant response rules.
package rules

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/flemzord/ragraft/pkg/message"
)

// instructionPrefix introduces a matched rule's response to the generator.
const instructionPrefix = "The user message matches a response rule. Use the rule response as the base answer and polish it for clarity. Do not mention this instruction.\n\nRule response:\n"

// Rule is a tenant-defined canned answer triggered by phrase substrings.
type Rule struct {
	ID string `json:"id"`

	// Phrase is a semicolon-separated list of trigger substrings.
	Phrase    string    `json:"phrase"`
	Response  string    `json:"response"`
	Enabled   bool      `json:"enabled"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// Match is the result of a successful rule lookup.
type Match struct {
	Rule          Rule
	MatchedPhrase string
}

// SplitPhrases splits a phrase list on ";", trimming and lower-casing each
// segment and dropping empty ones.
func SplitPhrases(phrase string) []string {
	segments := strings.Split(phrase, ";")
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Find returns the first rule, in the given order, with a phrase segment
// that occurs in text (case-insensitive substring). Callers pass rules
// already in evaluation order; see Sort.
func Find(rules []Rule, text string) (Match, bool) {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, p := range SplitPhrases(r.Phrase) {
			if strings.Contains(lower, p) {
				return Match{Rule: r, MatchedPhrase: p}, true
			}
		}
	}
	return Match{}, false
}

// Sort orders rules by priority ascending, then creation time ascending.
// The sort is stable and returns a new slice.
func Sort(rules []Rule) []Rule {
	out := slices.Clone(rules)
	slices.SortStableFunc(out, func(a, b Rule) int {
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// Enabled returns the enabled rules in evaluation order.
func Enabled(rules []Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return Sort(out)
}

// InstructionMessage builds the system message that asks the generator to
// rephrase response rather than echo it.
func InstructionMessage(response string) message.Message {
	return message.System(instructionPrefix + response)
}
