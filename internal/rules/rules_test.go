package rules

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/ragraft/pkg/message"
)

func TestSplitPhrases(t *testing.T) {
	got := SplitPhrases(" Refund ; ;CANCEL;  ")
	want := []string{"refund", "cancel"}
	if !slices.Equal(got, want) {
		t.Errorf("SplitPhrases = %q, want %q", got, want)
	}
	if got := SplitPhrases(""); len(got) != 0 {
		t.Errorf("SplitPhrases(\"\") = %q, want empty", got)
	}
}

func TestFind(t *testing.T) {
	rules := []Rule{
		{ID: "r1", Priority: 0, Phrase: "refund;cancel", Response: "Refunds take 5 days."},
		{ID: "r2", Priority: 1, Phrase: "hello"},
	}

	tests := []struct {
		name       string
		text       string
		wantID     string
		wantPhrase string
		wantOK     bool
	}{
		{"case-insensitive first rule", "I want a REFUND please", "r1", "refund", true},
		{"second phrase segment", "please cancel my order", "r1", "cancel", true},
		{"lower priority rule", "hello there", "r2", "hello", true},
		{"no word boundary required", "prefunding", "r1", "refund", true},
		{"no match", "what are your hours?", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Find(rules, tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if m.Rule.ID != tt.wantID || m.MatchedPhrase != tt.wantPhrase {
				t.Errorf("match = %s/%q, want %s/%q", m.Rule.ID, m.MatchedPhrase, tt.wantID, tt.wantPhrase)
			}
		})
	}
}

func TestFind_FirstRuleWinsOverBetterMatch(t *testing.T) {
	rules := []Rule{
		{ID: "broad", Phrase: "order"},
		{ID: "specific", Phrase: "cancel my order"},
	}
	m, ok := Find(rules, "cancel my order")
	if !ok || m.Rule.ID != "broad" {
		t.Errorf("got %+v, want broad rule", m)
	}
}

func TestEnabled_SortsByPriorityThenCreatedAt(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rules := []Rule{
		{ID: "late-p0", Priority: 0, Enabled: true, CreatedAt: base.Add(time.Hour)},
		{ID: "p1", Priority: 1, Enabled: true, CreatedAt: base},
		{ID: "disabled", Priority: -1, Enabled: false, CreatedAt: base},
		{ID: "early-p0", Priority: 0, Enabled: true, CreatedAt: base},
	}

	got := Enabled(rules)
	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.ID
	}
	want := []string{"early-p0", "late-p0", "p1"}
	if !slices.Equal(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
	if rules[0].ID != "late-p0" {
		t.Error("Enabled must not reorder its input")
	}
}

func TestInstructionMessage(t *testing.T) {
	msg := InstructionMessage("We open at 9.")
	if msg.Role != message.RoleSystem {
		t.Errorf("role = %q, want system", msg.Role)
	}
	if !strings.HasSuffix(msg.Content, "Rule response:\nWe open at 9.") {
		t.Errorf("content = %q", msg.Content)
	}
	if !strings.Contains(msg.Content, "Do not mention this instruction.") {
		t.Errorf("content missing instruction: %q", msg.Content)
	}
}
