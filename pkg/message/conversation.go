// Package message defines the provider-neutral conversation contract shared
// by the gateway, the response pipeline and the generation backends.
package message

import "strings"

// Role identifies the author of a conversation message.
type Role string

// Supported roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartText is the only part type whose content is read by the pipeline.
const PartText = "text"

// Part is one element of structured message content.
type Part struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Message is one turn of a conversation. Content is either plain text or a
// list of typed parts; when Parts is non-nil the message is structured and
// Content is ignored.
//
// Messages are treated as values: pipeline steps build new slices and never
// modify a message they received.
type Message struct {
	Role    Role
	Content string
	Parts   []Part
}

// System builds a system-role message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user-role message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant builds an assistant-role message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// IsStructured reports whether the message carries parts instead of text.
func (m Message) IsStructured() bool {
	return m.Parts != nil
}

// Text returns the plain text of the message. Plain content is returned
// as-is; structured content joins its text parts with a single space and
// trims the result. Non-text parts contribute nothing.
func (m Message) Text() string {
	if m.Parts == nil {
		return m.Content
	}
	texts := make([]string, 0, len(m.Parts))
	for _, p := range m.Parts {
		if p.Type == PartText {
			texts = append(texts, p.Text)
		} else {
			texts = append(texts, "")
		}
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}

// LastUser returns the most recent user message.
func LastUser(msgs []Message) (Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i], true
		}
	}
	return Message{}, false
}

// LastUserText returns the text of the most recent user message, or "".
func LastUserText(msgs []Message) string {
	m, ok := LastUser(msgs)
	if !ok {
		return ""
	}
	return m.Text()
}

// Concat returns a new slice holding head followed by tail. Neither input
// is modified.
func Concat(head []Message, tail ...Message) []Message {
	out := make([]Message, 0, len(head)+len(tail))
	out = append(out, head...)
	return append(out, tail...)
}

// Prepend returns a new slice holding prefix followed by msgs.
func Prepend(msgs []Message, prefix ...Message) []Message {
	out := make([]Message, 0, len(prefix)+len(msgs))
	out = append(out, prefix...)
	return append(out, msgs...)
}

// CountRole returns how many messages have the given role.
func CountRole(msgs []Message, role Role) int {
	n := 0
	for _, m := range msgs {
		if m.Role == role {
			n++
		}
	}
	return n
}
