package message

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type wireMessage struct {
	Role    Role            `json:"role"`
	Content json.RawMessage `json:"content"`
}

// UnmarshalJSON implements json.Unmarshaler. Content may be a JSON string
// or an array of parts.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch w.Role {
	case RoleSystem, RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("message: unsupported role %q", w.Role)
	}

	out := Message{Role: w.Role}
	raw := bytes.TrimSpace(w.Content)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &out.Content); err != nil {
			return fmt.Errorf("message: content: %w", err)
		}
	case raw[0] == '[':
		parts := []Part{}
		if err := json.Unmarshal(raw, &parts); err != nil {
			return fmt.Errorf("message: content parts: %w", err)
		}
		out.Parts = parts
	default:
		return fmt.Errorf("message: content must be a string or an array of parts")
	}

	*m = out
	return nil
}

// MarshalJSON implements json.Marshaler, mirroring UnmarshalJSON.
func (m Message) MarshalJSON() ([]byte, error) {
	var content any = m.Content
	if m.Parts != nil {
		content = m.Parts
	}
	return json.Marshal(struct {
		Role    Role `json:"role"`
		Content any  `json:"content"`
	}{m.Role, content})
}
