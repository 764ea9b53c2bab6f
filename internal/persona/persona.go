// Package persona builds the configuration brief that describes a tenant's
// assistant to the model.
package persona

import (
	"strconv"
	"strings"

	"github.com/flemzord/ragraft/pkg/message"
)

// Brief is the persona configuration.
type Brief struct {
	Name        string
	Description string
	Tone        string
	StreamSpeed string
	OpeningLine string
	Temperature float64
}

// BriefPrompt renders b as a single-paragraph system instruction. The
// description sentence is omitted when blank.
func BriefPrompt(b Brief) string {
	parts := []string{
		"You are a chat assistant configuration brief.",
		"Assistant name: " + b.Name + ".",
	}
	if d := strings.TrimSpace(b.Description); d != "" {
		parts = append(parts, "Assistant description: "+d+".")
	}
	parts = append(parts,
		"Language style: "+b.Tone+".",
		"Stream speed: "+b.StreamSpeed+".",
		"Opening line: "+b.OpeningLine+".",
		"Temperature: "+strconv.FormatFloat(b.Temperature, 'f', -1, 64)+".",
		"Keep responses aligned with the configuration above.",
	)
	return strings.Join(parts, " ")
}

// OpeningMessages returns the conversation that asks the model for a
// one-line greeting, using the configured opening line as a hint when set.
func OpeningMessages(b Brief) []message.Message {
	prompt := "Write one short opening line that greets the user."
	if hint := strings.TrimSpace(b.OpeningLine); hint != "" {
		prompt = `Write one short opening line using this hint: "` + hint + `".`
	}
	return []message.Message{
		message.System(BriefPrompt(b)),
		message.User(prompt + " Return only the line."),
	}
}

// FallbackOpening is the greeting used when generation is unavailable.
func FallbackOpening(b Brief) string {
	if line := strings.TrimSpace(b.OpeningLine); line != "" {
		return line
	}
	return "Hello! I'm " + b.Name + "."
}
