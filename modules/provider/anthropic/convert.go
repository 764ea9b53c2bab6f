package anthropic

import (
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/flemzord/ragraft/internal/provider"
	"github.com/flemzord/ragraft/pkg/message"
)

// convertRequest builds Messages API parameters. The API has no inline
// system role, so every system message, wherever it sits in the
// conversation, moves into the System blocks in order.
func convertRequest(req provider.Request, cfg *Config) sdkanthropic.MessageNewParams {
	system, rest := provider.SplitSystem(req.Messages)

	params := sdkanthropic.MessageNewParams{
		Model:       sdkanthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxOutputTokens.Or(cfg.DefaultMaxTokens)),
		Messages:    convertMessages(rest),
		Temperature: sdkanthropic.Float(req.Temperature),
	}
	for _, s := range system {
		params.System = append(params.System, sdkanthropic.TextBlockParam{Text: s})
	}
	return params
}

// convertMessages maps assistant turns to assistant messages and everything
// else to user messages. Empty turns are skipped; the API rejects empty
// text blocks.
func convertMessages(msgs []message.Message) []sdkanthropic.MessageParam {
	out := make([]sdkanthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		text := m.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		if m.Role == message.RoleAssistant {
			out = append(out, sdkanthropic.NewAssistantMessage(sdkanthropic.NewTextBlock(text)))
			continue
		}
		out = append(out, sdkanthropic.NewUserMessage(sdkanthropic.NewTextBlock(text)))
	}
	return out
}

// convertResponse joins the text blocks of msg.
func convertResponse(msg *sdkanthropic.Message) provider.Result {
	var b strings.Builder
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(sdkanthropic.TextBlock); ok {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(v.Text)
		}
	}

	return provider.Result{
		Text: strings.TrimSpace(b.String()),
		Usage: &provider.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}
