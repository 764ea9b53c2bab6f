package google

import (
	"strings"

	"github.com/flemzord/ragraft/internal/provider"
	"github.com/flemzord/ragraft/pkg/message"
)

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// buildRequest folds all system messages into one systemInstruction, since
// Gemini has no system role. Assistant turns become "model", every other
// role becomes "user", and turns without text are dropped.
func buildRequest(req provider.Request) generateRequest {
	system, rest := provider.SplitSystem(req.Messages)

	gr := generateRequest{
		Contents:         make([]content, 0, len(rest)),
		GenerationConfig: generationConfig{Temperature: req.Temperature},
	}
	if len(system) > 0 {
		gr.SystemInstruction = &content{Parts: []part{{Text: strings.Join(system, "\n\n")}}}
	}
	for _, m := range rest {
		text := m.Text()
		if text == "" {
			continue
		}
		role := "user"
		if m.Role == message.RoleAssistant {
			role = "model"
		}
		gr.Contents = append(gr.Contents, content{Role: role, Parts: []part{{Text: text}}})
	}
	if n, ok := req.MaxOutputTokens.Get(); ok {
		gr.GenerationConfig.MaxOutputTokens = n
	}
	return gr
}

// firstText returns the trimmed text of the first part of the first candidate.
func (r *generateResponse) firstText() string {
	if len(r.Candidates) == 0 || r.Candidates[0].Content == nil || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Candidates[0].Content.Parts[0].Text)
}

func (r *generateResponse) usage() *provider.Usage {
	if r.UsageMetadata == nil {
		return nil
	}
	return &provider.Usage{
		PromptTokens:     r.UsageMetadata.PromptTokenCount,
		CompletionTokens: r.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      r.UsageMetadata.TotalTokenCount,
	}
}
