package orchestrator

import (
	"context"
	"strings"

	"github.com/flemzord/ragraft/internal/persona"
	"github.com/flemzord/ragraft/internal/provider"
	"github.com/flemzord/ragraft/internal/tenant"
)

// Opening is a greeting for a new public chat session.
type Opening struct {
	Line string
	// Brief is the persona with OpeningLine set to Line.
	Brief persona.Brief
	// Generated reports whether Line came from the model.
	Generated bool
}

// BriefFor builds the persona brief from a tenant's preferences.
func BriefFor(p tenant.Preferences) persona.Brief {
	return persona.Brief{
		Name:        p.AssistantName(),
		Description: p.Description,
		Tone:        orDefault(p.Tone, tenant.DefaultTone),
		StreamSpeed: orDefault(p.StreamSpeed, tenant.DefaultStreamSpeed),
		OpeningLine: p.OpeningLine,
		Temperature: p.ResolvedTemperature(),
	}
}

// OpeningLine asks the tenant's generation backend for a greeting. It
// never fails: a missing credential, an unknown provider or a failed call
// all yield persona.FallbackOpening.
func (o *Orchestrator) OpeningLine(ctx context.Context, tenantID string) Opening {
	ctx, span := o.tracer.Start(ctx, "orchestrator.OpeningLine")
	defer span.End()

	s := o.loadSettings(ctx, tenantID)
	brief := BriefFor(s.prefs)
	fallback := func() Opening {
		brief.OpeningLine = persona.FallbackOpening(brief)
		return Opening{Line: brief.OpeningLine, Brief: brief}
	}

	kind, err := provider.ParseKind(s.cred.Provider)
	if err != nil || s.cred.APIKey == "" {
		return fallback()
	}

	res, err := o.deps.Generator.Generate(ctx, provider.Request{
		Provider:    kind,
		Model:       s.cred.Model,
		APIKey:      s.cred.APIKey,
		Temperature: brief.Temperature,
		Messages:    persona.OpeningMessages(brief),
	})
	if err != nil {
		o.logger.Warn("orchestrator: opening line failed", "tenant", tenantID, "provider", kind, "error", err)
		return fallback()
	}
	line := strings.TrimSpace(res.Text)
	if line == "" {
		return fallback()
	}
	brief.OpeningLine = line
	return Opening{Line: line, Brief: brief, Generated: true}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
