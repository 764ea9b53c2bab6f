package orchestrator

import "log/slog"

// stepLog emits per-step developer records for tenants that enabled them.
type stepLog struct {
	logger    *slog.Logger
	enabled   bool
	requestID string
	tenantID  string
}

func newStepLog(logger *slog.Logger, enabled bool, requestID, tenantID string) stepLog {
	return stepLog{logger: logger, enabled: enabled, requestID: requestID, tenantID: tenantID}
}

func (l stepLog) step(name, detail string) {
	if !l.enabled {
		return
	}
	attrs := []any{"request_id", l.requestID, "tenant", l.tenantID, "step", name}
	if detail != "" {
		attrs = append(attrs, "detail", detail)
	}
	l.logger.Info("orchestrator: step", attrs...)
}

// truncate returns the first n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
