package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/ragraft/internal/provider"
)

// QuestionPruner deletes question log entries older than a cutoff.
type QuestionPruner interface {
	PruneQuestions(ctx context.Context, before time.Time) (int64, error)
}

// QuestionRetentionJob deletes question log entries older than MaxAge.
type QuestionRetentionJob struct {
	Log          QuestionPruner
	MaxAge       time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = "17 3 * * *"
	Now          func() time.Time
}

var _ Job = (*QuestionRetentionJob)(nil)

// Name implements Job.
func (j *QuestionRetentionJob) Name() string { return "question_retention" }

// Schedule implements Job.
func (j *QuestionRetentionJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "17 3 * * *"
}

// Run implements Job.
func (j *QuestionRetentionJob) Run(ctx context.Context) error {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	n, err := j.Log.PruneQuestions(ctx, now().Add(-j.MaxAge))
	if err != nil {
		return fmt.Errorf("cron: prune questions: %w", err)
	}
	if n > 0 {
		j.Logger.Info("cron: pruned question log", "count", n, "max_age", j.MaxAge)
	}
	return nil
}

// Sweeper drops idle per-client state.
type Sweeper interface {
	Sweep()
}

// RateLimitSweepJob releases rate limiter windows of idle clients.
type RateLimitSweepJob struct {
	Limiter      Sweeper
	ScheduleExpr string // empty = "*/5 * * * *"
}

var _ Job = (*RateLimitSweepJob)(nil)

// Name implements Job.
func (j *RateLimitSweepJob) Name() string { return "rate_limit_sweep" }

// Schedule implements Job.
func (j *RateLimitSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/5 * * * *"
}

// Run implements Job.
func (j *RateLimitSweepJob) Run(context.Context) error {
	j.Limiter.Sweep()
	return nil
}

// HealthReportJob logs generation backends that are not healthy.
type HealthReportJob struct {
	Health       func() map[provider.Kind]string
	Logger       *slog.Logger
	ScheduleExpr string // empty = "*/10 * * * *"
}

var _ Job = (*HealthReportJob)(nil)

// Name implements Job.
func (j *HealthReportJob) Name() string { return "provider_health_report" }

// Schedule implements Job.
func (j *HealthReportJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/10 * * * *"
}

// Run implements Job.
func (j *HealthReportJob) Run(context.Context) error {
	for kind, state := range j.Health() {
		if state != "healthy" {
			j.Logger.Warn("cron: provider unhealthy", "provider", kind, "state", state)
		}
	}
	return nil
}
