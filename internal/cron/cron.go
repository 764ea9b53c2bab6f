// Package cron schedules the periodic maintenance jobs of the server:
// question log retention, rate limiter sweeps and provider health reports.
package cron

import "context"

// Job is a periodic background task.
type Job interface {
	// Name identifies the job in logs. Names are unique per scheduler.
	Name() string

	// Schedule is a 5-field cron expression.
	Schedule() string

	Run(ctx context.Context) error
}
