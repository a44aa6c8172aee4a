// Package cron schedules periodic background work such as corpus refresh
// passes. Jobs are described by the Job interface and driven by a
// robfig/cron scheduler that never runs the same job twice in parallel.
package cron

import "context"

// Job defines a periodic background task.
type Job interface {
	// Name identifies the job in logs and must be unique per scheduler.
	Name() string

	// Schedule returns a 5-field cron expression (e.g. "0 */6 * * *").
	Schedule() string

	// Run executes the job. Implementations should honour ctx cancellation.
	Run(ctx context.Context) error
}

// ParseSchedule reports whether expr is a valid 5-field cron expression.
func ParseSchedule(expr string) error {
	_, err := parser().Parse(expr)
	return err
}
