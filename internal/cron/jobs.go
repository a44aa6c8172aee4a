package cron

import (
	"context"
	"log/slog"
)

// Job names for corpus refresh.
const (
	SiteRefreshJobName  = "corpus_refresh:site"
	ForumRefreshJobName = "corpus_refresh:forum"
)

// Refresher is the subset of the ingestion module needed by refresh jobs.
// Defined here to keep cron free of a dependency on ingest.
type Refresher interface {
	RefreshSite(ctx context.Context) int
	RefreshForum(ctx context.Context) (int, error)
}

// SiteRefreshJob re-ingests course-site content.
type SiteRefreshJob struct {
	Refresher    Refresher
	ScheduleExpr string
	Logger       *slog.Logger
}

// ForumRefreshJob re-ingests forum posts for the configured window.
type ForumRefreshJob struct {
	Refresher    Refresher
	ScheduleExpr string
	Logger       *slog.Logger
}

// Compile-time interface guards.
var (
	_ Job = (*SiteRefreshJob)(nil)
	_ Job = (*ForumRefreshJob)(nil)
)

// Name implements Job.
func (j *SiteRefreshJob) Name() string { return SiteRefreshJobName }

// Schedule implements Job.
func (j *SiteRefreshJob) Schedule() string { return j.ScheduleExpr }

// Run implements Job.
func (j *SiteRefreshJob) Run(ctx context.Context) error {
	n := j.Refresher.RefreshSite(ctx)
	logger(j.Logger).Info("cron: site refreshed", "items", n)
	return nil
}

// Name implements Job.
func (j *ForumRefreshJob) Name() string { return ForumRefreshJobName }

// Schedule implements Job.
func (j *ForumRefreshJob) Schedule() string { return j.ScheduleExpr }

// Run implements Job. Only a misconfigured window is reported as an error;
// source failures are absorbed by the ingestor.
func (j *ForumRefreshJob) Run(ctx context.Context) error {
	n, err := j.Refresher.RefreshForum(ctx)
	if err != nil {
		return err
	}
	logger(j.Logger).Info("cron: forum refreshed", "items", n)
	return nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
