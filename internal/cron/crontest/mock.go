// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/flemzord/tdsta/internal/cron"
)

// MockJob is a configurable test double for cron.Job.
type MockJob struct {
	NameVal     string
	ScheduleVal string
	RunFunc     func(ctx context.Context) error

	mu    sync.Mutex
	calls int
}

// Compile-time interface check.
var _ cron.Job = (*MockJob)(nil)

// Name implements cron.Job.
func (m *MockJob) Name() string { return m.NameVal }

// Schedule implements cron.Job.
func (m *MockJob) Schedule() string { return m.ScheduleVal }

// Run implements cron.Job and counts calls.
func (m *MockJob) Run(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return nil
}

// CallCount returns the number of Run calls.
func (m *MockJob) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockRefresher is a test double for cron.Refresher.
type MockRefresher struct {
	SiteItems  int
	ForumItems int
	ForumErr   error

	SiteCalls  atomic.Int32
	ForumCalls atomic.Int32
}

// Compile-time interface check.
var _ cron.Refresher = (*MockRefresher)(nil)

// RefreshSite implements cron.Refresher.
func (m *MockRefresher) RefreshSite(_ context.Context) int {
	m.SiteCalls.Add(1)
	return m.SiteItems
}

// RefreshForum implements cron.Refresher.
func (m *MockRefresher) RefreshForum(_ context.Context) (int, error) {
	m.ForumCalls.Add(1)
	return m.ForumItems, m.ForumErr
}
