package cron

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// simpleJob is a minimal Job for scheduler tests.
type simpleJob struct {
	name     string
	schedule string
	runFunc  func(ctx context.Context) error
	calls    atomic.Int32
}

func (j *simpleJob) Name() string     { return j.name }
func (j *simpleJob) Schedule() string { return j.schedule }
func (j *simpleJob) Run(ctx context.Context) error {
	j.calls.Add(1)
	if j.runFunc != nil {
		return j.runFunc(ctx)
	}
	return nil
}

func TestScheduler_RegisterJob_DuplicateName(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	if err := s.RegisterJob(&simpleJob{name: "test", schedule: "* * * * *"}); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}
	if err := s.RegisterJob(&simpleJob{name: "test", schedule: "* * * * *"}); err == nil {
		t.Fatal("duplicate registration should fail")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestScheduler_RegisterAfterStart(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = s.Stop(context.Background()) }()

	if err := s.RegisterJob(&simpleJob{name: "late", schedule: "* * * * *"}); err == nil {
		t.Fatal("expected error registering after start")
	}
}

func TestScheduler_Start_InvalidSchedule(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	_ = s.RegisterJob(&simpleJob{name: "bad", schedule: "invalid"})

	if err := s.Start(); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestScheduler_StartStopNext(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	_ = s.RegisterJob(&simpleJob{name: "noop", schedule: "0 */6 * * *"})

	if got := s.Next(); len(got) != 0 {
		t.Errorf("Next() before start = %v, want empty", got)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	next := s.Next()
	if next["noop"].Before(time.Now()) {
		t.Errorf("next run %v is not in the future", next["noop"])
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestScheduler_NilLogger(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	if s.logger == nil {
		t.Fatal("logger should default to slog.Default()")
	}
}

func TestScheduler_Trigger(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	job := &simpleJob{name: "refresh", schedule: "0 0 * * *"}
	_ = s.RegisterJob(job)

	if err := s.Trigger(context.Background(), "refresh"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if got := job.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestScheduler_TriggerUnknown(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	err := s.Trigger(context.Background(), "missing")
	if !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("err = %v, want ErrUnknownJob", err)
	}
}

func TestScheduler_TriggerPropagatesJobError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	s := NewScheduler(nil)
	_ = s.RegisterJob(&simpleJob{
		name:     "failing",
		schedule: "* * * * *",
		runFunc:  func(context.Context) error { return boom },
	})

	if err := s.Trigger(context.Background(), "failing"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestScheduler_NoParallelExecution(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	entered := make(chan struct{})
	s := NewScheduler(nil)
	_ = s.RegisterJob(&simpleJob{
		name:     "slow",
		schedule: "* * * * *",
		runFunc: func(context.Context) error {
			close(entered)
			<-release
			return nil
		},
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Trigger(context.Background(), "slow")
	}()
	<-entered

	if err := s.Trigger(context.Background(), "slow"); !errors.Is(err, ErrJobBusy) {
		t.Errorf("second trigger err = %v, want ErrJobBusy", err)
	}
	close(release)
	wg.Wait()
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.Default())
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestParseSchedule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 */6 * * *", false},
		{"*/15 * * * *", false},
		{"", true},
		{"0 0 * * * *", true},
		{"every hour", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()
			err := ParseSchedule(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseSchedule(%q) err = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}
