package archive_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/flemzord/tdsta/internal/ingest/archive"
)

func openTest(t *testing.T) *archive.Archive {
	t.Helper()
	a, err := archive.Open(context.Background(), archive.Config{
		Path: filepath.Join(t.TempDir(), "nested", "corpus.db"),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func samplePass(id string) archive.Pass {
	ts := time.Date(2025, 1, 28, 9, 15, 0, 0, time.UTC)
	now := time.Date(2025, 4, 14, 12, 0, 0, 0, time.UTC)
	return archive.Pass{
		ID:         id,
		Source:     "forum",
		Category:   "tds",
		Window:     "2025-01-01..2025-04-14",
		StartedAt:  now,
		FinishedAt: now.Add(time.Second),
		Items: []archive.Item{
			{
				ID:          "170234",
				Title:       "Docker vs Podman for TDS Course",
				Body:        "Podman is the recommended containerization tool",
				URL:         "https://discourse.onlinedegree.iitm.ac.in/t/docker-vs-podman-for-tds-course/170234",
				Category:    "tds",
				Author:      "student_helper",
				PublishedAt: &ts,
				Replies:     23,
				Likes:       18,
			},
			{
				ID:    "site/development-tools",
				Title: "Development Tools",
				Body:  "Course covers uv, git, bash",
				URL:   "https://tds.s-anand.net/#/development-tools",
			},
		},
	}
}

func TestArchive_RecordAndSearch(t *testing.T) {
	t.Parallel()

	a := openTest(t)
	ctx := context.Background()

	if err := a.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := a.Record(ctx, samplePass("p1")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := a.Search(ctx, "podman", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(got))
	}
	if got[0].ID != "170234" || got[0].PassID != "p1" {
		t.Errorf("result = %+v", got[0])
	}
	if got[0].PublishedAt == nil || got[0].PublishedAt.Year() != 2025 {
		t.Errorf("PublishedAt = %v, want 2025 timestamp", got[0].PublishedAt)
	}
}

func TestArchive_SearchEmptyQuery(t *testing.T) {
	t.Parallel()

	a := openTest(t)
	got, err := a.Search(context.Background(), "", 10)
	if err != nil || got != nil {
		t.Fatalf("Search(\"\") = %v, %v; want nil, nil", got, err)
	}
}

func TestArchive_AppendOnlyStats(t *testing.T) {
	t.Parallel()

	a := openTest(t)
	ctx := context.Background()

	_ = a.Record(ctx, samplePass("p1"))
	_ = a.Record(ctx, samplePass("p2"))
	failed := archive.Pass{ID: "p3", Source: "site", Error: "timeout", StartedAt: time.Now(), FinishedAt: time.Now()}
	if err := a.Record(ctx, failed); err != nil {
		t.Fatalf("Record failed pass: %v", err)
	}

	st, err := a.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Passes != 3 || st.FailedPasses != 1 || st.Items != 4 {
		t.Errorf("Stats = %+v, want 3 passes, 1 failed, 4 items", st)
	}
	if st.LastPassAt.IsZero() {
		t.Error("LastPassAt is zero")
	}
}

func TestArchive_DuplicatePassRejected(t *testing.T) {
	t.Parallel()

	a := openTest(t)
	ctx := context.Background()
	if err := a.Record(ctx, samplePass("dup")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := a.Record(ctx, samplePass("dup")); err == nil {
		t.Fatal("expected error recording duplicate pass id")
	}

	st, _ := a.Stats(ctx)
	if st.Items != 2 {
		t.Errorf("items = %d, want 2 (rolled back)", st.Items)
	}
}

func TestArchive_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "corpus.db")
	ctx := context.Background()

	a, err := archive.Open(ctx, archive.Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = a.Record(ctx, samplePass("p1"))
	_ = a.Close()

	b, err := archive.Open(ctx, archive.Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = b.Close() }()

	st, _ := b.Stats(ctx)
	if st.Passes != 1 {
		t.Errorf("passes after reopen = %d, want 1", st.Passes)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	c := archive.Config{BusyTimeout: -1}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for negative busy_timeout")
	}
	_, err := archive.Open(context.Background(), archive.Config{Path: filepath.Join(t.TempDir(), "x.db"), BusyTimeout: -5})
	if err == nil {
		t.Fatal("Open should reject negative busy_timeout")
	}
}
