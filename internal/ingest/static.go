package ingest

import (
	"context"
	"time"
)

const forumBase = "https://discourse.onlinedegree.iitm.ac.in"

// StaticSiteProvider serves the built-in course site summaries.
type StaticSiteProvider struct{}

// FetchSiteContent implements SiteProvider.
func (StaticSiteProvider) FetchSiteContent(_ context.Context) ([]ContentItem, error) {
	return []ContentItem{
		{
			ID:       "site/development-tools",
			Title:    "Development Tools",
			Body:     "Course covers uv, git, bash, llm, sqlite, spreadsheets, AI code editors",
			URL:      "https://tds.s-anand.net/#/development-tools",
			Category: "site",
		},
		{
			ID:       "site/docker",
			Title:    "Container Technologies",
			Body:     "Docker and Podman for containerization. Podman is preferred but Docker is acceptable.",
			URL:      "https://tds.s-anand.net/#/docker",
			Category: "site",
		},
	}, nil
}

// StaticForumProvider serves the built-in forum sample posts. It ignores
// the window and category; filtering is the Ingestor's job.
type StaticForumProvider struct{}

// FetchForumPosts implements ForumProvider.
func (StaticForumProvider) FetchForumPosts(_ context.Context, _ DateRange, _ string) ([]ContentItem, error) {
	return []ContentItem{
		{
			ID:        "155939",
			Title:     "GA5 Question 8 Clarification",
			Body:      "Use the model that's mentioned in the question. For GA5 Question 8, you must use gpt-3.5-turbo-0125 even if the AI Proxy only supports gpt-4o-mini.",
			URL:       forumBase + "/t/ga5-question-8-clarification/155939",
			Category:  "tds",
			Timestamp: timestamp("2025-03-15T10:30:00Z"),
			Author:    "teaching_assistant",
			Replies:   4,
			Likes:     12,
		},
		{
			ID:        "165959",
			Title:     "GA4 Data Sourcing Discussion Thread - TDS Jan 2025",
			Body:      "For GA4 scoring, if a student gets 10/10 plus bonus points, the dashboard will display this as 110.",
			URL:       forumBase + "/t/ga4-data-sourcing-discussion-thread-tds-jan-2025/165959",
			Category:  "tds",
			Timestamp: timestamp("2025-02-20T14:45:00Z"),
			Author:    "course_instructor",
			Replies:   388,
			Likes:     45,
		},
		{
			ID:        "170234",
			Title:     "Docker vs Podman for TDS Course",
			Body:      "While Docker is acceptable, Podman is the recommended containerization tool for this course due to its rootless architecture and security benefits.",
			URL:       forumBase + "/t/docker-vs-podman-for-tds-course/170234",
			Category:  "tds",
			Timestamp: timestamp("2025-01-28T09:15:00Z"),
			Author:    "student_helper",
			Replies:   23,
			Likes:     18,
		},
	}, nil
}

func timestamp(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic("ingest: bad built-in timestamp " + s)
	}
	return &t
}
