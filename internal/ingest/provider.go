package ingest

import "context"

// SiteProvider delivers course-site content summaries.
type SiteProvider interface {
	FetchSiteContent(ctx context.Context) ([]ContentItem, error)
}

// ForumProvider delivers forum posts for a window and category. Providers
// may return items outside the window; the Ingestor filters them again.
type ForumProvider interface {
	FetchForumPosts(ctx context.Context, window DateRange, category string) ([]ContentItem, error)
}

// SiteFunc adapts a function to SiteProvider.
type SiteFunc func(ctx context.Context) ([]ContentItem, error)

// FetchSiteContent implements SiteProvider.
func (f SiteFunc) FetchSiteContent(ctx context.Context) ([]ContentItem, error) {
	return f(ctx)
}

// ForumFunc adapts a function to ForumProvider.
type ForumFunc func(ctx context.Context, window DateRange, category string) ([]ContentItem, error)

// FetchForumPosts implements ForumProvider.
func (f ForumFunc) FetchForumPosts(ctx context.Context, window DateRange, category string) ([]ContentItem, error) {
	return f(ctx, window, category)
}
