package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/flemzord/tdsta/internal/ingest"
	"github.com/spf13/cobra"
)

// maxSamples is how many scraped posts the summary previews.
const maxSamples = 3

type scrapeOptions struct {
	provider  string
	baseURL   string
	apiKey    string
	apiUser   string
	startDate string
	endDate   string
	category  string
	output    string
	format    string
	timeout   time.Duration
}

func scrapeCmd() *cobra.Command {
	var opts scrapeOptions
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Export forum posts in a date window to JSON or CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return runScrape(ctx, cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.provider, "provider", ingest.ProviderDiscourse, "Forum provider (discourse or static)")
	f.StringVar(&opts.baseURL, "base-url", strings.TrimRight(ingest.DefaultForumRoot.URL, "/"), "Discourse base URL")
	f.StringVar(&opts.apiKey, "api-key", os.Getenv("DISCOURSE_API_KEY"), "Discourse API key")
	f.StringVar(&opts.apiUser, "api-user", os.Getenv("DISCOURSE_API_USER"), "Discourse API user")
	f.StringVar(&opts.startDate, "start-date", ingest.DefaultStartDate, "First day of the window (YYYY-MM-DD)")
	f.StringVar(&opts.endDate, "end-date", ingest.DefaultEndDate, "Last day of the window (YYYY-MM-DD)")
	f.StringVar(&opts.category, "category", ingest.DefaultCategory, "Forum category")
	f.StringVarP(&opts.output, "output", "o", "discourse_posts.json", "Output file")
	f.StringVar(&opts.format, "format", ingest.FormatJSON, "Output format (json or csv)")
	f.DurationVar(&opts.timeout, "timeout", time.Minute, "Overall fetch timeout")
	return cmd
}

func runScrape(ctx context.Context, w io.Writer, opts scrapeOptions) error {
	var forum ingest.ForumProvider
	switch opts.provider {
	case ingest.ProviderStatic:
		forum = ingest.StaticForumProvider{}
	case ingest.ProviderDiscourse:
		d := ingest.NewDiscourseProvider(opts.baseURL, &http.Client{Timeout: opts.timeout})
		d.APIKey, d.APIUser = opts.apiKey, opts.apiUser
		forum = d
	default:
		return fmt.Errorf("unknown provider %q", opts.provider)
	}
	if opts.format != ingest.FormatJSON && opts.format != ingest.FormatCSV {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	fmt.Fprintf(w, "Scraping %s posts from %s to %s...\n", opts.category, opts.startDate, opts.endDate)
	items, err := ingest.Scrape(ctx, forum, opts.timeout, opts.startDate, opts.endDate, opts.category)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "No posts found in the specified date range.")
		return nil
	}

	f, err := os.Create(opts.output)
	if err != nil {
		return err
	}
	if err := ingest.Export(f, items, opts.format); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(w, "Saved %d posts to %s\n", len(items), opts.output)
	fmt.Fprintln(w, "Sample posts:")
	for _, it := range items[:min(len(items), maxSamples)] {
		created := "unknown date"
		if it.Timestamp != nil {
			created = it.Timestamp.UTC().Format(ingest.DateLayout)
		}
		fmt.Fprintf(w, "  - %s (%s, %s)\n", it.Title, created, it.URL)
	}
	return nil
}
