package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultSourceTimeout bounds a single provider call.
const DefaultSourceTimeout = 15 * time.Second

// Source names used in logs, metrics and the archive.
const (
	SourceSite  = "site"
	SourceForum = "forum"
)

// Pass describes one completed ingestion pass.
type Pass struct {
	ID         string
	Source     string
	Window     *DateRange
	Category   string
	StartedAt  time.Time
	FinishedAt time.Time
	Items      []ContentItem
	Err        error
}

// Recorder persists completed passes. Recording failures are logged only.
type Recorder interface {
	RecordPass(ctx context.Context, p Pass) error
}

// Observer receives per-pass counts, typically for metrics.
type Observer interface {
	ObserveIngestion(source string, items int, corpusSize int, err error)
}

// Config configures an Ingestor.
type Config struct {
	Corpus        *Corpus
	Site          SiteProvider
	Forum         ForumProvider
	Roots         SourceRoots
	SourceTimeout time.Duration
	Recorder      Recorder
	Observer      Observer
	Logger        *slog.Logger
	Tracer        trace.Tracer
	Now           func() time.Time
}

// Ingestor runs ingestion passes against its providers and appends the
// results to the corpus.
type Ingestor struct {
	corpus  *Corpus
	roots   SourceRoots
	timeout time.Duration
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time

	mu       sync.RWMutex
	site     SiteProvider
	forum    ForumProvider
	recorder Recorder
	observer Observer
}

// New creates an Ingestor. Missing providers default to the static ones.
func New(cfg Config) *Ingestor {
	in := &Ingestor{
		corpus:   cfg.Corpus,
		roots:    cfg.Roots,
		timeout:  cfg.SourceTimeout,
		logger:   cfg.Logger,
		tracer:   cfg.Tracer,
		now:      cfg.Now,
		site:     cfg.Site,
		forum:    cfg.Forum,
		recorder: cfg.Recorder,
		observer: cfg.Observer,
	}
	if in.corpus == nil {
		in.corpus = NewCorpus()
	}
	if in.roots == (SourceRoots{}) {
		in.roots = DefaultRoots()
	}
	if in.timeout <= 0 {
		in.timeout = DefaultSourceTimeout
	}
	if in.logger == nil {
		in.logger = slog.Default()
	}
	if in.tracer == nil {
		in.tracer = otel.Tracer("github.com/flemzord/tdsta/internal/ingest")
	}
	if in.now == nil {
		in.now = time.Now
	}
	if in.site == nil {
		in.site = StaticSiteProvider{}
	}
	if in.forum == nil {
		in.forum = StaticForumProvider{}
	}
	return in
}

// Corpus returns the corpus the ingestor appends to.
func (in *Ingestor) Corpus() *Corpus { return in.corpus }

// SourceRoots returns the known roots of the ingested sources.
func (in *Ingestor) SourceRoots() SourceRoots { return in.roots }

// SetProviders swaps the providers used by subsequent passes. Nil keeps
// the current provider.
func (in *Ingestor) SetProviders(site SiteProvider, forum ForumProvider) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if site != nil {
		in.site = site
	}
	if forum != nil {
		in.forum = forum
	}
}

// SetRecorder sets the pass recorder; nil disables recording.
func (in *Ingestor) SetRecorder(r Recorder) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.recorder = r
}

// SetObserver sets the pass observer; nil disables it.
func (in *Ingestor) SetObserver(o Observer) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.observer = o
}

func (in *Ingestor) providers() (SiteProvider, ForumProvider, Recorder, Observer) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.site, in.forum, in.recorder, in.observer
}

// IngestSiteContent fetches course-site content and appends it to the
// corpus. Source failures are logged and yield no items.
func (in *Ingestor) IngestSiteContent(ctx context.Context) []ContentItem {
	site, _, _, _ := in.providers()

	ctx, span := in.tracer.Start(ctx, "ingest.site")
	defer span.End()

	started := in.now()
	items, err := fetch(ctx, in.timeout, site.FetchSiteContent)

	return in.finish(ctx, span, Pass{
		Source:    SourceSite,
		StartedAt: started,
		Items:     items,
		Err:       err,
	})
}

// IngestForumPosts fetches forum posts in the inclusive [start, end] day
// window for category and appends them to the corpus. A malformed date
// aborts the pass with ErrInvalidDateFormat; source failures are logged and
// yield no items.
func (in *Ingestor) IngestForumPosts(ctx context.Context, start, end, category string) ([]ContentItem, error) {
	window, err := ParseRange(start, end)
	if err != nil {
		return nil, err
	}
	_, forum, _, _ := in.providers()

	ctx, span := in.tracer.Start(ctx, "ingest.forum", trace.WithAttributes(
		attribute.String("ingest.window", window.String()),
		attribute.String("ingest.category", category),
	))
	defer span.End()

	started := in.now()
	items, err := fetch(ctx, in.timeout, func(ctx context.Context) ([]ContentItem, error) {
		return forum.FetchForumPosts(ctx, window, category)
	})
	if err == nil {
		items = filterForum(items, window, category)
	}

	return in.finish(ctx, span, Pass{
		Source:    SourceForum,
		Window:    &window,
		Category:  category,
		StartedAt: started,
		Items:     items,
		Err:       err,
	}), nil
}

// Scrape fetches forum posts for the [start, end] window without touching
// any corpus. Unlike IngestForumPosts, source failures are returned.
func Scrape(ctx context.Context, forum ForumProvider, timeout time.Duration, start, end, category string) ([]ContentItem, error) {
	window, err := ParseRange(start, end)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	items, err := fetch(ctx, timeout, func(ctx context.Context) ([]ContentItem, error) {
		return forum.FetchForumPosts(ctx, window, category)
	})
	if err != nil {
		return nil, err
	}
	return filterForum(items, window, category), nil
}

// finish publishes a pass: successful passes are appended to the corpus,
// failed ones are logged and contribute nothing.
func (in *Ingestor) finish(ctx context.Context, span trace.Span, p Pass) []ContentItem {
	_, _, recorder, observer := in.providers()
	p.ID = newPassID()
	p.FinishedAt = in.now()

	size := in.corpus.Len()
	if p.Err != nil {
		p.Items = nil
		span.RecordError(p.Err)
		span.SetStatus(codes.Error, p.Err.Error())
		in.logger.Warn("ingestion pass failed",
			"source", p.Source,
			"pass", p.ID,
			"error", p.Err,
		)
	} else {
		size = in.corpus.Append(p.Items, p.FinishedAt)
		in.logger.Info("ingestion pass completed",
			"source", p.Source,
			"pass", p.ID,
			"items", len(p.Items),
			"corpus_size", size,
		)
	}
	span.SetAttributes(
		attribute.String("ingest.pass", p.ID),
		attribute.Int("ingest.items", len(p.Items)),
	)

	if observer != nil {
		observer.ObserveIngestion(p.Source, len(p.Items), size, p.Err)
	}
	if recorder != nil {
		if err := recorder.RecordPass(context.WithoutCancel(ctx), p); err != nil {
			in.logger.Warn("recording ingestion pass failed", "pass", p.ID, "error", err)
		}
	}

	out := make([]ContentItem, len(p.Items))
	for i, it := range p.Items {
		out[i] = it.clone()
	}
	return out
}

// fetch calls fn under a timeout. A provider that ignores its context is
// abandoned when the deadline passes. Panics are converted into errors.
func fetch(ctx context.Context, timeout time.Duration, fn func(context.Context) ([]ContentItem, error)) ([]ContentItem, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		items []ContentItem
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: provider panic: %v", ErrSourceFailure, r)}
			}
		}()
		items, err := fn(ctx)
		done <- result{items: items, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && !errors.Is(r.err, ErrSourceFailure) {
			r.err = fmt.Errorf("%w: %w", ErrSourceFailure, r.err)
		}
		return r.items, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrSourceFailure, ctx.Err())
	}
}

func filterForum(items []ContentItem, window DateRange, category string) []ContentItem {
	out := make([]ContentItem, 0, len(items))
	for _, it := range items {
		if it.Timestamp == nil || !window.Contains(*it.Timestamp) {
			continue
		}
		if !sameCategory(category, it.Category) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func newPassID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
