// Package ingesttest provides test doubles for the ingest package.
package ingesttest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/flemzord/tdsta/internal/ingest"
)

// SiteProvider returns fixed items or an error, counting calls.
type SiteProvider struct {
	Items []ingest.ContentItem
	Err   error
	// Block, when set, makes FetchSiteContent wait until it is closed,
	// ignoring the context.
	Block chan struct{}

	Calls atomic.Int32
}

// FetchSiteContent implements ingest.SiteProvider.
func (p *SiteProvider) FetchSiteContent(_ context.Context) ([]ingest.ContentItem, error) {
	p.Calls.Add(1)
	if p.Block != nil {
		<-p.Block
	}
	return p.Items, p.Err
}

// ForumProvider returns fixed items or an error, recording the last
// requested window and category.
type ForumProvider struct {
	Items []ingest.ContentItem
	Err   error

	mu           sync.Mutex
	lastWindow   ingest.DateRange
	lastCategory string
	calls        int
}

// FetchForumPosts implements ingest.ForumProvider.
func (p *ForumProvider) FetchForumPosts(_ context.Context, window ingest.DateRange, category string) ([]ingest.ContentItem, error) {
	p.mu.Lock()
	p.lastWindow, p.lastCategory = window, category
	p.calls++
	p.mu.Unlock()
	return p.Items, p.Err
}

// LastRequest returns the window and category of the last call.
func (p *ForumProvider) LastRequest() (ingest.DateRange, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastWindow, p.lastCategory
}

// CallCount returns the number of calls.
func (p *ForumProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Recorder collects recorded passes.
type Recorder struct {
	Err error

	mu     sync.Mutex
	passes []ingest.Pass
}

// RecordPass implements ingest.Recorder.
func (r *Recorder) RecordPass(_ context.Context, p ingest.Pass) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes = append(r.passes, p)
	return r.Err
}

// Passes returns a copy of the recorded passes.
func (r *Recorder) Passes() []ingest.Pass {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ingest.Pass(nil), r.passes...)
}

// Observation is one ObserveIngestion call.
type Observation struct {
	Source     string
	Items      int
	CorpusSize int
	Err        error
}

// Observer collects observations.
type Observer struct {
	mu  sync.Mutex
	obs []Observation
}

// ObserveIngestion implements ingest.Observer.
func (o *Observer) ObserveIngestion(source string, items, corpusSize int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.obs = append(o.obs, Observation{Source: source, Items: items, CorpusSize: corpusSize, Err: err})
}

// Observations returns a copy of the recorded observations.
func (o *Observer) Observations() []Observation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Observation(nil), o.obs...)
}

// Compile-time interface guards.
var (
	_ ingest.SiteProvider  = (*SiteProvider)(nil)
	_ ingest.ForumProvider = (*ForumProvider)(nil)
	_ ingest.Recorder      = (*Recorder)(nil)
	_ ingest.Observer      = (*Observer)(nil)
)
