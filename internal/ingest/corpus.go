package ingest

import (
	"sync"
	"sync/atomic"
	"time"
)

// Corpus is the append-only collection of ingested items. Each Append
// publishes a new immutable snapshot, so readers observe a pass either
// completely or not at all and never take a lock.
type Corpus struct {
	mu   sync.Mutex // serialises writers
	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	items         []ContentItem
	lastRefreshed time.Time
}

// NewCorpus returns an empty corpus.
func NewCorpus() *Corpus {
	c := &Corpus{}
	c.snap.Store(&snapshot{})
	return c
}

// Append adds items as one atomic unit and stamps the refresh time. Items
// are not deduplicated against earlier passes. It returns the new length.
func (c *Corpus) Append(items []ContentItem, at time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.snap.Load()
	next := make([]ContentItem, 0, len(prev.items)+len(items))
	next = append(next, prev.items...)
	for _, it := range items {
		next = append(next, it.clone())
	}
	c.snap.Store(&snapshot{items: next, lastRefreshed: at})
	return len(next)
}

// Items returns a copy of every item in ingestion order.
func (c *Corpus) Items() []ContentItem {
	s := c.snap.Load()
	out := make([]ContentItem, len(s.items))
	for i, it := range s.items {
		out[i] = it.clone()
	}
	return out
}

// Len returns the number of items.
func (c *Corpus) Len() int {
	return len(c.snap.Load().items)
}

// LastRefreshedAt returns the time of the last completed pass, or the zero
// time when none has completed.
func (c *Corpus) LastRefreshedAt() time.Time {
	return c.snap.Load().lastRefreshed
}

// Stats is a point-in-time view for health reporting.
type Stats struct {
	Items           int       `json:"corpus_size"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
}

// Stats returns size and refresh time read from the same snapshot.
func (c *Corpus) Stats() Stats {
	s := c.snap.Load()
	return Stats{Items: len(s.items), LastRefreshedAt: s.lastRefreshed}
}
