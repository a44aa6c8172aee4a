package knowledge

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

// Store is an immutable, ordered topic catalog. Enumeration order is the
// tie-break when a question matches several topics.
type Store struct {
	entries []TopicEntry
	index   map[string]int
}

// NewStore validates entries and copies them into a Store. It returns an
// error wrapping ErrConfig listing every invalid entry.
func NewStore(entries []TopicEntry) (*Store, error) {
	var errs []error
	index := make(map[string]int, len(entries))

	for i, e := range entries {
		if strings.TrimSpace(e.ID) == "" {
			errs = append(errs, fmt.Errorf("%w: topics[%d]: id is required", ErrConfig, i))
			continue
		}
		if prev, dup := index[e.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: topics[%d]: duplicate id %q (first at topics[%d])", ErrConfig, i, e.ID, prev))
			continue
		}
		index[e.ID] = i

		if len(e.Patterns) == 0 {
			errs = append(errs, fmt.Errorf("%w: topic %q: at least one pattern is required", ErrConfig, e.ID))
		}
		for j, p := range e.Patterns {
			if p == "" {
				errs = append(errs, fmt.Errorf("%w: topic %q: patterns[%d] is empty", ErrConfig, e.ID, j))
			}
		}
		for j, l := range e.Links {
			if strings.TrimSpace(l.URL) == "" {
				errs = append(errs, fmt.Errorf("%w: topic %q: links[%d]: url is required", ErrConfig, e.ID, j))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	s := &Store{
		entries: make([]TopicEntry, len(entries)),
		index:   index,
	}
	for i, e := range entries {
		s.entries[i] = e.clone()
	}
	return s, nil
}

// Entries returns a copy of the topics in declaration order.
func (s *Store) Entries() []TopicEntry {
	out := make([]TopicEntry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.clone()
	}
	return out
}

// Entry returns a copy of the topic with the given ID.
func (s *Store) Entry(id string) (TopicEntry, bool) {
	i, ok := s.index[id]
	if !ok {
		return TopicEntry{}, false
	}
	return s.entries[i].clone(), true
}

// Len returns the number of topics.
func (s *Store) Len() int {
	return len(s.entries)
}

// Each calls fn for every topic in order until fn returns false. The entry
// passed to fn shares memory with the store and must not be modified.
func (s *Store) Each(fn func(TopicEntry) bool) {
	for _, e := range s.entries {
		if !fn(e) {
			return
		}
	}
}

// Holder publishes the current Store. Readers never block; Swap replaces the
// catalog as a whole.
type Holder struct {
	current atomic.Pointer[Store]
}

// NewHolder creates a Holder serving s.
func NewHolder(s *Store) *Holder {
	h := &Holder{}
	h.current.Store(s)
	return h
}

// Store returns the catalog currently in effect.
func (h *Holder) Store() *Store {
	return h.current.Load()
}

// Swap publishes s and returns the previous catalog.
func (h *Holder) Swap(s *Store) *Store {
	return h.current.Swap(s)
}
