// Package ingest assembles the reference corpus: content items gathered from
// the course site and the forum by pluggable providers, appended pass by
// pass to an append-only in-memory Corpus.
package ingest

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the only accepted date format for ingestion windows.
const DateLayout = "2006-01-02"

// ContentItem is one piece of reference content.
type ContentItem struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title"`
	Body     string `json:"content"`
	URL      string `json:"url"`
	Category string `json:"category,omitempty"`

	// Optional fields, zero when the source does not provide them.
	Timestamp *time.Time `json:"created_at,omitempty"`
	Author    string     `json:"author,omitempty"`
	Replies   int        `json:"replies,omitempty"`
	Likes     int        `json:"likes,omitempty"`
}

func (c ContentItem) clone() ContentItem {
	if c.Timestamp != nil {
		ts := *c.Timestamp
		c.Timestamp = &ts
	}
	return c
}

// DateRange is an inclusive window of whole UTC days.
type DateRange struct {
	Start time.Time // 00:00 UTC on the first day
	End   time.Time // 00:00 UTC on the last day
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC. Any other form,
// including dates that do not round-trip (2025-2-1, 2025-02-30), is
// rejected with ErrInvalidDateFormat.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil || t.Format(DateLayout) != s {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	return t, nil
}

// ParseRange parses both ends of a window.
func ParseRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	return DateRange{Start: s, End: e}, nil
}

// Contains reports whether ts falls on or between the range's days.
// An inverted range contains nothing.
func (r DateRange) Contains(ts time.Time) bool {
	ts = ts.UTC()
	return !ts.Before(r.Start) && ts.Before(r.End.AddDate(0, 0, 1))
}

// String renders the range as "start..end".
func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// sameCategory compares categories case-insensitively. An empty wanted
// category accepts everything.
func sameCategory(want, got string) bool {
	return want == "" || strings.EqualFold(want, got)
}
