// Package knowledge holds the curated topic catalog the question matcher
// reads from. A Store is built once and never mutated; configuration reloads
// publish a new Store through a Holder.
package knowledge

import "slices"

// Link is a reference shown alongside an answer.
type Link struct {
	URL  string `json:"url" yaml:"url"`
	Text string `json:"text" yaml:"text"`
}

// TopicEntry pairs lexical trigger patterns with a canned answer.
type TopicEntry struct {
	// ID is unique within a Store.
	ID string `json:"id" yaml:"id"`

	// Patterns are case-insensitive substrings, tested in declaration order.
	Patterns []string `json:"patterns" yaml:"patterns"`

	Answer string `json:"answer" yaml:"answer"`
	Links  []Link `json:"links" yaml:"links"`
}

func (e TopicEntry) clone() TopicEntry {
	e.Patterns = slices.Clone(e.Patterns)
	e.Links = slices.Clone(e.Links)
	return e
}
