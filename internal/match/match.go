// Package match selects the topic answering a question. Matching is lexical:
// the lowercased question is scanned for each topic's patterns in catalog
// order and the first topic with any hit wins. There is no scoring.
package match

import (
	"errors"
	"strings"

	"github.com/flemzord/tdsta/internal/knowledge"
)

// ErrInvalidInput indicates a missing question or catalog.
var ErrInvalidInput = errors.New("match: invalid input")

// Result is the outcome of matching a question. The zero value is NoMatch.
type Result struct {
	Matched bool
	TopicID string
	Pattern string
	Answer  string
	Links   []knowledge.Link
}

// NoMatch is returned when no topic applies.
var NoMatch = Result{}

// Match returns the first topic in store order having a pattern contained
// in question, ignoring case. A nil question or store yields ErrInvalidInput.
func Match(question *string, store *knowledge.Store) (Result, error) {
	if question == nil {
		return NoMatch, errors.Join(ErrInvalidInput, errors.New("question is nil"))
	}
	if store == nil {
		return NoMatch, errors.Join(ErrInvalidInput, errors.New("knowledge store is nil"))
	}
	return Text(*question, store), nil
}

// Text matches a question already known to be present.
func Text(question string, store *knowledge.Store) Result {
	normalized := strings.ToLower(question)

	result := NoMatch
	store.Each(func(e knowledge.TopicEntry) bool {
		for _, p := range e.Patterns {
			if strings.Contains(normalized, strings.ToLower(p)) {
				links := make([]knowledge.Link, len(e.Links))
				copy(links, e.Links)
				result = Result{
					Matched: true,
					TopicID: e.ID,
					Pattern: p,
					Answer:  e.Answer,
					Links:   links,
				}
				return false
			}
		}
		return true
	})
	return result
}
