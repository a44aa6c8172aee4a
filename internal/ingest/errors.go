package ingest

import "errors"

// Sentinel errors for ingestion.
var (
	// ErrInvalidDateFormat indicates a date parameter that is not YYYY-MM-DD.
	// The ingestion pass is rejected and the corpus left untouched.
	ErrInvalidDateFormat = errors.New("ingest: invalid date format (want YYYY-MM-DD)")

	// ErrSourceFailure indicates a provider could not deliver content
	// (unreachable, malformed response, timeout). It never escapes an
	// ingestion pass: the pass degrades to zero items.
	ErrSourceFailure = errors.New("ingest: source failure")
)
