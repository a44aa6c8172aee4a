package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var csvHeader = []string{"id", "title", "content", "author", "created_at", "url", "category", "replies", "likes"}

// Export writes items to w in the given format.
func Export(w io.Writer, items []ContentItem, format string) error {
	switch format {
	case FormatJSON, "":
		return WriteJSON(w, items)
	case FormatCSV:
		return WriteCSV(w, items)
	default:
		return fmt.Errorf("ingest: unknown export format %q", format)
	}
}

// WriteJSON writes items as an indented JSON array.
func WriteJSON(w io.Writer, items []ContentItem) error {
	if items == nil {
		items = []ContentItem{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("ingest: encode json: %w", err)
	}
	return nil
}

// WriteCSV writes items as CSV with a header row.
func WriteCSV(w io.Writer, items []ContentItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("ingest: write csv header: %w", err)
	}
	for _, it := range items {
		created := ""
		if it.Timestamp != nil {
			created = it.Timestamp.UTC().Format(time.RFC3339)
		}
		row := []string{
			it.ID, it.Title, it.Body, it.Author, created, it.URL, it.Category,
			strconv.Itoa(it.Replies), strconv.Itoa(it.Likes),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("ingest: write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("ingest: flush csv: %w", err)
	}
	return nil
}
