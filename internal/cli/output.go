// Package cli provides CLI output utilities for Ruiji.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/tsukihi/ruiji/internal/models"
	"github.com/tsukihi/ruiji/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", len(response.Hits), response.QueryTime)
	for i, hit := range response.Hits {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | ID: %s\n", i+1, hit.Score, hit.ID)
		writeFields(w, hit.Fields)
		fmt.Fprintln(w)
	}
	return nil
}

func writeFields(w io.Writer, fields map[string]interface{}) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := fields[name]
		if s, ok := value.(string); ok {
			value = utils.Truncate(s, 200)
		}
		fmt.Fprintf(w, "%s: %v\n", name, value)
	}
}

// WriteStatus writes collection status to w in the given format.
func WriteStatus(w io.Writer, status *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "Collection: %s\n", status.Collection)
	if !status.Exists {
		fmt.Fprintln(w, "Exists: no")
		return nil
	}
	fmt.Fprintln(w, "Exists: yes")
	fmt.Fprintf(w, "Rows: %d\n", status.RowCount)
	fmt.Fprintf(w, "Dimensions: %d\n", status.Dimensions)
	fmt.Fprintf(w, "Index: %s (%s)\n", status.IndexType, status.Metric)
	return nil
}

// WriteInsertResult writes an insert summary to w in the given format.
func WriteInsertResult(w io.Writer, result *models.InsertResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, result)
	}
	fmt.Fprintf(w, "Inserted %d records\n", result.Count)
	for _, id := range result.IDs {
		fmt.Fprintf(w, "  %s\n", id)
	}
	return nil
}

func writeJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
