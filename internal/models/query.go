package models

import "fmt"

// SearchQuery is a similarity search request: either free text (embedded by
// the handler) or a raw query vector, plus a result limit. Queries are
// stateless and produced per call.
type SearchQuery struct {
	Text         string    `json:"text,omitempty"`
	Vector       []float32 `json:"vector,omitempty"`
	Limit        int       `json:"limit,omitempty"`
	OutputFields []string  `json:"output_fields,omitempty"`
}

// Validate ensures the query has exactly one of text or vector and normalizes
// the limit against the given defaults.
func (q *SearchQuery) Validate(defaultLimit, maxLimit int) error {
	if q.Text == "" && len(q.Vector) == 0 {
		return fmt.Errorf("query requires text or a vector")
	}
	if q.Text != "" && len(q.Vector) > 0 {
		return fmt.Errorf("query cannot have both text and a vector")
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return nil
}
