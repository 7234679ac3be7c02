// Package models defines core data structures for records, queries, and search hits.
package models

// Record is one entity to insert, keyed by field name. It must conform to the
// active collection schema; the handler validates it before forwarding and
// never mutates stored records afterwards.
type Record map[string]interface{}

// InsertResult reports the outcome of a batch insert.
type InsertResult struct {
	Count int64    `json:"count"`
	IDs   []string `json:"ids,omitempty"`
}
