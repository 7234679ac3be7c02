// Package milvus wraps the external vector database client behind a small
// store interface. The database owns indexing, similarity search, and
// persistence; this package only forwards calls and maps types.
package milvus

import (
	"context"
	"errors"

	"github.com/tsukihi/ruiji/internal/models"
	"github.com/tsukihi/ruiji/internal/schema"
)

// ErrUnavailable is wrapped by all failures to reach or drive the database
// service (transport errors, timeouts, service-side rejections).
var ErrUnavailable = errors.New("milvus unavailable")

// SearchRequest is a vector similarity query against one collection.
type SearchRequest struct {
	Vector       []float32
	Limit        int
	OutputFields []string
}

// Store is the collection-management and query surface the handler needs.
// Implemented by Client (real database) and MemoryStore (tests).
type Store interface {
	// Has reports whether the named collection exists.
	Has(ctx context.Context, name string) (bool, error)
	// Create creates the collection, builds the configured vector index, and
	// loads the collection into memory for querying.
	Create(ctx context.Context, col *schema.Collection) error
	// Describe returns the schema of an existing collection.
	Describe(ctx context.Context, name string) (*schema.Collection, error)
	// Drop removes the collection and all its data.
	Drop(ctx context.Context, name string) error
	// Insert forwards a batch of validated records. Values must already be in
	// canonical form for their field type (see collection.Handler).
	Insert(ctx context.Context, col *schema.Collection, records []models.Record) (int64, error)
	// Delete removes entities matching the filter expression.
	Delete(ctx context.Context, col *schema.Collection, filter string) (int64, error)
	// Search returns up to Limit hits ordered best-first per the collection
	// metric.
	Search(ctx context.Context, col *schema.Collection, req *SearchRequest) ([]*models.SearchHit, error)
	// Flush persists growing segments so inserted rows are countable.
	Flush(ctx context.Context, name string) error
	// RowCount returns the number of persisted rows.
	RowCount(ctx context.Context, name string) (int64, error)
	Close(ctx context.Context) error
}
