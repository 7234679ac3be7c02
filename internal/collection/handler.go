// Package collection implements the configuration-driven collection lifecycle:
// idempotent provisioning on the external database, record validation and
// insertion, and similarity search.
package collection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tsukihi/ruiji/internal/config"
	"github.com/tsukihi/ruiji/internal/embedding"
	"github.com/tsukihi/ruiji/internal/milvus"
	"github.com/tsukihi/ruiji/internal/models"
	"github.com/tsukihi/ruiji/internal/schema"
)

// Handler drives one configured collection through a Store. It holds the
// store connection for its lifetime; the schema is read-only after
// construction. No retry or consistency logic lives here: those guarantees,
// where they exist, are the database's.
type Handler struct {
	store    milvus.Store
	col      *schema.Collection
	embedder embedding.Embedder
	search   *config.SearchConfig
	logger   *zap.Logger
}

// New creates a handler for the configured collection.
func New(store milvus.Store, col *schema.Collection, embedder embedding.Embedder, search *config.SearchConfig, logger *zap.Logger) *Handler {
	return &Handler{
		store:    store,
		col:      col,
		embedder: embedder,
		search:   search,
		logger:   logger,
	}
}

// Schema returns the configured collection schema.
func (h *Handler) Schema() *schema.Collection {
	return h.col
}

// Ensure makes the collection exist with the configured schema. It is
// idempotent: when the collection already exists with a compatible schema it
// is a no-op; an incompatible existing schema fails with ErrSchemaConflict.
func (h *Handler) Ensure(ctx context.Context) error {
	exists, err := h.store.Has(ctx, h.col.Name)
	if err != nil {
		return err
	}
	if !exists {
		h.logger.Info("creating collection", zap.String("collection", h.col.Name))
		return h.store.Create(ctx, h.col)
	}

	existing, err := h.store.Describe(ctx, h.col.Name)
	if err != nil {
		return err
	}
	if diffs := schema.Diff(existing, h.col); len(diffs) > 0 {
		return fmt.Errorf("%w: collection %q: %s",
			ErrSchemaConflict, h.col.Name, strings.Join(diffs, "; "))
	}
	h.logger.Info("collection already exists with compatible schema",
		zap.String("collection", h.col.Name))
	return nil
}

// Insert validates records against the schema, fills absent primary keys and
// embeddings, forwards the batch, and flushes. A malformed record fails the
// whole batch with ErrValidation before anything is sent.
func (h *Handler) Insert(ctx context.Context, records []models.Record) (*models.InsertResult, error) {
	if len(records) == 0 {
		return &models.InsertResult{}, nil
	}
	canonical, err := h.normalizeRecords(records)
	if err != nil {
		return nil, err
	}
	if err := h.fillEmbeddings(ctx, canonical); err != nil {
		return nil, err
	}

	count, err := h.store.Insert(ctx, h.col, canonical)
	if err != nil {
		return nil, err
	}
	if err := h.store.Flush(ctx, h.col.Name); err != nil {
		return nil, err
	}

	result := &models.InsertResult{Count: count}
	pk := h.col.PrimaryField()
	if !pk.AutoID {
		result.IDs = make([]string, len(canonical))
		for i, r := range canonical {
			result.IDs[i] = fmt.Sprint(r[pk.Name])
		}
	}
	h.logger.Info("inserted records",
		zap.String("collection", h.col.Name),
		zap.Int64("count", count))
	return result, nil
}

// InsertTexts builds records from raw sentences and inserts them. The source
// tags each record's provenance when the schema declares a source field.
func (h *Handler) InsertTexts(ctx context.Context, texts []string, source string) (*models.InsertResult, error) {
	tf := h.col.TextField()
	if tf == nil {
		return nil, fmt.Errorf("%w: schema %q has no text field to hold sentences",
			ErrValidation, h.col.Name)
	}
	records := make([]models.Record, len(texts))
	for i, text := range texts {
		r := models.Record{tf.Name: strings.TrimSpace(text)}
		if source != "" && h.col.SourceField() != nil {
			r[schema.SourceFieldName] = source
		}
		records[i] = r
	}
	return h.Insert(ctx, records)
}

// fillEmbeddings embeds the text field into records whose vector field is
// absent. Records carrying their own vector pass through untouched.
func (h *Handler) fillEmbeddings(ctx context.Context, records []models.Record) error {
	vf := h.col.VectorField()
	tf := h.col.TextField()

	var missing []int
	for i, r := range records {
		if _, ok := r[vf.Name]; ok {
			continue
		}
		if tf == nil {
			return fmt.Errorf("%w: record %d has no %q vector and the schema has no text field to embed",
				ErrValidation, i, vf.Name)
		}
		if _, ok := r[tf.Name].(string); !ok {
			return fmt.Errorf("%w: record %d has neither a %q vector nor %q text",
				ErrValidation, i, vf.Name, tf.Name)
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return nil
	}

	texts := make([]string, len(missing))
	for j, i := range missing {
		texts[j] = records[i][tf.Name].(string)
	}
	vectors, err := h.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d records: %w", len(texts), err)
	}
	for j, i := range missing {
		records[i][vf.Name] = vectors[j]
	}
	return nil
}

// Search embeds a text query (or takes a raw vector), forwards it, and
// returns hits ordered best-first per the collection metric, sized to the
// limit.
func (h *Handler) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	if err := q.Validate(h.search.DefaultLimit, h.search.MaxLimit); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	vector := q.Vector
	if q.Text != "" {
		var err error
		vector, err = h.embedder.Embed(ctx, q.Text)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
	}
	vf := h.col.VectorField()
	if len(vector) != vf.Dim {
		return nil, fmt.Errorf("%w: query vector dimension %d, want %d",
			ErrValidation, len(vector), vf.Dim)
	}

	outputFields := q.OutputFields
	if outputFields == nil {
		outputFields = h.search.OutputFields
	}

	start := time.Now()
	hits, err := h.store.Search(ctx, h.col, &milvus.SearchRequest{
		Vector:       vector,
		Limit:        q.Limit,
		OutputFields: outputFields,
	})
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	h.logger.Debug("search",
		zap.String("collection", h.col.Name),
		zap.Int("hits", len(hits)),
		zap.Duration("latency", elapsed))

	return &models.SearchResponse{
		Hits:      hits,
		QueryTime: elapsed.Milliseconds(),
	}, nil
}

// DeleteBySource removes all records tagged with the given ingest source.
func (h *Handler) DeleteBySource(ctx context.Context, source string) (int64, error) {
	if h.col.SourceField() == nil {
		return 0, fmt.Errorf("%w: schema %q has no source field", ErrValidation, h.col.Name)
	}
	filter := fmt.Sprintf("%s == %q", schema.SourceFieldName, source)
	return h.store.Delete(ctx, h.col, filter)
}

// Count returns the persisted row count, or zero when the collection does
// not exist yet.
func (h *Handler) Count(ctx context.Context) (int64, error) {
	exists, err := h.store.Has(ctx, h.col.Name)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	return h.store.RowCount(ctx, h.col.Name)
}

// Status summarizes the collection as observed on the database.
func (h *Handler) Status(ctx context.Context) (*models.Status, error) {
	exists, err := h.store.Has(ctx, h.col.Name)
	if err != nil {
		return nil, err
	}
	st := &models.Status{
		Collection: h.col.Name,
		Exists:     exists,
		Dimensions: h.col.VectorField().Dim,
		IndexType:  h.col.Index.Type,
		Metric:     h.col.Index.Metric,
	}
	if exists {
		st.RowCount, err = h.store.RowCount(ctx, h.col.Name)
		if err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Drop removes the collection and all its data.
func (h *Handler) Drop(ctx context.Context) error {
	h.logger.Info("dropping collection", zap.String("collection", h.col.Name))
	return h.store.Drop(ctx, h.col.Name)
}
