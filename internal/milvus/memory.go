package milvus

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"sync"

	"github.com/tsukihi/ruiji/internal/models"
	"github.com/tsukihi/ruiji/internal/schema"
	"github.com/tsukihi/ruiji/pkg/utils"
)

// MemoryStore is an in-process Store used by tests. It mirrors the observable
// behavior the handler relies on: idempotent existence checks, primary-key
// replace semantics, exact brute-force scoring per metric, and source-filter
// deletes. It is a test double, not a vector engine.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	schema *schema.Collection
	// insertion order preserved so equal-score ties are stable
	order []string
	rows  map[string]models.Record
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

// Has reports whether the named collection exists.
func (m *MemoryStore) Has(_ context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[name]
	return ok, nil
}

// Create registers the collection. Creating an existing collection fails, as
// it does on the real service.
func (m *MemoryStore) Create(_ context.Context, col *schema.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[col.Name]; ok {
		return fmt.Errorf("collection %q already exists", col.Name)
	}
	cp := *col
	cp.Fields = append([]schema.Field(nil), col.Fields...)
	m.collections[col.Name] = &memCollection{
		schema: &cp,
		rows:   make(map[string]models.Record),
	}
	return nil
}

// Describe returns the stored schema.
func (m *MemoryStore) Describe(_ context.Context, name string) (*schema.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mc, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %q does not exist", name)
	}
	cp := *mc.schema
	cp.Fields = append([]schema.Field(nil), mc.schema.Fields...)
	return &cp, nil
}

// Drop removes the collection and its rows.
func (m *MemoryStore) Drop(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	return nil
}

// Insert stores records keyed by primary key; an existing key is replaced.
func (m *MemoryStore) Insert(_ context.Context, col *schema.Collection, records []models.Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.collections[col.Name]
	if !ok {
		return 0, fmt.Errorf("collection %q does not exist", col.Name)
	}
	pk := col.PrimaryField()
	for _, r := range records {
		id := fmt.Sprint(r[pk.Name])
		if _, exists := mc.rows[id]; !exists {
			mc.order = append(mc.order, id)
		}
		mc.rows[id] = r
	}
	return int64(len(records)), nil
}

// sourceFilter matches the only expression shape the handler emits.
var sourceFilter = regexp.MustCompile(`^(\w+)\s*==\s*"((?:[^"\\]|\\.)*)"$`)

// Delete removes rows matching a `field == "value"` filter expression.
func (m *MemoryStore) Delete(_ context.Context, col *schema.Collection, filter string) (int64, error) {
	match := sourceFilter.FindStringSubmatch(filter)
	if match == nil {
		return 0, fmt.Errorf("unsupported filter expression %q", filter)
	}
	field, want := match[1], unescapeFilterValue(match[2])

	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.collections[col.Name]
	if !ok {
		return 0, fmt.Errorf("collection %q does not exist", col.Name)
	}
	var removed int64
	kept := mc.order[:0]
	for _, id := range mc.order {
		if v, ok := mc.rows[id][field]; ok && fmt.Sprint(v) == want {
			delete(mc.rows, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	mc.order = kept
	return removed, nil
}

// Search scores every row against the query vector with the collection's
// metric and returns the best Limit hits.
func (m *MemoryStore) Search(_ context.Context, col *schema.Collection, req *SearchRequest) ([]*models.SearchHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mc, ok := m.collections[col.Name]
	if !ok {
		return nil, fmt.Errorf("collection %q does not exist", col.Name)
	}
	vf := mc.schema.VectorField()
	if len(req.Vector) != vf.Dim {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(req.Vector), vf.Dim)
	}

	metric := mc.schema.Index.Metric
	hits := make([]*models.SearchHit, 0, len(mc.order))
	for _, id := range mc.order {
		row := mc.rows[id]
		vec, ok := row[vf.Name].([]float32)
		if !ok {
			continue
		}
		hit := &models.SearchHit{ID: id, Score: score(metric, req.Vector, vec)}
		if len(req.OutputFields) > 0 {
			hit.Fields = make(map[string]interface{}, len(req.OutputFields))
			for _, name := range req.OutputFields {
				if v, ok := row[name]; ok {
					hit.Fields[name] = v
				}
			}
		}
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if metric == schema.MetricL2 {
			return hits[i].Score < hits[j].Score
		}
		return hits[i].Score > hits[j].Score
	})
	if req.Limit > 0 && len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}
	return hits, nil
}

// Flush is a no-op for MemoryStore.
func (m *MemoryStore) Flush(context.Context, string) error {
	return nil
}

// RowCount returns the number of stored rows.
func (m *MemoryStore) RowCount(_ context.Context, name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mc, ok := m.collections[name]
	if !ok {
		return 0, fmt.Errorf("collection %q does not exist", name)
	}
	return int64(len(mc.rows)), nil
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close(context.Context) error {
	return nil
}

func score(metric string, query, vec []float32) float64 {
	switch metric {
	case schema.MetricL2:
		return utils.L2Distance(query, vec)
	case schema.MetricCosine:
		dot := utils.InnerProduct(query, vec)
		qn, vn := l2norm(query), l2norm(vec)
		if qn == 0 || vn == 0 {
			return 0
		}
		return dot / (qn * vn)
	default: // IP
		return utils.InnerProduct(query, vec)
	}
}

func l2norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v * v)
	}
	return math.Sqrt(sum)
}

func unescapeFilterValue(s string) string {
	out := make([]rune, 0, len(s))
	escaped := false
	for _, r := range s {
		if escaped {
			out = append(out, r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
