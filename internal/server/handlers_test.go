package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/tsukihi/ruiji/internal/collection"
	"github.com/tsukihi/ruiji/internal/config"
	"github.com/tsukihi/ruiji/internal/embedding"
	"github.com/tsukihi/ruiji/internal/ingest"
	"github.com/tsukihi/ruiji/internal/ledger"
	"github.com/tsukihi/ruiji/internal/milvus"
	"github.com/tsukihi/ruiji/internal/models"
	"github.com/tsukihi/ruiji/internal/schema"
)

func testServer(t *testing.T) (*Server, *collection.Handler) {
	t.Helper()
	col := &schema.Collection{
		Name: "sentences",
		Fields: []schema.Field{
			{Name: "pk", Type: schema.TypeVarChar, PrimaryKey: true, MaxLength: 100},
			{Name: "sentence", Type: schema.TypeVarChar, MaxLength: 512},
			{Name: "source", Type: schema.TypeVarChar, MaxLength: 1024},
			{Name: "embeddings", Type: schema.TypeFloatVector, Dim: 4},
		},
		Index: schema.Index{Type: schema.IndexFlat, Metric: schema.MetricL2},
	}
	handler := collection.New(milvus.NewMemoryStore(), col, embedding.NewHashEmbedder(4),
		&config.SearchConfig{DefaultLimit: 10, MaxLimit: 100, OutputFields: []string{"sentence"}},
		zap.NewNop())
	led, err := ledger.Open(filepath.Join(t.TempDir(), "ingest.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = led.Close() })
	ingestor := ingest.New(handler, led, 8, zap.NewNop())
	srv := NewServer(handler, ingestor, &config.ServerConfig{Host: "localhost", Port: 0}, zap.NewNop())
	return srv, handler
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleEnsureAndStatus(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPut, "/api/v1/collection", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ensure status = %d: %s", rec.Code, rec.Body.String())
	}
	// Ensure is idempotent over HTTP too.
	rec = doJSON(t, router, http.MethodPut, "/api/v1/collection", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("repeated ensure status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st models.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if !st.Exists || st.Collection != "sentences" {
		t.Errorf("unexpected status: %+v", st)
	}
}

func TestHandleInsertAndSearch(t *testing.T) {
	srv, handler := testServer(t)
	router := srv.Router()
	if err := handler.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/records", map[string]interface{}{
		"texts": []string{"Mickey was born in Paris", "Oranges grow in Valencia"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("insert status = %d: %s", rec.Code, rec.Body.String())
	}
	var result models.InsertResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Count != 2 {
		t.Errorf("count = %d, want 2", result.Count)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/search", map[string]interface{}{
		"text": "Mickey was born in Paris", "limit": 2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(resp.Hits))
	}
	if resp.Hits[0].Fields["sentence"] != "Mickey was born in Paris" {
		t.Errorf("top hit = %v", resp.Hits[0].Fields)
	}
}

func TestHandleInsert_badRequests(t *testing.T) {
	srv, handler := testServer(t)
	router := srv.Router()
	if err := handler.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		body interface{}
	}{
		{"empty", map[string]interface{}{}},
		{"both", map[string]interface{}{
			"texts":   []string{"a"},
			"records": []map[string]interface{}{{"sentence": "b"}},
		}},
		{"unknown field", map[string]interface{}{
			"records": []map[string]interface{}{{"bogus": 1}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/v1/records", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleSearch_validationError(t *testing.T) {
	srv, handler := testServer(t)
	router := srv.Router()
	if err := handler.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/search", map[string]interface{}{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty query status = %d, want 400", rec.Code)
	}
}

func TestHandleRemoveSource(t *testing.T) {
	srv, handler := testServer(t)
	router := srv.Router()
	ctx := context.Background()
	if err := handler.Ensure(ctx); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/sources", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing path status = %d, want 400", rec.Code)
	}
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/sources?path=/data/x.txt", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("remove status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleDrop(t *testing.T) {
	srv, handler := testServer(t)
	router := srv.Router()
	ctx := context.Background()
	if err := handler.Ensure(ctx); err != nil {
		t.Fatal(err)
	}
	rec := doJSON(t, router, http.MethodDelete, "/api/v1/collection", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("drop status = %d", rec.Code)
	}
	st, err := handler.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Exists {
		t.Error("collection should be gone after drop")
	}
}

func TestStatusFor(t *testing.T) {
	if got := statusFor(collection.ErrValidation); got != http.StatusBadRequest {
		t.Errorf("validation = %d", got)
	}
	if got := statusFor(collection.ErrSchemaConflict); got != http.StatusConflict {
		t.Errorf("conflict = %d", got)
	}
	if got := statusFor(milvus.ErrUnavailable); got != http.StatusBadGateway {
		t.Errorf("unavailable = %d", got)
	}
	if got := statusFor(context.DeadlineExceeded); got != http.StatusInternalServerError {
		t.Errorf("other = %d", got)
	}
}
