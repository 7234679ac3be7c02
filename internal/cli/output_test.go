package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/tsukihi/ruiji/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Hits: []*models.SearchHit{
			{ID: "a", Score: 0.0, Fields: map[string]interface{}{"sentence": "first hit"}},
			{ID: "b", Score: 1.5, Fields: map[string]interface{}{"sentence": "second hit"}},
		},
		QueryTime: 12,
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Found 2 results in 12ms") {
		t.Errorf("missing header: %s", out)
	}
	if !strings.Contains(out, "first hit") || !strings.Contains(out, "second hit") {
		t.Errorf("missing hits: %s", out)
	}
	if strings.Index(out, "first hit") > strings.Index(out, "second hit") {
		t.Error("hits should print in order")
	}
}

func TestWriteSearchResults_json(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.SearchResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Hits) != 2 || decoded.Hits[0].ID != "a" {
		t.Errorf("unexpected decode: %+v", decoded)
	}
}

func TestWriteStatus_text(t *testing.T) {
	var buf bytes.Buffer
	status := &models.Status{
		Collection: "sentences", Exists: true, RowCount: 42,
		Dimensions: 384, IndexType: "IVF_FLAT", Metric: "L2",
	}
	if err := WriteStatus(&buf, status, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"sentences", "42", "384", "IVF_FLAT (L2)"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestWriteStatus_absent(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStatus(&buf, &models.Status{Collection: "sentences"}, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Exists: no") {
		t.Errorf("missing absence marker: %s", buf.String())
	}
	if strings.Contains(buf.String(), "Rows:") {
		t.Error("absent collection should not report rows")
	}
}

func TestWriteInsertResult(t *testing.T) {
	var buf bytes.Buffer
	result := &models.InsertResult{Count: 2, IDs: []string{"x", "y"}}
	if err := WriteInsertResult(&buf, result, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Inserted 2 records") || !strings.Contains(out, "x") {
		t.Errorf("unexpected output: %s", out)
	}
}
