package embedding

import (
	"context"
	"math"
	"testing"
)

func TestHashEmbedder_deterministic(t *testing.T) {
	e := NewHashEmbedder(8)
	a, err := e.Embed(context.Background(), "the same sentence")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(context.Background(), "the same sentence")
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings differ at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestHashEmbedder_distinctTexts(t *testing.T) {
	e := NewHashEmbedder(8)
	a, _ := e.Embed(context.Background(), "one sentence")
	b, _ := e.Embed(context.Background(), "another sentence")
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts should not share an embedding")
	}
}

func TestHashEmbedder_unitNorm(t *testing.T) {
	e := NewHashEmbedder(16)
	v, err := e.Embed(context.Background(), "normalize me")
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 1e-5 {
		t.Errorf("norm = %f, want 1", math.Sqrt(sum))
	}
}

func TestHashEmbedder_batch(t *testing.T) {
	e := NewHashEmbedder(8)
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 {
		t.Fatalf("want 3 embeddings, got %d", len(vecs))
	}
	for i, v := range vecs {
		if len(v) != 8 {
			t.Errorf("embedding %d has %d dims, want 8", i, len(v))
		}
	}
}

func TestHashEmbedder_defaultDimensions(t *testing.T) {
	e := NewHashEmbedder(0)
	if e.Dimensions() != 384 {
		t.Errorf("default dimensions = %d, want 384", e.Dimensions())
	}
}
