package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("normalized = %v", v)
	}
}

func TestNormalizeL2_zeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	NormalizeL2(v)
	for _, x := range v {
		if x != 0 {
			t.Errorf("zero vector should be unchanged: %v", v)
		}
	}
}

func TestInnerProduct(t *testing.T) {
	if got := InnerProduct([]float32{1, 2, 3}, []float32{4, 5, 6}); got != 32 {
		t.Errorf("InnerProduct = %f, want 32", got)
	}
	if got := InnerProduct([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("mismatched lengths should return 0, got %f", got)
	}
}

func TestL2Distance(t *testing.T) {
	if got := L2Distance([]float32{0, 0}, []float32{3, 4}); got != 25 {
		t.Errorf("L2Distance = %f, want 25 (squared)", got)
	}
	if got := L2Distance([]float32{1, 1}, []float32{1, 1}); got != 0 {
		t.Errorf("identical vectors should have zero distance, got %f", got)
	}
	if got := L2Distance([]float32{1}, []float32{1, 2}); !math.IsInf(got, 1) {
		t.Errorf("mismatched lengths should return +Inf, got %f", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("anything", 0); got != "anything" {
		t.Errorf("got %q", got)
	}
}
