package models

import "testing"

func TestSearchQueryValidate(t *testing.T) {
	q := &SearchQuery{Text: "hello"}
	if err := q.Validate(10, 100); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 10 {
		t.Errorf("limit should take the default, got %d", q.Limit)
	}
}

func TestSearchQueryValidate_empty(t *testing.T) {
	q := &SearchQuery{}
	if err := q.Validate(10, 100); err == nil {
		t.Fatal("query with neither text nor vector should fail")
	}
}

func TestSearchQueryValidate_both(t *testing.T) {
	q := &SearchQuery{Text: "hello", Vector: []float32{1, 2}}
	if err := q.Validate(10, 100); err == nil {
		t.Fatal("query with both text and vector should fail")
	}
}

func TestSearchQueryValidate_limitClamped(t *testing.T) {
	q := &SearchQuery{Text: "hello", Limit: 5000}
	if err := q.Validate(10, 100); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 100 {
		t.Errorf("limit should clamp to max, got %d", q.Limit)
	}
}

func TestSearchQueryValidate_vectorOnly(t *testing.T) {
	q := &SearchQuery{Vector: []float32{0.1, 0.2}, Limit: 3}
	if err := q.Validate(10, 100); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 3 {
		t.Errorf("explicit limit should stick, got %d", q.Limit)
	}
}
