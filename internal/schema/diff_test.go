package schema

import (
	"strings"
	"testing"
)

func TestDiff_identical(t *testing.T) {
	a, b := validCollection(), validCollection()
	if diffs := Diff(a, b); len(diffs) != 0 {
		t.Errorf("identical schemas should not diff: %v", diffs)
	}
}

func TestDiff_ignoresDescriptionsAndIndex(t *testing.T) {
	existing, want := validCollection(), validCollection()
	existing.Description = "old"
	existing.Fields[1].Description = "old field"
	existing.Index = Index{Type: IndexHNSW, Metric: MetricIP}
	if diffs := Diff(existing, want); len(diffs) != 0 {
		t.Errorf("descriptions and index params should not diff: %v", diffs)
	}
}

func TestDiff_typeMismatch(t *testing.T) {
	existing, want := validCollection(), validCollection()
	existing.Fields[1].Type = TypeInt64
	diffs := Diff(existing, want)
	if len(diffs) != 1 || !strings.Contains(diffs[0], `"sentence"`) {
		t.Errorf("unexpected diffs: %v", diffs)
	}
}

func TestDiff_dimMismatch(t *testing.T) {
	existing, want := validCollection(), validCollection()
	existing.Fields[3].Dim = 16
	diffs := Diff(existing, want)
	if len(diffs) != 1 || !strings.Contains(diffs[0], "dim") {
		t.Errorf("unexpected diffs: %v", diffs)
	}
}

func TestDiff_missingAndExtraFields(t *testing.T) {
	existing, want := validCollection(), validCollection()
	existing.Fields[2].Name = "origin" // existing has "origin", lacks "source"
	diffs := Diff(existing, want)
	if len(diffs) != 2 {
		t.Fatalf("want 2 diffs, got %v", diffs)
	}
	if !strings.Contains(diffs[0], `"source"`) || !strings.Contains(diffs[1], `"origin"`) {
		t.Errorf("unexpected diffs: %v", diffs)
	}
}

func TestDiff_primaryKeyFlag(t *testing.T) {
	existing, want := validCollection(), validCollection()
	existing.Fields[0].PrimaryKey = false
	existing.Fields[1].PrimaryKey = true
	diffs := Diff(existing, want)
	if len(diffs) != 2 {
		t.Errorf("want primary-key diffs on both fields, got %v", diffs)
	}
}

func TestDiff_maxLengthOnlyWhenBothKnown(t *testing.T) {
	existing, want := validCollection(), validCollection()
	// Schemas read back from the database may omit max_length.
	existing.Fields[1].MaxLength = 0
	if diffs := Diff(existing, want); len(diffs) != 0 {
		t.Errorf("unknown existing max_length should not diff: %v", diffs)
	}
	existing.Fields[1].MaxLength = 64
	if diffs := Diff(existing, want); len(diffs) != 1 {
		t.Errorf("conflicting max_length should diff: %v", diffs)
	}
}
