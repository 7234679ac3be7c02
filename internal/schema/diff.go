package schema

import (
	"fmt"
	"sort"
)

// Diff compares the schema an existing collection reports against the schema
// the configuration wants, and returns a human-readable list of
// incompatibilities. An empty result means the existing collection can serve
// the configured schema as-is.
//
// Descriptions and index parameters are deliberately not compared: the
// database does not report index settings through collection description, and
// neither affects record shape.
func Diff(existing, want *Collection) []string {
	var diffs []string

	byName := make(map[string]*Field, len(existing.Fields))
	for i := range existing.Fields {
		byName[existing.Fields[i].Name] = &existing.Fields[i]
	}

	for i := range want.Fields {
		w := &want.Fields[i]
		e, ok := byName[w.Name]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("field %q missing from existing collection", w.Name))
			continue
		}
		delete(byName, w.Name)
		if e.Type != w.Type {
			diffs = append(diffs, fmt.Sprintf("field %q type is %s, want %s", w.Name, e.Type, w.Type))
		}
		if e.PrimaryKey != w.PrimaryKey {
			diffs = append(diffs, fmt.Sprintf("field %q primary key is %t, want %t", w.Name, e.PrimaryKey, w.PrimaryKey))
		}
		if w.IsVector() && e.Dim != w.Dim {
			diffs = append(diffs, fmt.Sprintf("field %q dim is %d, want %d", w.Name, e.Dim, w.Dim))
		}
		if w.Type == TypeVarChar && e.MaxLength != 0 && w.MaxLength != 0 && e.MaxLength != w.MaxLength {
			diffs = append(diffs, fmt.Sprintf("field %q max_length is %d, want %d", w.Name, e.MaxLength, w.MaxLength))
		}
	}

	extras := make([]string, 0, len(byName))
	for name := range byName {
		extras = append(extras, name)
	}
	sort.Strings(extras)
	for _, name := range extras {
		diffs = append(diffs, fmt.Sprintf("existing collection has extra field %q", name))
	}
	return diffs
}
