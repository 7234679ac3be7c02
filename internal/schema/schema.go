// Package schema models the declarative collection schema that ruiji provisions
// on the external vector database.
package schema

import (
	"errors"
	"fmt"
)

// Field types accepted in collection configuration.
const (
	TypeBool        = "bool"
	TypeInt8        = "int8"
	TypeInt16       = "int16"
	TypeInt32       = "int32"
	TypeInt64       = "int64"
	TypeFloat       = "float"
	TypeDouble      = "double"
	TypeVarChar     = "varchar"
	TypeJSON        = "json"
	TypeFloatVector = "float_vector"
)

// Index types and metrics understood by the wrapper. The database owns the
// actual index implementation.
const (
	IndexIVFFlat   = "IVF_FLAT"
	IndexHNSW      = "HNSW"
	IndexFlat      = "FLAT"
	IndexAutoIndex = "AUTOINDEX"

	MetricL2     = "L2"
	MetricIP     = "IP"
	MetricCosine = "COSINE"
)

// SourceFieldName is the optional varchar column that tags each record with
// its ingest provenance (file path). Records from the same source can be
// replaced or deleted together.
const SourceFieldName = "source"

// ErrInvalidSchema is wrapped by all schema validation failures.
var ErrInvalidSchema = errors.New("invalid collection schema")

// Field describes one collection field.
type Field struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	PrimaryKey  bool   `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	AutoID      bool   `yaml:"auto_id,omitempty" json:"auto_id,omitempty"`
	Dim         int    `yaml:"dim,omitempty" json:"dim,omitempty"`
	MaxLength   int    `yaml:"max_length,omitempty" json:"max_length,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// IsVector reports whether the field holds embeddings.
func (f *Field) IsVector() bool {
	return f.Type == TypeFloatVector
}

// Index describes the vector index to create on the vector field.
type Index struct {
	Type   string `yaml:"type" json:"type"`
	Metric string `yaml:"metric" json:"metric"`
	Nlist  int    `yaml:"nlist,omitempty" json:"nlist,omitempty"`
	Nprobe int    `yaml:"nprobe,omitempty" json:"nprobe,omitempty"`
}

// Collection is the full declarative description of one collection.
type Collection struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Consistency string  `yaml:"consistency,omitempty" json:"consistency,omitempty"`
	Fields      []Field `yaml:"fields" json:"fields"`
	Index       Index   `yaml:"index" json:"index"`
}

// PrimaryField returns the primary key field, or nil when absent.
func (c *Collection) PrimaryField() *Field {
	for i := range c.Fields {
		if c.Fields[i].PrimaryKey {
			return &c.Fields[i]
		}
	}
	return nil
}

// VectorField returns the embeddings field, or nil when absent.
func (c *Collection) VectorField() *Field {
	for i := range c.Fields {
		if c.Fields[i].IsVector() {
			return &c.Fields[i]
		}
	}
	return nil
}

// TextField returns the first non-primary varchar field other than the source
// column. It is the column the embedder reads from when a record carries text
// but no vector.
func (c *Collection) TextField() *Field {
	for i := range c.Fields {
		f := &c.Fields[i]
		if f.Type == TypeVarChar && !f.PrimaryKey && f.Name != SourceFieldName {
			return f
		}
	}
	return nil
}

// SourceField returns the provenance column when the schema declares one.
func (c *Collection) SourceField() *Field {
	for i := range c.Fields {
		if c.Fields[i].Name == SourceFieldName && c.Fields[i].Type == TypeVarChar {
			return &c.Fields[i]
		}
	}
	return nil
}

// Field returns the field with the given name, or nil.
func (c *Collection) Field(name string) *Field {
	for i := range c.Fields {
		if c.Fields[i].Name == name {
			return &c.Fields[i]
		}
	}
	return nil
}

func validType(t string) bool {
	switch t {
	case TypeBool, TypeInt8, TypeInt16, TypeInt32, TypeInt64,
		TypeFloat, TypeDouble, TypeVarChar, TypeJSON, TypeFloatVector:
		return true
	}
	return false
}

func validIndexType(t string) bool {
	switch t {
	case IndexIVFFlat, IndexHNSW, IndexFlat, IndexAutoIndex:
		return true
	}
	return false
}

func validMetric(m string) bool {
	switch m {
	case MetricL2, MetricIP, MetricCosine:
		return true
	}
	return false
}

// Validate checks the structural invariants: a collection name, at least one
// field, exactly one primary key of a keyable type, positive dims on vector
// fields, max_length on varchar fields, and a known index type and metric.
func (c *Collection) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidSchema)
	}
	if len(c.Fields) == 0 {
		return fmt.Errorf("%w: collection %q has no fields", ErrInvalidSchema, c.Name)
	}

	primaries := 0
	seen := make(map[string]bool, len(c.Fields))
	for i := range c.Fields {
		f := &c.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("%w: field %d has no name", ErrInvalidSchema, i)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, f.Name)
		}
		seen[f.Name] = true
		if !validType(f.Type) {
			return fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidSchema, f.Name, f.Type)
		}
		if f.PrimaryKey {
			primaries++
			if f.Type != TypeInt64 && f.Type != TypeVarChar {
				return fmt.Errorf("%w: primary key %q must be int64 or varchar, got %q",
					ErrInvalidSchema, f.Name, f.Type)
			}
		}
		if f.IsVector() && f.Dim <= 0 {
			return fmt.Errorf("%w: vector field %q requires a positive dim", ErrInvalidSchema, f.Name)
		}
		if f.Type == TypeVarChar && f.MaxLength <= 0 {
			return fmt.Errorf("%w: varchar field %q requires max_length", ErrInvalidSchema, f.Name)
		}
	}
	if primaries != 1 {
		return fmt.Errorf("%w: collection %q must have exactly one primary key field, got %d",
			ErrInvalidSchema, c.Name, primaries)
	}
	if c.VectorField() == nil {
		return fmt.Errorf("%w: collection %q has no vector field", ErrInvalidSchema, c.Name)
	}
	if !validIndexType(c.Index.Type) {
		return fmt.Errorf("%w: unknown index type %q", ErrInvalidSchema, c.Index.Type)
	}
	if !validMetric(c.Index.Metric) {
		return fmt.Errorf("%w: unknown metric %q", ErrInvalidSchema, c.Index.Metric)
	}
	return nil
}
