package collection

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/tsukihi/ruiji/internal/models"
	"github.com/tsukihi/ruiji/internal/schema"
)

// normalizeRecords validates every record against the schema and returns
// canonicalized copies. It fails on the first malformed record, before any
// transport call, so a bad batch inserts nothing.
//
// Canonicalization rules:
//   - an absent varchar primary key is filled with a UUID
//   - numeric values arriving as JSON float64 are narrowed to the field type
//   - vector values are converted to []float32 and dim-checked
//   - maps and slices bound for json fields are marshaled to bytes
func (h *Handler) normalizeRecords(records []models.Record) ([]models.Record, error) {
	out := make([]models.Record, len(records))
	for i, r := range records {
		for name := range r {
			if h.col.Field(name) == nil {
				return nil, fmt.Errorf("%w: record %d has unknown field %q", ErrValidation, i, name)
			}
		}

		canonical := make(models.Record, len(h.col.Fields))
		for j := range h.col.Fields {
			f := &h.col.Fields[j]
			raw, present := r[f.Name]
			if !present {
				filled, err := fillAbsent(f, i)
				if err != nil {
					return nil, err
				}
				if filled != nil {
					canonical[f.Name] = filled
				}
				continue
			}
			v, err := canonicalValue(f, raw)
			if err != nil {
				return nil, fmt.Errorf("%w: record %d: %v", ErrValidation, i, err)
			}
			canonical[f.Name] = v
		}
		out[i] = canonical
	}
	return out, nil
}

// fillAbsent supplies a value for a field the record omits, or returns nil
// when the omission is legitimate (auto-id keys, vectors the handler embeds).
func fillAbsent(f *schema.Field, row int) (interface{}, error) {
	switch {
	case f.PrimaryKey && f.AutoID:
		return nil, nil
	case f.PrimaryKey && f.Type == schema.TypeVarChar:
		return uuid.NewString(), nil
	case f.PrimaryKey:
		return nil, fmt.Errorf("%w: record %d is missing primary key %q", ErrValidation, row, f.Name)
	case f.IsVector():
		// Filled by the embedder from the text field; Insert checks this.
		return nil, nil
	case f.Name == schema.SourceFieldName:
		return "", nil
	default:
		return nil, fmt.Errorf("%w: record %d is missing field %q", ErrValidation, row, f.Name)
	}
}

func canonicalValue(f *schema.Field, raw interface{}) (interface{}, error) {
	switch f.Type {
	case schema.TypeBool:
		v, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("field %q: got %T, want bool", f.Name, raw)
		}
		return v, nil
	case schema.TypeInt8:
		n, err := asInt(f, raw, math.MinInt8, math.MaxInt8)
		return int8(n), err
	case schema.TypeInt16:
		n, err := asInt(f, raw, math.MinInt16, math.MaxInt16)
		return int16(n), err
	case schema.TypeInt32:
		n, err := asInt(f, raw, math.MinInt32, math.MaxInt32)
		return int32(n), err
	case schema.TypeInt64:
		return asInt(f, raw, math.MinInt64, math.MaxInt64)
	case schema.TypeFloat:
		switch v := raw.(type) {
		case float32:
			return v, nil
		case float64:
			return float32(v), nil
		}
		return nil, fmt.Errorf("field %q: got %T, want float", f.Name, raw)
	case schema.TypeDouble:
		switch v := raw.(type) {
		case float32:
			return float64(v), nil
		case float64:
			return v, nil
		}
		return nil, fmt.Errorf("field %q: got %T, want double", f.Name, raw)
	case schema.TypeVarChar:
		v, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %q: got %T, want string", f.Name, raw)
		}
		if f.MaxLength > 0 && len(v) > f.MaxLength {
			return nil, fmt.Errorf("field %q: length %d exceeds max_length %d", f.Name, len(v), f.MaxLength)
		}
		return v, nil
	case schema.TypeJSON:
		if b, ok := raw.([]byte); ok {
			return b, nil
		}
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: not JSON-encodable: %v", f.Name, err)
		}
		return b, nil
	case schema.TypeFloatVector:
		vec, err := asVector(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %v", f.Name, err)
		}
		if len(vec) != f.Dim {
			return nil, fmt.Errorf("field %q: vector dimension %d, want %d", f.Name, len(vec), f.Dim)
		}
		return vec, nil
	}
	return nil, fmt.Errorf("field %q: unsupported type %q", f.Name, f.Type)
}

func asInt(f *schema.Field, raw interface{}, min, max int64) (int64, error) {
	var n int64
	switch v := raw.(type) {
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("field %q: %v is not an integer", f.Name, v)
		}
		n = int64(v)
	default:
		return 0, fmt.Errorf("field %q: got %T, want %s", f.Name, raw, f.Type)
	}
	if n < min || n > max {
		return 0, fmt.Errorf("field %q: %d out of range for %s", f.Name, n, f.Type)
	}
	return n, nil
}

func asVector(raw interface{}) ([]float32, error) {
	switch v := raw.(type) {
	case []float32:
		out := make([]float32, len(v))
		copy(out, v)
		return out, nil
	case []float64:
		out := make([]float32, len(v))
		for i, x := range v {
			out[i] = float32(x)
		}
		return out, nil
	case []interface{}:
		// JSON request bodies decode vectors this way.
		out := make([]float32, len(v))
		for i, x := range v {
			f, ok := x.(float64)
			if !ok {
				return nil, fmt.Errorf("vector element %d: got %T, want number", i, x)
			}
			out[i] = float32(f)
		}
		return out, nil
	}
	return nil, fmt.Errorf("got %T, want a float vector", raw)
}
