package milvus

import (
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/tsukihi/ruiji/internal/models"
	"github.com/tsukihi/ruiji/internal/schema"
)

var fieldTypes = map[string]entity.FieldType{
	schema.TypeBool:        entity.FieldTypeBool,
	schema.TypeInt8:        entity.FieldTypeInt8,
	schema.TypeInt16:       entity.FieldTypeInt16,
	schema.TypeInt32:       entity.FieldTypeInt32,
	schema.TypeInt64:       entity.FieldTypeInt64,
	schema.TypeFloat:       entity.FieldTypeFloat,
	schema.TypeDouble:      entity.FieldTypeDouble,
	schema.TypeVarChar:     entity.FieldTypeVarChar,
	schema.TypeJSON:        entity.FieldTypeJSON,
	schema.TypeFloatVector: entity.FieldTypeFloatVector,
}

func toEntitySchema(col *schema.Collection) *entity.Schema {
	sch := entity.NewSchema().WithName(col.Name).WithDescription(col.Description)
	for i := range col.Fields {
		f := &col.Fields[i]
		field := entity.NewField().WithName(f.Name).WithDataType(fieldTypes[f.Type])
		if f.PrimaryKey {
			field = field.WithIsPrimaryKey(true)
		}
		if f.AutoID {
			field = field.WithIsAutoID(true)
		}
		if f.Dim > 0 {
			field = field.WithDim(int64(f.Dim))
		}
		if f.MaxLength > 0 {
			field = field.WithMaxLength(int64(f.MaxLength))
		}
		if f.Description != "" {
			field = field.WithDescription(f.Description)
		}
		sch = sch.WithField(field)
	}
	return sch
}

func fromEntitySchema(sch *entity.Schema) *schema.Collection {
	names := make(map[entity.FieldType]string, len(fieldTypes))
	for name, ft := range fieldTypes {
		names[ft] = name
	}

	col := &schema.Collection{
		Name:        sch.CollectionName,
		Description: sch.Description,
	}
	for _, ef := range sch.Fields {
		f := schema.Field{
			Name:        ef.Name,
			Type:        names[ef.DataType],
			PrimaryKey:  ef.PrimaryKey,
			AutoID:      ef.AutoID,
			Description: ef.Description,
		}
		if v, ok := ef.TypeParams[entity.TypeParamDim]; ok {
			f.Dim, _ = strconv.Atoi(v)
		}
		if v, ok := ef.TypeParams[entity.TypeParamMaxLength]; ok {
			f.MaxLength, _ = strconv.Atoi(v)
		}
		col.Fields = append(col.Fields, f)
	}
	return col
}

// toColumns pivots row-shaped records into the columnar form the client
// expects. Records must hold canonical values for each schema field (the
// handler's validation guarantees this); auto-id primary keys are skipped.
func toColumns(col *schema.Collection, records []models.Record) ([]column.Column, error) {
	columns := make([]column.Column, 0, len(col.Fields))
	for i := range col.Fields {
		f := &col.Fields[i]
		if f.PrimaryKey && f.AutoID {
			continue
		}
		c, err := buildColumn(f, records)
		if err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	return columns, nil
}

func buildColumn(f *schema.Field, records []models.Record) (column.Column, error) {
	n := len(records)
	switch f.Type {
	case schema.TypeBool:
		vals := make([]bool, n)
		for i, r := range records {
			v, ok := r[f.Name].(bool)
			if !ok {
				return nil, typeMismatch(f, i, r[f.Name])
			}
			vals[i] = v
		}
		return column.NewColumnBool(f.Name, vals), nil
	case schema.TypeInt8:
		vals := make([]int8, n)
		for i, r := range records {
			v, ok := r[f.Name].(int8)
			if !ok {
				return nil, typeMismatch(f, i, r[f.Name])
			}
			vals[i] = v
		}
		return column.NewColumnInt8(f.Name, vals), nil
	case schema.TypeInt16:
		vals := make([]int16, n)
		for i, r := range records {
			v, ok := r[f.Name].(int16)
			if !ok {
				return nil, typeMismatch(f, i, r[f.Name])
			}
			vals[i] = v
		}
		return column.NewColumnInt16(f.Name, vals), nil
	case schema.TypeInt32:
		vals := make([]int32, n)
		for i, r := range records {
			v, ok := r[f.Name].(int32)
			if !ok {
				return nil, typeMismatch(f, i, r[f.Name])
			}
			vals[i] = v
		}
		return column.NewColumnInt32(f.Name, vals), nil
	case schema.TypeInt64:
		vals := make([]int64, n)
		for i, r := range records {
			v, ok := r[f.Name].(int64)
			if !ok {
				return nil, typeMismatch(f, i, r[f.Name])
			}
			vals[i] = v
		}
		return column.NewColumnInt64(f.Name, vals), nil
	case schema.TypeFloat:
		vals := make([]float32, n)
		for i, r := range records {
			v, ok := r[f.Name].(float32)
			if !ok {
				return nil, typeMismatch(f, i, r[f.Name])
			}
			vals[i] = v
		}
		return column.NewColumnFloat(f.Name, vals), nil
	case schema.TypeDouble:
		vals := make([]float64, n)
		for i, r := range records {
			v, ok := r[f.Name].(float64)
			if !ok {
				return nil, typeMismatch(f, i, r[f.Name])
			}
			vals[i] = v
		}
		return column.NewColumnDouble(f.Name, vals), nil
	case schema.TypeVarChar:
		vals := make([]string, n)
		for i, r := range records {
			v, ok := r[f.Name].(string)
			if !ok {
				return nil, typeMismatch(f, i, r[f.Name])
			}
			vals[i] = v
		}
		return column.NewColumnVarChar(f.Name, vals), nil
	case schema.TypeJSON:
		vals := make([][]byte, n)
		for i, r := range records {
			v, ok := r[f.Name].([]byte)
			if !ok {
				return nil, typeMismatch(f, i, r[f.Name])
			}
			vals[i] = v
		}
		return column.NewColumnJSONBytes(f.Name, vals), nil
	case schema.TypeFloatVector:
		vals := make([][]float32, n)
		for i, r := range records {
			v, ok := r[f.Name].([]float32)
			if !ok {
				return nil, typeMismatch(f, i, r[f.Name])
			}
			vals[i] = v
		}
		return column.NewColumnFloatVector(f.Name, f.Dim, vals), nil
	}
	return nil, fmt.Errorf("field %q: unsupported type %q", f.Name, f.Type)
}

func typeMismatch(f *schema.Field, row int, got interface{}) error {
	return fmt.Errorf("field %q row %d: got %T, want %s", f.Name, row, got, f.Type)
}

// idAt renders the primary key at index i as a string regardless of key type.
func idAt(ids column.Column, i int) string {
	if ids == nil {
		return ""
	}
	v, err := ids.Get(i)
	if err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}
