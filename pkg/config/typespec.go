package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/attrhub/attrhub-go/pkg/types"
)

// Structural kinds accepted in a type mapping.
const (
	KindRecord = "record"
	KindTable  = "table"
	KindArray  = "array"
)

// TypeSpec is a declared attribute type. In YAML it is either a type name
// ("int32", "date", or any other name for an opaque type) or a mapping
// with a kind:
//
//	{kind: record, name: point, fields: [{name: x, type: float64}]}
//	{kind: table, fields: [...], index: [id]}
//	{kind: array, element: string}
type TypeSpec struct {
	Name    string      `yaml:"name"`
	Kind    string      `yaml:"kind"`
	Fields  []FieldSpec `yaml:"fields"`
	Index   []string    `yaml:"index"`
	Element *TypeSpec   `yaml:"element"`
}

// FieldSpec is one record field.
type FieldSpec struct {
	Name string   `yaml:"name"`
	Type TypeSpec `yaml:"type"`
}

// UnmarshalYAML accepts a scalar type name or a mapping.
func (t *TypeSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*t = TypeSpec{Name: value.Value}
		return nil
	}
	type plain TypeSpec
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*t = TypeSpec(p)
	return nil
}

// Build resolves the spec to a types.Type. An empty spec is a string.
func (t TypeSpec) Build() (types.Type, error) {
	switch t.Kind {
	case "":
		if t.Name == "" {
			return types.String, nil
		}
		return types.Parse(t.Name), nil
	case KindRecord:
		return t.record()
	case KindTable:
		row, err := t.record()
		if err != nil {
			return nil, err
		}
		return types.NewTableType(row, t.Index...)
	case KindArray:
		if t.Element == nil {
			return nil, fmt.Errorf("array type needs an element")
		}
		elem, err := t.Element.Build()
		if err != nil {
			return nil, err
		}
		return types.NewArrayType(elem), nil
	default:
		return nil, fmt.Errorf("unknown type kind %q", t.Kind)
	}
}

func (t TypeSpec) record() (*types.RecordType, error) {
	fields := make([]types.Field, 0, len(t.Fields))
	for _, f := range t.Fields {
		ft, err := f.Type.Build()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		fields = append(fields, types.Field{Name: f.Name, Type: ft})
	}
	return types.NewRecordType(t.Name, fields...)
}
