package config

import (
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Scalar is one of the three leaf value kinds the matrix DSL supports.
type Scalar struct {
	str     string
	num     float64
	boolean bool
	kind    scalarKind
}

type scalarKind int

const (
	scalarString scalarKind = iota
	scalarNumber
	scalarBool
)

// String returns the canonical string form used for template substitution.
func (s Scalar) String() string {
	switch s.kind {
	case scalarNumber:
		return strconv.FormatFloat(s.num, 'g', -1, 64)
	case scalarBool:
		return strconv.FormatBool(s.boolean)
	default:
		return s.str
	}
}

// NewStringScalar builds a string-kinded Scalar directly, without going
// through YAML decoding. Used for synthetic bindings such as `datetime`.
func NewStringScalar(s string) Scalar {
	return Scalar{str: s, kind: scalarString}
}

// MarshalYAML emits the scalar as its native YAML type, so a saved and
// reloaded config round-trips a number or bool as such rather than a quoted
// string.
func (s Scalar) MarshalYAML() (interface{}, error) {
	switch s.kind {
	case scalarNumber:
		return s.num, nil
	case scalarBool:
		return s.boolean, nil
	default:
		return s.str, nil
	}
}

func scalarFromNode(n *yaml.Node) (Scalar, error) {
	switch n.Tag {
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Scalar{}, err
		}
		return Scalar{num: f, kind: scalarNumber}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Scalar{}, err
		}
		return Scalar{boolean: b, kind: scalarBool}, nil
	default:
		var s string
		if err := n.Decode(&s); err != nil {
			return Scalar{}, err
		}
		return Scalar{str: s, kind: scalarString}, nil
	}
}

// Value is either a Scalar or a Record (map of field name to Scalar). Exactly
// one of IsRecord()/IsScalar() is true for a well-formed Value.
type Value struct {
	scalar   Scalar
	record   map[string]Scalar
	isRecord bool
}

func (v Value) IsRecord() bool { return v.isRecord }
func (v Value) IsScalar() bool { return !v.isRecord }

// Scalar returns the scalar underlying this value. Only valid if IsScalar().
func (v Value) Scalar() Scalar { return v.scalar }

// Field looks up a named field on a record value. Only valid if IsRecord().
func (v Value) Field(name string) (Scalar, bool) {
	s, ok := v.record[name]
	return s, ok
}

// FieldNames returns the sorted field names of a record value.
func (v Value) FieldNames() []string {
	names := make([]string, 0, len(v.record))
	for k := range v.record {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// NewScalarValue wraps a Scalar as a scalar Value.
func NewScalarValue(s Scalar) Value {
	return Value{scalar: s}
}

// NewRecordValue wraps a field map as a record Value. Used to rebuild a
// binding for template expansion from already-flattened "var.field" string
// columns (e.g. a Result Table row's bindings).
func NewRecordValue(fields map[string]Scalar) Value {
	return Value{record: fields, isRecord: true}
}

// MarshalYAML emits a scalar value as its native type, or a record value as
// a plain mapping of field name to scalar.
func (v Value) MarshalYAML() (interface{}, error) {
	if v.isRecord {
		return v.record, nil
	}
	return v.scalar, nil
}

// UnmarshalYAML decodes a single binding value (used by exclude/include
// entries, where each matrix variable maps directly to one value rather
// than a list of values).
func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	val, err := valueFromNode(n)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func valueFromNode(n *yaml.Node) (Value, error) {
	if n.Kind == yaml.MappingNode {
		record := make(map[string]Scalar, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			sc, err := scalarFromNode(n.Content[i+1])
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", key, err)
			}
			record[key] = sc
		}
		return Value{record: record, isRecord: true}, nil
	}
	sc, err := scalarFromNode(n)
	if err != nil {
		return Value{}, err
	}
	return Value{scalar: sc}, nil
}

// Binding is a fully-resolved mapping from variable name to its value, as
// handed to the template expander.
type Binding map[string]Value

// VarList is the list of values declared for one matrix variable: either
// all-scalar or all-record with identical field names.
type VarList []Value

// UnmarshalYAML decodes a matrix variable's value list, accepting either a
// non-empty list of scalars or a non-empty list of records sharing field
// names. Mixed lists are rejected by the validator, not here, so that the
// validator can produce a precise error message with the key path.
func (vl *VarList) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.SequenceNode {
		return fmt.Errorf("expected a list, got %v", n.Tag)
	}
	out := make(VarList, 0, len(n.Content))
	for _, item := range n.Content {
		v, err := valueFromNode(item)
		if err != nil {
			return err
		}
		out = append(out, v)
	}
	*vl = out
	return nil
}
