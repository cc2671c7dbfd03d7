package graph

import (
	"encoding/json"
	"fmt"
)

// Mutability controls whether a property accepts writes after creation.
type Mutability string

// Supported mutability flags.
const (
	Mutable   Mutability = "mutable"
	Immutable Mutability = "immutable"
)

// SocketType describes whether a property acts as an input or output socket.
type SocketType string

// Supported socket types.
const (
	SocketNone   SocketType = "none"
	SocketInput  SocketType = "input"
	SocketOutput SocketType = "output"
)

// DataType is the JSON data type of a property value.
type DataType string

// Supported data types.
const (
	DataTypeNull   DataType = "null"
	DataTypeBool   DataType = "bool"
	DataTypeNumber DataType = "number"
	DataTypeString DataType = "string"
	DataTypeArray  DataType = "array"
	DataTypeObject DataType = "object"
	DataTypeAny    DataType = "any"
)

// DefaultValue returns the zero JSON value for the data type.
func (d DataType) DefaultValue() any {
	switch d {
	case DataTypeBool:
		return false
	case DataTypeNumber:
		return float64(0)
	case DataTypeString:
		return ""
	case DataTypeArray:
		return []any{}
	case DataTypeObject:
		return map[string]any{}
	default:
		return nil
	}
}

// Accepts reports whether value is of this data type.
func (d DataType) Accepts(value any) bool {
	if d == DataTypeAny || d == "" {
		return true
	}
	return DataTypeOf(value) == d
}

// DataTypeOf classifies a JSON-compatible Go value.
func DataTypeOf(value any) DataType {
	switch value.(type) {
	case nil:
		return DataTypeNull
	case bool:
		return DataTypeBool
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return DataTypeNumber
	case string:
		return DataTypeString
	case []any:
		return DataTypeArray
	case map[string]any:
		return DataTypeObject
	default:
		return DataTypeAny
	}
}

// PropertyType describes one property of a component, entity or relation type.
type PropertyType struct {
	Name       string     `json:"name" yaml:"name"`
	DataType   DataType   `json:"data_type" yaml:"data_type"`
	Mutability Mutability `json:"mutability" yaml:"mutability"`
	SocketType SocketType `json:"socket_type,omitempty" yaml:"socket_type,omitempty"`
}

// NewPropertyType constructs a mutable property type without a socket.
func NewPropertyType(name string, dataType DataType) PropertyType {
	return PropertyType{Name: name, DataType: dataType, Mutability: Mutable, SocketType: SocketNone}
}

// InputProperty constructs a mutable input socket.
func InputProperty(name string, dataType DataType) PropertyType {
	return PropertyType{Name: name, DataType: dataType, Mutability: Mutable, SocketType: SocketInput}
}

// OutputProperty constructs a mutable output socket.
func OutputProperty(name string, dataType DataType) PropertyType {
	return PropertyType{Name: name, DataType: dataType, Mutability: Mutable, SocketType: SocketOutput}
}

// Validate checks that the property type has a name and a known data type.
func (p PropertyType) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("property type: name required")
	}
	switch p.DataType {
	case DataTypeNull, DataTypeBool, DataTypeNumber, DataTypeString, DataTypeArray, DataTypeObject, DataTypeAny:
	default:
		return fmt.Errorf("property type %s: unknown data type %q", p.Name, p.DataType)
	}
	switch p.Mutability {
	case Mutable, Immutable, "":
	default:
		return fmt.Errorf("property type %s: unknown mutability %q", p.Name, p.Mutability)
	}
	return nil
}

// mergePropertyTypes appends the property types from src that are not yet
// present in dst (first definition wins).
func mergePropertyTypes(dst []PropertyType, src []PropertyType) []PropertyType {
	seen := make(map[string]struct{}, len(dst))
	for _, p := range dst {
		seen[p.Name] = struct{}{}
	}
	for _, p := range src {
		if _, ok := seen[p.Name]; ok {
			continue
		}
		seen[p.Name] = struct{}{}
		dst = append(dst, p)
	}
	return dst
}
