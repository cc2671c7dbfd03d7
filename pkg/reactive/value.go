package reactive

import (
	"encoding/json"
	"fmt"
	"reflect"

	"reactivegraph/pkg/graph"
)

// Clone deep copies a JSON-compatible value so callers cannot alias the
// state held by a property. Maps with string keys, slices and arrays are
// copied recursively; scalars and other kinds are returned as is.
func Clone(value any) any {
	if value == nil {
		return nil
	}
	switch typed := value.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		json.Number:
		return typed
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = Clone(v)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = Clone(v)
		}
		return out
	}

	source := reflect.ValueOf(value)
	switch source.Kind() {
	case reflect.Map:
		if source.IsNil() || source.Type().Key().Kind() != reflect.String {
			return value
		}
		clone := reflect.MakeMapWithSize(source.Type(), source.Len())
		iter := source.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneInto(iter.Value(), source.Type().Elem()))
		}
		return clone.Interface()
	case reflect.Slice:
		if source.IsNil() {
			return value
		}
		clone := reflect.MakeSlice(source.Type(), source.Len(), source.Len())
		for i := 0; i < source.Len(); i++ {
			clone.Index(i).Set(cloneInto(source.Index(i), source.Type().Elem()))
		}
		return clone.Interface()
	default:
		return value
	}
}

func cloneInto(value reflect.Value, target reflect.Type) reflect.Value {
	if !value.IsValid() || (value.Kind() == reflect.Interface && value.IsNil()) {
		return reflect.Zero(target)
	}
	cloned := Clone(value.Interface())
	if cloned == nil {
		return reflect.Zero(target)
	}
	out := reflect.ValueOf(cloned)
	if !out.Type().AssignableTo(target) {
		if !out.Type().ConvertibleTo(target) {
			return value
		}
		out = out.Convert(target)
	}
	return out
}

// ValidateValue checks that value matches the data type.
func ValidateValue(dataType graph.DataType, value any) error {
	if dataType.Accepts(value) {
		return nil
	}
	return fmt.Errorf("%w: expected %s, got %s", ErrInvalidValue, dataType, graph.DataTypeOf(value))
}

// asFloat converts any JSON number representation to float64.
func asFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
