package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/jrazmi/growlog/sdk/validation"
)

// Canonical in-memory representations, per kind:
//
//	String, Enum -> string
//	Int          -> int64
//	Float        -> float64
//	Bool         -> bool
//	DateTime     -> time.Time (UTC)
//	Json         -> json.RawMessage
//	lists        -> []string
//
// A nil value stays nil.

// Normalize converts v into the canonical representation for f.
func Normalize(f *Field, v any) (any, error) {
	if isNil(v) {
		if f.List {
			return []string{}, nil
		}
		if !f.Nullable {
			return nil, fmt.Errorf("field %s: null value for required field", f.Name)
		}
		return nil, nil
	}
	if f.List {
		return normalizeList(f, v)
	}
	return NormalizeScalar(f, v)
}

// NormalizeScalar converts a single (non-list) value for f. It is also used
// for the elements of list filters.
func NormalizeScalar(f *Field, v any) (any, error) {
	if isNil(v) {
		return nil, nil
	}
	rv := reflect.Indirect(reflect.ValueOf(v))
	v = rv.Interface()

	switch f.Kind {
	case KindString:
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
	case KindEnum:
		if rv.Kind() == reflect.String {
			s := rv.String()
			if f.Enum != nil && !f.Enum.Has(s) {
				return nil, fmt.Errorf("field %s: %q is not a valid %s", f.Name, s, f.Enum.Name)
			}
			return s, nil
		}
	case KindInt:
		return toInt(f, rv)
	case KindFloat:
		return toFloat(f, rv)
	case KindBool:
		if rv.Kind() == reflect.Bool {
			return rv.Bool(), nil
		}
	case KindDateTime:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				parsed, err = validation.ParseFlexibleDate(t)
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", f.Name, err)
				}
			}
			return parsed.UTC(), nil
		}
	case KindJSON:
		return toJSON(f, v)
	}
	return nil, fmt.Errorf("field %s: cannot use %T as %s", f.Name, v, f.Kind)
}

func normalizeList(f *Field, v any) ([]string, error) {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("field %s: expected a list, got %T", f.Name, v)
	}
	out := make([]string, 0, rv.Len())
	for i := range rv.Len() {
		elem, err := NormalizeScalar(f, rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		s, ok := elem.(string)
		if !ok {
			return nil, fmt.Errorf("field %s: list element %d is not a string", f.Name, i)
		}
		out = append(out, s)
	}
	return out, nil
}

func toInt(f *Field, rv reflect.Value) (any, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		fl := rv.Float()
		if fl != math.Trunc(fl) {
			return nil, fmt.Errorf("field %s: %v is not an integer", f.Name, fl)
		}
		return int64(fl), nil
	}
	if n, ok := rv.Interface().(json.Number); ok {
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		return i, nil
	}
	return nil, fmt.Errorf("field %s: cannot use %s as Int", f.Name, rv.Type())
}

func toFloat(f *Field, rv reflect.Value) (any, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	if n, ok := rv.Interface().(json.Number); ok {
		fl, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		return fl, nil
	}
	return nil, fmt.Errorf("field %s: cannot use %s as Float", f.Name, rv.Type())
}

func toJSON(f *Field, v any) (any, error) {
	switch raw := v.(type) {
	case json.RawMessage:
		if !json.Valid(raw) {
			return nil, fmt.Errorf("field %s: invalid JSON", f.Name)
		}
		return append(json.RawMessage(nil), raw...), nil
	case []byte:
		if !json.Valid(raw) {
			return nil, fmt.Errorf("field %s: invalid JSON", f.Name)
		}
		return json.RawMessage(append([]byte(nil), raw...)), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.Name, err)
	}
	return json.RawMessage(data), nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
