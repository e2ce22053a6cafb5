package postgresdb

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/infrastructure/sqldb"
)

// Target names postgres in query events.
const Target = "postgresql"

// Dialect renders SQL for PostgreSQL. Scalar lists are text[] columns and
// JSON fields jsonb.
type Dialect struct{}

var _ sqldb.Dialect = Dialect{}

func (Dialect) Name() string { return Target }

func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Dialect) IntType() string   { return "BIGINT" }
func (Dialect) FloatType() string { return "DOUBLE PRECISION" }

func (Dialect) LimitOffset(take, skip int) string {
	var s string
	if take >= 0 {
		s += " LIMIT " + strconv.Itoa(take)
	}
	if skip > 0 {
		s += " OFFSET " + strconv.Itoa(skip)
	}
	return s
}

func (Dialect) JSON(expr string) string {
	return "CAST(" + expr + " AS JSONB)"
}

func (Dialect) Like(col string, op fop.Op, value string, insensitive bool, arg func(any) string) string {
	var pattern string
	switch op {
	case fop.OpStartsWith:
		pattern = sqldb.LikePattern("", value, "%")
	case fop.OpEndsWith:
		pattern = sqldb.LikePattern("%", value, "")
	default:
		pattern = sqldb.LikePattern("%", value, "%")
	}
	kw := " LIKE "
	if insensitive {
		kw = " ILIKE "
	}
	return col + kw + arg(pattern) + ` ESCAPE '\'`
}

func (Dialect) ListCondition(col string, op fop.Op, value any, arg func(any) string) (string, error) {
	switch op {
	case fop.OpEquals:
		return col + " = CAST(" + arg(value) + " AS TEXT[])", nil
	case fop.OpHas:
		return arg(value) + " = ANY(" + col + ")", nil
	case fop.OpHasEvery:
		return col + " @> CAST(" + arg(value) + " AS TEXT[])", nil
	case fop.OpHasSome:
		return col + " && CAST(" + arg(value) + " AS TEXT[])", nil
	case fop.OpIsEmpty:
		if empty, _ := value.(bool); empty {
			return "cardinality(" + col + ") = 0", nil
		}
		return "cardinality(" + col + ") > 0", nil
	}
	return "", fmt.Errorf("operator %s is not supported on lists", op)
}

func (Dialect) Encode(f *schema.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Kind {
	case schema.KindJSON:
		switch t := v.(type) {
		case json.RawMessage:
			return string(t), nil
		case string:
			return t, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		return string(b), nil
	case schema.KindDateTime:
		if t, ok := v.(time.Time); ok {
			return t.UTC(), nil
		}
	}
	return v, nil
}

func (Dialect) Decode(f *schema.Field, v any) (any, error) {
	if v == nil {
		if f.List {
			return []string{}, nil
		}
		return nil, nil
	}
	if f.List {
		return decodeList(f, v)
	}
	switch f.Kind {
	case schema.KindString, schema.KindEnum:
		switch t := v.(type) {
		case string:
			return t, nil
		case []byte:
			return string(t), nil
		}
	case schema.KindInt:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int(), nil
		case reflect.Float32, reflect.Float64:
			return int64(rv.Float()), nil
		}
	case schema.KindFloat:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			return rv.Float(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), nil
		}
	case schema.KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case schema.KindDateTime:
		if t, ok := v.(time.Time); ok {
			return t.UTC(), nil
		}
	case schema.KindJSON:
		switch t := v.(type) {
		case string:
			return json.RawMessage(t), nil
		case []byte:
			return json.RawMessage(append([]byte(nil), t...)), nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		return json.RawMessage(b), nil
	}
	return nil, fmt.Errorf("field %s: unexpected %T for %s", f.Name, v, f.Kind)
}

func decodeList(f *schema.Field, v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("field %s: list element %d is %T", f.Name, i, e)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("field %s: unexpected %T for a list", f.Name, v)
}
