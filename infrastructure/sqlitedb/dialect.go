package sqlitedb

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/infrastructure/sqldb"
)

// Target names sqlite in query events.
const Target = "sqlite"

// TimeLayout is how date-times are stored. The width is fixed so text
// comparison orders them chronologically.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// Dialect renders SQL for SQLite. Scalar lists are stored as JSON arrays,
// date-times as UTC text in TimeLayout.
type Dialect struct{}

var _ sqldb.Dialect = Dialect{}

func (Dialect) Name() string { return Target }

func (Dialect) Placeholder(n int) string { return "?" + strconv.Itoa(n) }

func (Dialect) IntType() string   { return "INTEGER" }
func (Dialect) FloatType() string { return "REAL" }

func (Dialect) LimitOffset(take, skip int) string {
	var s string
	switch {
	case take >= 0:
		s = " LIMIT " + strconv.Itoa(take)
	case skip > 0:
		s = " LIMIT -1"
	}
	if skip > 0 {
		s += " OFFSET " + strconv.Itoa(skip)
	}
	return s
}

func (Dialect) JSON(expr string) string {
	return "json(" + expr + ")"
}

// Like uses LIKE, which sqlite folds case for ASCII only, when insensitive
// and GLOB otherwise.
func (Dialect) Like(col string, op fop.Op, value string, insensitive bool, arg func(any) string) string {
	if insensitive {
		var pattern string
		switch op {
		case fop.OpStartsWith:
			pattern = sqldb.LikePattern("", value, "%")
		case fop.OpEndsWith:
			pattern = sqldb.LikePattern("%", value, "")
		default:
			pattern = sqldb.LikePattern("%", value, "%")
		}
		return col + " LIKE " + arg(pattern) + ` ESCAPE '\'`
	}
	var pattern string
	switch op {
	case fop.OpStartsWith:
		pattern = sqldb.GlobPattern("", value, "*")
	case fop.OpEndsWith:
		pattern = sqldb.GlobPattern("*", value, "")
	default:
		pattern = sqldb.GlobPattern("*", value, "*")
	}
	return col + " GLOB " + arg(pattern)
}

func (Dialect) ListCondition(col string, op fop.Op, value any, arg func(any) string) (string, error) {
	switch op {
	case fop.OpEquals:
		p, err := encodeList(value)
		if err != nil {
			return "", err
		}
		return "json(" + col + ") = json(" + arg(p) + ")", nil
	case fop.OpHas:
		return "EXISTS (SELECT 1 FROM json_each(" + col + ") AS have WHERE have.value = " + arg(value) + ")", nil
	case fop.OpHasEvery:
		p, err := encodeList(value)
		if err != nil {
			return "", err
		}
		return "NOT EXISTS (SELECT 1 FROM json_each(" + arg(p) + ") AS want WHERE want.value NOT IN (SELECT have.value FROM json_each(" + col + ") AS have))", nil
	case fop.OpHasSome:
		p, err := encodeList(value)
		if err != nil {
			return "", err
		}
		return "EXISTS (SELECT 1 FROM json_each(" + col + ") AS have WHERE have.value IN (SELECT want.value FROM json_each(" + arg(p) + ") AS want))", nil
	case fop.OpIsEmpty:
		if empty, _ := value.(bool); empty {
			return "json_array_length(" + col + ") = 0", nil
		}
		return "json_array_length(" + col + ") > 0", nil
	}
	return "", fmt.Errorf("operator %s is not supported on lists", op)
}

func encodeList(v any) (string, error) {
	list, _ := v.([]string)
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (Dialect) Encode(f *schema.Field, v any) (any, error) {
	if f.List {
		if v == nil {
			return "[]", nil
		}
		return encodeList(v)
	}
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
			return t.UTC().Format(TimeLayout), nil
		}
	case schema.KindBool:
		if b, ok := v.(bool); ok {
			if b {
				return int64(1), nil
			}
			return int64(0), nil
		}
	}
	return v, nil
}

func (Dialect) Decode(f *schema.Field, v any) (any, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		if f.List {
			return []string{}, nil
		}
		return nil, nil
	}
	if f.List {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %s: unexpected %T for a list", f.Name, v)
		}
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		if out == nil {
			out = []string{}
		}
		return out, nil
	}
	switch f.Kind {
	case schema.KindString, schema.KindEnum:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case schema.KindInt:
		switch t := v.(type) {
		case int64:
			return t, nil
		case float64:
			return int64(t), nil
		}
	case schema.KindFloat:
		switch t := v.(type) {
		case float64:
			return t, nil
		case int64:
			return float64(t), nil
		}
	case schema.KindBool:
		switch t := v.(type) {
		case int64:
			return t != 0, nil
		case bool:
			return t, nil
		}
	case schema.KindDateTime:
		switch t := v.(type) {
		case string:
			ts, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			return ts.UTC(), nil
		case time.Time:
			return t.UTC(), nil
		}
	case schema.KindJSON:
		if s, ok := v.(string); ok {
			return json.RawMessage(s), nil
		}
	}
	return nil, fmt.Errorf("field %s: unexpected %T for %s", f.Name, v, f.Kind)
}
