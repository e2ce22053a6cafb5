package fopbridge

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jrazmi/growlog/core/scaffolding/fop"
	"github.com/jrazmi/growlog/core/schema"
)

// QueryParams are the list parameters read from a query string.
type QueryParams struct {
	Limit   string
	Cursor  string
	Order   []string
	Where   string
	Select  string
	Omit    string
	Include string
}

func ParseQueryParams(c *gin.Context) QueryParams {
	return QueryParams{
		Limit:   c.Query("limit"),
		Cursor:  c.Query("cursor"),
		Order:   c.QueryArray("order"),
		Where:   c.Query("where"),
		Select:  c.Query("select"),
		Omit:    c.Query("omit"),
		Include: c.Query("include"),
	}
}

// ParseShapeParams reads select, omit and include lists for model m.
func ParseShapeParams(s *schema.Schema, m *schema.Model, qp QueryParams) (fop.Shape, error) {
	raw := map[string]any{}
	addFlags(raw, "select", qp.Select)
	addFlags(raw, "omit", qp.Omit)
	addFlags(raw, "include", qp.Include)
	return fop.ParseShape(s, m, raw, "")
}

// ParseList turns list parameters into find arguments for model m and the
// page they describe. Each order parameter reads "{field},{direction}"; the
// primary key always closes the ordering so cursors stay stable.
func ParseList(s *schema.Schema, m *schema.Model, qp QueryParams) (fop.FindArgs, fop.PageStringCursor, error) {
	page, err := fop.ParsePageStringCursor(qp.Limit, qp.Cursor)
	if err != nil {
		return fop.FindArgs{}, fop.PageStringCursor{}, fop.Invalid("limit", "%v", err)
	}

	raw := map[string]any{}
	if qp.Where != "" {
		var where map[string]any
		if err := json.Unmarshal([]byte(qp.Where), &where); err != nil {
			return fop.FindArgs{}, page, fop.Invalid("where", "expected a JSON object: %v", err)
		}
		raw["where"] = where
	}
	addFlags(raw, "select", qp.Select)
	addFlags(raw, "omit", qp.Omit)
	addFlags(raw, "include", qp.Include)

	var orderBy []any
	for _, o := range qp.Order {
		field, dir, _ := strings.Cut(o, ",")
		if dir == "" {
			dir = string(fop.ASC)
		}
		orderBy = append(orderBy, map[string]any{strings.TrimSpace(field): strings.ToLower(strings.TrimSpace(dir))})
	}
	if len(orderBy) > 0 {
		raw["orderBy"] = orderBy
	}

	args, err := fop.ParseFindArgs(s, m, raw, "")
	if err != nil {
		return fop.FindArgs{}, page, err
	}

	pk := m.PrimaryKey().Name
	ordered := false
	for _, o := range args.OrderBy {
		if o.Field == pk {
			ordered = true
		}
	}
	if !ordered {
		args.OrderBy = append(args.OrderBy, fop.Asc(pk))
	}

	cursor, err := fop.DecodeCursor[string, any](page.Cursor)
	if err != nil {
		return fop.FindArgs{}, page, fop.Invalid("cursor", "%v", err)
	}
	if cursor != nil {
		args.Cursor = map[string]any{pk: cursor.PK}
		args.Skip = 1
	}
	args.Take = fop.Take(page.Take())
	return args, page, nil
}

// RowCursor returns the cursor function of rows of model m listed by args.
func RowCursor[R ~map[string]any](m *schema.Model, args fop.FindArgs) func(R) (string, error) {
	pk := m.PrimaryKey().Name
	lead := pk
	if len(args.OrderBy) > 0 {
		lead = args.OrderBy[0].Field
	}
	return func(row R) (string, error) {
		id, _ := row[pk].(string)
		return fop.Cursor[string, any]{PK: id, OrderValue: row[lead]}.Encode()
	}
}

func addFlags(raw map[string]any, key, list string) {
	if list == "" {
		return
	}
	flags := map[string]any{}
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			flags[name] = true
		}
	}
	if len(flags) > 0 {
		raw[key] = flags
	}
}
