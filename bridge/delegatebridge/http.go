package delegatebridge

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jrazmi/growlog/bridge/scaffolding/fopbridge"
	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/core/scaffolding/fop"
)

type Row = repositories.Row

func (b *bridge) criteria(c *gin.Context) map[string]any {
	return map[string]any{b.model.PrimaryKey().Name: c.Param("id")}
}

func (b *bridge) shape(c *gin.Context) (fop.Shape, error) {
	return fopbridge.ParseShapeParams(b.schema, b.model, fopbridge.ParseQueryParams(c))
}

// readBody decodes a JSON object body. An empty body reads as {}.
func readBody(c *gin.Context) (map[string]any, error) {
	data, err := c.GetRawData()
	if err != nil {
		return nil, fop.Invalid("body", "%v", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fop.Invalid("body", "expected a JSON object: %v", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

func object(raw map[string]any, key string) (map[string]any, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fop.Invalid(key, "expected an object")
	}
	return obj, nil
}

func (b *bridge) where(raw map[string]any) (fop.Predicate, error) {
	obj, err := object(raw, "where")
	if err != nil || obj == nil {
		return nil, err
	}
	return fop.ParseWhere(b.schema, b.model, obj, "where")
}

func (b *bridge) httpList(c *gin.Context) {
	args, page, err := fopbridge.ParseList(b.schema, b.model, fopbridge.ParseQueryParams(c))
	if err != nil {
		c.Error(err)
		return
	}
	rows, err := b.delegate.FindMany(c.Request.Context(), args)
	if err != nil {
		c.Error(err)
		return
	}
	resp, err := fopbridge.NewPaginatedResponseStringCursor(rows, page, fopbridge.RowCursor[Row](b.model, args))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (b *bridge) httpGetByID(c *gin.Context) {
	shape, err := b.shape(c)
	if err != nil {
		c.Error(err)
		return
	}
	row, err := b.delegate.FindUniqueOrError(c.Request.Context(), b.criteria(c), shape)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, fopbridge.NewRecordResponse(row))
}

func (b *bridge) httpCreate(c *gin.Context) {
	shape, err := b.shape(c)
	if err != nil {
		c.Error(err)
		return
	}
	data, err := readBody(c)
	if err != nil {
		c.Error(err)
		return
	}
	row, err := b.delegate.Create(c.Request.Context(), data, shape)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, fopbridge.NewRecordResponse(row))
}

func (b *bridge) httpUpdate(c *gin.Context) {
	shape, err := b.shape(c)
	if err != nil {
		c.Error(err)
		return
	}
	data, err := readBody(c)
	if err != nil {
		c.Error(err)
		return
	}
	row, err := b.delegate.Update(c.Request.Context(), b.criteria(c), data, shape)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, fopbridge.NewRecordResponse(row))
}

func (b *bridge) httpDelete(c *gin.Context) {
	shape, err := b.shape(c)
	if err != nil {
		c.Error(err)
		return
	}
	row, err := b.delegate.Delete(c.Request.Context(), b.criteria(c), shape)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, fopbridge.NewRecordResponse(row))
}

// httpCreateMany reads {"data": [...], "skipDuplicates": bool}.
func (b *bridge) httpCreateMany(c *gin.Context) {
	raw, err := readBody(c)
	if err != nil {
		c.Error(err)
		return
	}
	list, ok := raw["data"].([]any)
	if !ok {
		c.Error(fop.Invalid("data", "expected a list of objects"))
		return
	}
	rows := make([]Row, 0, len(list))
	for _, elem := range list {
		obj, ok := elem.(map[string]any)
		if !ok {
			c.Error(fop.Invalid("data", "expected a list of objects"))
			return
		}
		rows = append(rows, obj)
	}
	skip, _ := raw["skipDuplicates"].(bool)

	n, err := b.delegate.CreateMany(c.Request.Context(), rows, skip)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, fopbridge.AffectedResponse{Count: n})
}

// httpUpsert reads {"where": {...}, "create": {...}, "update": {...}}.
func (b *bridge) httpUpsert(c *gin.Context) {
	shape, err := b.shape(c)
	if err != nil {
		c.Error(err)
		return
	}
	raw, err := readBody(c)
	if err != nil {
		c.Error(err)
		return
	}
	var parts [3]map[string]any
	for i, key := range []string{"where", "create", "update"} {
		if parts[i], err = object(raw, key); err != nil {
			c.Error(err)
			return
		}
	}
	if parts[0] == nil {
		c.Error(fop.Invalid("where", "required"))
		return
	}
	if parts[2] == nil {
		parts[2] = map[string]any{}
	}

	row, err := b.delegate.Upsert(c.Request.Context(), parts[0], parts[1], parts[2], shape)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, fopbridge.NewRecordResponse(row))
}

// httpUpdateMany reads {"where": {...}, "data": {...}}.
func (b *bridge) httpUpdateMany(c *gin.Context) {
	raw, err := readBody(c)
	if err != nil {
		c.Error(err)
		return
	}
	where, err := b.where(raw)
	if err != nil {
		c.Error(err)
		return
	}
	data, err := object(raw, "data")
	if err != nil {
		c.Error(err)
		return
	}

	n, err := b.delegate.UpdateMany(c.Request.Context(), where, data)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, fopbridge.AffectedResponse{Count: n})
}

// httpDeleteMany reads {"where": {...}, "limit": n}.
func (b *bridge) httpDeleteMany(c *gin.Context) {
	raw, err := readBody(c)
	if err != nil {
		c.Error(err)
		return
	}
	where, err := b.where(raw)
	if err != nil {
		c.Error(err)
		return
	}
	limit := 0
	if v, ok := raw["limit"]; ok {
		f, ok := v.(float64)
		if !ok || f != float64(int(f)) {
			c.Error(fop.Invalid("limit", "expected an integer"))
			return
		}
		limit = int(f)
	}

	n, err := b.delegate.DeleteMany(c.Request.Context(), where, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, fopbridge.AffectedResponse{Count: n})
}

func (b *bridge) findArgs(c *gin.Context) (fop.FindArgs, error) {
	raw, err := readBody(c)
	if err != nil {
		return fop.FindArgs{}, err
	}
	return fop.ParseFindArgs(b.schema, b.model, raw, "")
}

func (b *bridge) httpQuery(c *gin.Context) {
	args, err := b.findArgs(c)
	if err != nil {
		c.Error(err)
		return
	}
	rows, err := b.delegate.FindMany(c.Request.Context(), args)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, fopbridge.NewNonPaginatedRecords(rows))
}

func (b *bridge) httpFirst(c *gin.Context) {
	args, err := b.findArgs(c)
	if err != nil {
		c.Error(err)
		return
	}
	row, err := b.delegate.FindFirstOrError(c.Request.Context(), args)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, fopbridge.NewRecordResponse(row))
}

func (b *bridge) httpCount(c *gin.Context) {
	args, err := b.findArgs(c)
	if err != nil {
		c.Error(err)
		return
	}
	n, err := b.delegate.Count(c.Request.Context(), args)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, fopbridge.CountResponse{Count: n})
}

func (b *bridge) httpAggregate(c *gin.Context) {
	raw, err := readBody(c)
	if err != nil {
		c.Error(err)
		return
	}
	args, err := fop.ParseAggregate(b.schema, b.model, raw)
	if err != nil {
		c.Error(err)
		return
	}
	res, err := b.delegate.Aggregate(c.Request.Context(), args)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (b *bridge) httpGroupBy(c *gin.Context) {
	raw, err := readBody(c)
	if err != nil {
		c.Error(err)
		return
	}
	args, err := fop.ParseGroupBy(b.schema, b.model, raw)
	if err != nil {
		c.Error(err)
		return
	}
	groups, err := b.delegate.GroupBy(c.Request.Context(), args)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, fopbridge.NewNonPaginatedRecords(flattenGroups(groups)))
}

// flattenGroups puts group keys next to their aggregates, the shape
// clients read group rows in.
func flattenGroups(groups []fop.GroupRow) []map[string]any {
	out := make([]map[string]any, 0, len(groups))
	for _, g := range groups {
		row := make(map[string]any, len(g.Keys)+5)
		for k, v := range g.Keys {
			row[k] = v
		}
		if len(g.Count) > 0 {
			row["_count"] = g.Count
		}
		if len(g.Avg) > 0 {
			row["_avg"] = g.Avg
		}
		if len(g.Sum) > 0 {
			row["_sum"] = g.Sum
		}
		if len(g.Min) > 0 {
			row["_min"] = g.Min
		}
		if len(g.Max) > 0 {
			row["_max"] = g.Max
		}
		out = append(out, row)
	}
	return out
}
