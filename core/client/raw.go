package client

import (
	"context"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/infrastructure/sqldb"
)

// QueryRaw runs a query with ? markers for its arguments, which are bound
// as parameters. The markers are rewritten for the backend.
func (c *Client) QueryRaw(ctx context.Context, query string, args ...any) ([]repositories.Row, error) {
	s, b, err := c.store(ctx)
	if err != nil {
		return nil, err
	}
	return s.QueryRaw(ctx, rebind(b, query), args...)
}

// ExecuteRaw runs a statement with ? markers and returns the affected row
// count.
func (c *Client) ExecuteRaw(ctx context.Context, query string, args ...any) (int64, error) {
	s, b, err := c.store(ctx)
	if err != nil {
		return 0, err
	}
	return s.ExecRaw(ctx, rebind(b, query), args...)
}

// QueryRawUnsafe sends query as written, with the backend's own
// placeholders. Callers building query from input are open to injection.
func (c *Client) QueryRawUnsafe(ctx context.Context, query string, args ...any) ([]repositories.Row, error) {
	s, _, err := c.store(ctx)
	if err != nil {
		return nil, err
	}
	return s.QueryRaw(ctx, query, args...)
}

// ExecuteRawUnsafe is QueryRawUnsafe for statements.
func (c *Client) ExecuteRawUnsafe(ctx context.Context, query string, args ...any) (int64, error) {
	s, _, err := c.store(ctx)
	if err != nil {
		return 0, err
	}
	return s.ExecRaw(ctx, query, args...)
}

func rebind(b *backend, query string) string {
	if b.dialect == nil {
		return query
	}
	return sqldb.Rebind(b.dialect, query)
}
