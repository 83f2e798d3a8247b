package driver

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"

	"k8s.io/klog/v2"

	"github.com/dodopizza/sql-to-kql/lib/adx"
	"github.com/dodopizza/sql-to-kql/lib/kql"
	"github.com/dodopizza/sql-to-kql/lib/sql/ast"
	"github.com/dodopizza/sql-to-kql/lib/sql/parser"
	"github.com/dodopizza/sql-to-kql/lib/sql/render"
	"github.com/dodopizza/sql-to-kql/lib/store"
)

// ErrNotSupported is returned for transactions, which clusters do not have.
var ErrNotSupported = errors.New("driver: transactions are not supported")

type conn struct {
	exec     adx.Executor
	closer   io.Closer
	database string
	lang     adx.Language
	provider *store.Provider
	closed   bool
}

var (
	_ driver.Conn               = (*conn)(nil)
	_ driver.ConnPrepareContext = (*conn)(nil)
	_ driver.QueryerContext     = (*conn)(nil)
	_ driver.ExecerContext      = (*conn)(nil)
	_ driver.Pinger             = (*conn)(nil)
	_ driver.NamedValueChecker  = (*conn)(nil)
)

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *conn) PrepareContext(_ context.Context, query string) (driver.Stmt, error) {
	if c.closed {
		return nil, driver.ErrBadConn
	}
	return &stmt{conn: c, query: query}, nil
}

func (c *conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

func (c *conn) Begin() (driver.Tx, error) {
	return nil, ErrNotSupported
}

func (c *conn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return nil, ErrNotSupported
}

func (c *conn) Ping(ctx context.Context) error {
	if c.closed {
		return driver.ErrBadConn
	}
	return adx.NewCatalog(c.exec).Ping(ctx, c.database)
}

// CheckNamedValue accepts every argument as is. Interpolate decides what it can render.
func (c *conn) CheckNamedValue(*driver.NamedValue) error {
	return nil
}

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	res, err := c.run(ctx, query, args)
	if err != nil {
		return nil, err
	}
	return newRows(res), nil
}

// ExecContext runs management commands and other statements whose rows are not needed.
// RowsAffected reports how many rows the cluster returned.
func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	res, err := c.run(ctx, query, args)
	if err != nil {
		return nil, err
	}
	return driver.RowsAffected(len(res.Rows)), nil
}

func (c *conn) run(ctx context.Context, query string, args []driver.NamedValue) (*adx.Result, error) {
	if c.closed {
		return nil, driver.ErrBadConn
	}
	text, err := Interpolate(query, args)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)

	var res *adx.Result
	switch {
	case strings.HasPrefix(text, "."):
		res, err = c.exec.Mgmt(ctx, c.database, text)
	case isSelect(text):
		compiled, lang, cerr := c.compile(text)
		if cerr != nil {
			return nil, cerr
		}
		klog.V(4).InfoS("Compiled statement", "language", lang, "query", compiled)
		res, err = c.exec.Query(ctx, c.database, compiled, lang)
	default:
		res, err = c.exec.Query(ctx, c.database, text, adx.LanguageKQL)
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &adx.Result{}
	}
	return res, nil
}

// compile turns a SELECT into the text the connection's language expects.
func (c *conn) compile(text string) (string, adx.Language, error) {
	stmt, err := parser.Parse(text)
	if err != nil {
		return "", "", err
	}
	sel, ok := stmt.(*ast.SelectStatement)
	if !ok {
		return "", "", fmt.Errorf("driver: expected a SELECT statement, got %T", stmt)
	}
	if c.lang == adx.LanguageSQL {
		out, err := render.RenderWith(sel, render.Options{LimitAsTop: true})
		return out, adx.LanguageSQL, err
	}
	out, err := kql.TranslateSelect(sel, c.provider)
	return out, adx.LanguageKQL, err
}

func isSelect(text string) bool {
	word, _, _ := strings.Cut(text, " ")
	if i := strings.IndexAny(word, "\n\t\r("); i >= 0 {
		word = word[:i]
	}
	return strings.EqualFold(word, "select") || strings.EqualFold(word, "with")
}

type stmt struct {
	conn  *conn
	query string
}

var (
	_ driver.StmtQueryContext = (*stmt)(nil)
	_ driver.StmtExecContext  = (*stmt)(nil)
)

func (s *stmt) Close() error { return nil }

func (s *stmt) NumInput() int { return countPlaceholders(s.query) }

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), named(args))
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), named(args))
}

func (s *stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.conn.ExecContext(ctx, s.query, args)
}

func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.conn.QueryContext(ctx, s.query, args)
}

func named(args []driver.Value) []driver.NamedValue {
	out := make([]driver.NamedValue, len(args))
	for i, v := range args {
		out[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return out
}
