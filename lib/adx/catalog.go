package adx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Catalog answers metadata questions with management commands.
type Catalog struct {
	exec Executor
}

func NewCatalog(exec Executor) *Catalog {
	return &Catalog{exec: exec}
}

// ColumnSchema is one column of a table, view or function result.
type ColumnSchema struct {
	Name         string `json:"column_name"`
	CslType      string `json:"csl_type"`
	DatabaseType string `json:"type"`
	Nullable     bool   `json:"nullable"`
}

func (c *Catalog) names(ctx context.Context, db, cmd, column string) ([]string, error) {
	res, err := c.exec.Mgmt(ctx, db, cmd)
	if err != nil {
		return nil, err
	}
	return res.Strings(column), nil
}

func (c *Catalog) ListDatabases(ctx context.Context) ([]string, error) {
	return c.names(ctx, "", ".show databases | project DatabaseName", "DatabaseName")
}

func (c *Catalog) ListTables(ctx context.Context, db string) ([]string, error) {
	return c.names(ctx, db, ".show tables | project TableName", "TableName")
}

// ListViews returns materialized views followed by functions without parameters.
func (c *Catalog) ListViews(ctx context.Context, db string) ([]string, error) {
	var views, functions []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		views, err = c.names(gctx, db, ".show materialized-views | project Name", "Name")
		return err
	})
	g.Go(func() error {
		var err error
		functions, err = c.names(gctx, db, ".show functions | where Parameters == '()' | project Name", "Name")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(views)
	sort.Strings(functions)
	return append(views, functions...), nil
}

// Ping checks that the cluster answers commands.
func (c *Catalog) Ping(ctx context.Context, db string) error {
	_, err := c.exec.Mgmt(ctx, db, ".show tables")
	return err
}

type entitySchema struct {
	OrderedColumns []schemaColumn `json:"OrderedColumns"`
	OutputColumns  []schemaColumn `json:"OutputColumns"`
}

type schemaColumn struct {
	Name    string `json:"Name"`
	CslType string `json:"CslType"`
}

// GetTableSchema describes a table, a function or a materialized view, in that order of lookup.
func (c *Catalog) GetTableSchema(ctx context.Context, db, name string) ([]ColumnSchema, error) {
	quoted := quoteEntity(name)
	tables, err := c.ListTables(ctx, db)
	if err != nil {
		return nil, err
	}
	cmd := ".show materialized-view " + quoted + " schema as json"
	if slices.Contains(tables, name) {
		cmd = ".show table " + quoted + " schema as json"
	} else {
		functions, err := c.names(ctx, db, ".show functions | project Name", "Name")
		if err != nil {
			return nil, err
		}
		if slices.Contains(functions, name) {
			cmd = ".show function " + quoted + " schema as json"
		}
	}

	res, err := c.exec.Mgmt(ctx, db, cmd)
	if err != nil {
		return nil, err
	}
	raw := res.Strings("Schema")
	if len(raw) == 0 {
		return nil, &APIError{Code: http.StatusNotFound, Message: fmt.Sprintf("adx: %s not found", name)}
	}
	var schema entitySchema
	if err := json.Unmarshal([]byte(raw[0]), &schema); err != nil {
		return nil, Classify("decode schema", err)
	}
	cols := schema.OrderedColumns
	if len(cols) == 0 {
		cols = schema.OutputColumns
	}
	out := make([]ColumnSchema, 0, len(cols))
	for _, col := range cols {
		out = append(out, ColumnSchema{
			Name:         col.Name,
			CslType:      col.CslType,
			DatabaseType: DatabaseTypeName(col.CslType),
			Nullable:     true,
		})
	}
	return out, nil
}

func quoteEntity(name string) string {
	return `["` + strings.ReplaceAll(name, `"`, `\"`) + `"]`
}
