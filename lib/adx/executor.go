package adx

import (
	"context"
	"time"
)

// Language selects the query language a text is written in.
type Language string

const (
	LanguageKQL Language = "kql"
	LanguageSQL Language = "sql"
)

// Column describes one result column. Type is the Kusto column type, such as long or datetime.
type Column struct {
	Name string
	Type string
}

// Result is the primary result table of a request.
type Result struct {
	Columns  []Column
	Rows     [][]any
	Duration time.Duration
}

// Executor runs queries and management commands against a cluster.
type Executor interface {
	Query(ctx context.Context, db, text string, lang Language) (*Result, error)
	Mgmt(ctx context.Context, db, cmd string) (*Result, error)
}

// ColumnIndex returns the position of the named column or -1.
func (r *Result) ColumnIndex(name string) int {
	if r == nil {
		return -1
	}
	for i, c := range r.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Strings returns the values of the named column rendered as text.
func (r *Result) Strings(name string) []string {
	idx := r.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		if idx < len(row) {
			out = append(out, textValue(row[idx]))
		}
	}
	return out
}
