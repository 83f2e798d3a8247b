package kql

import (
	"regexp"
	"strings"
)

// Query describes one SELECT level in the shape the compiler consumes.
// Where and Having hold rendered SQL predicates; Limit holds the rendered row count.
type Query struct {
	Lets     []LetBinding
	Source   Source
	Where    string
	Columns  []Expression
	Distinct bool
	GroupBy  []Expression
	Having   string
	OrderBy  []OrderItem
	Limit    string

	// HavingAggregates are summarized for HAVING but never projected.
	HavingAggregates []AliasedExpr
}

// OrderItem is an ORDER BY term.
type OrderItem struct {
	Expr Expression
	Desc bool
}

// Source is where a query reads rows from: a TableRef, a TextSource or a BindingRef.
type Source interface {
	source()
}

// TableRef is a cluster table, optionally in another database.
type TableRef struct {
	Schema string
	Name   string
}

// TextSource is KQL text used as a source, such as a stored view or a compiled subquery.
// It may begin with let statements.
type TextSource struct {
	Text  string
	Alias string
}

// BindingRef reads from a name bound by an earlier let statement.
type BindingRef struct {
	Name string
}

func (TableRef) source()   {}
func (TextSource) source() {}
func (BindingRef) source() {}

// LetBinding is a single `let name = expr;` statement.
type LetBinding struct {
	Name string
	Expr string
}

func (l LetBinding) String() string {
	return "let " + l.Name + " = " + l.Expr + ";"
}

var letPattern = regexp.MustCompile(`(?s)^let\s+([^=\s]+)\s*=\s*(.*)$`)

// SplitLets separates the let statements of a KQL text from its body.
// Text without a body, or with more than one, is malformed.
func SplitLets(text string) ([]LetBinding, string, error) {
	var (
		lets []LetBinding
		body string
	)
	for _, stmt := range splitTopLevel(text, ';') {
		if stmt == "" {
			continue
		}
		if m := letPattern.FindStringSubmatch(stmt); m != nil {
			if body != "" {
				return nil, "", malformed("let statement %q follows the query body", stmt)
			}
			lets = append(lets, LetBinding{Name: m[1], Expr: strings.TrimSpace(m[2])})
			continue
		}
		if body != "" {
			return nil, "", malformed("more than one query body in %q", text)
		}
		body = stmt
	}
	if body == "" {
		return nil, "", malformed("no query body after let statements in %q", text)
	}
	return lets, body, nil
}
