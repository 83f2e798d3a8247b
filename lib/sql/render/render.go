// Package render prints ast trees as text. With the zero Options it prints
// canonical SQL; the KQL translator supplies options that turn expressions
// into KQL syntax.
package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dodopizza/sql-to-kql/lib/sql/ast"
)

// Options controls spelling. The zero value prints canonical SQL.
type Options struct {
	// Operators maps upper-case SQL operators (AND, OR, NOT, =, <>) to their target spelling.
	Operators map[string]string
	// Identifier formats a possibly qualified identifier. nil joins the parts with dots,
	// double-quoting reserved words.
	Identifier func(parts []string) string
	// String formats a string literal. nil emits a SQL literal with '' doubling.
	String func(value string) string
	// Null replaces the NULL keyword when set.
	Null string
	// LowerBooleans emits true/false instead of TRUE/FALSE.
	LowerBooleans bool
	// MinimalParens parenthesizes binary expressions only where precedence requires it.
	MinimalParens bool
	// NotAsFunction renders NOT x as not(x).
	NotAsFunction bool
	// CaseAsFunction renders CASE expressions as case(cond, value, ..., else).
	CaseAsFunction bool
	// LimitAsTop moves LIMIT n into SELECT TOP n.
	LimitAsTop bool
	// Substitute may replace an expression with precomputed text before the default rendering.
	Substitute func(ast.Expr) (string, bool)
}

// Render prints node as canonical SQL.
func Render(node ast.Node) (string, error) {
	return RenderWith(node, Options{})
}

// RenderWith prints a statement or expression. Only SELECT, INSERT and CREATE VIEW statements have a text form.
func RenderWith(node ast.Node, opts Options) (string, error) {
	if node == nil {
		return "", errors.New("render: nil node")
	}
	p := &printer{opts: opts}
	node.Accept(p)
	if p.err != nil {
		return "", p.err
	}
	return strings.TrimSpace(p.out.String()), nil
}

// Expr prints a single expression.
func Expr(expr ast.Expr, opts Options) (string, error) {
	if expr == nil {
		return "", errors.New("render: nil expression")
	}
	p := &printer{opts: opts}
	p.expr(expr)
	if p.err != nil {
		return "", p.err
	}
	return p.out.String(), nil
}

// printer accumulates output and remembers the first error.
type printer struct {
	out  strings.Builder
	opts Options
	err  error
}

// Visit renders the root node itself and stops the walk.
func (p *printer) Visit(node ast.Node) ast.Visitor {
	switch n := node.(type) {
	case nil:
		return p
	case *ast.SelectStatement:
		p.selectStmt(n)
	case *ast.InsertStatement:
		p.insert(n)
	case *ast.CreateViewStatement:
		p.createView(n)
	case ast.Expr:
		p.expr(n)
	default:
		p.fail("render: unsupported node %T", n)
	}
	return nil
}

func (p *printer) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf(format, args...)
	}
}

func (p *printer) write(parts ...string) {
	for _, s := range parts {
		p.out.WriteString(s)
	}
}

// list prints n comma-separated items.
func (p *printer) list(n int, item func(i int)) {
	for i := 0; i < n; i++ {
		if i > 0 {
			p.write(", ")
		}
		item(i)
	}
}
