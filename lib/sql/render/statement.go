package render

import (
	"strings"
	"unicode"

	"github.com/dodopizza/sql-to-kql/lib/sql/ast"
	"github.com/dodopizza/sql-to-kql/lib/sql/token"
)

func (p *printer) selectStmt(s *ast.SelectStatement) {
	if s == nil {
		p.fail("render: nil select")
		return
	}
	if s.With != nil && len(s.With.CTEs) > 0 {
		p.with(s.With)
		p.write(" ")
	}

	p.write("SELECT ")
	if s.Distinct {
		p.write("DISTINCT ")
	}
	asTop := p.opts.LimitAsTop && s.Limit != nil && s.Limit.Count != nil
	if asTop {
		p.write("TOP ")
		p.expr(s.Limit.Count)
		p.write(" ")
	}
	p.list(len(s.Columns), func(i int) {
		p.expr(s.Columns[i].Expr)
		if alias := s.Columns[i].Alias; alias != "" {
			p.write(" AS ", p.identifier([]string{alias}))
		}
	})

	if s.From != nil {
		p.write(" FROM ")
		p.table(s.From)
	}
	if s.Where != nil {
		p.write(" WHERE ")
		p.expr(s.Where)
	}
	if len(s.GroupBy) > 0 {
		p.write(" GROUP BY ")
		p.exprs(s.GroupBy)
	}
	if s.Having != nil {
		p.write(" HAVING ")
		p.expr(s.Having)
	}
	if len(s.OrderBy) > 0 {
		p.write(" ORDER BY ")
		p.list(len(s.OrderBy), func(i int) {
			p.expr(s.OrderBy[i].Expr)
			p.write(" ", string(direction(s.OrderBy[i].Direction)))
		})
	}
	if s.Limit != nil && s.Limit.Count != nil && !asTop {
		p.write(" LIMIT ")
		p.expr(s.Limit.Count)
	}
	if s.Limit != nil && s.Limit.Offset != nil {
		p.write(" OFFSET ")
		p.expr(s.Limit.Offset)
	}

	for _, op := range s.SetOps {
		p.write(" ", string(op.Operator))
		if op.All {
			p.write(" ALL")
		}
		p.write(" ")
		p.setOperand(op.Select)
	}
}

func direction(d ast.OrderDirection) ast.OrderDirection {
	if d == ast.Descending {
		return ast.Descending
	}
	return ast.Ascending
}

func (p *printer) with(w *ast.WithClause) {
	p.write("WITH ")
	p.list(len(w.CTEs), func(i int) {
		cte := w.CTEs[i]
		p.ident(cte.Name)
		p.columnList(cte.Columns)
		p.write(" AS (")
		if cte.Select == nil {
			p.fail("render: CTE %v has nil select", strings.Join(cte.Name.Parts, "."))
		} else {
			p.selectStmt(cte.Select)
		}
		p.write(")")
	})
}

// setOperand parenthesizes operands that carry their own WITH or set operations.
func (p *printer) setOperand(s *ast.SelectStatement) {
	if s == nil {
		p.fail("render: nil set operand")
		return
	}
	nested := (s.With != nil && len(s.With.CTEs) > 0) || len(s.SetOps) > 0
	if nested {
		p.write("(")
	}
	p.selectStmt(s)
	if nested {
		p.write(")")
	}
}

func (p *printer) insert(s *ast.InsertStatement) {
	p.write("INSERT INTO ")
	if s.Table == nil {
		p.fail("render: INSERT missing table")
		return
	}
	p.ident(s.Table.Name)
	p.columnList(s.Columns)
	switch {
	case len(s.Rows) > 0:
		p.write(" VALUES ")
		p.list(len(s.Rows), func(i int) {
			p.write("(")
			p.exprs(s.Rows[i])
			p.write(")")
		})
	case s.Select != nil:
		p.write(" ")
		p.selectStmt(s.Select)
	}
}

func (p *printer) createView(s *ast.CreateViewStatement) {
	p.write("CREATE ")
	if s.OrReplace {
		p.write("OR REPLACE ")
	}
	if s.Materialized {
		p.write("MATERIALIZED ")
	}
	p.write("VIEW ")
	if s.IfNotExists {
		p.write("IF NOT EXISTS ")
	}
	p.ident(s.Name)
	p.columnList(s.Columns)
	p.write(" AS ")
	if s.Select == nil {
		p.fail("render: CREATE VIEW missing select")
		return
	}
	p.selectStmt(s.Select)
}

// columnList prints " (a, b)" or nothing for an empty list.
func (p *printer) columnList(cols []*ast.Identifier) {
	if len(cols) == 0 {
		return
	}
	p.write(" (")
	p.list(len(cols), func(i int) { p.ident(cols[i]) })
	p.write(")")
}

func (p *printer) table(t ast.TableExpr) {
	switch t := t.(type) {
	case *ast.TableName:
		p.ident(t.Name)
		p.tableAlias(t.Alias)
	case *ast.SubqueryTable:
		p.write("(")
		p.selectStmt(t.Select)
		p.write(")")
		p.tableAlias(t.Alias)
	case *ast.JoinExpr:
		p.table(t.Left)
		p.write(" ", joinKeyword(t.Type), " ")
		p.table(t.Right)
		if t.Condition.On != nil && t.Type != ast.JoinCross {
			p.write(" ON ")
			p.expr(t.Condition.On)
		}
	default:
		p.fail("render: unsupported table expression %T", t)
	}
}

func (p *printer) tableAlias(alias string) {
	if alias != "" {
		p.write(" AS ", alias)
	}
}

func joinKeyword(t ast.JoinType) string {
	switch t {
	case ast.JoinInner, ast.JoinLeft, ast.JoinRight, ast.JoinFull, ast.JoinCross:
		return string(t) + " JOIN"
	}
	return "JOIN"
}

func (p *printer) identifier(parts []string) string {
	if p.opts.Identifier != nil {
		return p.opts.Identifier(parts)
	}
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = quoteIdent(part)
	}
	return strings.Join(quoted, ".")
}

func (p *printer) ident(id *ast.Identifier) {
	if id != nil {
		p.write(p.identifier(id.Parts))
	}
}

// quoteIdent wraps reserved words and names that are not plain identifiers in double quotes.
func quoteIdent(name string) string {
	plain := name != "" && !token.IsKeyword(name)
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		plain = false
		break
	}
	if plain {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
