package render

import (
	"strings"

	"github.com/dodopizza/sql-to-kql/lib/sql/ast"
)

// Precedence levels used when MinimalParens is set. Higher binds tighter.
const (
	precOr = iota + 1
	precAnd
	precCompare
	precAdd
	precMul
	precUnary
)

func precedence(e ast.Expr) int {
	switch e := e.(type) {
	case *ast.BinaryExpr:
		switch strings.ToUpper(e.Operator) {
		case "OR":
			return precOr
		case "AND":
			return precAnd
		case "+", "-":
			return precAdd
		case "*", "/", "%":
			return precMul
		}
		return precCompare
	case *ast.InExpr, *ast.BetweenExpr, *ast.LikeExpr, *ast.IsNullExpr:
		return precCompare
	}
	return precUnary
}

// regroupable reports whether a op (b op c) equals (a op b) op c.
func regroupable(op string) bool {
	switch strings.ToUpper(op) {
	case "AND", "OR", "+", "*":
		return true
	}
	return false
}

func (p *printer) op(sql string) string {
	if spelled, ok := p.opts.Operators[sql]; ok {
		return spelled
	}
	return sql
}

func (p *printer) exprs(list []ast.Expr) {
	p.list(len(list), func(i int) { p.expr(list[i]) })
}

func (p *printer) parens(e ast.Expr) {
	p.write("(")
	p.expr(e)
	p.write(")")
}

// operand prints e, wrapped in parentheses when it binds looser than outer or force is set.
func (p *printer) operand(e ast.Expr, outer int, force bool) {
	if force || precedence(e) < outer {
		p.parens(e)
		return
	}
	p.expr(e)
}

func (p *printer) expr(e ast.Expr) {
	if sub := p.opts.Substitute; sub != nil && e != nil {
		if text, ok := sub(e); ok {
			p.write(text)
			return
		}
	}

	switch e := e.(type) {
	case *ast.Identifier:
		p.ident(e)
	case *ast.NumericLiteral:
		p.write(e.Value)
	case *ast.TimespanLiteral:
		p.write(e.Value)
	case *ast.StringLiteral:
		p.str(e.Value)
	case *ast.BooleanLiteral:
		p.boolean(e.Value)
	case *ast.NullLiteral:
		if p.opts.Null == "" {
			p.write("NULL")
		} else {
			p.write(p.opts.Null)
		}
	case *ast.Placeholder:
		p.write(e.Symbol)
	case *ast.BinaryExpr:
		p.binary(e)
	case *ast.UnaryExpr:
		p.unary(e)
	case *ast.FuncCall:
		p.write(strings.Join(e.Name.Parts, "."), "(")
		if e.Distinct {
			p.write("DISTINCT ")
		}
		p.exprs(e.Args)
		p.write(")")
	case *ast.CaseExpr:
		if p.opts.CaseAsFunction {
			p.caseCall(e)
		} else {
			p.caseBlock(e)
		}
	case *ast.StarExpr:
		if e.Table != nil {
			p.ident(e.Table)
			p.write(".")
		}
		p.write("*")
	case *ast.InExpr:
		p.expr(e.Expr)
		p.not(e.Not)
		p.write(" IN (")
		if e.Subquery != nil {
			p.selectStmt(e.Subquery)
		} else {
			p.exprs(e.List)
		}
		p.write(")")
	case *ast.BetweenExpr:
		p.expr(e.Expr)
		p.not(e.Not)
		p.write(" BETWEEN ")
		p.expr(e.Lower)
		p.write(" AND ")
		p.expr(e.Upper)
	case *ast.LikeExpr:
		p.expr(e.Expr)
		p.not(e.Not)
		if e.CaseInsensitive {
			p.write(" ILIKE ")
		} else {
			p.write(" LIKE ")
		}
		p.expr(e.Pattern)
	case *ast.IsNullExpr:
		p.expr(e.Expr)
		p.write(" IS")
		p.not(e.Not)
		p.write(" NULL")
	case *ast.ExistsExpr:
		if e.Not {
			p.write("NOT ")
		}
		p.write("EXISTS (")
		p.selectStmt(e.Subquery)
		p.write(")")
	case *ast.SubqueryExpr:
		p.write("(")
		p.selectStmt(e.Select)
		p.write(")")
	default:
		p.fail("render: unsupported expression %T", e)
	}
}

func (p *printer) not(negated bool) {
	if negated {
		p.write(" NOT")
	}
}

func (p *printer) str(value string) {
	if p.opts.String != nil {
		p.write(p.opts.String(value))
		return
	}
	p.write("'", strings.ReplaceAll(value, "'", "''"), "'")
}

func (p *printer) boolean(v bool) {
	text := "FALSE"
	if v {
		text = "TRUE"
	}
	if p.opts.LowerBooleans {
		text = strings.ToLower(text)
	}
	p.write(text)
}

func (p *printer) binary(e *ast.BinaryExpr) {
	op := p.op(strings.ToUpper(e.Operator))
	if !p.opts.MinimalParens {
		p.write("(")
		p.expr(e.Left)
		p.write(" ", op, " ")
		p.expr(e.Right)
		p.write(")")
		return
	}
	prec := precedence(e)
	p.operand(e.Left, prec, false)
	p.write(" ", op, " ")
	p.operand(e.Right, prec, precedence(e.Right) == prec && !regroupable(e.Operator))
}

func (p *printer) unary(e *ast.UnaryExpr) {
	if e.Operator != "NOT" {
		p.write(e.Operator)
		p.operand(e.Expr, precUnary, false)
		return
	}
	p.write(p.op("NOT"))
	if p.opts.NotAsFunction {
		p.parens(e.Expr)
		return
	}
	p.write(" ")
	p.operand(e.Expr, precUnary, false)
}

func (p *printer) caseBlock(e *ast.CaseExpr) {
	p.write("CASE")
	if e.Operand != nil {
		p.write(" ")
		p.expr(e.Operand)
	}
	for _, w := range e.When {
		p.write(" WHEN ")
		p.expr(w.Condition)
		p.write(" THEN ")
		p.expr(w.Result)
	}
	if e.Else != nil {
		p.write(" ELSE ")
		p.expr(e.Else)
	}
	p.write(" END")
}

// caseCall prints case(cond1, value1, ..., else). A simple CASE compares the operand with each WHEN value.
func (p *printer) caseCall(e *ast.CaseExpr) {
	p.write("case(")
	for _, w := range e.When {
		cond := w.Condition
		if e.Operand != nil {
			cond = &ast.BinaryExpr{Left: e.Operand, Operator: "=", Right: w.Condition}
		}
		p.expr(cond)
		p.write(", ")
		p.expr(w.Result)
		p.write(", ")
	}
	var otherwise ast.Expr = &ast.NullLiteral{}
	if e.Else != nil {
		otherwise = e.Else
	}
	p.expr(otherwise)
	p.write(")")
}
