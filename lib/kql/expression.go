package kql

import "strings"

// Expression is one output, grouping or ordering term of a query level.
// It is implemented by Literal, ColumnRef, AliasedExpr and FunctionCall only.
type Expression interface {
	expression()
}

// Literal is free expression text. Text that is not Rendered is SQL and goes through Escape;
// Rendered text is already KQL and is emitted verbatim.
type Literal struct {
	SQL      string
	Rendered bool
}

// ColumnRef names a column of the current source.
type ColumnRef struct {
	Name string
}

// AliasedExpr labels an expression with an output name.
type AliasedExpr struct {
	Expr  Expression
	Alias string
}

// FunctionCall is a call whose arguments are themselves expressions.
type FunctionCall struct {
	Name     string
	Distinct bool
	Args     []Expression
}

func (Literal) expression()      {}
func (ColumnRef) expression()    {}
func (AliasedExpr) expression()  {}
func (FunctionCall) expression() {}

// ColumnReference is the (name, alias) pair of an output column. Alias is empty unless the column is labelled.
type ColumnReference struct {
	Name  string
	Alias string
}

// Label is the name the column is known by after projection.
func (c ColumnReference) Label() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Name
}

// ExtractColumn returns the unaliased text and the alias of e.
func ExtractColumn(e Expression) ColumnReference {
	if a, ok := e.(AliasedExpr); ok {
		return ColumnReference{Name: Text(a.Expr), Alias: a.Alias}
	}
	return ColumnReference{Name: Text(e)}
}

// Unalias strips any AliasedExpr wrappers from e.
func Unalias(e Expression) Expression {
	for {
		a, ok := e.(AliasedExpr)
		if !ok {
			return e
		}
		e = a.Expr
	}
}

// Text renders e the way it was written, without KQL quoting.
func Text(e Expression) string {
	switch v := e.(type) {
	case Literal:
		return v.SQL
	case ColumnRef:
		return v.Name
	case AliasedExpr:
		return Text(v.Expr)
	case FunctionCall:
		var b strings.Builder
		b.WriteString(v.Name)
		b.WriteByte('(')
		if v.Distinct {
			b.WriteString("DISTINCT ")
		}
		for i, arg := range v.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(Text(arg))
		}
		b.WriteByte(')')
		return b.String()
	default:
		return ""
	}
}

// KQLText renders e as a KQL scalar expression.
func KQLText(e Expression) string {
	switch v := e.(type) {
	case Literal:
		if v.Rendered {
			return v.SQL
		}
		return Escape(v.SQL, false)
	case ColumnRef:
		return Escape(v.Name, true)
	case AliasedExpr:
		return KQLText(v.Expr)
	case FunctionCall:
		args := make([]string, len(v.Args))
		for i, arg := range v.Args {
			args[i] = KQLText(arg)
		}
		return v.Name + "(" + strings.Join(args, ", ") + ")"
	default:
		return ""
	}
}
