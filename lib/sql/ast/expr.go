package ast

// StarExpr is * or table.*. It also stands for the argument of COUNT(*).
type StarExpr struct {
	Table *Identifier
}

// Literal values keep their source spelling where it matters for rendering.
type (
	NumericLiteral struct{ Value string }
	StringLiteral  struct{ Value string }
	BooleanLiteral struct{ Value bool }
	NullLiteral    struct{}
	// Placeholder is a positional ? argument.
	Placeholder struct{ Symbol string }
	// TimespanLiteral is a KQL timespan such as 1h or 30m.
	TimespanLiteral struct{ Value string }
)

// BinaryExpr covers arithmetic, comparison and the AND/OR connectives.
// Operator is the upper-cased source spelling: =, <>, !=, AND, +, ...
type BinaryExpr struct {
	Left     Expr
	Operator string
	Right    Expr
}

// UnaryExpr is NOT or unary minus.
type UnaryExpr struct {
	Operator string
	Expr     Expr
}

type FuncCall struct {
	Name     Identifier
	Distinct bool
	Args     []Expr
}

// CaseExpr is CASE [operand] WHEN ... THEN ... [ELSE ...] END. Operand is nil in the searched form.
type CaseExpr struct {
	Operand Expr
	When    []WhenClause
	Else    Expr
}

type WhenClause struct {
	Condition Expr
	Result    Expr
}

type BetweenExpr struct {
	Expr  Expr
	Lower Expr
	Upper Expr
	Not   bool
}

// InExpr tests membership in either List or Subquery.
type InExpr struct {
	Expr     Expr
	Not      bool
	Subquery *SelectStatement
	List     []Expr
}

type LikeExpr struct {
	Expr            Expr
	Not             bool
	CaseInsensitive bool
	Pattern         Expr
}

type IsNullExpr struct {
	Expr Expr
	Not  bool
}

type ExistsExpr struct {
	Not      bool
	Subquery *SelectStatement
}

// SubqueryExpr is a parenthesized query used as a value.
type SubqueryExpr struct {
	Select *SelectStatement
}

func (*StarExpr) exprNode()        {}
func (*NumericLiteral) exprNode()  {}
func (*StringLiteral) exprNode()   {}
func (*BooleanLiteral) exprNode()  {}
func (*NullLiteral) exprNode()     {}
func (*Placeholder) exprNode()     {}
func (*TimespanLiteral) exprNode() {}
func (*BinaryExpr) exprNode()      {}
func (*UnaryExpr) exprNode()       {}
func (*FuncCall) exprNode()        {}
func (*CaseExpr) exprNode()        {}
func (*BetweenExpr) exprNode()     {}
func (*InExpr) exprNode()          {}
func (*LikeExpr) exprNode()        {}
func (*IsNullExpr) exprNode()      {}
func (*ExistsExpr) exprNode()      {}
func (*SubqueryExpr) exprNode()    {}
