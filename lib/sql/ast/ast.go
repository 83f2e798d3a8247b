// Package ast holds the syntax tree produced by the SQL parser and consumed by
// the renderer and the KQL translator.
package ast

type Node interface {
	Accept(Visitor)
}

// Statement is a top-level SQL command.
type Statement interface {
	Node
	statementNode()
}

// Expr is anything that yields a value: columns, literals, operators, calls and subqueries.
type Expr interface {
	Node
	exprNode()
}

// TableExpr is anything that may appear in FROM.
type TableExpr interface {
	Node
	tableNode()
}

// Identifier is a name split on dots, e.g. db.table.column. Bracketed and
// quoted spellings are already unwrapped by the lexer.
type Identifier struct {
	Parts []string
}

func (Identifier) exprNode()  {}
func (Identifier) tableNode() {}
