package ast

type TableName struct {
	Name  *Identifier
	Alias string
}

// SubqueryTable is (SELECT ...) [AS] alias in FROM.
type SubqueryTable struct {
	Select *SelectStatement
	Alias  string
}

type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
)

// JoinExpr is a binary join. Chains nest to the left: a JOIN b JOIN c is (a JOIN b) JOIN c.
type JoinExpr struct {
	Left      TableExpr
	Right     TableExpr
	Type      JoinType
	Condition JoinCondition
}

// JoinCondition is empty for cross joins.
type JoinCondition struct {
	On Expr
}

func (*TableName) tableNode()     {}
func (*SubqueryTable) tableNode() {}
func (*JoinExpr) tableNode()      {}
