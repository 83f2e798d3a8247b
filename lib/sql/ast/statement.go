package ast

// SelectStatement is a query. SetOps chains further operands onto it in source order.
type SelectStatement struct {
	With     *WithClause
	Distinct bool
	Columns  []SelectItem
	From     TableExpr
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderItem
	Limit    *LimitClause
	SetOps   []SetOperation
}

type SelectItem struct {
	Expr  Expr
	Alias string
}

type OrderDirection string

const (
	Ascending  OrderDirection = "ASC"
	Descending OrderDirection = "DESC"
)

type OrderItem struct {
	Expr      Expr
	Direction OrderDirection
}

// LimitClause holds LIMIT, OFFSET and SELECT TOP. Count is nil when only OFFSET was given.
type LimitClause struct {
	Count  Expr
	Offset Expr
}

type WithClause struct {
	CTEs []CommonTableExpression
}

// CommonTableExpression is one WITH name [(columns)] AS (query) entry.
type CommonTableExpression struct {
	Name    *Identifier
	Columns []*Identifier
	Select  *SelectStatement
}

type SetOperator string

const (
	SetOpUnion     SetOperator = "UNION"
	SetOpIntersect SetOperator = "INTERSECT"
	SetOpExcept    SetOperator = "EXCEPT"
)

type SetOperation struct {
	Operator SetOperator
	All      bool
	Select   *SelectStatement
}

// InsertStatement carries either literal Rows or a Select source.
type InsertStatement struct {
	Table   *TableName
	Columns []*Identifier
	Rows    [][]Expr
	Select  *SelectStatement
}

type CreateViewStatement struct {
	OrReplace    bool
	IfNotExists  bool
	Materialized bool
	Name         *Identifier
	Columns      []*Identifier
	Select       *SelectStatement
}

type DropViewStatement struct {
	Materialized bool
	IfExists     bool
	Name         *Identifier
}

type DescribeTarget string

const (
	// DescribeAny is a bare DESCRIBE name. The name may resolve to a view,
	// a configured table or a cluster table.
	DescribeAny   DescribeTarget = ""
	DescribeTable DescribeTarget = "TABLE"
	DescribeView  DescribeTarget = "VIEW"
)

type DescribeStatement struct {
	Target DescribeTarget
	Name   *Identifier
}

type (
	ShowDatabasesStatement struct{}
	ShowTablesStatement    struct{}
	ShowViewsStatement     struct{}
)

func (*SelectStatement) statementNode()        {}
func (*InsertStatement) statementNode()        {}
func (*CreateViewStatement) statementNode()    {}
func (*DropViewStatement) statementNode()      {}
func (*DescribeStatement) statementNode()      {}
func (*ShowDatabasesStatement) statementNode() {}
func (*ShowTablesStatement) statementNode()    {}
func (*ShowViewsStatement) statementNode()     {}
