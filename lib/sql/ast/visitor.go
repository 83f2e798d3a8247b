package ast

// Visitor follows the go/ast convention: Visit is called for each node with a
// non-nil result visiting the children, and once more with nil afterwards.
type Visitor interface {
	Visit(Node) Visitor
}

func (n *SelectStatement) Accept(v Visitor)        { Walk(v, n) }
func (n *InsertStatement) Accept(v Visitor)        { Walk(v, n) }
func (n *CreateViewStatement) Accept(v Visitor)    { Walk(v, n) }
func (n *DropViewStatement) Accept(v Visitor)      { Walk(v, n) }
func (n *DescribeStatement) Accept(v Visitor)      { Walk(v, n) }
func (n *ShowDatabasesStatement) Accept(v Visitor) { Walk(v, n) }
func (n *ShowTablesStatement) Accept(v Visitor)    { Walk(v, n) }
func (n *ShowViewsStatement) Accept(v Visitor)     { Walk(v, n) }
func (n *Identifier) Accept(v Visitor)             { Walk(v, n) }
func (n *TableName) Accept(v Visitor)              { Walk(v, n) }
func (n *SubqueryTable) Accept(v Visitor)          { Walk(v, n) }
func (n *JoinExpr) Accept(v Visitor)               { Walk(v, n) }
func (n *StarExpr) Accept(v Visitor)               { Walk(v, n) }
func (n *NumericLiteral) Accept(v Visitor)         { Walk(v, n) }
func (n *StringLiteral) Accept(v Visitor)          { Walk(v, n) }
func (n *BooleanLiteral) Accept(v Visitor)         { Walk(v, n) }
func (n *NullLiteral) Accept(v Visitor)            { Walk(v, n) }
func (n *Placeholder) Accept(v Visitor)            { Walk(v, n) }
func (n *TimespanLiteral) Accept(v Visitor)        { Walk(v, n) }
func (n *BinaryExpr) Accept(v Visitor)             { Walk(v, n) }
func (n *UnaryExpr) Accept(v Visitor)              { Walk(v, n) }
func (n *FuncCall) Accept(v Visitor)               { Walk(v, n) }
func (n *CaseExpr) Accept(v Visitor)               { Walk(v, n) }
func (n *BetweenExpr) Accept(v Visitor)            { Walk(v, n) }
func (n *InExpr) Accept(v Visitor)                 { Walk(v, n) }
func (n *LikeExpr) Accept(v Visitor)               { Walk(v, n) }
func (n *IsNullExpr) Accept(v Visitor)             { Walk(v, n) }
func (n *ExistsExpr) Accept(v Visitor)             { Walk(v, n) }
func (n *SubqueryExpr) Accept(v Visitor)           { Walk(v, n) }

// Walk visits node depth-first. Absent children, including typed nil
// pointers, are skipped.
func Walk(v Visitor, node Node) {
	if v == nil || absent(node) {
		return
	}
	if v = v.Visit(node); v == nil {
		return
	}
	for _, child := range children(node) {
		Walk(v, child)
	}
	v.Visit(nil)
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if node != nil && f(node) {
		return f
	}
	return nil
}

// Inspect calls f for node and its descendants while f returns true.
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}

// children lists the direct descendants of node in source order.
func children(node Node) []Node {
	var out []Node
	add := func(nodes ...Node) { out = append(out, nodes...) }
	addExprs := func(exprs []Expr) {
		for _, e := range exprs {
			out = append(out, e)
		}
	}
	addIdents := func(ids []*Identifier) {
		for _, id := range ids {
			out = append(out, id)
		}
	}

	switch n := node.(type) {
	case *SelectStatement:
		if n.With != nil {
			for _, cte := range n.With.CTEs {
				add(cte.Name)
				addIdents(cte.Columns)
				add(cte.Select)
			}
		}
		for _, item := range n.Columns {
			add(item.Expr)
		}
		add(n.From, n.Where)
		addExprs(n.GroupBy)
		add(n.Having)
		for _, o := range n.OrderBy {
			add(o.Expr)
		}
		if n.Limit != nil {
			add(n.Limit.Count, n.Limit.Offset)
		}
		for _, op := range n.SetOps {
			add(op.Select)
		}
	case *InsertStatement:
		add(n.Table)
		addIdents(n.Columns)
		for _, row := range n.Rows {
			addExprs(row)
		}
		add(n.Select)
	case *CreateViewStatement:
		add(n.Name)
		addIdents(n.Columns)
		add(n.Select)
	case *DropViewStatement:
		add(n.Name)
	case *DescribeStatement:
		add(n.Name)
	case *TableName:
		add(n.Name)
	case *SubqueryTable:
		add(n.Select)
	case *JoinExpr:
		add(n.Left, n.Right, n.Condition.On)
	case *StarExpr:
		add(n.Table)
	case *BinaryExpr:
		add(n.Left, n.Right)
	case *UnaryExpr:
		add(n.Expr)
	case *FuncCall:
		add(&n.Name)
		addExprs(n.Args)
	case *CaseExpr:
		add(n.Operand)
		for _, w := range n.When {
			add(w.Condition, w.Result)
		}
		add(n.Else)
	case *BetweenExpr:
		add(n.Expr, n.Lower, n.Upper)
	case *InExpr:
		add(n.Expr)
		addExprs(n.List)
		add(n.Subquery)
	case *LikeExpr:
		add(n.Expr, n.Pattern)
	case *IsNullExpr:
		add(n.Expr)
	case *ExistsExpr:
		add(n.Subquery)
	case *SubqueryExpr:
		add(n.Select)
	}
	return out
}

// absent reports nil interfaces and the typed nil pointers optional fields leave behind.
func absent(node Node) bool {
	switch n := node.(type) {
	case nil:
		return true
	case *SelectStatement:
		return n == nil
	case *Identifier:
		return n == nil
	case *TableName:
		return n == nil
	}
	return false
}
