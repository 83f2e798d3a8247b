// Package parser builds ast trees from SQL text.
//
// The parser is a hand-written recursive descent parser with one token of
// lookahead. Expressions are parsed by precedence level, loosest first:
//
//	OR
//	AND
//	NOT
//	comparison, IS, IN, LIKE, ILIKE, BETWEEN
//	+ -
//	* / %
//	unary -
//
// Parsing stops at the first error.
package parser

import (
	"fmt"
	"strings"

	"github.com/dodopizza/sql-to-kql/lib/sql/ast"
	"github.com/dodopizza/sql-to-kql/lib/sql/lexer"
	"github.com/dodopizza/sql-to-kql/lib/sql/token"
)

const (
	// MaxParserDepth bounds the nesting of subqueries and parenthesized expressions.
	MaxParserDepth = 100
	// MaxExpressionCount bounds the length of a single comma-separated list.
	MaxExpressionCount = 1000
)

type Parser struct {
	lex    *lexer.Lexer
	tok    token.Token
	ahead  token.Token
	depth  int
	errors []error
}

// bailout unwinds the parser after the first error.
type bailout struct{}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{lex: l}
	p.tok = l.NextToken()
	p.ahead = l.NextToken()
	return p
}

// Errors returns the syntax errors of the last ParseStatement call.
func (p *Parser) Errors() []error {
	return p.errors
}

// ParseStatement parses one statement followed by optional semicolons.
// It returns nil when a syntax error was recorded.
func (p *Parser) ParseStatement() (stmt ast.Statement) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			stmt = nil
		}
	}()

	stmt = p.statement()
	for p.accept(token.SEMICOLON) {
	}
	if !p.at(token.EOF) {
		p.unexpected("unexpected token %s after statement")
	}
	return stmt
}

func (p *Parser) fail(pos token.Position, format string, args ...any) {
	p.errors = append(p.errors, &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)})
	panic(bailout{})
}

func (p *Parser) advance() token.Token {
	prev := p.tok
	p.tok = p.ahead
	p.ahead = p.lex.NextToken()
	return prev
}

func (p *Parser) at(types ...token.Type) bool {
	for _, t := range types {
		if p.tok.Type == t {
			return true
		}
	}
	return false
}

func (p *Parser) accept(t token.Type) bool {
	if p.tok.Type != t {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(t token.Type) token.Token {
	if p.tok.Type != t {
		p.unexpected(fmt.Sprintf("expected %s, got %%s", t))
	}
	return p.advance()
}

// unexpected fails on the current token. format has a single %s for the token type.
// Lexical errors are reported with the lexer's own message instead.
func (p *Parser) unexpected(format string) {
	if p.tok.Type == token.ILLEGAL {
		p.fail(p.tok.Pos, "%s", p.tok.Literal)
	}
	p.fail(p.tok.Pos, format, p.tok.Type)
}

func (p *Parser) enter() {
	p.depth++
	if p.depth > MaxParserDepth {
		p.fail(p.tok.Pos, "maximum nesting depth of %d exceeded", MaxParserDepth)
	}
}

func (p *Parser) leave() {
	p.depth--
}

func (p *Parser) statement() ast.Statement {
	switch p.tok.Type {
	case token.SELECT, token.WITH:
		return p.query()
	case token.INSERT:
		return p.insert()
	case token.CREATE:
		return p.createView()
	case token.DROP:
		return p.dropView()
	case token.DESCRIBE:
		return p.describe()
	case token.SHOW:
		return p.show()
	}
	p.unexpected("unsupported statement starting with %s")
	return nil
}

// query parses [WITH ...] SELECT ... followed by any set operations.
func (p *Parser) query() *ast.SelectStatement {
	p.enter()
	defer p.leave()

	var with *ast.WithClause
	if p.at(token.WITH) {
		with = p.with()
	}
	stmt := p.selectCore()
	stmt.With = with

	for {
		var op ast.SetOperator
		switch p.tok.Type {
		case token.UNION:
			op = ast.SetOpUnion
		case token.INTERSECT:
			op = ast.SetOpIntersect
		case token.EXCEPT:
			op = ast.SetOpExcept
		default:
			return stmt
		}
		p.advance()
		set := ast.SetOperation{Operator: op, All: p.accept(token.ALL)}
		if p.accept(token.LPAREN) {
			set.Select = p.subquery("set operand")
			p.expect(token.RPAREN)
		} else {
			set.Select = p.selectCore()
		}
		stmt.SetOps = append(stmt.SetOps, set)
	}
}

// subquery parses a nested query, naming the construct that requires it in the error.
func (p *Parser) subquery(context string) *ast.SelectStatement {
	if !p.at(token.SELECT, token.WITH) {
		p.unexpected(context + " requires SELECT, got %s")
	}
	return p.query()
}

func (p *Parser) with() *ast.WithClause {
	p.expect(token.WITH)
	clause := &ast.WithClause{}
	for {
		cte := ast.CommonTableExpression{Name: p.name()}
		if p.accept(token.LPAREN) {
			cte.Columns = p.names()
			p.expect(token.RPAREN)
		}
		p.expect(token.AS)
		p.expect(token.LPAREN)
		cte.Select = p.subquery("WITH " + cte.Name.Parts[0])
		p.expect(token.RPAREN)
		clause.CTEs = append(clause.CTEs, cte)
		if !p.accept(token.COMMA) {
			break
		}
	}
	if !p.at(token.SELECT) {
		p.unexpected("expected SELECT after WITH clause, got %s")
	}
	return clause
}

func (p *Parser) selectCore() *ast.SelectStatement {
	p.expect(token.SELECT)
	stmt := &ast.SelectStatement{Distinct: p.accept(token.DISTINCT)}
	if top := p.top(); top != nil {
		stmt.Limit = &ast.LimitClause{Count: top}
	}
	stmt.Columns = p.selectList()

	if p.accept(token.FROM) {
		stmt.From = p.from()
	}
	if p.accept(token.WHERE) {
		stmt.Where = p.expr()
	}
	if p.accept(token.GROUP) {
		p.expect(token.BY)
		stmt.GroupBy = p.exprList()
	}
	if p.accept(token.HAVING) {
		stmt.Having = p.expr()
	}
	if p.accept(token.ORDER) {
		p.expect(token.BY)
		stmt.OrderBy = p.orderList()
	}
	if p.at(token.LIMIT) {
		if stmt.Limit != nil {
			p.unexpected("%s cannot be combined with TOP")
		}
		p.advance()
		stmt.Limit = &ast.LimitClause{Count: p.expr()}
	}
	if p.accept(token.OFFSET) {
		if stmt.Limit == nil {
			stmt.Limit = &ast.LimitClause{}
		}
		stmt.Limit.Offset = p.expr()
	}
	return stmt
}

// top recognizes the T-SQL form SELECT TOP n. TOP is not reserved, so a column named top still works.
func (p *Parser) top() ast.Expr {
	if p.tok.Type != token.IDENT || !strings.EqualFold(p.tok.Literal, "TOP") || p.ahead.Type != token.NUMBER {
		return nil
	}
	p.advance()
	return &ast.NumericLiteral{Value: p.advance().Literal}
}

func (p *Parser) selectList() []ast.SelectItem {
	var items []ast.SelectItem
	for {
		if len(items) >= MaxExpressionCount {
			p.fail(p.tok.Pos, "select list exceeds %d items", MaxExpressionCount)
		}
		var item ast.SelectItem
		if p.at(token.STAR) {
			p.advance()
			item.Expr = &ast.StarExpr{}
		} else {
			item.Expr = p.expr()
			item.Alias = p.alias()
		}
		items = append(items, item)
		if !p.accept(token.COMMA) {
			return items
		}
	}
}

// alias parses [AS] name. Keywords never lex as IDENT, so clause boundaries end the alias naturally.
func (p *Parser) alias() string {
	if p.accept(token.AS) {
		return p.expect(token.IDENT).Literal
	}
	if p.at(token.IDENT) {
		return p.advance().Literal
	}
	return ""
}

func (p *Parser) orderList() []ast.OrderItem {
	var items []ast.OrderItem
	for {
		if len(items) >= MaxExpressionCount {
			p.fail(p.tok.Pos, "ORDER BY exceeds %d items", MaxExpressionCount)
		}
		item := ast.OrderItem{Expr: p.expr(), Direction: ast.Ascending}
		if p.accept(token.DESC) {
			item.Direction = ast.Descending
		} else {
			p.accept(token.ASC)
		}
		items = append(items, item)
		if !p.accept(token.COMMA) {
			return items
		}
	}
}

// from parses the FROM clause. A comma between tables is a cross join.
func (p *Parser) from() ast.TableExpr {
	left := p.tableFactor()
	for {
		var join *ast.JoinExpr
		switch p.tok.Type {
		case token.COMMA:
			p.advance()
			join = &ast.JoinExpr{Type: ast.JoinCross}
		case token.JOIN:
			p.advance()
			join = &ast.JoinExpr{Type: ast.JoinInner}
		case token.INNER, token.CROSS:
			join = &ast.JoinExpr{Type: ast.JoinType(p.advance().Type)}
			p.expect(token.JOIN)
		case token.LEFT, token.RIGHT, token.FULL:
			join = &ast.JoinExpr{Type: ast.JoinType(p.advance().Type)}
			p.accept(token.OUTER)
			p.expect(token.JOIN)
		default:
			return left
		}
		join.Left = left
		join.Right = p.tableFactor()
		if join.Type != ast.JoinCross {
			p.expect(token.ON)
			join.Condition.On = p.expr()
		}
		left = join
	}
}

func (p *Parser) tableFactor() ast.TableExpr {
	switch p.tok.Type {
	case token.IDENT:
		name := p.qualifiedName()
		return &ast.TableName{Name: name, Alias: p.alias()}
	case token.LPAREN:
		p.enter()
		defer p.leave()
		p.advance()
		if p.at(token.SELECT, token.WITH) {
			sub := p.query()
			p.expect(token.RPAREN)
			return &ast.SubqueryTable{Select: sub, Alias: p.alias()}
		}
		nested := p.from()
		p.expect(token.RPAREN)
		return nested
	}
	p.unexpected("expected table name or subquery, got %s")
	return nil
}

func (p *Parser) name() *ast.Identifier {
	return &ast.Identifier{Parts: []string{p.expect(token.IDENT).Literal}}
}

func (p *Parser) qualifiedName() *ast.Identifier {
	id := p.name()
	for p.accept(token.DOT) {
		id.Parts = append(id.Parts, p.expect(token.IDENT).Literal)
	}
	return id
}

func (p *Parser) names() []*ast.Identifier {
	var ids []*ast.Identifier
	for {
		ids = append(ids, p.name())
		if !p.accept(token.COMMA) {
			return ids
		}
	}
}

func (p *Parser) exprList() []ast.Expr {
	var exprs []ast.Expr
	for {
		if len(exprs) >= MaxExpressionCount {
			p.fail(p.tok.Pos, "expression list exceeds %d items", MaxExpressionCount)
		}
		exprs = append(exprs, p.expr())
		if !p.accept(token.COMMA) {
			return exprs
		}
	}
}

func (p *Parser) expr() ast.Expr {
	p.enter()
	defer p.leave()
	return p.or()
}

func (p *Parser) or() ast.Expr {
	left := p.and()
	for p.accept(token.OR) {
		left = &ast.BinaryExpr{Left: left, Operator: "OR", Right: p.and()}
	}
	return left
}

func (p *Parser) and() ast.Expr {
	left := p.not()
	for p.accept(token.AND) {
		left = &ast.BinaryExpr{Left: left, Operator: "AND", Right: p.not()}
	}
	return left
}

// not binds looser than comparisons, so NOT a = b negates the whole comparison.
func (p *Parser) not() ast.Expr {
	if !p.accept(token.NOT) {
		return p.comparison()
	}
	if p.at(token.EXISTS) {
		e := p.exists()
		e.Not = true
		return e
	}
	p.enter()
	defer p.leave()
	return &ast.UnaryExpr{Operator: "NOT", Expr: p.not()}
}

func (p *Parser) comparison() ast.Expr {
	left := p.additive()
	for {
		switch p.tok.Type {
		case token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE:
			op := p.advance().Literal
			left = &ast.BinaryExpr{Left: left, Operator: op, Right: p.additive()}
		case token.IS:
			p.advance()
			not := p.accept(token.NOT)
			p.expect(token.NULL)
			left = &ast.IsNullExpr{Expr: left, Not: not}
		case token.IN, token.LIKE, token.ILIKE, token.BETWEEN:
			left = p.predicate(left, false)
		case token.NOT:
			switch p.ahead.Type {
			case token.IN, token.LIKE, token.ILIKE, token.BETWEEN:
				p.advance()
				left = p.predicate(left, true)
			default:
				return left
			}
		default:
			return left
		}
	}
}

func (p *Parser) predicate(left ast.Expr, not bool) ast.Expr {
	switch p.advance().Type {
	case token.IN:
		in := &ast.InExpr{Expr: left, Not: not}
		p.expect(token.LPAREN)
		if p.at(token.SELECT, token.WITH) {
			in.Subquery = p.query()
		} else {
			in.List = p.exprList()
		}
		p.expect(token.RPAREN)
		return in
	case token.BETWEEN:
		lower := p.additive()
		p.expect(token.AND)
		return &ast.BetweenExpr{Expr: left, Lower: lower, Upper: p.additive(), Not: not}
	case token.ILIKE:
		return &ast.LikeExpr{Expr: left, Not: not, CaseInsensitive: true, Pattern: p.additive()}
	default:
		return &ast.LikeExpr{Expr: left, Not: not, Pattern: p.additive()}
	}
}

func (p *Parser) additive() ast.Expr {
	left := p.multiplicative()
	for p.at(token.PLUS, token.MINUS) {
		op := p.advance().Literal
		left = &ast.BinaryExpr{Left: left, Operator: op, Right: p.multiplicative()}
	}
	return left
}

func (p *Parser) multiplicative() ast.Expr {
	left := p.unary()
	for p.at(token.STAR, token.SLASH, token.PERCENT) {
		op := p.advance().Literal
		left = &ast.BinaryExpr{Left: left, Operator: op, Right: p.unary()}
	}
	return left
}

func (p *Parser) unary() ast.Expr {
	switch {
	case p.accept(token.MINUS):
		p.enter()
		defer p.leave()
		return &ast.UnaryExpr{Operator: "-", Expr: p.unary()}
	case p.accept(token.PLUS):
		return p.unary()
	}
	return p.primary()
}

func (p *Parser) primary() ast.Expr {
	switch p.tok.Type {
	case token.IDENT:
		return p.column()
	case token.NUMBER:
		return &ast.NumericLiteral{Value: p.advance().Literal}
	case token.TIMESPAN:
		return &ast.TimespanLiteral{Value: p.advance().Literal}
	case token.STRING:
		return &ast.StringLiteral{Value: p.advance().Literal}
	case token.TRUE, token.FALSE:
		return &ast.BooleanLiteral{Value: p.advance().Type == token.TRUE}
	case token.NULL:
		p.advance()
		return &ast.NullLiteral{}
	case token.PLACEHOLDER:
		return &ast.Placeholder{Symbol: p.advance().Literal}
	case token.STAR:
		p.advance()
		return &ast.StarExpr{}
	case token.LPAREN:
		p.advance()
		if p.at(token.SELECT, token.WITH) {
			sub := p.query()
			p.expect(token.RPAREN)
			return &ast.SubqueryExpr{Select: sub}
		}
		inner := p.expr()
		p.expect(token.RPAREN)
		return inner
	case token.EXISTS:
		return p.exists()
	case token.CASE:
		return p.caseExpr()
	case token.REPLACE, token.LEFT, token.RIGHT, token.IF:
		// Keywords that double as function names.
		if p.ahead.Type == token.LPAREN {
			name := p.advance().Literal
			return p.call(ast.Identifier{Parts: []string{name}})
		}
	}
	p.unexpected("unexpected token %s")
	return nil
}

// column parses a possibly qualified name, t.* or a function call.
func (p *Parser) column() ast.Expr {
	parts := []string{p.advance().Literal}
	for p.accept(token.DOT) {
		if p.accept(token.STAR) {
			return &ast.StarExpr{Table: &ast.Identifier{Parts: parts}}
		}
		if !p.at(token.IDENT) {
			p.unexpected("expected identifier after '.', got %s")
		}
		parts = append(parts, p.advance().Literal)
	}
	if p.at(token.LPAREN) {
		return p.call(ast.Identifier{Parts: parts})
	}
	return &ast.Identifier{Parts: parts}
}

func (p *Parser) call(name ast.Identifier) ast.Expr {
	p.expect(token.LPAREN)
	fn := &ast.FuncCall{Name: name}
	if p.accept(token.RPAREN) {
		return fn
	}
	fn.Distinct = p.accept(token.DISTINCT)
	fn.Args = p.exprList()
	p.expect(token.RPAREN)
	return fn
}

func (p *Parser) exists() *ast.ExistsExpr {
	p.expect(token.EXISTS)
	p.expect(token.LPAREN)
	sub := p.subquery("EXISTS")
	p.expect(token.RPAREN)
	return &ast.ExistsExpr{Subquery: sub}
}

func (p *Parser) caseExpr() ast.Expr {
	start := p.expect(token.CASE)
	e := &ast.CaseExpr{}
	if !p.at(token.WHEN, token.END) {
		e.Operand = p.expr()
	}
	for p.accept(token.WHEN) {
		var w ast.WhenClause
		w.Condition = p.expr()
		p.expect(token.THEN)
		w.Result = p.expr()
		e.When = append(e.When, w)
	}
	if len(e.When) == 0 {
		p.fail(start.Pos, "CASE requires at least one WHEN branch")
	}
	if p.accept(token.ELSE) {
		e.Else = p.expr()
	}
	p.expect(token.END)
	return e
}

func (p *Parser) insert() ast.Statement {
	p.expect(token.INSERT)
	p.expect(token.INTO)
	stmt := &ast.InsertStatement{Table: &ast.TableName{Name: p.qualifiedName()}}
	if p.accept(token.LPAREN) {
		stmt.Columns = p.names()
		p.expect(token.RPAREN)
	}

	switch {
	case p.accept(token.VALUES):
		for {
			p.expect(token.LPAREN)
			stmt.Rows = append(stmt.Rows, p.exprList())
			p.expect(token.RPAREN)
			if !p.accept(token.COMMA) {
				break
			}
		}
	case p.at(token.SELECT, token.WITH):
		stmt.Select = p.query()
	default:
		p.unexpected("expected VALUES or SELECT, got %s")
	}
	return stmt
}

// createView parses CREATE [OR REPLACE] [MATERIALIZED] VIEW [IF NOT EXISTS] name [(cols)] AS query.
func (p *Parser) createView() ast.Statement {
	p.expect(token.CREATE)
	stmt := &ast.CreateViewStatement{}
	if p.accept(token.OR) {
		p.expect(token.REPLACE)
		stmt.OrReplace = true
	}
	stmt.Materialized = p.accept(token.MATERIALIZED)
	p.expect(token.VIEW)
	if p.accept(token.IF) {
		p.expect(token.NOT)
		p.expect(token.EXISTS)
		stmt.IfNotExists = true
	}
	stmt.Name = p.qualifiedName()
	if p.accept(token.LPAREN) {
		stmt.Columns = p.names()
		p.expect(token.RPAREN)
	}
	p.expect(token.AS)
	stmt.Select = p.subquery("CREATE VIEW")
	return stmt
}

func (p *Parser) dropView() ast.Statement {
	p.expect(token.DROP)
	stmt := &ast.DropViewStatement{Materialized: p.accept(token.MATERIALIZED)}
	p.expect(token.VIEW)
	if p.accept(token.IF) {
		p.expect(token.EXISTS)
		stmt.IfExists = true
	}
	stmt.Name = p.qualifiedName()
	return stmt
}

func (p *Parser) describe() ast.Statement {
	p.expect(token.DESCRIBE)
	stmt := &ast.DescribeStatement{Target: ast.DescribeAny}
	switch {
	case p.accept(token.TABLE):
		stmt.Target = ast.DescribeTable
	case p.accept(token.VIEW):
		stmt.Target = ast.DescribeView
	case !p.at(token.IDENT):
		p.unexpected("DESCRIBE expects TABLE, VIEW or a name, got %s")
	}
	stmt.Name = p.qualifiedName()
	return stmt
}

func (p *Parser) show() ast.Statement {
	p.expect(token.SHOW)
	switch {
	case p.accept(token.DATABASES):
		return &ast.ShowDatabasesStatement{}
	case p.accept(token.TABLES):
		return &ast.ShowTablesStatement{}
	case p.accept(token.VIEWS):
		return &ast.ShowViewsStatement{}
	}
	p.unexpected("SHOW expects DATABASES, TABLES or VIEWS, got %s")
	return nil
}
