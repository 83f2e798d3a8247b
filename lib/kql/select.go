package kql

import (
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/dodopizza/sql-to-kql/lib/sql/ast"
	"github.com/dodopizza/sql-to-kql/lib/sql/render"
	"github.com/dodopizza/sql-to-kql/lib/store"
)

type translationContext struct {
	sp   *store.Provider
	ctes map[string]string
}

// TranslateSelect compiles a SELECT statement into KQL.
func TranslateSelect(stmt *ast.SelectStatement, sp *store.Provider) (string, error) {
	return translateSelectWithContext(stmt, translationContext{sp: sp})
}

func translateSelectWithContext(stmt ast.Statement, ctx translationContext) (string, error) {
	if stmt == nil {
		return "", badRequest("nil statement")
	}
	t := &selectTranslatorVisitor{ctx: ctx, qualifiers: map[string]struct{}{}}
	t.ctx.ctes = maps.Clone(ctx.ctes)
	if t.ctx.ctes == nil {
		t.ctx.ctes = map[string]string{}
	}
	stmt.Accept(t)
	if t.err != nil {
		return "", t.err
	}
	return t.result, nil
}

// sqlFunctions renames SQL scalar functions that KQL spells differently.
var sqlFunctions = map[string]string{
	"char_length":       "strlen",
	"concat":            "strcat",
	"current_timestamp": "now",
	"ifnull":            "coalesce",
	"length":            "strlen",
	"lower":             "tolower",
	"nvl":               "coalesce",
	"upper":             "toupper",
}

type selectTranslatorVisitor struct {
	result string
	err    error

	ctx        translationContext
	qualifiers map[string]struct{}
	query      *Query
	renderErr  error
}

func (v *selectTranslatorVisitor) Visit(node ast.Node) ast.Visitor {
	if node == nil || v.err != nil {
		return v
	}
	switch n := node.(type) {
	case *ast.SelectStatement:
		v.result, v.err = v.translateSelect(n)
	default:
		v.err = badRequest("unsupported root node %T", n)
	}
	return nil
}

func (v *selectTranslatorVisitor) translateSelect(stmt *ast.SelectStatement) (string, error) {
	q, err := v.buildQuery(stmt)
	if err != nil {
		return "", err
	}
	return Compile(q)
}

func (v *selectTranslatorVisitor) buildQuery(stmt *ast.SelectStatement) (*Query, error) {
	if len(stmt.SetOps) > 0 {
		return nil, notSupported("%s", stmt.SetOps[0].Operator)
	}
	if stmt.Limit != nil && stmt.Limit.Offset != nil {
		return nil, notSupported("OFFSET")
	}
	v.query = &Query{Distinct: stmt.Distinct}

	if err := v.processWith(stmt.With); err != nil {
		return nil, err
	}
	if err := v.processFrom(stmt.From); err != nil {
		return nil, err
	}
	if err := v.processColumns(stmt.Columns); err != nil {
		return nil, err
	}
	if stmt.Where != nil {
		if containsAggregate(stmt.Where) {
			return nil, badRequest("aggregate functions are not allowed in WHERE")
		}
		where, err := v.render(stmt.Where, nil)
		if err != nil {
			return nil, err
		}
		v.query.Where = where
	}
	for _, g := range stmt.GroupBy {
		expr, err := v.term(g)
		if err != nil {
			return nil, err
		}
		v.query.GroupBy = append(v.query.GroupBy, expr)
	}
	if stmt.Having != nil {
		having, err := v.render(stmt.Having, v.havingAggregate)
		if err != nil {
			return nil, err
		}
		v.query.Having = having
	}
	for _, item := range stmt.OrderBy {
		expr, err := v.term(item.Expr)
		if err != nil {
			return nil, err
		}
		v.query.OrderBy = append(v.query.OrderBy, OrderItem{Expr: expr, Desc: item.Direction == ast.Descending})
	}
	if stmt.Limit != nil && stmt.Limit.Count != nil {
		limit, err := v.render(stmt.Limit.Count, nil)
		if err != nil {
			return nil, err
		}
		v.query.Limit = limit
	}
	return v.query, nil
}

func (v *selectTranslatorVisitor) processWith(with *ast.WithClause) error {
	if with == nil {
		return nil
	}
	for _, cte := range with.CTEs {
		if cte.Name == nil || len(cte.Name.Parts) == 0 {
			return badRequest("CTE without a name")
		}
		name := cte.Name.Parts[len(cte.Name.Parts)-1]
		if len(cte.Columns) > 0 {
			return notSupported("a column list on CTE %s", name)
		}
		if cte.Select == nil {
			return badRequest("CTE %s has no SELECT", name)
		}
		compiled, err := translateSelectWithContext(cte.Select, v.ctx)
		if err != nil {
			return err
		}
		lets, body, err := SplitLets(compiled)
		if err != nil {
			return err
		}
		v.query.Lets = append(v.query.Lets, lets...)
		v.query.Lets = append(v.query.Lets, LetBinding{Name: Identifier([]string{name}), Expr: "(" + body + ")"})
		v.ctx.ctes[strings.ToLower(name)] = name
	}
	return nil
}

func (v *selectTranslatorVisitor) processFrom(from ast.TableExpr) error {
	switch t := from.(type) {
	case nil:
		return badRequest("FROM clause is required")
	case *ast.TableName:
		return v.registerTable(t)
	case *ast.SubqueryTable:
		if t.Select == nil {
			return badRequest("subquery without SELECT")
		}
		compiled, err := translateSelectWithContext(t.Select, v.ctx)
		if err != nil {
			return err
		}
		v.query.Source = TextSource{Text: compiled, Alias: t.Alias}
		v.addQualifier(t.Alias)
		return nil
	case *ast.JoinExpr:
		return notSupported("%s JOIN", t.Type)
	default:
		return badRequest("unsupported FROM clause %T", t)
	}
}

// registerTable resolves a table name against CTEs, stored views, configured tables and finally the cluster.
func (v *selectTranslatorVisitor) registerTable(table *ast.TableName) error {
	if table.Name == nil || len(table.Name.Parts) == 0 {
		return badRequest("invalid table reference")
	}
	parts := table.Name.Parts
	if len(parts) > 2 {
		return notSupported("table reference %s", strings.Join(parts, "."))
	}
	name := parts[len(parts)-1]
	v.addQualifier(name)
	v.addQualifier(table.Alias)

	if cte, ok := v.ctx.ctes[strings.ToLower(name)]; ok && len(parts) == 1 {
		v.query.Source = BindingRef{Name: cte}
		return nil
	}

	if vs := v.ctx.sp.ViewStore(); vs != nil {
		query, _, found, err := vs.Load(parts)
		if err != nil {
			return err
		}
		if found {
			v.query.Source = TextSource{Text: query, Alias: table.Alias}
			return nil
		}
	}

	if query, ok := v.ctx.sp.TableStore().GetTableQuery(parts...); ok {
		v.query.Source = TextSource{Text: query, Alias: table.Alias}
		return nil
	}

	ref := TableRef{Name: name}
	if len(parts) == 2 {
		ref.Schema = parts[0]
	}
	v.query.Source = ref
	return nil
}

func (v *selectTranslatorVisitor) addQualifier(name string) {
	if name = strings.TrimSpace(name); name != "" {
		v.qualifiers[strings.ToLower(name)] = struct{}{}
	}
}

// stripQualifier drops a leading table name or alias from a column reference.
func (v *selectTranslatorVisitor) stripQualifier(parts []string) []string {
	if len(parts) > 1 {
		if _, ok := v.qualifiers[strings.ToLower(parts[0])]; ok {
			return parts[1:]
		}
	}
	return parts
}

func (v *selectTranslatorVisitor) identifier(parts []string) string {
	return Identifier(v.stripQualifier(parts))
}

func (v *selectTranslatorVisitor) processColumns(items []ast.SelectItem) error {
	if len(items) == 0 {
		return badRequest("SELECT list is empty")
	}
	for _, item := range items {
		expr, err := v.expression(item.Expr)
		if err != nil {
			return err
		}
		if item.Alias != "" {
			expr = AliasedExpr{Expr: expr, Alias: item.Alias}
		}
		v.query.Columns = append(v.query.Columns, expr)
	}
	return nil
}

// expression converts a SELECT term. Identifiers and aggregate calls keep their structure; everything
// else is rendered to KQL text.
func (v *selectTranslatorVisitor) expression(e ast.Expr) (Expression, error) {
	switch n := e.(type) {
	case *ast.StarExpr:
		if n.Table != nil && len(n.Table.Parts) > 0 {
			qualifier := n.Table.Parts[len(n.Table.Parts)-1]
			if _, ok := v.qualifiers[strings.ToLower(qualifier)]; !ok {
				return nil, badRequest("unknown table %s in %s.*", qualifier, qualifier)
			}
		}
		return Literal{SQL: "*"}, nil
	case *ast.Identifier:
		parts := v.stripQualifier(n.Parts)
		if len(parts) == 1 {
			return ColumnRef{Name: parts[0]}, nil
		}
		return Literal{SQL: Identifier(parts), Rendered: true}, nil
	case *ast.FuncCall:
		name := strings.Join(n.Name.Parts, ".")
		if len(n.Name.Parts) == 1 && IsAggregate(name) {
			return v.aggregateCall(n)
		}
	}
	if containsAggregate(e) {
		return nil, notSupported("an aggregate nested inside an expression")
	}
	text, err := v.render(e, nil)
	if err != nil {
		return nil, err
	}
	return Literal{SQL: RewritePredicate(text), Rendered: true}, nil
}

func (v *selectTranslatorVisitor) aggregateCall(n *ast.FuncCall) (FunctionCall, error) {
	fc := FunctionCall{Name: strings.ToLower(n.Name.Parts[0]), Distinct: n.Distinct}
	for _, arg := range n.Args {
		if containsAggregate(arg) {
			return FunctionCall{}, notSupported("a nested aggregate in %s", fc.Name)
		}
		expr, err := v.expression(arg)
		if err != nil {
			return FunctionCall{}, err
		}
		fc.Args = append(fc.Args, expr)
	}
	return fc, nil
}

// term converts a GROUP BY or ORDER BY term. Integer literals are 1-based positions in the SELECT list.
func (v *selectTranslatorVisitor) term(e ast.Expr) (Expression, error) {
	num, ok := e.(*ast.NumericLiteral)
	if !ok {
		return v.expression(e)
	}
	pos, err := strconv.Atoi(num.Value)
	if err != nil || pos < 1 || pos > len(v.query.Columns) {
		return nil, badRequest("position %s is not in the SELECT list", num.Value)
	}
	col := v.query.Columns[pos-1]
	if isStar(Unalias(col)) {
		return nil, badRequest("position %d refers to *", pos)
	}
	if a, ok := col.(AliasedExpr); ok {
		return ColumnRef{Name: a.Alias}, nil
	}
	return col, nil
}

// havingAggregate substitutes aggregates in HAVING with the summarize column holding them.
func (v *selectTranslatorVisitor) havingAggregate(e ast.Expr) (string, bool) {
	call, ok := e.(*ast.FuncCall)
	if !ok || len(call.Name.Parts) != 1 || !IsAggregate(call.Name.Parts[0]) {
		return "", false
	}
	fc, err := v.aggregateCall(call)
	if err != nil {
		v.renderErr = err
		return "", true
	}
	agg, _ := AggregateFromCall(fc)
	kql := agg.KQL()
	for _, col := range v.query.Columns {
		if other, ok := aggregateOf(col); ok && other.KQL() == kql {
			return Escape(ExtractColumn(col).Label(), true), true
		}
	}
	for _, hidden := range v.query.HavingAggregates {
		if other, ok := aggregateOf(hidden.Expr); ok && other.KQL() == kql {
			return Escape(hidden.Alias, true), true
		}
	}
	alias := fmt.Sprintf("__having%d", len(v.query.HavingAggregates))
	v.query.HavingAggregates = append(v.query.HavingAggregates, AliasedExpr{Expr: fc, Alias: alias})
	return Escape(alias, true), true
}

// render spells e as KQL text. extra runs before the built-in substitutions.
func (v *selectTranslatorVisitor) render(e ast.Expr, extra func(ast.Expr) (string, bool)) (string, error) {
	v.renderErr = nil
	opts := RenderOptions(v.identifier)
	opts.Substitute = func(n ast.Expr) (string, bool) {
		if extra != nil {
			if text, ok := extra(n); ok {
				return text, true
			}
		}
		return v.substitute(n, opts)
	}
	text, err := render.Expr(e, opts)
	if v.renderErr != nil {
		return "", v.renderErr
	}
	if err != nil {
		return "", badRequest("%v", err)
	}
	return text, nil
}

func (v *selectTranslatorVisitor) substitute(e ast.Expr, opts render.Options) (string, bool) {
	switch n := e.(type) {
	case *ast.SubqueryExpr, *ast.ExistsExpr:
		v.renderErr = notSupported("subquery expressions")
		return "", true
	case *ast.InExpr:
		if n.Subquery != nil {
			v.renderErr = notSupported("IN (SELECT ...)")
			return "", true
		}
	case *ast.LikeExpr:
		if _, ok := n.Pattern.(*ast.StringLiteral); !ok {
			v.renderErr = notSupported("LIKE with a non-literal pattern")
			return "", true
		}
	case *ast.BetweenExpr:
		return v.between(n, opts)
	case *ast.FuncCall:
		return v.function(n, opts)
	}
	return "", false
}

// between spells x [NOT] BETWEEN lo AND hi as x [!]between (lo..hi) so that
// compound bounds keep their grouping.
func (v *selectTranslatorVisitor) between(n *ast.BetweenExpr, opts render.Options) (string, bool) {
	var parts [3]string
	for i, e := range []ast.Expr{n.Expr, n.Lower, n.Upper} {
		text, err := render.Expr(e, opts)
		if v.renderErr != nil {
			return "", true
		}
		if err != nil {
			v.renderErr = badRequest("%v", err)
			return "", true
		}
		parts[i] = text
	}
	op := "between"
	if n.Not {
		op = "!between"
	}
	return fmt.Sprintf("%s %s (%s..%s)", parts[0], op, parts[1], parts[2]), true
}

// function handles JSON_VALUE/JSON_QUERY and SQL names of KQL functions.
func (v *selectTranslatorVisitor) function(call *ast.FuncCall, opts render.Options) (string, bool) {
	if len(call.Name.Parts) != 1 {
		return "", false
	}
	name := strings.ToLower(call.Name.Parts[0])
	switch name {
	case "json_value", "json_query":
		if len(call.Args) != 2 {
			v.renderErr = badRequest("%s expects a column and a path", strings.ToUpper(name))
			return "", true
		}
		lit, ok := call.Args[1].(*ast.StringLiteral)
		if !ok {
			v.renderErr = badRequest("%s path must be a string literal", strings.ToUpper(name))
			return "", true
		}
		path, err := parseJSONPath(lit.Value)
		if err != nil {
			v.renderErr = err
			return "", true
		}
		base, err := render.Expr(call.Args[0], opts)
		if err != nil {
			v.renderErr = badRequest("%v", err)
			return "", true
		}
		access := path.Access(base)
		if name == "json_value" {
			return "tostring(" + access + ")", true
		}
		return access, true
	}

	mapped, ok := sqlFunctions[name]
	if !ok {
		return "", false
	}
	args := make([]string, len(call.Args))
	for i, arg := range call.Args {
		text, err := render.Expr(arg, opts)
		if err != nil {
			v.renderErr = badRequest("%v", err)
			return "", true
		}
		args[i] = text
	}
	return mapped + "(" + strings.Join(args, ", ") + ")", true
}

// containsAggregate reports an aggregate call in e outside nested subqueries.
func containsAggregate(e ast.Expr) bool {
	found := false
	ast.Inspect(e, func(node ast.Node) bool {
		switch n := node.(type) {
		case *ast.FuncCall:
			if len(n.Name.Parts) == 1 && IsAggregate(n.Name.Parts[0]) {
				found = true
			}
		case *ast.SubqueryExpr, *ast.ExistsExpr:
			return false
		}
		return !found
	})
	return found
}
