package parser_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/dodopizza/sql-to-kql/lib/sql/ast"
	"github.com/dodopizza/sql-to-kql/lib/sql/lexer"
	sqlparser "github.com/dodopizza/sql-to-kql/lib/sql/parser"
	"github.com/dodopizza/sql-to-kql/lib/sql/render"
)

// canonical parses sql and renders it back with every binary expression
// parenthesized, which makes the tree shape visible in a string.
func canonical(t *testing.T, sql string) string {
	t.Helper()
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		t.Fatalf("Parse(%q): %v", sql, err)
	}
	out, err := render.Render(stmt)
	if err != nil {
		t.Fatalf("Render(%q): %v", sql, err)
	}
	return out
}

func TestParseQueries(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "projection and filter",
			sql:  "select a, b AS x, c y from t where a = 1",
			want: "SELECT a, b AS x, c AS y FROM t WHERE (a = 1)",
		},
		{
			name: "star",
			sql:  "SELECT * FROM logs",
			want: "SELECT * FROM logs",
		},
		{
			name: "qualified star",
			sql:  "SELECT t.* FROM db.t AS t",
			want: "SELECT t.* FROM db.t AS t",
		},
		{
			name: "AND binds tighter than OR",
			sql:  "SELECT a FROM t WHERE a = 1 OR b = 2 AND c = 3",
			want: "SELECT a FROM t WHERE ((a = 1) OR ((b = 2) AND (c = 3)))",
		},
		{
			name: "NOT covers the comparison",
			sql:  "SELECT a FROM t WHERE NOT a = 1 AND b",
			want: "SELECT a FROM t WHERE (NOT ((a = 1)) AND b)",
		},
		{
			name: "arithmetic",
			sql:  "SELECT a + b * c - d, -a * 2, x % 3 FROM t",
			want: "SELECT ((a + (b * c)) - d), (-a * 2), (x % 3) FROM t",
		},
		{
			name: "predicates",
			sql:  "SELECT a FROM t WHERE a NOT IN (1, 2) AND b NOT BETWEEN 1 AND 5 AND c ILIKE 'x%' AND d IS NOT NULL",
			want: "SELECT a FROM t WHERE (((a NOT IN (1, 2) AND b NOT BETWEEN 1 AND 5) AND c ILIKE 'x%') AND d IS NOT NULL)",
		},
		{
			name: "IN subquery and NOT LIKE",
			sql:  "SELECT a FROM t WHERE a IN (SELECT a FROM u) OR b NOT LIKE '%z' OR c IS NULL",
			want: "SELECT a FROM t WHERE ((a IN (SELECT a FROM u) OR b NOT LIKE '%z') OR c IS NULL)",
		},
		{
			name: "scalar subquery and NOT EXISTS",
			sql:  "SELECT a FROM t WHERE a > (SELECT max(a) FROM u) AND NOT EXISTS (SELECT 1 FROM v)",
			want: "SELECT a FROM t WHERE ((a > (SELECT max(a) FROM u)) AND NOT EXISTS (SELECT 1 FROM v))",
		},
		{
			name: "both inequality spellings",
			sql:  "SELECT a FROM t WHERE a <> 1 AND b != 2",
			want: "SELECT a FROM t WHERE ((a <> 1) AND (b != 2))",
		},
		{
			name: "timespans and placeholders",
			sql:  "SELECT a FROM t WHERE ts > ago(1h) AND ts < ago(30MIN) AND b = ?",
			want: "SELECT a FROM t WHERE (((ts > ago(1h)) AND (ts < ago(30min))) AND (b = ?))",
		},
		{
			name: "literals",
			sql:  "SELECT TRUE, false, NULL, 'it''s', 1.5, 2e3 FROM t",
			want: "SELECT TRUE, FALSE, NULL, 'it''s', 1.5, 2e3 FROM t",
		},
		{
			name: "functions",
			sql:  "SELECT count(DISTINCT a), replace(b, 'x', 'y'), left(c, 2), now() FROM t",
			want: "SELECT count(DISTINCT a), REPLACE(b, 'x', 'y'), LEFT(c, 2), now() FROM t",
		},
		{
			name: "searched case",
			sql:  "SELECT CASE WHEN a > 1 THEN 'big' ELSE 'small' END AS size FROM t",
			want: "SELECT CASE WHEN (a > 1) THEN 'big' ELSE 'small' END AS size FROM t",
		},
		{
			name: "simple case",
			sql:  "SELECT CASE a WHEN 1 THEN 'one' WHEN 2 THEN 'two' END FROM t",
			want: "SELECT CASE a WHEN 1 THEN 'one' WHEN 2 THEN 'two' END FROM t",
		},
		{
			name: "grouping",
			sql:  "SELECT a, count(*) FROM t GROUP BY a HAVING count(*) > 1",
			want: "SELECT a, count(*) FROM t GROUP BY a HAVING (count(*) > 1)",
		},
		{
			name: "ordering and paging",
			sql:  "SELECT x FROM t ORDER BY x DESC, y LIMIT 10 OFFSET 5",
			want: "SELECT x FROM t ORDER BY x DESC, y ASC LIMIT 10 OFFSET 5",
		},
		{
			name: "offset only",
			sql:  "SELECT x FROM t OFFSET 3",
			want: "SELECT x FROM t OFFSET 3",
		},
		{
			name: "top",
			sql:  "SELECT TOP 5 a FROM t",
			want: "SELECT a FROM t LIMIT 5",
		},
		{
			name: "column named top",
			sql:  "SELECT top FROM t",
			want: "SELECT top FROM t",
		},
		{
			name: "joins",
			sql:  "SELECT a.x FROM a LEFT OUTER JOIN b ON a.id = b.id JOIN c ON c.id = a.id",
			want: "SELECT a.x FROM a LEFT JOIN b ON (a.id = b.id) INNER JOIN c ON (c.id = a.id)",
		},
		{
			name: "comma and cross join",
			sql:  "SELECT * FROM a, b CROSS JOIN c",
			want: "SELECT * FROM a CROSS JOIN b CROSS JOIN c",
		},
		{
			name: "subquery table",
			sql:  "SELECT s.x FROM (SELECT x FROM t) s",
			want: "SELECT s.x FROM (SELECT x FROM t) AS s",
		},
		{
			name: "common table expressions",
			sql:  "WITH r (x) AS (SELECT x FROM t), q AS (SELECT x FROM r) SELECT x FROM q",
			want: "WITH r (x) AS (SELECT x FROM t), q AS (SELECT x FROM r) SELECT x FROM q",
		},
		{
			name: "set operations",
			sql:  "SELECT x FROM a UNION ALL SELECT x FROM b EXCEPT (SELECT x FROM c)",
			want: "SELECT x FROM a UNION ALL SELECT x FROM b EXCEPT SELECT x FROM c",
		},
		{
			name: "quoted identifiers",
			sql:  `SELECT [Event Type], "Begin Location", ` + "`select`" + ` FROM ["Storm Events"]`,
			want: `SELECT "Event Type", "Begin Location", "select" FROM "Storm Events"`,
		},
		{
			name: "comments and semicolons",
			sql:  "-- daily\nSELECT /* all */ a FROM t;;",
			want: "SELECT a FROM t",
		},
		{
			name: "insert values",
			sql:  "INSERT INTO logs (a, b) VALUES (1, 'x'), (-2, 'y')",
			want: "INSERT INTO logs (a, b) VALUES (1, 'x'), (-2, 'y')",
		},
		{
			name: "insert select",
			sql:  "INSERT INTO logs SELECT a FROM t",
			want: "INSERT INTO logs SELECT a FROM t",
		},
		{
			name: "create view",
			sql:  "CREATE OR REPLACE MATERIALIZED VIEW IF NOT EXISTS v (a) AS SELECT a FROM t",
			want: "CREATE OR REPLACE MATERIALIZED VIEW IF NOT EXISTS v (a) AS SELECT a FROM t",
		},
		{
			name: "create view over a with query",
			sql:  "CREATE VIEW v AS WITH r AS (SELECT a FROM t) SELECT a FROM r",
			want: "CREATE VIEW v AS WITH r AS (SELECT a FROM t) SELECT a FROM r",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canonical(t, tt.sql); got != tt.want {
				t.Fatalf("got\n  %s\nwant\n  %s", got, tt.want)
			}
		})
	}
}

func TestParseCatalogStatements(t *testing.T) {
	tests := []struct {
		sql  string
		want ast.Statement
	}{
		{"SHOW DATABASES", &ast.ShowDatabasesStatement{}},
		{"show tables;", &ast.ShowTablesStatement{}},
		{"SHOW VIEWS", &ast.ShowViewsStatement{}},
		{"DESCRIBE logs", &ast.DescribeStatement{Target: ast.DescribeAny, Name: &ast.Identifier{Parts: []string{"logs"}}}},
		{"DESCRIBE TABLE Samples.StormEvents", &ast.DescribeStatement{Target: ast.DescribeTable, Name: &ast.Identifier{Parts: []string{"Samples", "StormEvents"}}}},
		{"DESCRIBE VIEW texas", &ast.DescribeStatement{Target: ast.DescribeView, Name: &ast.Identifier{Parts: []string{"texas"}}}},
		{"DROP VIEW texas", &ast.DropViewStatement{Name: &ast.Identifier{Parts: []string{"texas"}}}},
		{"DROP MATERIALIZED VIEW IF EXISTS texas", &ast.DropViewStatement{Materialized: true, IfExists: true, Name: &ast.Identifier{Parts: []string{"texas"}}}},
	}

	for _, tt := range tests {
		got, err := sqlparser.Parse(tt.sql)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.sql, err)
		}
		if !sameStatement(got, tt.want) {
			t.Fatalf("Parse(%q) = %#v, want %#v", tt.sql, got, tt.want)
		}
	}
}

func sameStatement(got, want ast.Statement) bool {
	switch w := want.(type) {
	case *ast.DescribeStatement:
		g, ok := got.(*ast.DescribeStatement)
		return ok && g.Target == w.Target && sameName(g.Name, w.Name)
	case *ast.DropViewStatement:
		g, ok := got.(*ast.DropViewStatement)
		return ok && g.Materialized == w.Materialized && g.IfExists == w.IfExists && sameName(g.Name, w.Name)
	case *ast.ShowDatabasesStatement:
		_, ok := got.(*ast.ShowDatabasesStatement)
		return ok
	case *ast.ShowTablesStatement:
		_, ok := got.(*ast.ShowTablesStatement)
		return ok
	case *ast.ShowViewsStatement:
		_, ok := got.(*ast.ShowViewsStatement)
		return ok
	}
	return false
}

func sameName(a, b *ast.Identifier) bool {
	return a != nil && b != nil && strings.Join(a.Parts, ".") == strings.Join(b.Parts, ".")
}

func TestParseTopSetsLimit(t *testing.T) {
	stmt, err := sqlparser.Parse("SELECT TOP 10 State FROM StormEvents")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sel := stmt.(*ast.SelectStatement)
	if sel.Limit == nil || sel.Limit.Offset != nil {
		t.Fatalf("unexpected limit %#v", sel.Limit)
	}
	if n, ok := sel.Limit.Count.(*ast.NumericLiteral); !ok || n.Value != "10" {
		t.Fatalf("limit count = %#v, want 10", sel.Limit.Count)
	}
	if len(sel.Columns) != 1 {
		t.Fatalf("expected one column, got %d", len(sel.Columns))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		sql       string
		want      string
		line, col int
	}{
		{sql: "SELECT\nFROM accounts", want: "unexpected token FROM", line: 2, col: 1},
		{sql: "SELECT 1 2", want: "unexpected token NUMBER after statement", line: 1, col: 10},
		{sql: "SELECT 1; SELECT 2", want: "unexpected token SELECT after statement", line: 1, col: 11},
		{sql: "INSERT INTO logs VALUES", want: "expected (, got EOF", line: 1, col: 24},
		{sql: "INSERT INTO logs", want: "expected VALUES or SELECT, got EOF", line: 1, col: 17},
		{sql: "DROP VIEW", want: "expected IDENT, got EOF", line: 1, col: 10},
		{sql: "SHOW INDEXES", want: "SHOW expects DATABASES, TABLES or VIEWS, got IDENT", line: 1, col: 6},
		{sql: "UPDATE t SET a = 1", want: "unsupported statement starting with IDENT", line: 1, col: 1},
		{sql: "SELECT CASE END FROM logs", want: "CASE requires at least one WHEN branch", line: 1, col: 8},
		{sql: "CREATE VIEW v AS DELETE FROM t", want: "CREATE VIEW requires SELECT, got IDENT", line: 1, col: 18},
		{sql: "SELECT TOP 5 a FROM t LIMIT 3", want: "LIMIT cannot be combined with TOP", line: 1, col: 23},
		{sql: "SELECT a FROM t JOIN u", want: "expected ON, got EOF", line: 1, col: 23},
		{sql: "SELECT a. FROM t", want: "expected identifier after '.', got FROM", line: 1, col: 11},
		{sql: "SELECT a FROM", want: "expected table name or subquery, got EOF", line: 1, col: 14},
		{sql: "SELECT 'open FROM t", want: "unterminated string literal", line: 1, col: 8},
		{sql: "SELECT a FROM t WHERE a # 1", want: "unexpected character '#'", line: 1, col: 25},
		{sql: "SELECT 10abc FROM t", want: "invalid number 10abc", line: 1, col: 8},
		{sql: "WITH r AS (SELECT 1) DELETE", want: "expected SELECT after WITH clause, got IDENT", line: 1, col: 22},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			p := sqlparser.New(lexer.New(tt.sql))
			if stmt := p.ParseStatement(); stmt != nil {
				t.Fatalf("expected no statement, got %T", stmt)
			}
			errs := p.Errors()
			if len(errs) != 1 {
				t.Fatalf("expected exactly one error, got %v", errs)
			}
			var se *sqlparser.SyntaxError
			if !errors.As(errs[0], &se) {
				t.Fatalf("expected *SyntaxError, got %T", errs[0])
			}
			if se.Msg != tt.want {
				t.Fatalf("message = %q, want %q", se.Msg, tt.want)
			}
			if se.Pos.Line != tt.line || se.Pos.Column != tt.col {
				t.Fatalf("position = %d:%d, want %d:%d", se.Pos.Line, se.Pos.Column, tt.line, tt.col)
			}
		})
	}
}

func TestSyntaxErrorString(t *testing.T) {
	_, err := sqlparser.Parse("SELECT\nFROM accounts")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "line 2, column 1: unexpected token FROM") {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}

func TestParseLimits(t *testing.T) {
	deep := "SELECT " + strings.Repeat("(", sqlparser.MaxParserDepth+5) + "1" + strings.Repeat(")", sqlparser.MaxParserDepth+5)
	if _, err := sqlparser.Parse(deep); err == nil || !strings.Contains(err.Error(), "maximum nesting depth") {
		t.Fatalf("expected nesting error, got %v", err)
	}

	items := make([]string, sqlparser.MaxExpressionCount+1)
	for i := range items {
		items[i] = "1"
	}
	long := "SELECT a FROM t WHERE a IN (" + strings.Join(items, ", ") + ")"
	if _, err := sqlparser.Parse(long); err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("expected list length error, got %v", err)
	}

	fits := "SELECT a FROM t WHERE a IN (" + strings.Join(items[1:], ", ") + ")"
	if _, err := sqlparser.Parse(fits); err != nil {
		t.Fatalf("list of %d items should parse: %v", len(items)-1, err)
	}
}
