package kql_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dodopizza/sql-to-kql/lib/kql"
	"github.com/dodopizza/sql-to-kql/lib/sql/ast"
	sqlparser "github.com/dodopizza/sql-to-kql/lib/sql/parser"
	"github.com/dodopizza/sql-to-kql/lib/store"
	"github.com/dodopizza/sql-to-kql/lib/store/tablestore"
	"github.com/dodopizza/sql-to-kql/lib/store/viewstore"
)

func parseStatement(t *testing.T, sql string) ast.Statement {
	t.Helper()

	stmt, err := sqlparser.Parse(sql)
	require.NoError(t, err, "parse %q", sql)
	return stmt
}

func newProvider(t *testing.T, tables map[string]string, viewsDir string) *store.Provider {
	t.Helper()

	ts, err := tablestore.NewTableStore(tables)
	require.NoError(t, err)
	vs, err := viewstore.NewViewStore(viewsDir)
	require.NoError(t, err)
	return store.NewStoreProvider(ts, vs)
}

func statementInfo(t *testing.T, sp *store.Provider, sql string) (*kql.StatementInfo, error) {
	t.Helper()
	return kql.GetStatementInfo(parseStatement(t, sql), sp)
}

func mustTranslate(t *testing.T, sp *store.Provider, sql string) string {
	t.Helper()

	si, err := statementInfo(t, sp, sql)
	require.NoError(t, err, "translate %q", sql)
	require.Equal(t, kql.StatementTypeSelect, si.Kind)
	return si.KQL
}

var stormTables = map[string]string{
	"texas": "StormEvents | where State == 'TEXAS'",
}

func TestTranslateSelectGolden(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".kql"))
	sp := newProvider(t, stormTables, "")

	tests := []struct {
		name string
		sql  string
	}{
		{
			name: "group_by_count",
			sql:  "SELECT State, count(*) AS events FROM StormEvents WHERE Injuries > 0 AND State ILIKE 'tex%' GROUP BY State ORDER BY events DESC LIMIT 10",
		},
		{
			name: "cte",
			sql:  "WITH texas_storms AS (SELECT State, Injuries FROM StormEvents WHERE State = 'TEXAS') SELECT Injuries FROM texas_storms LIMIT 5",
		},
		{
			name: "subquery",
			sql:  "SELECT s.State FROM (SELECT State FROM StormEvents) AS s",
		},
		{
			name: "schema_filters",
			sql:  "SELECT * FROM Samples.StormEvents WHERE EventType IN ('Flood', 'Hail') AND DamageProperty BETWEEN 1000 AND 5000",
		},
		{
			name: "extend_json",
			sql:  "SELECT JSON_VALUE(Properties, '$.source.name') AS origin, bin(StartTime, 1h) AS hour FROM StormEvents WHERE Properties IS NOT NULL ORDER BY 2",
		},
		{
			name: "having",
			sql:  "SELECT State, sum(Injuries) AS hurt FROM StormEvents GROUP BY State HAVING sum(Injuries) > 10 AND count(*) > 2",
		},
		{
			name: "distinct",
			sql:  "SELECT DISTINCT State, EventType FROM StormEvents",
		},
		{
			name: "configured_table",
			sql:  "SELECT count(*) FROM texas",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, tt.name, []byte(mustTranslate(t, sp, tt.sql)+"\n"))
		})
	}
}

func TestTranslateSelectScenarios(t *testing.T) {
	t.Parallel()
	sp := newProvider(t, nil, "")

	assert.Equal(t, "[\"logs\"]\n| project [\"Field1\"], [\"Field2\"]\n| take 5",
		mustTranslate(t, sp, "SELECT Field1, Field2 FROM logs LIMIT 5"))
	assert.Equal(t, "[\"logs\"]\n| where Field1 > 1 and Field2 < 2\n| summarize [\"count\"] = count()\n| project [\"count\"]\n| order by [\"count\"] desc\n| take 5",
		mustTranslate(t, sp, "SELECT count(*) AS count FROM logs WHERE Field1 > 1 AND Field2 < 2 ORDER BY count DESC LIMIT 5"))
	assert.Equal(t, "[\"logs\"]\n| where not(Level == 'debug') and Message has_cs 'timeout'\n| project [\"Message\"]",
		mustTranslate(t, sp, "SELECT l.Message FROM logs l WHERE NOT (Level = 'debug') AND Message LIKE '%timeout%'"))
	assert.Equal(t, "[\"logs\"]\n| where Field1 between (Field2 - 1..Field2 + 1)\n| project [\"Field1\"]",
		mustTranslate(t, sp, "SELECT Field1 FROM logs WHERE Field1 BETWEEN Field2 - 1 AND Field2 + 1"))
	assert.Equal(t, "[\"logs\"]\n| where Field1 !between (10..Field2 * 2) and Level == 'warn'\n| project [\"Field1\"]",
		mustTranslate(t, sp, "SELECT Field1 FROM logs WHERE Field1 NOT BETWEEN 10 AND Field2 * 2 AND Level = 'warn'"))
}

func TestTranslateSelectErrors(t *testing.T) {
	t.Parallel()
	sp := newProvider(t, nil, "")

	notSupported := []string{
		"SELECT a.x FROM a JOIN b ON a.id = b.id",
		"SELECT x FROM a UNION SELECT x FROM b",
		"SELECT x FROM a LIMIT 5 OFFSET 10",
		"SELECT x FROM a WHERE y IN (SELECT y FROM b)",
		"SELECT sum(x) + 1 FROM a",
		"SELECT x FROM a WHERE x LIKE y",
		"SELECT DISTINCT * FROM a",
	}
	for _, sql := range notSupported {
		_, err := statementInfo(t, sp, sql)
		require.Error(t, err, sql)
		assert.True(t, errors.Is(err, kql.ErrNotSupported), "%s: %v", sql, err)
	}

	badRequest := []string{
		"SELECT x FROM a ORDER BY 3",
		"SELECT x FROM a WHERE count(*) > 1",
		"SELECT JSON_VALUE(payload, 'a.b') FROM a",
	}
	for _, sql := range badRequest {
		_, err := statementInfo(t, sp, sql)
		var te *kql.TranslationError
		require.ErrorAs(t, err, &te, sql)
		assert.Equal(t, http.StatusBadRequest, te.Code, sql)
	}
}

func TestSelectFromMalformedView(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	sp := newProvider(t, map[string]string{"broken": "let x = 1;"}, dir)

	_, err := statementInfo(t, sp, "SELECT * FROM broken")
	require.Error(t, err)
	assert.True(t, errors.Is(err, kql.ErrMalformedQuery))
}
