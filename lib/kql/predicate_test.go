package kql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dodopizza/sql-to-kql/lib/kql"
)

func TestRewritePredicate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{input: "Field1 = '1'", want: "Field1 == '1'"},
		{input: "Field1 LIKE '%123%'", want: "Field1 has_cs '123'"},
		{input: "Field1 NOT ILIKE '123%'", want: "Field1 !startswith '123'"},
		{input: "Field2 BETWEEN 2 AND 4", want: "Field2 between (2..4)"},
		{input: "Field1 IN ('1','One')", want: "Field1 in ('1','One')"},
		{input: "Field1 NOT IN (1, 2)", want: "Field1 !in (1, 2)"},
		{input: "Field1 NOT BETWEEN ago(1d) AND now()", want: "Field1 !between (ago(1d)..now())"},
		{input: "Field1 BETWEEN Field2 - 1 AND Field2 + 1", want: "Field1 between (Field2 - 1..Field2 + 1)"},
		{input: "Field1 NOT BETWEEN 2 * x AND now() - 1d AND y = 1", want: "Field1 !between (2 * x..now() - 1d) and y == 1"},
		{input: "Field1 <> 3 AND Field2 >= 4", want: "Field1 != 3 and Field2 >= 4"},
		{input: "Field1 < = 3 OR Field2 > = 4", want: "Field1 <= 3 or Field2 >= 4"},
		{input: "Field1 != = 3", want: "Field1 != 3"},
		{input: "Field1 == 3", want: "Field1 == 3"},
		{input: `["Field 1"] IS NULL`, want: `isnull(["Field 1"])`},
		{input: "Field1 IS NOT NULL", want: "isnotnull(Field1)"},
		{input: "Name LIKE 'abc%'", want: "Name startswith_cs 'abc'"},
		{input: "Name LIKE '%abc'", want: "Name endswith_cs 'abc'"},
		{input: "Name NOT LIKE '%abc%'", want: "Name !has_cs 'abc'"},
		{input: "Name ILIKE '%abc%'", want: "Name has 'abc'"},
		{input: `Name LIKE "%abc"`, want: `Name endswith_cs "abc"`},
		{input: "lower(Name) LIKE 'abc%'", want: "tolower(Name) startswith_cs 'abc'"},
		{input: "Name ILIKE 'abc'", want: "Name =~ 'abc'"},
		{input: "Name NOT LIKE 'abc'", want: "Name != 'abc'"},
		{input: "Name NOT ILIKE 'abc'", want: "Name !~ 'abc'"},
		{input: "Name LIKE '50%off'", want: "Name == '50%off'"},
		{input: "Comment = 'a = b AND c'", want: "Comment == 'a = b AND c'"},
		{input: "NOT (Field1 = 1)", want: "not(Field1 == 1)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, kql.RewritePredicate(tt.input), "RewritePredicate(%q)", tt.input)
	}
}
