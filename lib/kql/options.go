package kql

import (
	"regexp"
	"strings"

	"github.com/dodopizza/sql-to-kql/lib/sql/render"
)

var plainIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// keywords must be bracket-quoted when used as column names.
var keywords = map[string]struct{}{
	"and": {}, "as": {}, "asc": {}, "between": {}, "by": {}, "contains": {}, "count": {},
	"datatable": {}, "datetime": {}, "desc": {}, "distinct": {}, "dynamic": {}, "endswith": {},
	"extend": {}, "false": {}, "from": {}, "has": {}, "in": {}, "join": {}, "let": {}, "limit": {},
	"not": {}, "null": {}, "on": {}, "or": {}, "order": {}, "print": {}, "project": {}, "range": {},
	"sort": {}, "startswith": {}, "step": {}, "summarize": {}, "take": {}, "timespan": {}, "to": {},
	"top": {}, "true": {}, "union": {}, "where": {}, "with": {},
}

// kqlOperators spells SQL operators the KQL way. It is built once and only read.
var kqlOperators = map[string]string{
	"AND": "and",
	"OR":  "or",
	"NOT": "not",
	"=":   "==",
	"<>":  "!=",
}

// Identifier formats a possibly dotted name. The first part names a column and
// the rest are dynamic member accesses.
func Identifier(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(columnName(parts[0]))
	for _, part := range parts[1:] {
		if plainIdentifier.MatchString(part) {
			b.WriteString("." + part)
			continue
		}
		b.WriteString(`["` + strings.ReplaceAll(part, `"`, `\"`) + `"]`)
	}
	return b.String()
}

func columnName(name string) string {
	if plainIdentifier.MatchString(name) {
		if _, reserved := keywords[strings.ToLower(name)]; !reserved {
			return name
		}
	}
	return quoteName(name)
}

// String formats a KQL string literal.
func String(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return "'" + strings.ReplaceAll(value, "'", `\'`) + "'"
}

// RenderOptions returns the render options producing KQL scalar expressions.
// identifier may replace the default formatter to resolve source qualifiers.
func RenderOptions(identifier func(parts []string) string) render.Options {
	if identifier == nil {
		identifier = Identifier
	}
	return render.Options{
		Operators:      kqlOperators,
		Identifier:     identifier,
		String:         String,
		Null:           "dynamic(null)",
		LowerBooleans:  true,
		MinimalParens:  true,
		NotAsFunction:  true,
		CaseAsFunction: true,
	}
}
