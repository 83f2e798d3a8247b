package kql

import (
	"regexp"
	"strings"
)

var schemaPattern = regexp.MustCompile(`^\[?([a-zA-Z0-9_]+\b|"[a-zA-Z0-9 \-_.]+")?\]?\.?\[?([a-zA-Z0-9_]+\b|"[a-zA-Z0-9 \-_.]+")\]?`)

// ConvertSchema rewrites a leading schema.table reference as database("schema").["table"].
// The rest of the text is kept. Text that does not start with a plain table reference is returned unchanged.
func ConvertSchema(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "database(") || strings.HasPrefix(text, "cluster(") {
		return raw
	}
	m := schemaPattern.FindStringSubmatchIndex(text)
	if m == nil {
		return raw
	}
	rest := text[m[1]:]
	if trimmed := strings.TrimSpace(rest); trimmed != "" && !strings.HasPrefix(trimmed, "|") {
		return raw
	}
	table := text[m[4]:m[5]]
	if m[2] < 0 {
		return tableName("", table) + rest
	}
	return tableName(text[m[2]:m[3]], table) + rest
}

// tableName formats a table reference, optionally in another database.
func tableName(schema, table string) string {
	name := quoteName(strings.Trim(table, `"`))
	if schema == "" {
		return name
	}
	return `database("` + strings.ReplaceAll(strings.Trim(schema, `"`), `"`, `\"`) + `").` + name
}
