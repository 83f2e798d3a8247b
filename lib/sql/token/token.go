// Package token defines the lexical vocabulary of the SQL dialect accepted by
// the translator.
package token

import (
	"fmt"
	"strings"
)

type Type string

// Position is a 1-based line and column in the SQL text.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

type Token struct {
	Type    Type
	Literal string
	Pos     Position
}

func (t Token) String() string {
	if t.Literal == "" || t.Literal == string(t.Type) {
		return string(t.Type)
	}
	return fmt.Sprintf("%s(%s)", t.Type, t.Literal)
}

const (
	ILLEGAL Type = "ILLEGAL"
	EOF     Type = "EOF"
)

// Literal classes. TIMESPAN is a number glued to a KQL unit such as 30m.
const (
	IDENT       Type = "IDENT"
	NUMBER      Type = "NUMBER"
	STRING      Type = "STRING"
	TIMESPAN    Type = "TIMESPAN"
	PLACEHOLDER Type = "PLACEHOLDER"
)

// Punctuation and operators. Both <> and != lex as NEQ.
const (
	COMMA     Type = ","
	SEMICOLON Type = ";"
	DOT       Type = "."
	LPAREN    Type = "("
	RPAREN    Type = ")"

	PLUS    Type = "+"
	MINUS   Type = "-"
	STAR    Type = "*"
	SLASH   Type = "/"
	PERCENT Type = "%"

	EQ  Type = "="
	NEQ Type = "NEQ"
	LT  Type = "<"
	LTE Type = "<="
	GT  Type = ">"
	GTE Type = ">="
)

// Statement keywords.
const (
	SELECT    Type = "SELECT"
	INSERT    Type = "INSERT"
	INTO      Type = "INTO"
	VALUES    Type = "VALUES"
	CREATE    Type = "CREATE"
	DROP      Type = "DROP"
	REPLACE   Type = "REPLACE"
	VIEW      Type = "VIEW"
	VIEWS     Type = "VIEWS"
	TABLE     Type = "TABLE"
	TABLES    Type = "TABLES"
	DATABASES Type = "DATABASES"
	DESCRIBE  Type = "DESCRIBE"
	SHOW      Type = "SHOW"

	MATERIALIZED Type = "MATERIALIZED"
)

// Clause keywords.
const (
	WITH     Type = "WITH"
	DISTINCT Type = "DISTINCT"
	AS       Type = "AS"
	FROM     Type = "FROM"
	WHERE    Type = "WHERE"
	GROUP    Type = "GROUP"
	HAVING   Type = "HAVING"
	ORDER    Type = "ORDER"
	BY       Type = "BY"
	ASC      Type = "ASC"
	DESC     Type = "DESC"
	LIMIT    Type = "LIMIT"
	OFFSET   Type = "OFFSET"
	IF       Type = "IF"

	JOIN  Type = "JOIN"
	INNER Type = "INNER"
	LEFT  Type = "LEFT"
	RIGHT Type = "RIGHT"
	FULL  Type = "FULL"
	OUTER Type = "OUTER"
	CROSS Type = "CROSS"
	ON    Type = "ON"

	UNION     Type = "UNION"
	INTERSECT Type = "INTERSECT"
	EXCEPT    Type = "EXCEPT"
	ALL       Type = "ALL"
)

// Expression keywords.
const (
	AND Type = "AND"
	OR  Type = "OR"
	NOT Type = "NOT"

	NULL  Type = "NULL"
	TRUE  Type = "TRUE"
	FALSE Type = "FALSE"

	IS      Type = "IS"
	IN      Type = "IN"
	LIKE    Type = "LIKE"
	ILIKE   Type = "ILIKE"
	BETWEEN Type = "BETWEEN"
	EXISTS  Type = "EXISTS"

	CASE Type = "CASE"
	WHEN Type = "WHEN"
	THEN Type = "THEN"
	ELSE Type = "ELSE"
	END  Type = "END"
)

var keywords = make(map[string]Type)

func init() {
	for _, kw := range []Type{
		SELECT, INSERT, INTO, VALUES, CREATE, DROP, REPLACE, VIEW, VIEWS, TABLE, TABLES,
		DATABASES, DESCRIBE, SHOW, MATERIALIZED,
		WITH, DISTINCT, AS, FROM, WHERE, GROUP, HAVING, ORDER, BY, ASC, DESC, LIMIT, OFFSET, IF,
		JOIN, INNER, LEFT, RIGHT, FULL, OUTER, CROSS, ON,
		UNION, INTERSECT, EXCEPT, ALL,
		AND, OR, NOT, NULL, TRUE, FALSE, IS, IN, LIKE, ILIKE, BETWEEN, EXISTS,
		CASE, WHEN, THEN, ELSE, END,
	} {
		keywords[string(kw)] = kw
	}
}

// Lookup classifies an upper-cased word as a keyword or IDENT.
func Lookup(word string) Type {
	if kw, ok := keywords[word]; ok {
		return kw
	}
	return IDENT
}

// IsKeyword reports whether word, in any case, is reserved.
func IsKeyword(word string) bool {
	_, ok := keywords[strings.ToUpper(word)]
	return ok
}

var timespanUnits = map[string]bool{
	"d": true, "day": true, "days": true,
	"h": true, "hr": true, "hrs": true, "hour": true, "hours": true,
	"m": true, "min": true, "minute": true, "minutes": true,
	"s": true, "sec": true, "second": true, "seconds": true,
	"ms": true, "milli": true, "millis": true, "millisecond": true, "milliseconds": true,
	"microsecond": true, "microseconds": true,
	"tick": true, "ticks": true,
}

// IsTimespanUnit reports whether suffix may follow a number to form a KQL timespan.
func IsTimespanUnit(suffix string) bool {
	return timespanUnits[suffix]
}
