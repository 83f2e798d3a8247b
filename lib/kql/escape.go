package kql

import (
	"regexp"
	"strings"
)

var (
	functionCallPattern = regexp.MustCompile(`(?s)^[A-Za-z_][\w.]*\s*\(.*\)$`)
	integerPattern      = regexp.MustCompile(`^-?\d+$`)
	escapedPattern      = regexp.MustCompile(`^\["(?:[^"\\]|\\.)*"\]$`)
	countStarPattern    = regexp.MustCompile(`(?i)^["\[]?\s*count\s*\(\s*\*\s*\)\s*["\]]?$`)
)

// Escape quotes a column name or the leading column operand of an arithmetic expression.
// Function calls and integers pass through unless isAlias is set, and already quoted names are returned as is.
func Escape(name string, isAlias bool) string {
	name = strings.TrimSpace(name)
	if countStarPattern.MatchString(name) {
		if isAlias {
			return `["COUNT(*)"]`
		}
		return "count()"
	}
	if !isAlias && (functionCallPattern.MatchString(name) || integerPattern.MatchString(name)) {
		return name
	}
	if escapedPattern.MatchString(name) {
		return name
	}
	if !isAlias {
		if i := topLevelOperator(name); i > 0 {
			left := strings.TrimRight(name[:i], " \t\r\n")
			return Escape(left, false) + name[len(left):]
		}
	}
	return quoteName(name)
}

func quoteName(name string) string {
	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		name = name[1 : len(name)-1]
	}
	return `["` + strings.ReplaceAll(name, `"`, `\"`) + `"]`
}

// topLevelOperator returns the index of the first arithmetic operator outside quotes, brackets and parentheses.
func topLevelOperator(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case '/', '+', '-', '*':
			if depth == 0 && i > 0 {
				return i
			}
		}
	}
	return -1
}
