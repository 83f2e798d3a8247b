package kql

import (
	"regexp"
	"strings"
)

// AggregateCall is an aggregate recognized in an output column.
// Column is empty only for the COUNT(*) and COUNT() forms.
type AggregateCall struct {
	Name     string
	Column   string
	Distinct bool
	Params   []string

	// verbatim columns are already KQL text and skip Escape.
	verbatim bool
}

// sqlAggregates maps SQL aggregate names onto their KQL counterparts.
var sqlAggregates = map[string]string{
	"sum":         "sum",
	"avg":         "avg",
	"min":         "min",
	"max":         "max",
	"stddev":      "stdev",
	"stddev_samp": "stdev",
	"stddev_pop":  "stdevp",
	"variance":    "variance",
	"var_samp":    "variance",
	"var_pop":     "variancep",
	"array_agg":   "make_list",
	"any_value":   "take_any",
	"median":      "percentile",
}

var kqlAggregates = map[string]struct{}{
	"arg_max": {}, "arg_min": {}, "avgif": {}, "binary_all_and": {}, "binary_all_or": {},
	"binary_all_xor": {}, "buildschema": {}, "count_distinctif": {}, "countif": {}, "dcount": {},
	"dcountif": {}, "hll": {}, "hll_if": {}, "hll_merge": {}, "make_bag": {}, "make_bag_if": {},
	"make_list": {}, "make_list_if": {}, "make_list_with_nulls": {}, "make_set": {}, "make_set_if": {},
	"maxif": {}, "minif": {}, "percentile": {}, "percentiles": {}, "percentiles_array": {},
	"percentilew": {}, "percentilesw": {}, "percentilesw_array": {}, "stdev": {}, "stdevif": {},
	"stdevp": {}, "sumif": {}, "take_any": {}, "take_anyif": {}, "tdigest": {}, "tdigest_merge": {},
	"variance": {}, "varianceif": {}, "variancep": {}, "variancepif": {},
}

// countif takes a predicate, not a column, as its first argument.
var predicateAggregates = map[string]struct{}{
	"countif": {},
}

var (
	callPattern     = regexp.MustCompile(`(?s)^([A-Za-z_]\w*)\s*\((.*)\)$`)
	distinctPattern = regexp.MustCompile(`(?i)^DISTINCT\s+`)
)

// IsAggregate reports whether name is a SQL or KQL aggregate function.
func IsAggregate(name string) bool {
	name = strings.ToLower(name)
	if name == "count" || name == "count_distinct" {
		return true
	}
	if _, ok := sqlAggregates[name]; ok {
		return true
	}
	_, ok := kqlAggregates[name]
	return ok
}

// MatchAggregate recognizes a single aggregate call in free SQL text.
func MatchAggregate(text string) (*AggregateCall, bool) {
	text = strings.TrimSpace(text)
	m := callPattern.FindStringSubmatch(text)
	if m == nil || closingParen(text, len(m[1])) != len(text)-1 {
		return nil, false
	}
	name := strings.ToLower(m[1])
	if !IsAggregate(name) {
		return nil, false
	}
	call := &AggregateCall{Name: name}
	args := strings.TrimSpace(m[2])
	if loc := distinctPattern.FindStringIndex(args); loc != nil {
		call.Distinct = true
		args = args[loc[1]:]
	}
	parts := splitTopLevel(args, ',')
	if len(parts) > 0 {
		call.Column = parts[0]
		call.Params = parts[1:]
	}
	call.normalize()
	return call, true
}

// AggregateFromCall classifies a typed call. Column arguments are quoted here so that
// member access and computed arguments reach KQL unchanged.
func AggregateFromCall(fc FunctionCall) (*AggregateCall, bool) {
	name := strings.ToLower(fc.Name)
	if !IsAggregate(name) {
		return nil, false
	}
	call := &AggregateCall{Name: name, Distinct: fc.Distinct, verbatim: true}
	for i, arg := range fc.Args {
		text := KQLText(arg)
		if l, ok := arg.(Literal); ok && l.SQL == "*" {
			text = "*"
		}
		if i == 0 {
			call.Column = text
			continue
		}
		call.Params = append(call.Params, text)
	}
	call.normalize()
	return call, true
}

func (c *AggregateCall) normalize() {
	if c.Name == "count_distinct" {
		c.Name = "count"
		c.Distinct = true
	}
	if c.Name == "count" && (c.Column == "*" || (c.Column == "1" && !c.Distinct)) {
		c.Column = ""
	}
}

func (c *AggregateCall) column() string {
	if c.verbatim {
		return c.Column
	}
	return Escape(c.Column, false)
}

// KQL renders the call as a summarize aggregate.
func (c *AggregateCall) KQL() string {
	if c == nil {
		return ""
	}
	if c.Name == "count" {
		switch {
		case c.Column == "":
			return "count()"
		case c.Distinct:
			return "dcount(" + c.column() + ")"
		default:
			return "count(" + c.column() + ")"
		}
	}
	if mapped, ok := sqlAggregates[c.Name]; ok {
		args := []string{c.column()}
		if c.Name == "median" {
			args = append(args, "50")
		}
		return mapped + "(" + strings.Join(append(args, c.Params...), ", ") + ")"
	}
	var args []string
	switch {
	case c.Column == "":
	case isPredicateAggregate(c.Name):
		args = append(args, c.Column)
	default:
		args = append(args, c.column())
	}
	return c.Name + "(" + strings.Join(append(args, c.Params...), ", ") + ")"
}

func isPredicateAggregate(name string) bool {
	_, ok := predicateAggregates[name]
	return ok
}

// closingParen returns the index of the parenthesis closing the one at or after start, or -1.
func closingParen(s string, start int) int {
	open := strings.IndexByte(s[start:], '(')
	if open < 0 {
		return -1
	}
	depth := 0
	var quote byte
	for i := start + open; i < len(s); i++ {
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
		case '\'', '"':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits s on sep outside quotes, brackets and parentheses, trimming every part.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
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
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" || len(parts) > 0 {
		parts = append(parts, tail)
	}
	return parts
}
