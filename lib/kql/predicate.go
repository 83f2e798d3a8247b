package kql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	maskOpen  = '\uE000'
	maskClose = '\uE001'
)

// maskToken matches a masked literal and captures its index.
const maskToken = `\x{E000}(\d+)\x{E001}`

var (
	literalPattern = regexp.MustCompile(`'(?:[^'\\]|\\.|'')*'|"(?:[^"\\]|\\.|"")*"`)
	maskPattern    = regexp.MustCompile(maskToken)

	isNullPattern = regexp.MustCompile(`(?i)(\[` + maskToken + `\]|` + maskToken + `|[\w.]+(?:\([^()]*\))?)\s+IS\s+(NOT\s+)?NULL\b`)

	lteSpacing    = regexp.MustCompile(`<\s+==?`)
	gteSpacing    = regexp.MustCompile(`>\s+==?`)
	doubleNegated = regexp.MustCompile(`!=\s+==?`)

	likePattern  = regexp.MustCompile(`(?i)\b(NOT\s+)?(I?LIKE)\s+` + maskToken)
	lowerPattern = regexp.MustCompile(`(?i)\b(lower|upper)\s*\(`)

	notInPattern = regexp.MustCompile(`(?i)\bNOT\s+IN\s*\(`)
	inPattern    = regexp.MustCompile(`(?i)\bIN\s*\(`)

	betweenTerm    = `[^\s()]+(?:\([^()]*\))?`
	betweenOperand = betweenTerm + `(?:\s+[-+*/%]\s+` + betweenTerm + `)*`
	betweenPattern = regexp.MustCompile(`(?i)\b(NOT\s+)?BETWEEN\s+(` + betweenOperand + `)\s+AND\s+(` + betweenOperand + `)`)

	andPattern = regexp.MustCompile(`(?i)\bAND\b`)
	orPattern  = regexp.MustCompile(`(?i)\bOR\b`)
	notPattern = regexp.MustCompile(`(?i)\bNOT\s*\(`)
)

// RewritePredicate turns a rendered SQL boolean expression into KQL. String literals are masked while the
// rules run, so operators spelled inside them are left alone.
func RewritePredicate(sql string) string {
	text, literals := maskLiterals(sql)

	text = isNullPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := isNullPattern.FindStringSubmatch(m)
		if sub[4] != "" {
			return "isnotnull(" + sub[1] + ")"
		}
		return "isnull(" + sub[1] + ")"
	})

	text = doubleEquals(text)

	text = lteSpacing.ReplaceAllString(text, "<=")
	text = gteSpacing.ReplaceAllString(text, ">=")
	text = strings.ReplaceAll(text, "<>", "!=")
	text = doubleNegated.ReplaceAllString(text, "!=")

	text = likePattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := likePattern.FindStringSubmatch(m)
		idx, _ := strconv.Atoi(sub[3])
		op, lit := likeOperator(sub[1] != "", strings.EqualFold(sub[2], "ILIKE"), literals[idx])
		literals[idx] = lit
		return op + " " + mask(idx)
	})
	text = lowerPattern.ReplaceAllStringFunc(text, func(m string) string {
		return "to" + strings.ToLower(strings.TrimRight(m, " \t(")) + "("
	})

	text = notInPattern.ReplaceAllString(text, "!in (")
	text = inPattern.ReplaceAllString(text, "in (")

	text = betweenPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := betweenPattern.FindStringSubmatch(m)
		op := "between"
		if sub[1] != "" {
			op = "!between"
		}
		return fmt.Sprintf("%s (%s..%s)", op, sub[2], sub[3])
	})

	text = andPattern.ReplaceAllString(text, "and")
	text = orPattern.ReplaceAllString(text, "or")
	text = notPattern.ReplaceAllString(text, "not(")

	return unmaskLiterals(text, literals)
}

// likeOperator picks the KQL string operator for a LIKE pattern. Only a leading or trailing % is a wildcard.
func likeOperator(negated, insensitive bool, literal string) (string, string) {
	quote, body := literal[:1], literal[1:len(literal)-1]
	prefix := strings.HasPrefix(body, "%")
	suffix := strings.HasSuffix(body, "%") && len(body) > 1
	if prefix {
		body = body[1:]
	}
	if suffix {
		body = body[:len(body)-1]
	}

	var op string
	switch {
	case prefix && suffix:
		op = "has"
	case suffix:
		op = "startswith"
	case prefix:
		op = "endswith"
	}

	if op == "" {
		switch {
		case negated && insensitive:
			op = "!~"
		case negated:
			op = "!="
		case insensitive:
			op = "=~"
		default:
			op = "=="
		}
		return op, quote + body + quote
	}
	if !insensitive {
		op += "_cs"
	}
	if negated {
		op = "!" + op
	}
	return op, quote + body + quote
}

// doubleEquals turns every bare = into ==.
func doubleEquals(text string) string {
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '=' {
			b.WriteByte(c)
			continue
		}
		prevOp := i > 0 && strings.IndexByte("=<>!", text[i-1]) >= 0
		nextEq := i+1 < len(text) && text[i+1] == '='
		if prevOp || nextEq {
			b.WriteByte(c)
			if nextEq {
				b.WriteByte('=')
				i++
			}
			continue
		}
		b.WriteString("==")
	}
	return b.String()
}

func mask(i int) string {
	return string(maskOpen) + strconv.Itoa(i) + string(maskClose)
}

func maskLiterals(text string) (string, []string) {
	var literals []string
	masked := literalPattern.ReplaceAllStringFunc(text, func(m string) string {
		literals = append(literals, m)
		return mask(len(literals) - 1)
	})
	return masked, literals
}

func unmaskLiterals(text string, literals []string) string {
	return maskPattern.ReplaceAllStringFunc(text, func(m string) string {
		idx, err := strconv.Atoi(m[len(string(maskOpen)) : len(m)-len(string(maskClose))])
		if err != nil || idx >= len(literals) {
			return m
		}
		return literals[idx]
	})
}
