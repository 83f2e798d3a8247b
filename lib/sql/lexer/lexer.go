// Package lexer turns SQL text into tokens.
//
// Besides ANSI SQL it accepts the identifier spellings used around Azure Data
// Explorer: T-SQL brackets ([Event Type]), KQL bracket strings (["Event Type"])
// and MySQL backticks. A number directly followed by a timespan unit (30m, 1d)
// becomes a single TIMESPAN token.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dodopizza/sql-to-kql/lib/sql/token"
)

const eof = -1

// operators is ordered so that two-byte spellings win over their prefixes.
var operators = []struct {
	text string
	typ  token.Type
}{
	{"<=", token.LTE}, {">=", token.GTE}, {"<>", token.NEQ}, {"!=", token.NEQ},
	{"<", token.LT}, {">", token.GT}, {"=", token.EQ},
	{"+", token.PLUS}, {"-", token.MINUS}, {"*", token.STAR}, {"/", token.SLASH}, {"%", token.PERCENT},
	{",", token.COMMA}, {";", token.SEMICOLON}, {".", token.DOT},
	{"(", token.LPAREN}, {")", token.RPAREN}, {"?", token.PLACEHOLDER},
}

type Lexer struct {
	src  string
	off  int
	line int
	col  int
}

func New(input string) *Lexer {
	return &Lexer{src: input, line: 1, col: 1}
}

// Tokens lexes the remaining input, including the final EOF token.
func (l *Lexer) Tokens() []token.Token {
	var out []token.Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Type == token.EOF {
			return out
		}
	}
}

// NextToken returns the next token. Once the input is exhausted it keeps returning EOF.
func (l *Lexer) NextToken() token.Token {
	if msg := l.skipTrivia(); msg != "" {
		return token.Token{Type: token.ILLEGAL, Literal: msg, Pos: l.pos()}
	}
	pos := l.pos()
	r := l.peek(0)
	switch {
	case r == eof:
		return token.Token{Type: token.EOF, Pos: pos}
	case isIdentStart(r):
		return l.word(pos)
	case isDigit(r):
		return l.number(pos)
	case r == '\'':
		return l.delimited(pos, token.STRING, '\'', '\'')
	case r == '"':
		return l.delimited(pos, token.IDENT, '"', '"')
	case r == '`':
		return l.delimited(pos, token.IDENT, '`', '`')
	case r == '[':
		return l.bracketed(pos)
	}

	rest := l.src[l.off:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			l.advance(len(op.text))
			return token.Token{Type: op.typ, Literal: op.text, Pos: pos}
		}
	}
	l.next()
	return token.Token{Type: token.ILLEGAL, Literal: "unexpected character " + quoteRune(r), Pos: pos}
}

func (l *Lexer) pos() token.Position {
	return token.Position{Line: l.line, Column: l.col}
}

func (l *Lexer) peek(n int) rune {
	off := l.off
	for ; n > 0 && off < len(l.src); n-- {
		_, size := utf8.DecodeRuneInString(l.src[off:])
		off += size
	}
	if off >= len(l.src) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.src[off:])
	return r
}

func (l *Lexer) next() rune {
	if l.off >= len(l.src) {
		return eof
	}
	r, size := utf8.DecodeRuneInString(l.src[l.off:])
	l.off += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

// advance skips n bytes of single-line ASCII text.
func (l *Lexer) advance(n int) {
	l.off += n
	l.col += n
}

// skipTrivia consumes whitespace and comments. A non-empty result reports an unterminated block comment.
func (l *Lexer) skipTrivia() string {
	for {
		r := l.peek(0)
		switch {
		case r == eof:
			return ""
		case unicode.IsSpace(r):
			l.next()
		case r == '-' && l.peek(1) == '-':
			for r := l.peek(0); r != eof && r != '\n'; r = l.peek(0) {
				l.next()
			}
		case r == '/' && l.peek(1) == '*':
			l.advance(2)
			for !strings.HasPrefix(l.src[l.off:], "*/") {
				if l.next() == eof {
					return "unterminated comment"
				}
			}
			l.advance(2)
		default:
			return ""
		}
	}
}

func (l *Lexer) word(pos token.Position) token.Token {
	start := l.off
	for isIdentPart(l.peek(0)) {
		l.next()
	}
	text := l.src[start:l.off]
	upper := strings.ToUpper(text)
	if typ := token.Lookup(upper); typ != token.IDENT {
		return token.Token{Type: typ, Literal: upper, Pos: pos}
	}
	return token.Token{Type: token.IDENT, Literal: text, Pos: pos}
}

// number scans 12, 1.5, 2e-3 and, when a timespan unit follows directly, 30m or 1.5h.
func (l *Lexer) number(pos token.Position) token.Token {
	start := l.off
	l.digits()
	if l.peek(0) == '.' && isDigit(l.peek(1)) {
		l.next()
		l.digits()
	}
	if e := l.peek(0); e == 'e' || e == 'E' {
		sign := l.peek(1)
		switch {
		case isDigit(sign):
			l.next()
			l.digits()
		case (sign == '+' || sign == '-') && isDigit(l.peek(2)):
			l.next()
			l.next()
			l.digits()
		}
	}
	if !isIdentStart(l.peek(0)) {
		return token.Token{Type: token.NUMBER, Literal: l.src[start:l.off], Pos: pos}
	}

	// A letter run glued to the number must be a timespan unit.
	unitStart := l.off
	for isIdentPart(l.peek(0)) {
		l.next()
	}
	if unit := strings.ToLower(l.src[unitStart:l.off]); token.IsTimespanUnit(unit) {
		return token.Token{Type: token.TIMESPAN, Literal: l.src[start:unitStart] + unit, Pos: pos}
	}
	return token.Token{Type: token.ILLEGAL, Literal: "invalid number " + l.src[start:l.off], Pos: pos}
}

func (l *Lexer) digits() {
	for isDigit(l.peek(0)) {
		l.next()
	}
}

// delimited scans text between open and close where a doubled close stands for itself.
func (l *Lexer) delimited(pos token.Position, typ token.Type, open, close rune) token.Token {
	l.next()
	var b strings.Builder
	for {
		r := l.next()
		switch {
		case r == eof:
			return token.Token{Type: token.ILLEGAL, Literal: "unterminated " + describe(typ, open), Pos: pos}
		case r == close && l.peek(0) == close:
			l.next()
			b.WriteRune(r)
		case r == close:
			return token.Token{Type: typ, Literal: b.String(), Pos: pos}
		default:
			b.WriteRune(r)
		}
	}
}

// bracketed scans [name] and the KQL spellings ["name"] and ['name'].
func (l *Lexer) bracketed(pos token.Position) token.Token {
	if q := l.peek(1); q == '"' || q == '\'' {
		l.next()
		tok := l.delimited(pos, token.IDENT, q, q)
		if tok.Type == token.ILLEGAL {
			return tok
		}
		if l.peek(0) != ']' {
			return token.Token{Type: token.ILLEGAL, Literal: "unterminated bracketed identifier", Pos: pos}
		}
		l.next()
		return tok
	}
	return l.delimited(pos, token.IDENT, '[', ']')
}

func describe(typ token.Type, open rune) string {
	switch {
	case typ == token.STRING:
		return "string literal"
	case open == '[':
		return "bracketed identifier"
	default:
		return "quoted identifier"
	}
}

func quoteRune(r rune) string {
	return "'" + string(r) + "'"
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '@' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
