package kql

import (
	"net/http"
	"strconv"
	"strings"
	"unicode"
)

// jsonPath is a parsed SQL/JSON path such as $.a.b[0] or strict $.payload['ip'].
// Strict is recorded but does not change the generated access.
type jsonPath struct {
	Strict bool
	Steps  []jsonPathStep
}

// jsonPathStep is a member key, or an array index when Index is set.
type jsonPathStep struct {
	Key   string
	Index *int
}

func parseJSONPath(raw string) (*jsonPath, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, badRequest("JSON path cannot be empty")
	}
	out := &jsonPath{}
	if mode, rest, ok := strings.Cut(text, " "); ok {
		switch strings.ToLower(mode) {
		case "strict":
			out.Strict = true
			text = strings.TrimSpace(rest)
		case "lax":
			text = strings.TrimSpace(rest)
		}
	}
	if !strings.HasPrefix(text, "$") {
		return nil, badRequest("JSON path %q must start with $", raw)
	}

	s := &pathScanner{raw: raw, src: []rune(text[1:])}
	for s.skipSpace(); !s.done(); s.skipSpace() {
		step, err := s.step()
		if err != nil {
			return nil, err
		}
		out.Steps = append(out.Steps, step)
	}
	if len(out.Steps) == 0 {
		return nil, badRequest("JSON path %q must reference a nested field", raw)
	}
	return out, nil
}

type pathScanner struct {
	raw string
	src []rune
	pos int
}

func (s *pathScanner) done() bool { return s.pos >= len(s.src) }

func (s *pathScanner) peek() rune {
	if s.done() {
		return 0
	}
	return s.src[s.pos]
}

func (s *pathScanner) skipSpace() {
	for !s.done() && unicode.IsSpace(s.src[s.pos]) {
		s.pos++
	}
}

func (s *pathScanner) step() (jsonPathStep, error) {
	switch c := s.peek(); c {
	case '.':
		s.pos++
		s.skipSpace()
		start := s.pos
		for !s.done() && s.peek() != '.' && s.peek() != '[' {
			s.pos++
		}
		return s.key(string(s.src[start:s.pos]))
	case '[':
		s.pos++
		s.skipSpace()
		step, err := s.subscript()
		if err != nil {
			return step, err
		}
		s.skipSpace()
		if s.peek() != ']' {
			return step, s.unterminated()
		}
		s.pos++
		return step, nil
	default:
		return jsonPathStep{}, badRequest("unsupported JSON path token %q", string(c))
	}
}

func (s *pathScanner) key(k string) (jsonPathStep, error) {
	if k = strings.TrimSpace(k); k == "" {
		return jsonPathStep{}, badRequest("JSON path %q contains an empty segment", s.raw)
	}
	return jsonPathStep{Key: k}, nil
}

func (s *pathScanner) unterminated() error {
	return badRequest("JSON path %q has an unterminated []", s.raw)
}

// subscript reads a quoted member name or a decimal index. Backslash escapes the next rune inside quotes.
func (s *pathScanner) subscript() (jsonPathStep, error) {
	if q := s.peek(); q == '\'' || q == '"' {
		s.pos++
		var b strings.Builder
		for {
			if s.done() {
				return jsonPathStep{}, s.unterminated()
			}
			r := s.src[s.pos]
			s.pos++
			if r == q {
				return s.key(b.String())
			}
			if r == '\\' {
				if s.done() {
					return jsonPathStep{}, badRequest("JSON path %q has an invalid escape sequence", s.raw)
				}
				r = s.src[s.pos]
				s.pos++
			}
			b.WriteRune(r)
		}
	}

	start := s.pos
	for !s.done() && unicode.IsDigit(s.peek()) {
		s.pos++
	}
	if start == s.pos {
		if s.done() {
			return jsonPathStep{}, s.unterminated()
		}
		return jsonPathStep{}, badRequest("JSON path %q has an unsupported token inside []", s.raw)
	}
	n, err := strconv.Atoi(string(s.src[start:s.pos]))
	if err != nil {
		return jsonPathStep{}, &TranslationError{Code: http.StatusBadRequest, Message: "translator: JSON path index is out of range", Err: err}
	}
	return jsonPathStep{Index: &n}, nil
}

// Access renders the path as KQL dynamic member access on base.
func (p *jsonPath) Access(base string) string {
	var b strings.Builder
	b.WriteString(base)
	for _, st := range p.Steps {
		if st.Index != nil {
			b.WriteString("[" + strconv.Itoa(*st.Index) + "]")
			continue
		}
		if plainIdentifier.MatchString(st.Key) {
			b.WriteString("." + st.Key)
			continue
		}
		b.WriteString(`["` + strings.ReplaceAll(st.Key, `"`, `\"`) + `"]`)
	}
	return b.String()
}
