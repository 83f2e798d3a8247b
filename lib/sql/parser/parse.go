package parser

import (
	"errors"
	"fmt"

	"github.com/dodopizza/sql-to-kql/lib/sql/ast"
	"github.com/dodopizza/sql-to-kql/lib/sql/lexer"
)

// Parse parses exactly one statement from text. Syntax problems are joined
// into the returned error, so errors.As finds each *SyntaxError.
func Parse(text string) (ast.Statement, error) {
	p := New(lexer.New(text))
	stmt := p.ParseStatement()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("parse errors: %w", errors.Join(errs...))
	}
	if stmt == nil {
		return nil, errors.New("no statement parsed")
	}
	return stmt, nil
}
