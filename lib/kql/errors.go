package kql

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMalformedQuery reports source text that cannot be split into let bindings and a body.
	ErrMalformedQuery = errors.New("malformed query")
	// ErrNotSupported reports a query shape outside the translatable subset.
	ErrNotSupported = errors.New("not supported")
)

// TranslationError carries the HTTP status a translation failure maps to.
type TranslationError struct {
	Code    int
	Message string
	Err     error
}

func (e *TranslationError) Error() string {
	return e.Message
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

func badRequest(format string, args ...any) error {
	return &TranslationError{
		Code:    http.StatusBadRequest,
		Message: "translator: " + fmt.Sprintf(format, args...),
	}
}

func notSupported(format string, args ...any) error {
	return &TranslationError{
		Code:    http.StatusBadRequest,
		Message: "translator: " + fmt.Sprintf(format, args...) + " is not supported",
		Err:     ErrNotSupported,
	}
}

func malformed(format string, args ...any) error {
	return &TranslationError{
		Code:    http.StatusBadRequest,
		Message: "translator: malformed query: " + fmt.Sprintf(format, args...),
		Err:     ErrMalformedQuery,
	}
}

func internalError(msg string, err error) error {
	return &TranslationError{Code: http.StatusInternalServerError, Message: msg, Err: err}
}
