package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrIO           = errors.New("document unreadable")
	ErrQuerySyntax  = errors.New("query syntax error")
	ErrEmptyCorpus  = errors.New("empty corpus")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// QuerySyntaxError reports a boolean operator that lacks a required operand.
// Position is the offending token's index in the original expression;
// Operator is empty when the offending token is a dangling operand.
type QuerySyntaxError struct {
	Operator string
	Position int
	Reason   string
}

func (e *QuerySyntaxError) Error() string {
	if e.Operator == "" {
		return fmt.Sprintf("%s: token %d %s", ErrQuerySyntax, e.Position, e.Reason)
	}
	return fmt.Sprintf("%s: operator %q at token %d %s", ErrQuerySyntax, e.Operator, e.Position, e.Reason)
}

func (e *QuerySyntaxError) Unwrap() error {
	return ErrQuerySyntax
}

// IOError wraps a failure to read one corpus document.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrIO, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrQuerySyntax), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrEmptyCorpus):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
