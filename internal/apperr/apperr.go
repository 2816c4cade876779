// Package apperr classifies failures coming back from the backend and the
// external calendar provider.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind is the error category surfaced to callers.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindNotFound        Kind = "not_found"
	KindServer          Kind = "server"
	KindProvider        Kind = "provider"
	KindInvalidInput    Kind = "invalid_input"
	KindUnknown         Kind = "unknown"
)

// Sentinels for errors.Is checks against a kind.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrServer          = &Error{Kind: KindServer}
	ErrProvider        = &Error{Kind: KindProvider}
	ErrInvalidInput    = &Error{Kind: KindInvalidInput}
)

// Error is a classified failure. Fields holds per-field validation messages
// reported by the backend.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Fields  map[string][]string
	Cause   error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 4)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	parts = append(parts, string(e.Kind))
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if len(e.Fields) > 0 {
		parts = append(parts, strings.Join(e.FieldMessages(), "; "))
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works for every not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// FieldMessages flattens Fields in field-name order.
func (e *Error) FieldMessages() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, e.Fields[k]...)
	}
	return out
}

func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Message: msg}
}

func Wrap(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

// FromStatus classifies an HTTP status code the way the backend uses them.
func FromStatus(status int) Kind {
	switch {
	case status == 400 || status == 422:
		return KindValidation
	case status == 401 || status == 403:
		return KindUnauthenticated
	case status == 404:
		return KindNotFound
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
