// Package apperr classifies failures so HTTP handlers can map them to a status
// and a client-facing message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the failure class of an error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindLedger
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindLedger:
		return "ledger"
	case KindStorage:
		return "storage"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error. Msg is what the client sees; Err keeps the cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error, format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Validation(format string, args ...any) error {
	return newError(KindValidation, nil, format, args...)
}

func Unauthorized(format string, args ...any) error {
	return newError(KindUnauthorized, nil, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newError(KindForbidden, nil, format, args...)
}

func NotFound(format string, args ...any) error {
	return newError(KindNotFound, nil, format, args...)
}

func Conflict(format string, args ...any) error {
	return newError(KindConflict, nil, format, args...)
}

// Ledger wraps a failure from the blockchain RPC.
func Ledger(err error, format string, args ...any) error {
	return newError(KindLedger, err, format, args...)
}

// Storage wraps a failure from object storage.
func Storage(err error, format string, args ...any) error {
	return newError(KindStorage, err, format, args...)
}

// Internal wraps any other failure.
func Internal(err error, format string, args ...any) error {
	return newError(KindInternal, err, format, args...)
}

// KindOf returns the kind of the outermost classified error in the chain.
// Unclassified errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	return KindOf(err).Status()
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
