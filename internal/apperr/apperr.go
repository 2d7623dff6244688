// Package apperr is the error taxonomy shared by the sync pipeline and the
// HTTP layer. Every error that reaches a client carries a stable code.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeTransport    = "TRANSPORT_ERROR"
	CodeParse        = "PARSE_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeConflict     = "CONFLICT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInternal     = "INTERNAL_ERROR"
)

type Error struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so callers can write
// errors.Is(err, apperr.ErrConflict).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrTransport  = &Error{Code: CodeTransport}
	ErrParse      = &Error{Code: CodeParse}
	ErrNotFound   = &Error{Code: CodeNotFound}
	ErrValidation = &Error{Code: CodeValidation}
	ErrConflict   = &Error{Code: CodeConflict}
)

func New(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: status}
}

func Wrap(err error, code, message string, status int) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// Transport reports an unreachable feed or a non-success response.
func Transport(message string, err error) *Error {
	return Wrap(err, CodeTransport, message, http.StatusInternalServerError)
}

// Parse reports a feed payload that is not calendar data.
func Parse(message string, err error) *Error {
	return Wrap(err, CodeParse, message, http.StatusInternalServerError)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message, http.StatusNotFound)
}

func Validation(message string) *Error {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// Conflict reports a lost unique-key race; the caller may retry.
func Conflict(message string, err error) *Error {
	return Wrap(err, CodeConflict, message, http.StatusConflict)
}

func Unauthorized(message string) *Error {
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func Internal(message string, err error) *Error {
	return Wrap(err, CodeInternal, message, http.StatusInternalServerError)
}

// As returns err as an *Error, wrapping unknown errors as internal.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal("internal error", err)
}

// CodeOf returns the taxonomy code of err, or CodeInternal.
func CodeOf(err error) string {
	return As(err).Code
}

// Response is the JSON error payload.
type Response struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// Write renders err as a JSON error payload with its HTTP status.
func Write(w http.ResponseWriter, err error) {
	ae := As(err)
	status := ae.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{
		Error:   ae.Message,
		Code:    ae.Code,
		Details: ae.Details,
	})
}
