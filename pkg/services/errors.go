package services

import (
	"errors"
	"fmt"
	"net/http"

	"taskboard-backend/pkg/database"
)

// Error is an application error that carries its HTTP status and a stable code.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func BadRequest(message string) *Error {
	return newError(http.StatusBadRequest, "BAD_REQUEST", message)
}

func Unauthorized(message string) *Error {
	return newError(http.StatusUnauthorized, "UNAUTHORIZED", message)
}

func Forbidden(message string) *Error {
	return newError(http.StatusForbidden, "FORBIDDEN", message)
}

func NotFound(message string) *Error {
	return newError(http.StatusNotFound, "NOT_FOUND", message)
}

func Conflict(message string) *Error {
	return newError(http.StatusConflict, "CONFLICT", message)
}

// Internal hides err behind a generic message.
func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: "INTERNAL_SERVER_ERROR", Message: "Internal server error", Err: err}
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// StatusOf returns the HTTP status err maps to.
func StatusOf(err error) int {
	if e, ok := AsError(err); ok {
		return e.Status
	}
	return http.StatusInternalServerError
}

// fromStore maps store sentinels onto application errors.
func fromStore(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return NotFound(notFound)
	case errors.Is(err, database.ErrConflict):
		return Conflict("Resource already exists")
	default:
		if _, ok := AsError(err); ok {
			return err
		}
		return Internal(err)
	}
}
