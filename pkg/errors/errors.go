package errors

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"

	"github.com/lib/pq"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrConflict
	ErrTimeout
	ErrUnavailable
	ErrTooManyRequests
)

var httpStatus = map[ErrorCode]int{
	ErrNotFound:        http.StatusNotFound,
	ErrBadRequest:      http.StatusBadRequest,
	ErrUnauthorized:    http.StatusUnauthorized,
	ErrForbidden:       http.StatusForbidden,
	ErrInternal:        http.StatusInternalServerError,
	ErrConflict:        http.StatusConflict,
	ErrTimeout:         http.StatusGatewayTimeout,
	ErrUnavailable:     http.StatusServiceUnavailable,
	ErrTooManyRequests: http.StatusTooManyRequests,
}

// StatusCode maps the error code to an HTTP status
func (e *AppError) StatusCode() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Forbidden(err error) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: "forbidden",
		Err:     err,
	}
}

func Conflict(message string, err error) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: message,
		Err:     err,
	}
}

func Timeout(operation string, err error) *AppError {
	return &AppError{
		Code:    ErrTimeout,
		Message: fmt.Sprintf("%s timed out", operation),
		Err:     err,
	}
}

func Unavailable(service string, err error) *AppError {
	return &AppError{
		Code:    ErrUnavailable,
		Message: fmt.Sprintf("%s unavailable", service),
		Err:     err,
	}
}

func TooManyRequests(message string) *AppError {
	return &AppError{
		Code:    ErrTooManyRequests,
		Message: message,
	}
}

// As returns the AppError in err's chain, if any
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the AppError in err's chain, ErrInternal otherwise
func CodeOf(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ErrInternal
}

// Postgres SQLSTATE codes the API distinguishes
const (
	pqUniqueViolation       = "23505"
	pqForeignKeyViolation   = "23503"
	pqCheckViolation        = "23514"
	pqInsufficientPrivilege = "42501"
	pqInvalidText           = "22P02"
)

// FromDB classifies a database error. Errors that are already AppErrors pass through.
func FromDB(resource string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}

	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return NotFound(resource, err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return Timeout(resource+" query", err)
	}

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return Conflict(fmt.Sprintf("%s already exists", resource), err)
		case pqForeignKeyViolation, pqCheckViolation, pqInvalidText:
			return BadRequest(fmt.Sprintf("invalid %s reference", resource), err)
		case pqInsufficientPrivilege:
			return Forbidden(err)
		}
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		if netErr.Timeout() {
			return Timeout(resource+" query", err)
		}
		return Unavailable("database", err)
	}

	return Internal(err)
}
