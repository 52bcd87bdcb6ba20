package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by the interaction router and the operator API.
const (
	CodeValidation  = "VALIDATION_FAILED"
	CodeNotFound    = "NOT_FOUND"
	CodeForbidden   = "FORBIDDEN"
	CodeConflict    = "CONFLICT"
	CodeTransient   = "TRANSIENT"
	CodeTimeout     = "TIMEOUT"
	CodePersistence = "PERSISTENCE_FAILED"
	CodeInternal    = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewValidationError wraps cause so errors.Is keeps working for rejection reasons.
func NewValidationError(message string, cause error, details map[string]any) error {
	de := NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
	de.Err = cause
	return de
}

func NewNotFound(resource string, cause error, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
		Err:        cause,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, cause error, details map[string]any) error {
	de := NewDomainError(CodeConflict, message, http.StatusConflict, details)
	de.Err = cause
	return de
}

func NewTransientError(op string, err error) error {
	return &DomainError{
		Code:       CodeTransient,
		Message:    fmt.Sprintf("%s failed, please retry", op),
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewTimeoutError(message string, err error) error {
	return &DomainError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
		Err:        err,
	}
}

func NewPersistenceError(err error) error {
	return &DomainError{
		Code:       CodePersistence,
		Message:    "ticket state could not be saved",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// kinded is implemented by collaborator errors that classify themselves
// (see platform.Error).
type kinded interface {
	ErrorKind() string
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var k kinded
	if errors.As(err, &k) {
		switch k.ErrorKind() {
		case "not_found":
			return NewNotFound("resource", err, nil).(*DomainError)
		case "permission_denied":
			de := NewForbidden("missing permission on the chat platform").(*DomainError)
			de.Err = err
			return de
		case "transient":
			return NewTransientError("platform request", err).(*DomainError)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("operation timed out", err).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// IsCode reports whether err maps to the given code.
func IsCode(err error, code string) bool {
	de := ToDomainError(err)
	return de != nil && de.Code == code
}
