package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation   = "VALIDATION_FAILED"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeNetwork      = "NETWORK_ERROR"
	CodeServer       = "SERVER_ERROR"
	CodeFetch        = "FETCH_FAILED"
	CodeInternal     = "INTERNAL_ERROR"
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

// NewValidationError reports a rejected payload. Field errors go in details.
func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

// NewFieldErrors wraps a field->message map as a validation failure.
func NewFieldErrors(fields map[string]string) error {
	details := make(map[string]any, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	return NewValidationError("validation failed", details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewNetworkError marks the backend as unreachable or timed out.
func NewNetworkError(err error) error {
	return &DomainError{
		Code:       CodeNetwork,
		Message:    "helpdesk backend unreachable",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewServerError reports a 5xx answer from the backend.
func NewServerError(status int, message string) error {
	if message == "" {
		message = fmt.Sprintf("helpdesk backend failed with status %d", status)
	}
	return &DomainError{
		Code:       CodeServer,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"upstream_status": status},
	}
}

// NewFetchError wraps a failed collection refresh.
func NewFetchError(err error) error {
	status := http.StatusBadGateway
	if de := asDomainError(err); de != nil && de.Code == CodeUnauthorized {
		status = http.StatusUnauthorized
	}
	return &DomainError{
		Code:       CodeFetch,
		Message:    "Failed to fetch tickets. Please try again.",
		HTTPStatus: status,
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

// HasCode reports whether any DomainError in err's chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var de *DomainError
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// IsUnauthorized is shorthand for HasCode(err, CodeUnauthorized).
func IsUnauthorized(err error) bool {
	return HasCode(err, CodeUnauthorized)
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if de := asDomainError(err); de != nil {
		return de
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return asDomainError(NewNetworkError(err))
	}
	return asDomainError(NewInternalError(err))
}

func asDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

func MapError(err error) error {
	return ToDomainError(err)
}
