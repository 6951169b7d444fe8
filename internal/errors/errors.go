package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Kind classifies an error for clients. The value is sent as the "error" field.
type Kind string

const (
	KindValidation         Kind = "ValidationError"
	KindAuthentication     Kind = "AuthenticationError"
	KindAccountLocked      Kind = "AccountLocked"
	KindForbidden          Kind = "Forbidden"
	KindNotFound           Kind = "NotFoundError"
	KindDuplicateField     Kind = "DuplicateFieldError"
	KindFileUpload         Kind = "FileUploadError"
	KindFileSize           Kind = "FileSizeError"
	KindRateLimit          Kind = "RateLimitError"
	KindServiceUnavailable Kind = "ServiceUnavailable"
	KindInternal           Kind = "InternalError"
)

var kindStatus = map[Kind]int{
	KindValidation:         http.StatusBadRequest,
	KindAuthentication:     http.StatusUnauthorized,
	KindAccountLocked:      http.StatusUnauthorized,
	KindForbidden:          http.StatusForbidden,
	KindNotFound:           http.StatusNotFound,
	KindDuplicateField:     http.StatusBadRequest,
	KindFileUpload:         http.StatusBadRequest,
	KindFileSize:           http.StatusRequestEntityTooLarge,
	KindRateLimit:          http.StatusTooManyRequests,
	KindServiceUnavailable: http.StatusServiceUnavailable,
	KindInternal:           http.StatusInternalServerError,
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is an error with a stable client-facing classification.
type APIError struct {
	Kind    Kind
	Message string
	Details []FieldError
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Status returns the HTTP status for the error's kind.
func (e *APIError) Status() int {
	if status, ok := kindStatus[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New creates an APIError of the given kind.
func New(kind Kind, message string) *APIError {
	return &APIError{Kind: kind, Message: message}
}

// NewWithDetails creates an APIError carrying field-level details.
func NewWithDetails(kind Kind, message string, details []FieldError) *APIError {
	return &APIError{Kind: kind, Message: message, Details: details}
}

func Validation(message string) *APIError     { return New(KindValidation, message) }
func Unauthenticated(message string) *APIError { return New(KindAuthentication, message) }
func Forbidden(message string) *APIError      { return New(KindForbidden, message) }
func NotFound(message string) *APIError       { return New(KindNotFound, message) }
func Duplicate(message string) *APIError      { return New(KindDuplicateField, message) }

// Validationf formats a validation message.
func Validationf(format string, args ...any) *APIError {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

// Predefined errors
var (
	ErrUnauthorized       = Unauthenticated("Authentication required")
	ErrInvalidBody        = Validation("Invalid request body")
	ErrRateLimited        = New(KindRateLimit, "Too many requests, please try again later")
	ErrServiceUnavailable = New(KindServiceUnavailable, "Service temporarily unavailable")
)

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Is lets errors.Is match sentinels by kind and message, so wrapped copies still match.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// translateBindError classifies gin binding failures that are not validator errors.
func translateBindError(err error) *APIError {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var timeErr *time.ParseError
	switch {
	case stderrors.As(err, &syntaxErr), stderrors.As(err, &typeErr), stderrors.As(err, &timeErr),
		stderrors.Is(err, io.EOF), stderrors.Is(err, io.ErrUnexpectedEOF):
		return ErrInvalidBody
	}
	return nil
}
