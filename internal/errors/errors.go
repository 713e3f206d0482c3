package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials is returned for both unknown emails and wrong
	// passwords so callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("Invalid combination of email and password")
	// ErrDuplicateEmail is returned when signing up with a registered email.
	ErrDuplicateEmail = errors.New("This email is already registered!")
	// ErrNoUser is returned when a session is created without a user.
	ErrNoUser = errors.New("No user")
)

// UnknownErrorMessage is the only text shown to clients for unexpected errors.
const UnknownErrorMessage = "Unknown server error"

// ValidationError carries field-level messages for a rejected form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// StorageError wraps a failed lookup or write against a backing store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err, leaving nil untouched.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Message     string            `json:"message,omitempty"`
	Code        string            `json:"code"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode  int
	Message     string
	Code        string
	FieldErrors map[string]string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Message:     e.Message,
		Code:        e.Code,
		FieldErrors: e.FieldErrors,
	}
}

// IsExpected reports whether err is a failure the user can act on, as
// opposed to one that has to be logged and hidden.
func IsExpected(err error) bool {
	var verr *ValidationError
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrDuplicateEmail) ||
		errors.As(err, &verr)
}

// MapErrorToHTTP maps domain errors to HTTP errors. Expected form failures
// are answered with 200 so the form can render them; anything else becomes
// a generic 500 that never carries internal details.
func MapErrorToHTTP(err error) *HTTPError {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpErr := NewHTTPError(http.StatusOK, "", "VALIDATION_ERROR")
		httpErr.FieldErrors = verr.Fields
		return httpErr
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusOK, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrDuplicateEmail):
		return NewHTTPError(http.StatusOK, ErrDuplicateEmail.Error(), "DUPLICATE_EMAIL")
	default:
		return NewHTTPError(http.StatusInternalServerError, UnknownErrorMessage, "INTERNAL_ERROR")
	}
}
