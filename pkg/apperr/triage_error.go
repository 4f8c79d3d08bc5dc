package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Validation errors
	CodeInvalidEmails = "INVALID_EMAILS"
	CodeUnsupported   = "UNSUPPORTED_MEDIA_TYPE"

	// Classification errors
	CodeModelInvocation      = "MODEL_INVOCATION_FAILED"
	CodeParseFailed          = "PARSE_FAILED"
	CodeClassificationFailed = "CLASSIFICATION_FAILED"

	// External errors
	CodeOAuthFailed   = "OAUTH_FAILED"
	CodeExternalError = "EXTERNAL_ERROR"
	CodeRateLimited   = "RATE_LIMITED"

	// Internal errors
	CodeInternalError = "INTERNAL_ERROR"
	CodeConfigError   = "CONFIG_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation errors

// InvalidEmails is the input validation failure for a classify request whose
// emails field is missing, not a list, or (in batch mode) empty.
func InvalidEmails(err error) *AppError {
	return &AppError{
		Code:    CodeInvalidEmails,
		Message: "Invalid emails",
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func UnsupportedMediaType() *AppError {
	return &AppError{
		Code:    CodeUnsupported,
		Message: "Content-Type must be application/json",
		Status:  http.StatusUnsupportedMediaType,
	}
}

// Classification errors

// ModelInvocation reports a failed model call under the endpoint's public
// message. Status stays 500 so clients see one failure status per endpoint.
func ModelInvocation(message string, err error) *AppError {
	if message == "" {
		message = "Classification failed"
	}
	return &AppError{
		Code:    CodeModelInvocation,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func ParseFailed(err error) *AppError {
	return &AppError{
		Code:    CodeParseFailed,
		Message: "Failed to parse classification response",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func ClassificationFailed(message string, err error) *AppError {
	if message == "" {
		message = "Classification failed"
	}
	return &AppError{
		Code:    CodeClassificationFailed,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// External errors
func OAuthFailed(provider string, err error) *AppError {
	return &AppError{
		Code:    CodeOAuthFailed,
		Message: fmt.Sprintf("OAuth failed for %s", provider),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"provider": provider},
		Err:     err,
	}
}

func ExternalError(service string, err error) *AppError {
	return &AppError{
		Code:    CodeExternalError,
		Message: fmt.Sprintf("external service error: %s", service),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"service": service},
		Err:     err,
	}
}

func RateLimited() *AppError {
	return &AppError{
		Code:    CodeRateLimited,
		Message: "Too many requests",
		Status:  http.StatusTooManyRequests,
	}
}

// Internal errors
func InternalWithError(err error) *AppError {
	return &AppError{
		Code:    CodeInternalError,
		Message: "An unexpected error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func ConfigError(message string) *AppError {
	return &AppError{
		Code:    CodeConfigError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

// Helper functions
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError returns the AppError in err's chain, or wraps err as an
// internal error.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalWithError(err)
}
