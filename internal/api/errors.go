// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/serial-plotter/backend/internal/session"
	"github.com/serial-plotter/backend/internal/storage"
	"github.com/serial-plotter/backend/internal/variables"
)

// ShowErrorDetails includes the underlying error text in unexpected-error
// responses. The server turns it off outside debug log level.
var ShowErrorDetails = true

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes carried in the "code" field of error responses.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

func newAPIError(status int, code, message string, cause error) *APIError {
	apiErr := &APIError{Status: status, Code: code, Message: message}
	if cause != nil {
		apiErr.Details = cause.Error()
	}
	return apiErr
}

// NewBadRequestError is a 400 for a body or parameter that could not be read.
func NewBadRequestError(message string, cause error) *APIError {
	return newAPIError(http.StatusBadRequest, CodeBadRequest, message, cause)
}

// NewValidationError is a 400 naming the offending field.
func NewValidationError(field string) *APIError {
	return newAPIError(http.StatusBadRequest, CodeValidation, "invalid value for field: "+field, nil)
}

// NewNotFoundError is a 404 for a session, variable, file or job.
func NewNotFoundError(resource string, id string) *APIError {
	return newAPIError(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found: %s", resource, id), nil)
}

// NewConflictError is a 409, mostly "a source is already running".
func NewConflictError(message string) *APIError {
	return newAPIError(http.StatusConflict, CodeConflict, message, nil)
}

// NewInternalError is a 500 wrapping cause.
func NewInternalError(message string, cause error) *APIError {
	return newAPIError(http.StatusInternalServerError, CodeInternal, message, cause)
}

// NewServiceUnavailableError is a 503, returned when the session limit is hit.
func NewServiceUnavailableError(message string) *APIError {
	return newAPIError(http.StatusServiceUnavailable, CodeServiceUnavailable, message, nil)
}

// fromDomainError maps session, registry and storage errors onto API errors.
func fromDomainError(err error, sessionID string) *APIError {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return NewNotFoundError("session", sessionID)
	case errors.Is(err, variables.ErrUnknownVariable):
		return newAPIError(http.StatusNotFound, CodeNotFound, err.Error(), nil)
	case errors.Is(err, storage.ErrFileNotFound):
		return newAPIError(http.StatusNotFound, CodeNotFound, err.Error(), nil)
	case errors.Is(err, variables.ErrEmptyName):
		return NewValidationError("name")
	case errors.Is(err, session.ErrSourceRunning), errors.Is(err, session.ErrNoSource):
		return NewConflictError(err.Error())
	case errors.Is(err, session.ErrTooManySessions), errors.Is(err, session.ErrArchiveDisabled):
		return NewServiceUnavailableError(err.Error())
	default:
		return NewInternalError("operation failed", err)
	}
}

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
		}
		if ShowErrorDetails {
			apiErr.Details = err.Error()
		}
	}

	if c.Request().Method == http.MethodHead {
		c.NoContent(apiErr.Status)
		return
	}
	c.JSON(apiErr.Status, apiErr)
}
