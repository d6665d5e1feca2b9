// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"rolltrackd/internal/job"
	"rolltrackd/internal/roll"
	"rolltrackd/internal/store"
)

// APIError represents a structured API error response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error.
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field.
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error.
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error for rejected transitions.
func NewConflictError(cause error) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "INVALID_TRANSITION",
		Message: cause.Error(),
	}
}

// NewInternalError creates a 500 Internal Server Error.
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// translateError maps core errors onto API errors.
func translateError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var transErr *roll.TransitionError
	if errors.As(err, &transErr) {
		return NewConflictError(transErr)
	}
	var runningErr *job.ErrRollRunning
	if errors.As(err, &runningErr) {
		return NewConflictError(runningErr)
	}
	var completedErr *job.ErrJobCompleted
	if errors.As(err, &completedErr) {
		return NewConflictError(completedErr)
	}
	var noRollErr *job.ErrNoSuchRoll
	if errors.As(err, &noRollErr) {
		return &APIError{
			Status:  http.StatusNotFound,
			Code:    "NOT_FOUND",
			Message: noRollErr.Error(),
		}
	}
	if errors.Is(err, store.ErrJobNotFound) {
		return &APIError{
			Status:  http.StatusNotFound,
			Code:    "NOT_FOUND",
			Message: err.Error(),
		}
	}

	return NewInternalError("internal error", err)
}

// httpErrorHandler renders APIError values as structured JSON.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		c.JSON(httpErr.Code, map[string]any{
			"code":    http.StatusText(httpErr.Code),
			"message": fmt.Sprintf("%v", httpErr.Message),
		})
		return
	}

	apiErr := translateError(err)
	c.JSON(apiErr.Status, apiErr)
}
