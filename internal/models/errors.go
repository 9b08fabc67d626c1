package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes used across the application. The staging codes mirror the
// moderation console's validation taxonomy; commit preconditions are
// checked before any network or database work happens.
const (
	CodeNotFound             = "NOT_FOUND"
	CodeValidation           = "VALIDATION_ERROR"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInternal             = "INTERNAL_ERROR"
	CodeInvalidState         = "INVALID_STATE"
	CodeMissingJustification = "MISSING_JUSTIFICATION"
	CodeMissingDuration      = "MISSING_DURATION"
	CodeCommitFailed         = "COMMIT_FAILED"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
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

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// NewInvalidStateError marks a staging operation that the current staged
// state does not permit. These indicate UI wiring bugs, not operator input.
func NewInvalidStateError(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidState,
		Message: message,
	}
}

// NewMissingJustificationError marks a commit attempted while a staged
// action still has no reasons attached.
func NewMissingJustificationError(userID uint, action Action) *AppError {
	return &AppError{
		Code:    CodeMissingJustification,
		Message: fmt.Sprintf("staged action %q for user %d has no reasons", action, userID),
	}
}

// NewMissingDurationError marks a restrict action staged without a duration.
func NewMissingDurationError(userID uint) *AppError {
	return &AppError{
		Code:    CodeMissingDuration,
		Message: fmt.Sprintf("restrict action for user %d has no duration", userID),
	}
}

// NewCommitFailedError wraps a bulk transport failure. The staged state is
// preserved so the operator can retry without re-entering anything.
func NewCommitFailedError(err error) *AppError {
	return &AppError{
		Code:    CodeCommitFailed,
		Message: "Bulk commit failed",
		Err:     err,
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
