package server

import (
	"errors"
	"log/slog"

	"github.com/localrivet/contentvault/internal/errortypes"
)

// ErrorResponse is the structured error report produced for failed tool
// calls. The code classifies the failure so operators can separate
// client mistakes from provider and storage faults in the logs.
type ErrorResponse struct {
	Status     string                 `json:"status"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StackTrace string                 `json:"stack_trace,omitempty"`
}

// Error response codes
const (
	StatusCodeValidationError = "VALIDATION_ERROR"
	StatusCodePermissionError = "PERMISSION_ERROR"
	StatusCodeDatabaseError   = "DATABASE_ERROR"
	StatusCodeNetworkError    = "NETWORK_ERROR"
	StatusCodeInternalError   = "INTERNAL_ERROR"
	StatusCodeConfigError     = "CONFIG_ERROR"
	StatusCodeExternalError   = "EXTERNAL_ERROR"
	StatusCodeUnknownError    = "UNKNOWN_ERROR"
)

// errorToResponse converts an error to a standardized ErrorResponse
func errorToResponse(err error) ErrorResponse {
	var code string
	var details map[string]interface{}
	var stackTrace string
	message := err.Error()

	// Check if it's an AppError
	var appErr *errortypes.AppError
	if errors.As(err, &appErr) {
		// Set details from the app error
		details = appErr.Fields
		stackTrace = appErr.StackInfo

		// Set the error code based on the error type
		switch appErr.Type {
		case errortypes.ErrorTypeValidation:
			code = StatusCodeValidationError
		case errortypes.ErrorTypePermission:
			code = StatusCodePermissionError
		case errortypes.ErrorTypeNetwork:
			code = StatusCodeNetworkError
		case errortypes.ErrorTypeDatabase, errortypes.ErrorTypeInternal:
			code = StatusCodeInternalError
		case errortypes.ErrorTypeAPI, errortypes.ErrorTypeExternal:
			code = StatusCodeExternalError
		case errortypes.ErrorTypeConfig:
			code = StatusCodeConfigError
		default:
			code = StatusCodeUnknownError
		}
	} else {
		// Generic error, use unknown error code
		code = StatusCodeUnknownError
	}

	// Return the standardized error response
	return ErrorResponse{
		Status:     "error",
		Code:       code,
		Message:    message,
		Details:    details,
		StackTrace: stackTrace,
	}
}

// logToolError records a failed tool call with its classified error code.
func logToolError(toolName string, err error) {
	resp := errorToResponse(err)
	errortypes.LogError(nil, err)
	slog.Error("Tool call failed",
		"tool", toolName, "code", resp.Code, "message", resp.Message)
}
