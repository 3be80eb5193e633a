package errors

import (
	stderrors "errors"
)

// GatewayError is the JSON error envelope returned by the gateway. The
// request id carries the correlation id assigned by the logging middleware.
type GatewayError struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

// ToGatewayError shapes an AppError for the gateway surface.
func (e *AppError) ToGatewayError(requestID string) GatewayError {
	return GatewayError{
		Error:     e.Message,
		RequestID: requestID,
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
