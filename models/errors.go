package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable client-visible error codes. Every terminal failure of the
// compression pipeline maps to exactly one of these.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeResourceExhausted = "RESOURCE_EXHAUSTED"
	CodeServiceBusy       = "SERVICE_BUSY"
	CodeEngineUnavailable = "ENGINE_UNAVAILABLE"
	CodeTranscodeFailed   = "TRANSCODE_FAILED"
	CodeTimeout           = "PROCESSING_TIMEOUT"
	CodeEmptyOutput       = "EMPTY_OUTPUT"
	CodePublishFailed     = "PUBLISH_FAILED"
	CodeInternal          = "INTERNAL_ERROR"
)

// CompressionError is a pipeline failure with a stable code and a
// message that is safe to return to the client. The wrapped cause may
// contain internal detail (paths, raw stderr) and is for logs only.
type CompressionError struct {
	Code    string
	Message string
	cause   error
}

func (e *CompressionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CompressionError) Unwrap() error {
	return e.cause
}

// NewCompressionError builds a pipeline failure with an optional cause.
func NewCompressionError(code, message string, cause error) *CompressionError {
	return &CompressionError{Code: code, Message: message, cause: cause}
}

// AsCompressionError extracts a CompressionError from an error chain.
// Unknown errors are wrapped as INTERNAL_ERROR so no failure kind
// escapes the taxonomy.
func AsCompressionError(err error) *CompressionError {
	var ce *CompressionError
	if errors.As(err, &ce) {
		return ce
	}
	return &CompressionError{Code: CodeInternal, Message: "unexpected error", cause: err}
}

// HTTPStatus maps an error code to the response status line.
func (e *CompressionError) HTTPStatus() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusRequestTimeout
	case CodeTranscodeFailed, CodeEmptyOutput:
		return http.StatusUnprocessableEntity
	case CodeServiceBusy, CodeResourceExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
