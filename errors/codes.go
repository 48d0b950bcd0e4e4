package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Streaming errors
const (
	// ErrCodeStreamUnavailable means the completion request failed after all retries.
	ErrCodeStreamUnavailable ErrorCode = "STREAM_UNAVAILABLE"
	// ErrCodeStreamInterrupted means a started stream failed while being read.
	ErrCodeStreamInterrupted ErrorCode = "STREAM_INTERRUPTED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeOverloaded means the relay has no free stream slot.
	ErrCodeOverloaded ErrorCode = "OVERLOADED"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// ErrCodeInternal indicates an internal error.
const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

var retryableCodes = map[ErrorCode]bool{
	ErrCodeStreamUnavailable: true,
	ErrCodeStreamInterrupted: true,
	ErrCodeTimeout:           true,
	ErrCodeOverloaded:        true,
	ErrCodeInternal:          false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
