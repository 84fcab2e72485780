package model

import "fmt"

// ErrorCode is the kebab-cased wire error code carried in ResponseStatus.
type ErrorCode string

const (
	Success            ErrorCode = "success"
	BadRequest         ErrorCode = "bad-request"
	ServiceUnavailable ErrorCode = "service-unavailable"
	RateLimited        ErrorCode = "rate-limited"
	InternalError      ErrorCode = "internal-error"
)

// ResponseStatus is the status envelope embedded in every registry/discovery
// response.
type ResponseStatus struct {
	ErrorCode    ErrorCode `json:"error_code"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// OK is the canonical success status.
func OK() ResponseStatus { return ResponseStatus{ErrorCode: Success} }

// Error is a typed application error carrying a wire ErrorCode.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds an *Error with the given code and formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Status renders the error as a ResponseStatus.
func (e *Error) Status() ResponseStatus {
	return ResponseStatus{ErrorCode: e.Code, ErrorMessage: e.Message}
}
