// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Input errors reject a whole run before the bar loop starts.
	ErrInputInvalid = &Error{Code: "INPUT_INVALID", Message: "malformed bar series or signals"}
	ErrNoData       = &Error{Code: "NO_DATA", Message: "no data available"}

	// Configuration errors are rejected before execution.
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Optimizer errors
	ErrGridExplosion     = &Error{Code: "GRID_EXPLOSION", Message: "parameter grid exceeds configured cap"}
	ErrParamUnknown      = &Error{Code: "PARAM_UNKNOWN", Message: "unknown parameter"}
	ErrParamOutOfRange   = &Error{Code: "PARAM_OUT_OF_RANGE", Message: "parameter value outside declared bounds"}
	ErrObjectiveNotFound = &Error{Code: "OBJECTIVE_NOT_FOUND", Message: "unknown objective"}

	// Registry errors
	ErrStrategyNotFound = &Error{Code: "STRATEGY_NOT_FOUND", Message: "unknown strategy"}

	// Storage errors
	ErrStorageFailed = &Error{Code: "STORAGE_FAILED", Message: "archive storage operation failed"}
)
