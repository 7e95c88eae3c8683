package mpsl

import (
	"errors"
	"fmt"
)

// Error is the error type returned by the Layer.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes layer errors.
type ErrorCode string

const (
	// CodeAlreadyInitialized indicates Initialize was called again with
	// different parameters.
	CodeAlreadyInitialized ErrorCode = "ALREADY_INITIALIZED"

	// CodeNotInitialized indicates an operation that needs an initialized layer.
	CodeNotInitialized ErrorCode = "NOT_INITIALIZED"

	// CodeInvalidConfig indicates a rejected LF clock configuration.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// CodeContractViolation indicates a caller broke a documented precondition.
	CodeContractViolation ErrorCode = "CONTRACT_VIOLATION"
)

// errno values as returned by the C interface of the layer.
const (
	errnoEPERM  = 1
	errnoEFAULT = 14
	errnoEINVAL = 22
)

// Sentinel errors for use with errors.Is. Matching is by Code.
var (
	ErrAlreadyInitialized = &Error{Code: CodeAlreadyInitialized, Message: "already initialized with different configuration"}
	ErrNotInitialized     = &Error{Code: CodeNotInitialized, Message: "not initialized"}
	ErrInvalidConfig      = &Error{Code: CodeInvalidConfig, Message: "invalid clock configuration"}
	ErrContractViolation  = &Error{Code: CodeContractViolation, Message: "contract violation"}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// Errno returns the negative errno the C interface reports for this error.
func (e *Error) Errno() int32 {
	switch e.Code {
	case CodeAlreadyInitialized, CodeNotInitialized:
		return -errnoEPERM
	case CodeInvalidConfig:
		return -errnoEINVAL
	default:
		return -errnoEFAULT
	}
}

// IsAlreadyInitialized reports whether err is a configuration conflict.
func IsAlreadyInitialized(err error) bool {
	return errors.Is(err, ErrAlreadyInitialized)
}

// IsContractViolation reports whether err is a caller contract violation.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrContractViolation)
}

func newError(code ErrorCode, message string, cause error, details map[string]string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: details,
		Err:     cause,
	}
}
