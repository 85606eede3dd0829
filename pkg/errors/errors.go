// Package errors provides standardized error types for the SQL gate.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the gate pipeline.
const (
	CodeInvalidStatement    = "INVALID_STATEMENT"
	CodePolicyViolation     = "POLICY_VIOLATION"
	CodeConstraintViolation = "CONSTRAINT_VIOLATION"
	CodeSyntaxError         = "SYNTAX_ERROR"
	CodeExecutionFailed     = "EXECUTION_FAILED"
	CodeTimeout             = "TIMEOUT"
	CodeConnectionFailed    = "CONNECTION_FAILED"
	CodePoolExhausted       = "POOL_EXHAUSTED"
	CodeInternal            = "INTERNAL_ERROR"
)

// Error kinds exposed to callers in the response envelope. Every code
// maps to exactly one kind; raw driver text never crosses this boundary.
const (
	KindValidationError = "ValidationError"
	KindPolicyViolation = "PolicyViolation"
	KindExecutionError  = "ExecutionError"
	KindConnectionError = "ConnectionError"
)

// GateError represents a pipeline error with code, message, and optional details.
type GateError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *GateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *GateError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by code.
func (e *GateError) Is(target error) bool {
	t, ok := target.(*GateError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Kind returns the caller-facing error kind for this error's code.
func (e *GateError) Kind() string {
	return KindForCode(e.Code)
}

// WithDetail adds a single detail to the error.
func (e *GateError) WithDetail(key string, value interface{}) *GateError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common errors.
var (
	ErrEmptyStatement     = &GateError{Code: CodeInvalidStatement, Message: "empty SQL statement"}
	ErrMultipleStatements = &GateError{Code: CodeInvalidStatement, Message: "multiple statements not allowed"}
	ErrPoolExhausted      = &GateError{Code: CodePoolExhausted, Message: "pool exhausted"}
	ErrPoolClosed         = &GateError{Code: CodeConnectionFailed, Message: "connection pool is closed"}
	ErrTimeout            = &GateError{Code: CodeTimeout, Message: "timeout"}
)

// New creates a new GateError with the given code and message.
func New(code, message string) *GateError {
	return &GateError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with a GateError.
func Wrap(err error, code, message string) *GateError {
	if err == nil {
		return nil
	}
	return &GateError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) *GateError {
	if err == nil {
		return nil
	}
	return &GateError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// KindForCode maps an error code to its caller-facing kind.
func KindForCode(code string) string {
	switch code {
	case CodeInvalidStatement:
		return KindValidationError
	case CodePolicyViolation:
		return KindPolicyViolation
	case CodeConstraintViolation, CodeSyntaxError, CodeExecutionFailed, CodeTimeout:
		return KindExecutionError
	case CodeConnectionFailed, CodePoolExhausted:
		return KindConnectionError
	default:
		return KindExecutionError
	}
}

// GetCode extracts the error code from an error.
func GetCode(err error) string {
	var gateErr *GateError
	if errors.As(err, &gateErr) {
		return gateErr.Code
	}
	return CodeInternal
}

// GetMessage extracts the sanitized error message from an error.
func GetMessage(err error) string {
	var gateErr *GateError
	if errors.As(err, &gateErr) {
		return gateErr.Message
	}
	return err.Error()
}

// GetKind extracts the caller-facing kind from an error.
func GetKind(err error) string {
	var gateErr *GateError
	if errors.As(err, &gateErr) {
		return gateErr.Kind()
	}
	return KindExecutionError
}

// IsConnectionError reports whether err carries a connection-class code.
// Only these are eligible for the single read retry.
func IsConnectionError(err error) bool {
	var gateErr *GateError
	if errors.As(err, &gateErr) {
		return gateErr.Code == CodeConnectionFailed || gateErr.Code == CodePoolExhausted
	}
	return false
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var gateErr *GateError
	if errors.As(err, &gateErr) {
		return gateErr.Code == CodeInvalidStatement
	}
	return false
}

// IsPolicyViolation reports whether err is a policy rejection.
func IsPolicyViolation(err error) bool {
	var gateErr *GateError
	if errors.As(err, &gateErr) {
		return gateErr.Code == CodePolicyViolation
	}
	return false
}
