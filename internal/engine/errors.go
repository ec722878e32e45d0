package engine

import (
	"errors"
	"fmt"
)

// Code categorizes request processing failures.
type Code string

const (
	// CodeParse indicates malformed request or payload JSON.
	CodeParse Code = "PARSE_ERROR"

	// CodeValidation indicates a missing or invalid required field,
	// e.g. an UPDATE without a where map.
	CodeValidation Code = "VALIDATION_ERROR"

	// CodeExecution indicates the database rejected the statement:
	// constraint violation, missing table, syntax error.
	CodeExecution Code = "EXECUTION_ERROR"

	// CodeTransaction indicates a sub-operation of a TRANSACTION
	// failed; the whole unit was rolled back.
	CodeTransaction Code = "TRANSACTION_ERROR"
)

// Error is a structured request processing failure.
//
// Step is 1-based and only set for transaction errors, identifying the
// sub-operation that failed.
type Error struct {
	Code      Code
	Message   string
	RequestID string
	Step      int
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Step > 0 {
		return fmt.Sprintf("%s: operation %d: %s", e.Code, e.Step, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a validation error.
// Uses errors.As to handle wrapped errors.
func IsValidation(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeValidation
}

// IsTransaction reports whether err is a transaction error.
func IsTransaction(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeTransaction
}

func newValidationError(requestID, format string, args ...any) *Error {
	return &Error{
		Code:      CodeValidation,
		Message:   fmt.Sprintf(format, args...),
		RequestID: requestID,
	}
}

func newExecutionError(requestID string, err error) *Error {
	return &Error{
		Code:      CodeExecution,
		Message:   err.Error(),
		RequestID: requestID,
		Err:       err,
	}
}

func newTransactionError(requestID string, step int, err error) *Error {
	return &Error{
		Code:      CodeTransaction,
		Message:   fmt.Sprintf("transaction failed: %v", err),
		RequestID: requestID,
		Step:      step,
		Err:       err,
	}
}
