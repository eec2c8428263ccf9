// Package errors provides the unified error taxonomy for the runtime.
package errors

import (
	"errors"
	"fmt"
)

// Code identifies a category of runtime failure (spec §7).
type Code string

const (
	CodeParseError         Code = "PARSE_ERROR"
	CodeValidationError    Code = "VALIDATION_ERROR"
	CodeCapacityExceeded   Code = "CAPACITY_EXCEEDED"
	CodeMemoryOutOfBounds  Code = "MEMORY_ACCESS_OUT_OF_BOUNDS"
	CodeFuelExhausted      Code = "FUEL_EXHAUSTED"
	CodeTrap               Code = "TRAP"
	CodeCancelled          Code = "CANCELLED"
	CodeTimeout            Code = "TIMEOUT"
	CodeResourceNotFound   Code = "RESOURCE_NOT_FOUND"
	CodeTypeMismatch       Code = "TYPE_MISMATCH"
	CodeIntegrityViolation Code = "INTEGRITY_VIOLATION"
	CodeResourceLimit      Code = "RESOURCE_LIMIT_EXCEEDED"
)

// maxDetailLen bounds the optional detail text, per spec §7 "detail text is
// bounded in length".
const maxDetailLen = 512

// RuntimeError is a structured, bounded-detail error. Every public
// operation in this module returns one instead of unwinding.
type RuntimeError struct {
	Code    Code
	Message string
	Detail  string
	Offset  int64 // byte offset, meaningful for CodeParseError
	Err     error
}

func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// WithDetail attaches a bounded detail string.
func (e *RuntimeError) WithDetail(detail string) *RuntimeError {
	if len(detail) > maxDetailLen {
		detail = detail[:maxDetailLen]
	}
	e.Detail = detail
	return e
}

// WithOffset attaches a byte offset (for parse errors).
func (e *RuntimeError) WithOffset(offset int64) *RuntimeError {
	e.Offset = offset
	return e
}

// New creates a RuntimeError.
func New(code Code, message string) *RuntimeError {
	return &RuntimeError{Code: code, Message: message}
}

// Wrap wraps an existing error.
func Wrap(code Code, message string, err error) *RuntimeError {
	return &RuntimeError{Code: code, Message: message, Err: err}
}

// Constructors, one per category.

func ParseError(offset int64, reason string) *RuntimeError {
	return New(CodeParseError, "malformed input").WithDetail(reason).WithOffset(offset)
}

func ValidationError(reason string) *RuntimeError {
	return New(CodeValidationError, "validation rejected").WithDetail(reason)
}

func CapacityExceeded(collection string, capacity int) *RuntimeError {
	return New(CodeCapacityExceeded, "capacity exceeded").
		WithDetail(fmt.Sprintf("%s capacity=%d", collection, capacity))
}

func ResourceLimitExceeded(crate string, requested, budget int64) *RuntimeError {
	return New(CodeResourceLimit, "resource limit exceeded").
		WithDetail(fmt.Sprintf("crate=%s requested=%d budget=%d", crate, requested, budget))
}

func MemoryOutOfBounds(offset, length, size uint64) *RuntimeError {
	return New(CodeMemoryOutOfBounds, "memory access out of bounds").
		WithDetail(fmt.Sprintf("offset=%d length=%d size=%d", offset, length, size))
}

func FuelExhausted(taskID uint64, remaining int64) *RuntimeError {
	return New(CodeFuelExhausted, "fuel budget exhausted").
		WithDetail(fmt.Sprintf("task=%d remaining=%d", taskID, remaining))
}

func Trap(kind string) *RuntimeError {
	return New(CodeTrap, "trap").WithDetail(kind)
}

func Cancelled(taskID uint64) *RuntimeError {
	return New(CodeCancelled, "task cancelled").WithDetail(fmt.Sprintf("task=%d", taskID))
}

func Timeout(operation string) *RuntimeError {
	return New(CodeTimeout, "operation timed out").WithDetail(operation)
}

func ResourceNotFound(handle uint32) *RuntimeError {
	return New(CodeResourceNotFound, "resource not found").
		WithDetail(fmt.Sprintf("handle=%d", handle))
}

func TypeMismatch(expected, actual string) *RuntimeError {
	return New(CodeTypeMismatch, "type mismatch").
		WithDetail(fmt.Sprintf("expected=%s actual=%s", expected, actual))
}

func IntegrityViolation(collection string) *RuntimeError {
	return New(CodeIntegrityViolation, "checksum verification failed").WithDetail(collection)
}

// Is reports whether err is a RuntimeError of the given code.
func Is(err error, code Code) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// As extracts a RuntimeError from an error chain.
func As(err error) *RuntimeError {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re
	}
	return nil
}
