// Package errors provides structured error handling for the IQC dashboard.
//
// Only conditions the core cannot recover from are surfaced as errors: query
// and engine failures, invalid filters, unreadable source files and connector
// initialization failures. Expected "nothing to show" states (no files loaded,
// lookup misses) are returned as empty results instead.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"slices"

	"go.uber.org/zap"
)

// ErrorType classifies an error so callers can decide how to surface it.
type ErrorType string

const (
	// ErrorTypeInternal is the fallback for errors that carry no type
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation is invalid caller input, such as an unknown column
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConnection is a columnar engine initialization failure
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeConfig is an invalid configuration value
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeData is malformed or unsupported data in a source file
	ErrorTypeData ErrorType = "data"
	// ErrorTypeCapability is a missing optional capability
	ErrorTypeCapability ErrorType = "capability"
	// ErrorTypeFile is a failure reading or writing a source file
	ErrorTypeFile ErrorType = "file"
	// ErrorTypeQuery is a failed engine query
	ErrorTypeQuery ErrorType = "query"
)

// Error is a typed error with optional cause, details and origin stack.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]any
	Stack   []StackFrame
}

// StackFrame is one caller frame recorded where the error was created.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches key=value to the error and returns it for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New returns an error of the given type.
func New(errType ErrorType, message string) *Error {
	return &Error{Type: errType, Message: message, Stack: callers(3)}
}

// Newf is New with a formatted message.
func Newf(errType ErrorType, format string, args ...any) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...), Stack: callers(3)}
}

// Wrap returns err annotated with a type and message, or nil when err is nil.
// When err already carries a stack it is kept, so the origin of a failure
// survives re-classification by outer layers.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	wrapped := &Error{Type: errType, Message: message, Cause: err}
	var inner *Error
	if errors.As(err, &inner) && len(inner.Stack) > 0 {
		wrapped.Stack = inner.Stack
	} else {
		wrapped.Stack = callers(3)
	}
	return wrapped
}

// IsType reports whether the outermost typed error in err's chain has type errType.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == errType
}

// TypeOf returns the type of the outermost structured error in err's chain,
// or ErrorTypeInternal when err carries none.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ErrorTypeInternal
	}
	return e.Type
}

// Fields renders err as zap fields: the error itself, its type, and the
// details of every typed error in the chain (outer layers win on key clashes).
func Fields(err error) []zap.Field {
	if err == nil {
		return nil
	}
	fields := []zap.Field{zap.Error(err), zap.String("error_type", string(TypeOf(err)))}

	details := make(map[string]any)
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		e, ok := cur.(*Error)
		if !ok {
			continue
		}
		for k, v := range e.Details {
			if _, seen := details[k]; !seen {
				details[k] = v
			}
		}
	}

	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, details[k]))
	}
	return fields
}

// callers records up to 32 frames, skipping runtime.Callers and its callers.
func callers(skip int) []StackFrame {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]StackFrame, 0, n)
	for {
		f, more := frames.Next()
		stack = append(stack, StackFrame{Function: f.Function, File: f.File, Line: f.Line})
		if !more {
			break
		}
	}
	return stack
}
