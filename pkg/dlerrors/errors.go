// Package dlerrors provides structured error handling for the data logger.
// Every error carries a kind, a human-readable message, an optional cause,
// key-value details and the call stack at the point of creation.
//
// # Error Kinds
//
// The kinds map onto the failure classes of the logger:
//   - ErrorTypeSchema: duplicate group names, arity or type mismatches on
//     append, unsupported value kinds. Always a programming error; never
//     retried.
//   - ErrorTypeIO: unwritable run directories and failed frame writes.
//     Fatal for the run.
//   - ErrorTypeRead: malformed or missing artifacts, reported per group.
//   - ErrorTypeState: operations issued in the wrong lifecycle phase, such
//     as registering a group before a run exists or appending after Close.
//
// # Basic Usage
//
//	err := dlerrors.New(dlerrors.ErrorTypeSchema, "field \"v\": expected 3 elements, got 4").
//	    WithDetail("group", "base").
//	    WithDetail("field", "v")
//
//	if dlerrors.IsType(err, dlerrors.ErrorTypeSchema) {
//	    // reject the sample, keep logging
//	}
package dlerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of an error.
type ErrorType string

const (
	// ErrorTypeInternal represents internal invariant violations
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeSchema represents schema registration and append validation errors
	ErrorTypeSchema ErrorType = "schema"
	// ErrorTypeIO represents run directory and artifact write errors
	ErrorTypeIO ErrorType = "io"
	// ErrorTypeRead represents malformed or missing persisted artifacts
	ErrorTypeRead ErrorType = "read"
	// ErrorTypeState represents operations issued in the wrong lifecycle phase
	ErrorTypeState ErrorType = "state"
	// ErrorTypeConflict represents conflicting re-initialization
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeNotFound represents unknown groups, columns or handles
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeCapability represents unsupported formats or algorithms
	ErrorTypeCapability ErrorType = "capability"
)

// Error represents a structured error with context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack.
type StackFrame struct {
	Function string // Fully qualified function name
	File     string // Source file path
	Line     int    // Line number in source file
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error. Calls can be chained.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message, capturing the
// call stack at the point of creation.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf is New with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context. If err is already a
// structured Error its stack is preserved. Returns nil if err is nil.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType reports whether the outermost structured error in err's chain has
// the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// TypeOf returns the type of the outermost structured error in err's chain,
// or the empty type if err carries none.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Type
}

// IsFatal reports whether err leaves its operation unable to go on, such as
// a run that can no longer persist samples or an export that cannot write.
// Other types are scoped to the single call, group or file that failed.
func IsFatal(err error) bool {
	return IsType(err, ErrorTypeIO) || IsType(err, ErrorTypeInternal)
}

func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
