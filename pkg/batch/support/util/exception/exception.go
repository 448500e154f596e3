// Package exception provides the error types used by the import batch.
// Errors are classified so that the chunk loop can decide whether a failure
// is skippable or terminates the run.
package exception

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// ErrorMatcher reports whether err belongs to a named error kind.
type ErrorMatcher func(err error) bool

// errorRegistry maps error kind names referenced in configuration to matchers.
var errorRegistry = make(map[string]ErrorMatcher)

// registryMutex protects access to errorRegistry.
var registryMutex sync.RWMutex

// RegisterErrorMatcher registers a named error kind.
// It panics if name is empty or matcher is nil.
func RegisterErrorMatcher(name string, matcher ErrorMatcher) {
	if name == "" {
		panic("Error type name cannot be empty")
	}
	if matcher == nil {
		panic(fmt.Sprintf("Cannot register nil matcher for name: %s", name))
	}
	registryMutex.Lock()
	defer registryMutex.Unlock()
	errorRegistry[name] = matcher
}

// RegisterErrorType registers a sentinel error under name. Matching uses errors.Is.
func RegisterErrorType(name string, prototype error) {
	if prototype == nil {
		panic(fmt.Sprintf("Cannot register nil prototype for name: %s", name))
	}
	RegisterErrorMatcher(name, func(err error) bool { return errors.Is(err, prototype) })
}

// IsErrorTypeRegistered checks if the specified error kind name is registered.
func IsErrorTypeRegistered(name string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, ok := errorRegistry[name]
	return ok
}

// IsErrorOfType checks if err matches the named error kind.
// Registered matchers are consulted first. Otherwise the error chain is walked and each
// link is compared by Go type name (e.g. "*exception.ParseError") or message substring.
func IsErrorOfType(err error, errorTypeName string) bool {
	if err == nil {
		return false
	}

	registryMutex.RLock()
	matcher, ok := errorRegistry[errorTypeName]
	registryMutex.RUnlock()
	if ok {
		return matcher(err)
	}

	for current := err; current != nil; current = errors.Unwrap(current) {
		if strings.Contains(current.Error(), errorTypeName) {
			return true
		}
		errType := reflect.TypeOf(current)
		if errType.String() == errorTypeName || (errType.Kind() == reflect.Ptr && errType.Elem().String() == errorTypeName) {
			return true
		}
	}
	return false
}

// BatchError is a general error raised by batch infrastructure (configuration, wiring,
// connection setup). It records the module where it occurred and optional policy flags.
type BatchError struct {
	// Module indicates the module where the error occurred (e.g. "reader", "writer", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	isRetryable bool
	isSkippable bool
	// StackTrace is the stack trace at the time of the error.
	StackTrace string
}

// NewBatchError creates a new BatchError instance.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  string(buf[:n]),
	}
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// IsBatchError reports whether err, or any error it wraps, is a *BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// ExtractErrorMessage returns the Message of a BatchError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}

func init() {
	RegisterErrorType("io.EOF", io.EOF)
	RegisterErrorType("context.DeadlineExceeded", context.DeadlineExceeded)
	RegisterErrorType("context.Canceled", context.Canceled)
}
