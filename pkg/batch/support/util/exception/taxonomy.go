package exception

import (
	"errors"
	"fmt"
)

// Names under which the record-level error kinds are registered.
const (
	ParseErrorName    = "ParseError"
	WriteErrorName    = "WriteError"
	ResourceErrorName = "ResourceError"
)

// ParseError is returned by a record source when one input line cannot be mapped to a record.
// The source has already advanced past the line.
type ParseError struct {
	// Line is the 1-based physical line number in the input.
	Line int
	// Input is the raw text of the offending line.
	Input string
	// Err is the underlying cause.
	Err error
}

// NewParseError creates a ParseError.
func NewParseError(line int, input string, err error) *ParseError {
	return &ParseError{Line: line, Input: input, Err: err}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing error at line %d in input [%s]: %v", e.Line, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// WriteError is returned by a record sink when a chunk could not be persisted.
// The chunk's transaction has been rolled back.
type WriteError struct {
	// Table is the target table.
	Table string
	// Count is the number of records in the rejected chunk.
	Count int
	// Err is the underlying cause.
	Err error
}

// NewWriteError creates a WriteError.
func NewWriteError(table string, count int, err error) *WriteError {
	return &WriteError{Table: table, Count: count, Err: err}
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %d records to %s: %v", e.Count, e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ResourceError is returned when an input resource cannot be opened or read at all.
type ResourceError struct {
	// Resource is the path or URI of the resource.
	Resource string
	// Err is the underlying cause.
	Err error
}

// NewResourceError creates a ResourceError.
func NewResourceError(resource string, err error) *ResourceError {
	return &ResourceError{Resource: resource, Err: err}
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource %s unavailable: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// IsParseError reports whether err wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsWriteError reports whether err wraps a *WriteError.
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}

// IsResourceError reports whether err wraps a *ResourceError.
func IsResourceError(err error) bool {
	var re *ResourceError
	return errors.As(err, &re)
}

func init() {
	RegisterErrorMatcher(ParseErrorName, IsParseError)
	RegisterErrorMatcher(WriteErrorName, IsWriteError)
	RegisterErrorMatcher(ResourceErrorName, IsResourceError)
}
