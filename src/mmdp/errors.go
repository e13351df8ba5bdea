package mmdp

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

var (
	ErrInvalidInput  = errors.New("mmdp: invalid input")
	ErrWriteFailure  = errors.New("mmdp: write failure")
	ErrResourceLimit = errors.New("mmdp: resource limit exceeded")
)

// InvalidInputError reports a rejected parameter before any work is done.
type InvalidInputError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

func invalidInput(field string, value any, reason string) error {
	return &InvalidInputError{Field: field, Value: value, Reason: reason}
}

// WriteFailureError wraps any error raised while producing an output file.
type WriteFailureError struct {
	Path string
	Err  error
}

func (e *WriteFailureError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteFailureError) Unwrap() []error { return []error{ErrWriteFailure, e.Err} }

// ResourceLimitError is returned before allocation when the matrices of a run
// would not fit under the configured memory ceiling.
type ResourceLimitError struct {
	N        int
	Workers  int
	Required uint64
	Limit    uint64
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("n=%d with %d worker(s) needs %s, limit is %s",
		e.N, e.Workers, humanize.IBytes(e.Required), humanize.IBytes(e.Limit))
}

func (e *ResourceLimitError) Unwrap() error { return ErrResourceLimit }
