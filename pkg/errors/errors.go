// Package errors provides the typed error vocabulary shared by every SciGo
// estimator: dimension mismatches, unfitted-model usage, malformed
// configuration and malformed persisted state. All constructors return
// errors that are compatible with the standard library's errors.Is/As, and
// panics recovered via Recover carry a stack trace courtesy of
// github.com/cockroachdb/errors.
package errors

import (
	"fmt"

	cockroach "github.com/cockroachdb/errors"
)

// Is and As re-export the standard library's error-chain inspection so call
// sites only need to import one errors package. cockroachdb/errors preserves
// Unwrap compatibility, so these behave exactly like stdlib errors.Is/As.
func Is(err, target error) bool {
	return cockroach.Is(err, target)
}

func As(err error, target interface{}) bool {
	return cockroach.As(err, target)
}

// Sentinel errors that call sites compare against with errors.Is.
var (
	// ErrEmptyData is returned when an estimator is fit or transformed with
	// zero samples or zero features.
	ErrEmptyData = cockroach.New("scigo: empty data")
	// ErrNotImplemented is returned by code paths that are intentionally
	// unimplemented (e.g. format variants reserved for future use).
	ErrNotImplemented = cockroach.New("scigo: not implemented")
	// ErrSingularMatrix is returned when a linear solve hits a
	// non-invertible matrix.
	ErrSingularMatrix = cockroach.New("scigo: singular matrix")
)

// New creates an error with a captured stack trace.
func New(msg string) error {
	return cockroach.New(msg)
}

// Newf creates a formatted error with a captured stack trace.
func Newf(format string, args ...interface{}) error {
	return cockroach.Newf(format, args...)
}

// Wrap annotates err with msg, preserving err in the Unwrap chain and
// capturing a stack trace at the call site.
func Wrap(err error, msg string) error {
	return cockroach.Wrap(err, msg)
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return cockroach.Wrapf(err, format, args...)
}

// DimensionError reports a shape mismatch between two operands of an
// operation, e.g. X and y having different row counts.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func NewDimensionError(op string, expected, got, axis int) *DimensionError {
	return &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: dimension mismatch on axis %d: expected %d, got %d", e.Op, e.Axis, e.Expected, e.Got)
}

// ValueError reports an operation called with an out-of-domain or otherwise
// invalid argument value.
type ValueError struct {
	Op      string
	Message string
}

func NewValueError(op, message string) *ValueError {
	return &ValueError{Op: op, Message: message}
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// ValidationError reports a named field failing validation, retaining the
// offending value for diagnostics.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s (value=%v)", e.Field, e.Message, e.Value)
}

// ModelError reports a failure specific to one model operation, optionally
// wrapping a lower-level cause so errors.Is/As keeps working.
type ModelError struct {
	Op      string
	Message string
	Cause   error
}

func NewModelError(op, message string, cause error) *ModelError {
	return &ModelError{Op: op, Message: message, Cause: cause}
}

func (e *ModelError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ModelError) Unwrap() error {
	return e.Cause
}

// NotFittedError reports that a method requiring a fitted model was called
// before Fit (or an equivalent freezing operation) completed.
type NotFittedError struct {
	ModelName string
	Method    string
}

func NewNotFittedError(modelName, method string) *NotFittedError {
	return &NotFittedError{ModelName: modelName, Method: method}
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("%s is not fitted: call Fit before %s", e.ModelName, e.Method)
}

// ConfigConflictError reports a configuration that is internally
// inconsistent, e.g. a forced split referencing a categorical feature that
// has no raw passthrough encoder.
type ConfigConflictError struct {
	Op      string
	Message string
}

func NewConfigConflictError(op, message string) *ConfigConflictError {
	return &ConfigConflictError{Op: op, Message: message}
}

func (e *ConfigConflictError) Error() string {
	return fmt.Sprintf("%s: configuration conflict: %s", e.Op, e.Message)
}

// ModelFormatError reports malformed persisted state: an unknown encoder
// type tag, a missing required line, or a JSON document missing a required
// field.
type ModelFormatError struct {
	Op      string
	Message string
}

func NewModelFormatError(op, message string) *ModelFormatError {
	return &ModelFormatError{Op: op, Message: message}
}

func (e *ModelFormatError) Error() string {
	return fmt.Sprintf("%s: model format error: %s", e.Op, e.Message)
}

// UnsetPriorError reports that an encoder requiring a frozen global prior
// (TargetLabelMean) was evaluated before that prior was set.
type UnsetPriorError struct {
	Op string
}

func NewUnsetPriorError(op string) *UnsetPriorError {
	return &UnsetPriorError{Op: op}
}

func (e *UnsetPriorError) Error() string {
	return fmt.Sprintf("%s: prior is not set; FinishProcess must run before this call", e.Op)
}

// FatalError wraps an unrecoverable failure from a collaborator (I/O,
// collective communication) that must abort the whole fit, leaving no
// partial artifact behind.
type FatalError struct {
	Op    string
	Cause error
}

func NewFatalError(op string, cause error) *FatalError {
	return &FatalError{Op: op, Cause: cause}
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: fatal: %v", e.Op, e.Cause)
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}

// Recover turns a panic within the deferring function into an error
// assigned to *errPtr, tagged with op and carrying a stack trace. It is a
// no-op when no panic occurred. Call as:
//
//	func (e *Estimator) Fit(...) (err error) {
//	    defer errors.Recover(&err, "Estimator.Fit")
//	    ...
//	}
func Recover(errPtr *error, op string) {
	if r := recover(); r != nil {
		if err, ok := r.(error); ok {
			*errPtr = cockroach.Wrapf(err, "%s: recovered from panic", op)
			return
		}
		*errPtr = cockroach.Newf("%s: recovered from panic: %v", op, r)
	}
}
