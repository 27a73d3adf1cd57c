// Package calcerr defines the calculator's error kinds. Every kind matches
// ErrCalculator through errors.Is, so callers can catch broadly with the root
// or narrowly with errors.As on the concrete type.
package calcerr

import "errors"

// ErrCalculator is the root of every calculator error.
var ErrCalculator = errors.New("calculator error")

// ValidationError reports a bad operand or a violated operation precondition.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrCalculator }

// OperationError reports a missing or unknown operation, or an unexpected
// failure while executing one.
type OperationError struct {
	Msg string
	Err error
}

func (e *OperationError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *OperationError) Unwrap() error { return e.Err }

func (e *OperationError) Is(target error) bool { return target == ErrCalculator }

// ConfigurationError reports an invalid configuration value.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrCalculator }

// DataError reports a persistence failure. Any I/O, encoding or parse error
// raised while saving or loading history is normalised into this kind.
type DataError struct {
	Msg string
	Err error
}

func (e *DataError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *DataError) Unwrap() error { return e.Err }

func (e *DataError) Is(target error) bool { return target == ErrCalculator }

// Validation returns a *ValidationError with the given message.
func Validation(msg string) error {
	return &ValidationError{Msg: msg}
}

// Operation returns an *OperationError wrapping err (which may be nil).
func Operation(msg string, err error) error {
	return &OperationError{Msg: msg, Err: err}
}

// Configuration returns a *ConfigurationError wrapping err (which may be nil).
func Configuration(msg string, err error) error {
	return &ConfigurationError{Msg: msg, Err: err}
}

// Data returns a *DataError wrapping err (which may be nil).
func Data(msg string, err error) error {
	return &DataError{Msg: msg, Err: err}
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
