// Package errors provides the error types of pkgfeed.
//
// A run separates failures it recovers from (fetch, snapshot, changes file)
// from the one failure that aborts it: writing the feed document. The
// latter is wrapped in a FatalError, and IsFatal is how callers tell them
// apart.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard library helpers, re-exported so callers need a single import.
var (
	New = errors.New
	Is  = errors.Is
	As  = errors.As
)

// Sentinels matched by the typed errors through errors.Is.
var (
	// ErrInvalidInput matches every ValidationError
	ErrInvalidInput = errors.New("invalid input")

	// ErrAPIUnavailable matches API errors with a 5xx status
	ErrAPIUnavailable = errors.New("API unavailable")

	// ErrRateLimited matches API errors with status 429
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout matches every TimeoutError
	ErrTimeout = errors.New("operation timed out")

	// ErrFatal matches every FatalError
	ErrFatal = errors.New("fatal")
)

// ValidationError reports an option or config value that cannot be used.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError reports a failed request to the package API.
// StatusCode is zero when no response was received.
type APIError struct {
	Service    string
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Service, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return target == ErrRateLimited
	case e.StatusCode >= http.StatusInternalServerError:
		return target == ErrAPIUnavailable
	}
	return false
}

// ConfigError reports a configuration that could not be loaded or applied.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, msg)
	}
	return fmt.Sprintf("configuration error: %s", msg)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ParseError reports a snapshot, changes file, feed document or API
// response that could not be decoded.
type ParseError struct {
	Format  string // json, xml, sqlite
	File    string // path or URL, empty for in-memory data
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file, message string, err error) *ParseError {
	return &ParseError{Format: format, File: file, Message: message, Err: err}
}

// IOError reports a filesystem or database operation that failed.
type IOError struct {
	Operation string // read, write, open, rename, close
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, msg)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, msg)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// TimeoutError reports an operation that exceeded its deadline.
type TimeoutError struct {
	Operation string
	Duration  string
	Message   string
}

func (e *TimeoutError) Error() string {
	if e.Duration != "" {
		return fmt.Sprintf("operation %s timed out after %s: %s", e.Operation, e.Duration, e.Message)
	}
	return fmt.Sprintf("operation %s timed out: %s", e.Operation, e.Message)
}

// Is implements errors.Is support
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(operation, duration, message string) *TimeoutError {
	return &TimeoutError{Operation: operation, Duration: duration, Message: message}
}

// FatalError marks a failure that aborts the run with a non-zero exit.
type FatalError struct {
	Stage string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal error in %s: %v", e.Stage, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *FatalError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *FatalError) Is(target error) bool {
	return target == ErrFatal
}

// NewFatalError creates a new FatalError
func NewFatalError(stage string, err error) *FatalError {
	return &FatalError{Stage: stage, Err: err}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsRateLimited reports whether the API rejected the request with 429.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

// IsAPIUnavailable reports whether the API answered with a server error.
func IsAPIUnavailable(err error) bool { return errors.Is(err, ErrAPIUnavailable) }

// IsTimeout reports whether err is a TimeoutError.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool { return errors.Is(err, ErrFatal) }

// WrapIO wraps err as an IOError; nil stays nil.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps err as a ParseError; nil stays nil.
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapFatal wraps err as a FatalError; nil stays nil.
func WrapFatal(stage string, err error) error {
	if err == nil {
		return nil
	}
	return NewFatalError(stage, err)
}
