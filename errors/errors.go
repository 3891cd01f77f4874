// Package errors provides standardized error handling patterns for streamkit.
// It includes error classification, standard error variables, and helper functions
// for consistent error wrapping and classification across the framework.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ClassUpstream represents terminal errors delivered by an upstream producer.
	// They propagate downstream unless intercepted by an error-substitution operator.
	ClassUpstream ErrorClass = iota
	// ClassCallback represents faults raised inside user-supplied transform,
	// predicate, or consumer callbacks, caught at the nearest operator boundary.
	ClassCallback
	// ClassOverflow represents errors raised by a bounded buffer or error
	// overflow strategy when capacity or demand is exceeded.
	ClassOverflow
	// ClassMisuse represents protocol programming errors: invalid demand values,
	// double subscription, signals delivered after a terminal signal.
	ClassMisuse
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ClassUpstream:
		return "upstream"
	case ClassCallback:
		return "callback"
	case ClassOverflow:
		return "overflow"
	case ClassMisuse:
		return "misuse"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Backpressure and overflow errors
	ErrOverflow        = errors.New("downstream demand exceeded by producer emission")
	ErrBufferFull      = errors.New("overflow buffer at capacity")
	ErrMissingBackfill = errors.New("no outstanding demand for pushed item")

	// Protocol misuse errors
	ErrInvalidDemand       = errors.New("demand request must be positive")
	ErrDoubleSubscription  = errors.New("consumer already subscribed")
	ErrSignalAfterTerminal = errors.New("signal delivered after terminal signal")
	ErrDisposed            = errors.New("subscription already disposed")

	// Subscription lifecycle errors
	ErrNoItems        = errors.New("sequence completed without items")
	ErrNotSubscribed  = errors.New("producer not subscribed")
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// StreamError wraps an error with its classification and the operator context
// in which it was raised.
type StreamError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Operator  string
	Operation string
}

// Error implements the error interface
func (se *StreamError) Error() string {
	if se.Message != "" {
		return se.Message
	}
	return se.Err.Error()
}

// Unwrap returns the underlying error
func (se *StreamError) Unwrap() error {
	return se.Err
}

// IsOverflow checks if an error was raised by an overflow strategy or buffer
func IsOverflow(err error) bool {
	if err == nil {
		return false
	}

	var se *StreamError
	if errors.As(err, &se) {
		return se.Class == ClassOverflow
	}

	return errors.Is(err, ErrOverflow) ||
		errors.Is(err, ErrBufferFull) ||
		errors.Is(err, ErrMissingBackfill)
}

// IsCallback checks if an error originated in a user-supplied callback
func IsCallback(err error) bool {
	if err == nil {
		return false
	}

	var se *StreamError
	if errors.As(err, &se) {
		return se.Class == ClassCallback
	}

	return false
}

// IsMisuse checks if an error is a protocol programming error
func IsMisuse(err error) bool {
	if err == nil {
		return false
	}

	var se *StreamError
	if errors.As(err, &se) {
		return se.Class == ClassMisuse
	}

	return errors.Is(err, ErrInvalidDemand) ||
		errors.Is(err, ErrDoubleSubscription) ||
		errors.Is(err, ErrSignalAfterTerminal)
}

// Classify returns the error class for an error. Unclassified errors default
// to ClassUpstream, matching the protocol rule that an unintercepted error is
// terminal and propagates to the outermost consumer.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUpstream
	}

	var se *StreamError
	if errors.As(err, &se) {
		return se.Class
	}

	if IsOverflow(err) {
		return ClassOverflow
	}
	if IsMisuse(err) {
		return ClassMisuse
	}

	return ClassUpstream
}

// newClassified creates a new classified error.
// This is an internal helper - use WrapCallback(), WrapOverflow(), or WrapMisuse() instead.
func newClassified(class ErrorClass, err error, operator, operation, message string) *StreamError {
	return &StreamError{
		Class:     class,
		Err:       err,
		Message:   message,
		Operator:  operator,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "operator.operation: action failed: %w"
func Wrap(err error, operator, operation, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", operator, operation, action, err)
}

// WrapCallback wraps a fault raised by a user-supplied callback with context
func WrapCallback(err error, operator, operation, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, operator, operation, action)
	return newClassified(ClassCallback, wrappedErr, operator, operation, wrappedErr.Error())
}

// WrapOverflow wraps an overflow error with context
func WrapOverflow(err error, operator, operation, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, operator, operation, action)
	return newClassified(ClassOverflow, wrappedErr, operator, operation, wrappedErr.Error())
}

// WrapMisuse wraps a protocol misuse error with context
func WrapMisuse(err error, operator, operation, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, operator, operation, action)
	return newClassified(ClassMisuse, wrappedErr, operator, operation, wrappedErr.Error())
}

// Recovered converts a recovered panic value into a callback-classified error.
// Operators call this at the boundary of user transform code so no panic
// crosses an operator boundary as a language-level fault.
func Recovered(v any, operator, operation string) error {
	var err error
	switch t := v.(type) {
	case error:
		err = t
	default:
		err = fmt.Errorf("panic: %v", t)
	}
	return WrapCallback(err, operator, operation, "user callback")
}
