package errors

import (
	"errors"
	"fmt"
)

// ClassifiedError represents a structured error with category, severity, and context.
type ClassifiedError struct {
	category ErrorCategory
	severity ErrorSeverity
	message  string
	cause    error
	context  ErrorContext
}

// Error implements the standard error interface.
func (e *ClassifiedError) Error() string {
	if e.message == "" && e.cause != nil {
		return fmt.Sprintf("[%s:%s] %v", e.category, e.severity, e.cause)
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.category, e.severity, e.message, e.cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.category, e.severity, e.message)
}

// Unwrap implements Go 1.13+ error unwrapping.
func (e *ClassifiedError) Unwrap() error {
	return e.cause
}

// Category returns the error category.
func (e *ClassifiedError) Category() ErrorCategory {
	return e.category
}

// Severity returns the error severity.
func (e *ClassifiedError) Severity() ErrorSeverity {
	return e.severity
}

// Message returns the error message, falling back to the cause's text.
func (e *ClassifiedError) Message() string {
	if e.message == "" && e.cause != nil {
		return e.cause.Error()
	}
	return e.message
}

// Context returns the error context.
func (e *ClassifiedError) Context() ErrorContext {
	return e.context
}

// Is implements error comparison for Go 1.13+ error handling.
func (e *ClassifiedError) Is(target error) bool {
	if other, ok := target.(*ClassifiedError); ok {
		return e.category == other.category && e.message == other.message
	}
	return false
}

// Classifier is implemented by domain error types that know their own
// category and severity without being built as a ClassifiedError.
type Classifier interface {
	error
	Category() ErrorCategory
	Severity() ErrorSeverity
}

// IsClassified checks if an error chain carries a ClassifiedError or a Classifier.
func IsClassified(err error) bool {
	_, ok := AsClassified(err)
	return ok
}

// AsClassified finds the first ClassifiedError in the chain. A Classifier found
// first is converted to a ClassifiedError wrapping it.
func AsClassified(err error) (*ClassifiedError, bool) {
	if err == nil {
		return nil, false
	}
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified, true
	}
	var c Classifier
	if errors.As(err, &c) {
		return WrapError(c, c.Category(), "").WithSeverity(c.Severity()).Build(), true
	}
	return nil, false
}

// HasCategory checks if any error in the chain belongs to a category.
func HasCategory(err error, category ErrorCategory) bool {
	classified, ok := AsClassified(err)
	return ok && classified.Category() == category
}

// GetCategory extracts the category from an error, or returns CategoryInternal.
func GetCategory(err error) ErrorCategory {
	if classified, ok := AsClassified(err); ok {
		return classified.Category()
	}
	return CategoryInternal
}
