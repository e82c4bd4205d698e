// Package errors provides foundational, type-safe error primitives used across blogbuilder.
//
// This package contains classified error types and helpers for robust error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: Broad error classification (config, frontmatter, layout, build, etc.)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - ClassifiedError: Structured error with category, severity, and context
//   - Classifier: Interface for domain error types that carry their own category
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLI adapter for error presentation and exit codes
//
// Example usage:
//
//	err := errors.WrapError(readErr, errors.CategoryFileSystem, "read content file").
//		WithContext("path", path).
//		Build()
package errors
