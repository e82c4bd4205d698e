package site

import (
	"fmt"
	"strings"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// ConfigValidationError reports a malformed or semantically invalid site
// configuration. It is fatal for the whole run.
type ConfigValidationError struct {
	// Key is the offending top-level key; empty for document-level problems.
	Key string
	// Index is the defaults entry index, or -1.
	Index int
	// Line is the 1-based line of a syntax error, or 0.
	Line   int
	Reason string
	Err    error
}

func (e *ConfigValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid site config")
	switch {
	case e.Key != "" && e.Index >= 0:
		fmt.Fprintf(&b, ": %s[%d]", e.Key, e.Index)
	case e.Key != "":
		fmt.Fprintf(&b, ": %s", e.Key)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, ": line %d", e.Line)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConfigValidationError) Unwrap() error { return e.Err }

// Category implements ferrors.Classifier.
func (e *ConfigValidationError) Category() ferrors.ErrorCategory { return ferrors.CategoryConfig }

// Severity implements ferrors.Classifier.
func (e *ConfigValidationError) Severity() ferrors.ErrorSeverity { return ferrors.SeverityFatal }

func keyError(key, reason string) *ConfigValidationError {
	return &ConfigValidationError{Key: key, Index: -1, Reason: reason}
}

func entryError(key string, index int, reason string) *ConfigValidationError {
	return &ConfigValidationError{Key: key, Index: index, Reason: reason}
}
