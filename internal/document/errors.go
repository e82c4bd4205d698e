package document

import (
	"fmt"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// FrontMatterParseError reports a front-matter block that could not be
// parsed. Line is the 1-based line in the source file, or 0 when the parser
// gave no position.
type FrontMatterParseError struct {
	Path string
	Line int
	Err  error
}

func (e *FrontMatterParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("front matter in %s: line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("front matter in %s: %v", e.Path, e.Err)
}

func (e *FrontMatterParseError) Unwrap() error { return e.Err }

// Category implements ferrors.Classifier.
func (e *FrontMatterParseError) Category() ferrors.ErrorCategory { return ferrors.CategoryFrontMatter }

// Severity implements ferrors.Classifier.
func (e *FrontMatterParseError) Severity() ferrors.ErrorSeverity { return ferrors.SeverityError }

// MissingLayoutError reports a document for which neither its own
// front-matter, a default rule, nor the loader fallback names a layout.
type MissingLayoutError struct {
	Path string
}

func (e *MissingLayoutError) Error() string {
	return fmt.Sprintf("no layout resolved for %s", e.Path)
}

// Category implements ferrors.Classifier.
func (e *MissingLayoutError) Category() ferrors.ErrorCategory { return ferrors.CategoryLayout }

// Severity implements ferrors.Classifier.
func (e *MissingLayoutError) Severity() ferrors.ErrorSeverity { return ferrors.SeverityError }
