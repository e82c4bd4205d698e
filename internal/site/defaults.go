package site

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/blogbuilder/internal/fields"
)

// DefaultRule injects front-matter values into every content file whose path
// starts with Path.
type DefaultRule struct {
	Path string
	// Type optionally restricts the rule to one kind of document
	// ("posts", "pages", "drafts", "static_files"). Empty matches all.
	Type   string
	Values *fields.Map
}

// Equal compares two rules deeply.
func (r DefaultRule) Equal(other DefaultRule) bool {
	return r.Path == other.Path && r.Type == other.Type && r.Values.Equal(other.Values)
}

// Matches reports whether the rule applies to sourcePath for a document of
// docType. Matching is a plain string prefix test after normalisation; the
// empty path matches everything.
func (r DefaultRule) Matches(sourcePath, docType string) bool {
	if r.Type != "" && r.Type != docType {
		return false
	}
	return strings.HasPrefix(NormalizePath(sourcePath), NormalizePath(r.Path))
}

// RuleFor returns the index of the first rule matching sourcePath, or -1.
// Later rules are never consulted once one matches.
func (c *Config) RuleFor(sourcePath, docType string) int {
	if c == nil {
		return -1
	}
	for i, rule := range c.Defaults {
		if rule.Matches(sourcePath, docType) {
			return i
		}
	}
	return -1
}

// NormalizePath converts p to forward slashes and drops leading "./" and "/"
// segments so that "./_posts", "/_posts" and "_posts" compare equal.
func NormalizePath(p string) string {
	p = filepath.ToSlash(p)
	for {
		switch {
		case strings.HasPrefix(p, "./"):
			p = p[2:]
		case strings.HasPrefix(p, "/"):
			p = p[1:]
		default:
			return p
		}
	}
}
