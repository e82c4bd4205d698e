// Package document turns one content file into a Document: its front-matter
// merged with the first matching default rule, its body and its layout.
package document

import (
	"path"
	"strings"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/fields"
	"git.home.luguber.info/inful/blogbuilder/internal/frontmatter"
	"github.com/inful/mdfp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind classifies a content file by where it lives and whether it carries
// front-matter.
type Kind string

const (
	KindPage   Kind = "page"
	KindPost   Kind = "post"
	KindDraft  Kind = "draft"
	KindStatic Kind = "static"
)

// Type returns the collection name default rules use in scope.type.
func (k Kind) Type() string {
	switch k {
	case KindPost:
		return "posts"
	case KindDraft:
		return "drafts"
	case KindStatic:
		return "static_files"
	default:
		return "pages"
	}
}

// Front-matter keys the loader interprets.
const (
	KeyLayout     = "layout"
	KeyTitle      = "title"
	KeyDate       = "date"
	KeySlug       = "slug"
	KeyPermalink  = "permalink"
	KeyCategories = "categories"
	KeyCategory   = "category"
	KeyPublished  = "published"
)

// Document is a loaded content file. It is never modified after Load
// returns; callers must Clone FrontMatter before changing it.
type Document struct {
	// SourcePath is slash-separated and relative to the site source.
	SourcePath string
	// FrontMatter is the rule values overlaid by the file's own keys, with
	// layout set to the resolved layout.
	FrontMatter *fields.Map
	// Explicit holds only the keys written in the file.
	Explicit       *fields.Map
	HadFrontMatter bool
	Format         frontmatter.Format
	Body           string
	Layout         string
	// Rule is the index of the matched default rule, or -1.
	Rule int
	Kind Kind
	Date time.Time
	Slug string
}

// Title returns the front-matter title or, failing that, the slug in title
// case.
func (d *Document) Title() string {
	if t, ok := d.FrontMatter.String(KeyTitle); ok && t != "" {
		return t
	}
	words := strings.NewReplacer("-", " ", "_", " ").Replace(d.Slug)
	return cases.Title(language.English).String(words)
}

// Published reports whether the document should be written. Only an explicit
// `published: false` hides it.
func (d *Document) Published() bool {
	p, ok := d.FrontMatter.Bool(KeyPublished)
	return !ok || p
}

// Categories returns the `categories` list (or single `category`). A plain
// string is split on whitespace.
func (d *Document) Categories() []string {
	var out []string
	for _, key := range []string{KeyCategories, KeyCategory} {
		values, ok := d.FrontMatter.Strings(key)
		if !ok {
			continue
		}
		for _, v := range values {
			out = append(out, strings.Fields(v)...)
		}
		if len(out) > 0 {
			return out
		}
	}
	return out
}

// Ext returns the lower-cased source file extension including the dot.
func (d *Document) Ext() string {
	return strings.ToLower(path.Ext(d.SourcePath))
}

// Fingerprint hashes the merged front-matter and the body. A `fingerprint`
// key already present in the front-matter does not take part.
func (d *Document) Fingerprint() (string, error) {
	fm := d.FrontMatter.Clone()
	fm.Delete(mdfp.FingerprintField)

	serialized, err := frontmatter.SerializeYAML(fm, frontmatter.Style{Newline: "\n"})
	if err != nil {
		return "", err
	}
	fmText := strings.TrimSuffix(string(serialized), "\n")
	return mdfp.CalculateFingerprintFromParts(fmText, d.Body), nil
}
