package document

import (
	"path"
	"strings"
)

// Built-in permalink styles for posts.
const (
	PermalinkDate   = "date"
	PermalinkPretty = "pretty"
	PermalinkNone   = "none"
)

var markdownExts = map[string]bool{
	".md":       true,
	".markdown": true,
	".mkd":      true,
	".mkdn":     true,
}

// IsMarkdown reports whether the source has a Markdown extension.
func (d *Document) IsMarkdown() bool {
	return markdownExts[d.Ext()]
}

// OutputPath returns the slash-separated path, relative to the destination
// directory, the document is written to. A `permalink` front-matter key
// overrides the site style; paths ending in "/" get an index.html.
//
// Static files keep their source path. Pages keep their directory and swap a
// Markdown extension for .html. Posts and drafts follow style: "date" (or
// empty) gives /:categories/:year/:month/:day/:title.html, "pretty" the same
// as a directory, "none" gives /:categories/:title.html. Any other style is
// treated as a pattern with those placeholders.
func (d *Document) OutputPath(style string) string {
	if d.Kind == KindStatic {
		return d.SourcePath
	}
	if p, ok := d.FrontMatter.String(KeyPermalink); ok && p != "" {
		return finishOutput(d.expand(p))
	}

	if d.Kind == KindPage {
		return d.pageOutput(style)
	}

	pattern := style
	switch style {
	case "", PermalinkDate:
		pattern = "/:categories/:year/:month/:day/:title.html"
	case PermalinkPretty:
		pattern = "/:categories/:year/:month/:day/:title/"
	case PermalinkNone:
		pattern = "/:categories/:title.html"
	}
	return finishOutput(d.expand(pattern))
}

func (d *Document) pageOutput(style string) string {
	dir, base := path.Split(d.SourcePath)
	ext := path.Ext(base)
	if !d.IsMarkdown() {
		return d.SourcePath
	}
	name := strings.TrimSuffix(base, ext)
	if style == PermalinkPretty && name != "index" {
		return path.Join(dir, name, "index.html")
	}
	return path.Join(dir, name+".html")
}

func (d *Document) expand(pattern string) string {
	categories := d.Categories()
	for i, c := range categories {
		categories[i] = strings.ToLower(c)
	}
	r := strings.NewReplacer(
		":categories", strings.Join(categories, "/"),
		":year", d.Date.Format("2006"),
		":month", d.Date.Format("01"),
		":day", d.Date.Format("02"),
		":title", d.Slug,
	)
	return r.Replace(pattern)
}

func finishOutput(p string) string {
	trailing := strings.HasSuffix(p, "/")
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if trailing || p == "" {
		return path.Join(p, "index.html")
	}
	return p
}
