package document

import (
	"errors"
	"path"
	"regexp"
	"strings"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/fields"
	"git.home.luguber.info/inful/blogbuilder/internal/frontmatter"
	"git.home.luguber.info/inful/blogbuilder/internal/site"
)

// DefaultLayout is the process-wide fallback used by Load.
const DefaultLayout = "default"

// Loader loads content files against a site configuration. A Loader holds no
// per-call state and is safe for concurrent use.
type Loader struct {
	fallbackLayout string
	now            func() time.Time
}

// Option configures a Loader.
type Option func(*Loader)

// WithFallbackLayout sets the layout used when neither the file nor a rule
// names one. The empty string disables the fallback.
func WithFallbackLayout(layout string) Option {
	return func(l *Loader) { l.fallbackLayout = layout }
}

// WithClock replaces time.Now, which dates drafts that carry no date.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// NewLoader returns a Loader with the "default" fallback layout.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{fallbackLayout: DefaultLayout, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var defaultLoader = NewLoader()

// Load parses fileText as the content file at sourcePath using the default
// Loader.
func Load(sourcePath, fileText string, cfg *site.Config) (*Document, error) {
	return defaultLoader.Load(sourcePath, fileText, cfg)
}

// Load parses fileText as the content file at sourcePath. A nil cfg behaves
// like a configuration without default rules.
func (l *Loader) Load(sourcePath, fileText string, cfg *site.Config) (*Document, error) {
	sourcePath = site.NormalizePath(sourcePath)

	block, err := frontmatter.Split([]byte(fileText))
	if err != nil {
		if errors.Is(err, frontmatter.ErrMissingClosingDelimiter) {
			return nil, &FrontMatterParseError{Path: sourcePath, Line: 1, Err: err}
		}
		return nil, &FrontMatterParseError{Path: sourcePath, Err: err}
	}

	explicit, err := frontmatter.Parse(block)
	if err != nil {
		perr := &FrontMatterParseError{Path: sourcePath, Err: err}
		var syn *frontmatter.SyntaxError
		if errors.As(err, &syn) {
			perr.Err = syn.Err
			if syn.Line > 0 {
				perr.Line = block.StartLine - 1 + syn.Line
			}
		}
		return nil, perr
	}

	kind := kindOf(sourcePath, block.Had())

	ruleIndex := cfg.RuleFor(sourcePath, kind.Type())
	var ruleValues *fields.Map
	if ruleIndex >= 0 {
		ruleValues = cfg.Defaults[ruleIndex].Values
	}

	layout := firstLayout(explicit, ruleValues, l.fallbackLayout)
	if layout == "" {
		return nil, &MissingLayoutError{Path: sourcePath}
	}

	merged := ruleValues.Overlay(explicit)
	merged.Set(KeyLayout, layout)

	doc := &Document{
		SourcePath:     sourcePath,
		FrontMatter:    merged,
		Explicit:       explicit,
		HadFrontMatter: block.Had(),
		Format:         block.Format,
		Body:           string(block.Body),
		Layout:         layout,
		Rule:           ruleIndex,
		Kind:           kind,
	}
	l.dateAndSlug(doc, cfg)
	return doc, nil
}

// firstLayout walks the layout sources in priority order and returns the
// first non-empty string. Non-string layout values are skipped.
func firstLayout(explicit, rule *fields.Map, fallback string) string {
	if s, ok := explicit.String(KeyLayout); ok && s != "" {
		return s
	}
	if s, ok := rule.String(KeyLayout); ok && s != "" {
		return s
	}
	return fallback
}

func kindOf(sourcePath string, hadFrontMatter bool) Kind {
	dir := path.Dir(sourcePath)
	for _, seg := range strings.Split(dir, "/") {
		switch seg {
		case "_posts":
			return KindPost
		case "_drafts":
			return KindDraft
		}
	}
	if !hadFrontMatter {
		return KindStatic
	}
	return KindPage
}

var postNameRE = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)$`)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (l *Loader) dateAndSlug(doc *Document, cfg *site.Config) {
	loc := time.UTC
	if cfg != nil && cfg.Timezone != "" {
		if tz, err := time.LoadLocation(cfg.Timezone); err == nil {
			loc = tz
		}
	}

	base := path.Base(doc.SourcePath)
	name := strings.TrimSuffix(base, path.Ext(base))
	doc.Slug = name

	if doc.Kind == KindPost || doc.Kind == KindDraft {
		if m := postNameRE.FindStringSubmatch(name); m != nil {
			if t, err := time.ParseInLocation("2006-01-02", m[1], loc); err == nil {
				doc.Date = t
				doc.Slug = m[2]
			}
		}
	}

	switch v := doc.FrontMatter.Get(KeyDate).(type) {
	case time.Time:
		doc.Date = v
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, v, loc); err == nil {
				doc.Date = t
				break
			}
		}
	}
	if doc.Date.IsZero() && doc.Kind == KindDraft {
		doc.Date = l.now().In(loc)
	}

	if s, ok := doc.FrontMatter.String(KeySlug); ok && s != "" {
		doc.Slug = s
	}
}
